package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/gemini-fanout-kit/pkg/domain"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Invoker はリトライ込みの論理呼び出しを 1 回行います。transport.Client が実装します。
type Invoker interface {
	Call(ctx context.Context, req *domain.GenerationRequest) ([]domain.ResponseUnit, error)
}

// Orchestrator は同じリクエストを N 回並列に送り、結果を集約します。
type Orchestrator struct {
	invoker     Invoker
	policy      Policy
	concurrency int
	limiter     *rate.Limiter
	observer    domain.Observer
}

// Option は Orchestrator の設定を変更します。
type Option func(*Orchestrator)

// WithPolicy は分類ポリシーを設定します。
func WithPolicy(p Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithConcurrencyLimit は同時実行数の上限を設定します。0 以下は無制限です。
func WithConcurrencyLimit(n int) Option {
	return func(o *Orchestrator) { o.concurrency = n }
}

// WithDispatchInterval は呼び出し開始の最小間隔を設定します。0 は無制限です。
func WithDispatchInterval(interval time.Duration) Option {
	return func(o *Orchestrator) {
		if interval > 0 {
			o.limiter = rate.NewLimiter(rate.Every(interval), 1)
		} else {
			o.limiter = nil
		}
	}
}

// WithObserver は進捗イベントの受け手を設定します。
func WithObserver(obs domain.Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// New は Orchestrator を初期化します。
func New(invoker Invoker, opts ...Option) (*Orchestrator, error) {
	if invoker == nil {
		return nil, fmt.Errorf("invoker is required")
	}
	o := &Orchestrator{invoker: invoker, policy: PolicyPerUnit}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Dispatch は n 回の呼び出しを並列に実行し、ディスパッチ順の結果を返します。
// n が 1 未満なら 1 回だけ呼び出します。失敗した呼び出しが他の呼び出しを止めることはありません。
func (o *Orchestrator) Dispatch(ctx context.Context, req *domain.GenerationRequest, n int) []domain.RequestOutcome {
	if n < 1 {
		n = 1
	}

	outcomes := make([]domain.RequestOutcome, n)
	var eg errgroup.Group
	if o.concurrency > 0 {
		eg.SetLimit(o.concurrency)
	}

	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			// 各 goroutine は自分のスロットにだけ書き込む
			outcomes[i] = o.invoke(ctx, req, i)
			return nil
		})
	}
	_ = eg.Wait()

	return outcomes
}

func (o *Orchestrator) invoke(ctx context.Context, req *domain.GenerationRequest, i int) domain.RequestOutcome {
	logger := slog.With("request_index", i+1)
	ctx = domain.WithRequestIndex(ctx, i)

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return o.fail(ctx, logger, i, err)
		}
	}

	o.observer.Notify(domain.Event{Kind: domain.EventDispatched, Index: i})
	startTime := time.Now()

	units, err := o.invoker.Call(ctx, req)
	if err != nil {
		return o.fail(ctx, logger, i, err)
	}

	logger.Info("Generation request completed", "units", len(units), "duration", time.Since(startTime).Round(time.Millisecond))
	o.observer.Notify(domain.Event{Kind: domain.EventCallSucceeded, Index: i})
	return domain.RequestOutcome{Index: i, Units: units}
}

func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, i int, err error) domain.RequestOutcome {
	logger.WarnContext(ctx, "Generation request failed", "error", err)
	o.observer.Notify(domain.Event{Kind: domain.EventCallFailed, Index: i, Err: err, Message: err.Error()})
	return domain.RequestOutcome{Index: i, Err: err}
}

// RunAll は Dispatch の結果をポリシーに従って集約します。
func (o *Orchestrator) RunAll(ctx context.Context, req *domain.GenerationRequest, n int) domain.AggregateResult {
	res := Aggregate(o.Dispatch(ctx, req, n), o.policy)

	status, _ := Summarize(res)
	slog.Info("Fan-out completed", "success", res.SuccessCount, "failed", res.FailureCount, "images", len(res.Images), "texts", len(res.Texts))
	o.observer.Notify(domain.Event{Kind: domain.EventCompleted, Index: -1, Message: status, Err: res.FirstError})
	return res
}
