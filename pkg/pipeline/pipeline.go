package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/gemini-fanout-kit/pkg/domain"
	"github.com/shouni/gemini-fanout-kit/pkg/fanout"
	"github.com/shouni/gemini-fanout-kit/pkg/request"
)

// Encoder は入力画像スロットをエンコードします。encoder.Encoder が実装します。
type Encoder interface {
	EncodeAll(ctx context.Context, sources ...string) ([]domain.EncodedImage, error)
}

// Runner は 1 つのリクエストを N 回ファンアウトして集約します。fanout.Orchestrator が実装します。
type Runner interface {
	RunAll(ctx context.Context, req *domain.GenerationRequest, n int) domain.AggregateResult
}

// RunnerFactory は送信ごとの認証情報から Runner を組み立てます。
type RunnerFactory func(credential string) (Runner, error)

// Report は 1 回の送信の結果と、表示用のステータス文言です。
type Report struct {
	Result  domain.AggregateResult
	Status  string
	IsError bool // すべての呼び出しが失敗した場合に true
}

// Pipeline は送信アクションを 検証 → エンコード → リクエスト構築 → ファンアウト の順に実行します。
type Pipeline struct {
	encoder     Encoder
	newRunner   RunnerFactory
	maxRequests int
	observer    domain.Observer
}

// Option は Pipeline の設定を変更します。
type Option func(*Pipeline)

// WithMaxRequests はリクエスト数の上限を設定します。
func WithMaxRequests(n int) Option {
	return func(p *Pipeline) { p.maxRequests = n }
}

// WithObserver は進捗イベントの受け手を設定します。
func WithObserver(o domain.Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// New は Pipeline を初期化します。
func New(enc Encoder, newRunner RunnerFactory, opts ...Option) (*Pipeline, error) {
	if enc == nil {
		return nil, fmt.Errorf("encoder is required")
	}
	if newRunner == nil {
		return nil, fmt.Errorf("runner factory is required")
	}
	p := &Pipeline{encoder: enc, newRunner: newRunner, maxRequests: DefaultMaxRequests}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Execute は 1 回の送信を処理します。
// 検証・読み込み・構築のエラーはネットワーク呼び出し前にエラーとして返します。
// 呼び出し単位の失敗はエラーにせず Report に集約します。
func (p *Pipeline) Execute(ctx context.Context, sub Submission) (*Report, error) {
	if err := sub.Validate(p.maxRequests); err != nil {
		return nil, err
	}
	sub = sub.normalized()

	p.observer.Notify(domain.Event{Kind: domain.EventPreparing, Index: -1, Message: "Reading images and preparing request..."})

	images, err := p.encoder.EncodeAll(ctx, sub.File1, sub.File2)
	if err != nil {
		return nil, err
	}

	req, err := request.Build(sub.PromptText, images, sub.ModelID)
	if err != nil {
		return nil, err
	}

	runner, err := p.newRunner(sub.Credential)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generation client: %w", err)
	}

	p.observer.Notify(domain.Event{
		Kind:    domain.EventSending,
		Index:   -1,
		Message: fmt.Sprintf("Sending %d request(s) to Gemini...", sub.RequestCount),
	})
	slog.InfoContext(ctx, "Dispatching generation requests",
		"model", sub.ModelID, "requests", sub.RequestCount, "images", len(images))

	res := runner.RunAll(ctx, req, sub.RequestCount)
	status, isErr := fanout.Summarize(res)

	return &Report{Result: res, Status: status, IsError: isErr}, nil
}
