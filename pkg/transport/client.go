package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/gemini-fanout-kit/pkg/domain"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 2 * time.Second
)

// Policy はリトライ回数と基準待機時間です。
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy は 5 回・2 秒基準のポリシーを返します。
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// RetryState は 1 論理呼び出しの間だけ存在するリトライ状態です。
type RetryState struct {
	Attempt     int
	MaxAttempts int
	BaseDelay   time.Duration
}

func (s RetryState) exhausted() bool {
	return s.Attempt >= s.MaxAttempts
}

// backoff は指数バックオフの待機時間 (BaseDelay * 2^(Attempt-1)) です。
func (s RetryState) backoff() time.Duration {
	return s.BaseDelay << (s.Attempt - 1)
}

// Sleeper は ctx を尊重して d だけ待機します。
type Sleeper func(ctx context.Context, d time.Duration) error

// Client はレート制限と不正レスポンスに対してリトライする Caller のラッパーです。
type Client struct {
	caller   Caller
	policy   Policy
	sleep    Sleeper
	observer domain.Observer
}

// Option は Client の設定を変更します。
type Option func(*Client)

// WithPolicy はリトライポリシーを設定します。
func WithPolicy(p Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithSleeper は待機処理を差し替えます（主にテスト用）。
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// WithObserver はリトライ時の進捗イベントの受け手を設定します。
func WithObserver(o domain.Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient は Caller を包んだリトライ付きクライアントを返します。
func NewClient(caller Caller, opts ...Option) (*Client, error) {
	if caller == nil {
		return nil, fmt.Errorf("caller is required")
	}
	c := &Client{
		caller: caller,
		policy: DefaultPolicy(),
		sleep:  sleepWithCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy.MaxAttempts < 1 {
		c.policy.MaxAttempts = 1
	}
	if c.policy.BaseDelay < 0 {
		c.policy.BaseDelay = 0
	}
	return c, nil
}

// Call は 1 論理呼び出しを行い、レスポンスのユニット列を返します。
//
//   - 429: 上限未満ならサーバー指定の待機時間、無ければ指数バックオフで待って再試行。
//     上限に達したら *domain.RateLimitError。
//   - その他の非成功ステータス・ネットワークエラー: 即座に返す。
//   - 構造が不正な成功レスポンス: BaseDelay 固定で待って再試行。
//     上限に達したら *domain.MalformedResponseError。
func (c *Client) Call(ctx context.Context, req *domain.GenerationRequest) ([]domain.ResponseUnit, error) {
	state := RetryState{Attempt: 1, MaxAttempts: c.policy.MaxAttempts, BaseDelay: c.policy.BaseDelay}

	for {
		units, err := c.attempt(ctx, req)
		if err == nil {
			return units, nil
		}
		if !domain.IsRetryable(err) {
			return nil, err
		}

		wait, message, final := c.nextWait(state, err)
		if final != nil {
			return nil, final
		}

		index := domain.RequestIndex(ctx)
		slog.WarnContext(ctx, message,
			"request_index", index+1,
			"model", req.ModelID,
			"attempt", state.Attempt,
			"max_attempts", state.MaxAttempts,
			"wait", wait,
		)
		c.observer.Notify(domain.Event{
			Kind:        domain.EventRetrying,
			Index:       index,
			Attempt:     state.Attempt,
			MaxAttempts: state.MaxAttempts,
			Wait:        wait,
			Message:     fmt.Sprintf("%s (Attempt %d/%d)", message, state.Attempt, state.MaxAttempts),
			Err:         err,
		})

		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
		state.Attempt++
	}
}

func (c *Client) attempt(ctx context.Context, req *domain.GenerationRequest) ([]domain.ResponseUnit, error) {
	resp, err := c.caller.CallOnce(ctx, req)
	if err != nil {
		return nil, err
	}
	return ExtractUnits(resp)
}

// nextWait は待機時間と表示用メッセージを返します。リトライ上限なら final に最終エラーを入れます。
func (c *Client) nextWait(state RetryState, err error) (time.Duration, string, error) {
	var rl *domain.RateLimitedError
	if errors.As(err, &rl) {
		if state.exhausted() {
			return 0, "", &domain.RateLimitError{Attempts: state.MaxAttempts, Body: rl.Message}
		}
		if rl.Advised {
			return rl.RetryAfter, fmt.Sprintf("Rate limit hit. Retrying after %s...", formatSeconds(rl.RetryAfter)), nil
		}
		wait := state.backoff()
		return wait, fmt.Sprintf("Rate limit hit. Retrying in %s...", formatSeconds(wait)), nil
	}

	if state.exhausted() {
		return 0, "", &domain.MalformedResponseError{Attempts: state.MaxAttempts, Err: err}
	}
	return state.BaseDelay, fmt.Sprintf("Received unexpected API response. Retrying in %s...", formatSeconds(state.BaseDelay)), nil
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%g seconds", d.Seconds())
}

// sleepWithCtx は ctx がキャンセルされると即座に戻る sleep です。
func sleepWithCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
