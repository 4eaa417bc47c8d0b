package domain

import (
	"errors"
	"fmt"
	"time"
)

// errors.Is で判定するための番兵エラーです。
var (
	ErrValidation        = errors.New("validation error")
	ErrRead              = errors.New("read error")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrAPI               = errors.New("api error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrNetwork           = errors.New("network error")
)

// ValidationError は入力不足などでネットワーク呼び出し前に中断したことを表します。
// Message はそのままユーザーに表示できる文言です。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ReadError は入力画像の読み込み・エンコード失敗です。送信全体を中断させます。
type ReadError struct {
	Source string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("Error reading file: %s: %v", e.Source, e.Err)
}

func (e *ReadError) Unwrap() []error { return []error{ErrRead, e.Err} }

// RateLimitError は 429 がリトライ上限を超えて続いたことを表します。
type RateLimitError struct {
	Attempts int
	Body     string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Rate limit hit. Max retries (%d) exceeded. %s", e.Attempts, e.Body)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimitExceeded }

// APIError は 429 以外の非成功ステータスです。リトライしません。
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API Error: %s", e.Status)
	}
	return fmt.Sprintf("API Error: %s - %s", e.Status, e.Body)
}

func (e *APIError) Unwrap() error { return ErrAPI }

// MalformedResponseError は期待するレスポンス構造がリトライ上限まで得られなかったことを表します。
type MalformedResponseError struct {
	Attempts int
	Err      error
}

func (e *MalformedResponseError) Error() string {
	msg := fmt.Sprintf("Invalid or empty response received from API (after %d attempts)", e.Attempts)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error { return ErrMalformedResponse }

// NetworkError は接続拒否などトランスポート層の失敗です。リトライしません。
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() []error { return []error{ErrNetwork, e.Err} }

// RateLimitedError は 1 回の呼び出しで 429 を受けたことを示すシグナルです。
// Advised が true のとき RetryAfter はサーバーが指定した待機時間です。
type RateLimitedError struct {
	RetryAfter time.Duration
	Advised    bool
	Message    string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: %s", e.Message)
}

// IsRetryable はトランスポートがリトライ対象とするエラーかどうかを返します。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return true
	}
	return errors.Is(err, ErrMalformedResponse)
}
