package domain

import (
	"context"
	"time"
)

// EventKind は進捗イベントの種別です。
type EventKind string

const (
	EventPreparing     EventKind = "preparing"
	EventSending       EventKind = "sending"
	EventDispatched    EventKind = "dispatched"
	EventRetrying      EventKind = "retrying"
	EventCallSucceeded EventKind = "call_succeeded"
	EventCallFailed    EventKind = "call_failed"
	EventCompleted     EventKind = "completed"
)

// Event はコア処理からプレゼンテーション層へ渡す進捗通知です。
// コアは UI を直接触らず、このイベントだけを発行します。
type Event struct {
	Kind        EventKind
	Index       int // ファンアウト呼び出しの番号。該当しない場合は -1
	Attempt     int
	MaxAttempts int
	Wait        time.Duration
	Message     string
	Err         error
}

// Observer はイベントの受け手です。並列の呼び出しから同時に呼ばれるため、
// 実装は並行安全である必要があります。
type Observer func(Event)

// Notify は Observer が nil でなければイベントを渡します。
func (o Observer) Notify(ev Event) {
	if o != nil {
		o(ev)
	}
}

type requestIndexKey struct{}

// WithRequestIndex はファンアウト呼び出しの番号 (0 始まり) を ctx に載せます。
func WithRequestIndex(ctx context.Context, i int) context.Context {
	return context.WithValue(ctx, requestIndexKey{}, i)
}

// RequestIndex は ctx に載った呼び出し番号を返します。無ければ -1 です。
func RequestIndex(ctx context.Context) int {
	if i, ok := ctx.Value(requestIndexKey{}).(int); ok {
		return i
	}
	return -1
}
