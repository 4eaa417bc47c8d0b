package fanout

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shouni/gemini-fanout-kit/pkg/domain"
)

// --- Mocks ---

// mockInvoker は n 回目 (1 始まり) の呼び出しに対して callFunc の結果を返します。
type mockInvoker struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	callFunc func(ctx context.Context, n int) ([]domain.ResponseUnit, error)
}

func (m *mockInvoker) Call(ctx context.Context, req *domain.GenerationRequest) ([]domain.ResponseUnit, error) {
	n := int(m.calls.Add(1))
	cur := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		prev := m.maxSeen.Load()
		if cur <= prev || m.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}
	if m.callFunc == nil {
		return []domain.ResponseUnit{domain.TextUnit("ok")}, nil
	}
	return m.callFunc(ctx, n)
}

// eventLog は並列に届くイベントを記録します。
type eventLog struct {
	mu     sync.Mutex
	events []domain.Event
}

func (l *eventLog) observe(ev domain.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) count(kind domain.EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (l *eventLog) indexes(kind domain.EventKind) []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []int
	for _, ev := range l.events {
		if ev.Kind == kind {
			out = append(out, ev.Index)
		}
	}
	return out
}

func (l *eventLog) last() domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

func testRequest() *domain.GenerationRequest {
	return &domain.GenerationRequest{PromptText: "a fox", ModelID: "gemini-2.0-flash-exp-image-generation"}
}
