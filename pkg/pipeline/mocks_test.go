package pipeline

import (
	"context"
	"sync"

	"github.com/shouni/gemini-fanout-kit/pkg/domain"
)

// --- Mocks ---

type mockEncoder struct {
	images  []domain.EncodedImage
	err     error
	sources []string
}

func (m *mockEncoder) EncodeAll(ctx context.Context, sources ...string) ([]domain.EncodedImage, error) {
	m.sources = sources
	return m.images, m.err
}

type mockRunner struct {
	result domain.AggregateResult
	gotReq *domain.GenerationRequest
	gotN   int
}

func (m *mockRunner) RunAll(ctx context.Context, req *domain.GenerationRequest, n int) domain.AggregateResult {
	m.gotReq, m.gotN = req, n
	return m.result
}

type eventLog struct {
	mu     sync.Mutex
	events []domain.Event
}

func (l *eventLog) observe(ev domain.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) messages(kind domain.EventKind) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, ev := range l.events {
		if ev.Kind == kind {
			out = append(out, ev.Message)
		}
	}
	return out
}
