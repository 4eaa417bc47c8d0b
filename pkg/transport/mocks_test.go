package transport

import (
	"context"
	"sync"
	"time"

	"github.com/shouni/gemini-fanout-kit/pkg/domain"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// --- Mocks ---

type reply struct {
	resp *genai.GenerateContentResponse
	err  error
}

// mockCaller は登録順に応答を返します。応答が尽きたら最後の応答を繰り返します。
type mockCaller struct {
	mu      sync.Mutex
	replies []reply
	calls   int
}

func (m *mockCaller) CallOnce(ctx context.Context, req *domain.GenerationRequest) (*genai.GenerateContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	if i >= len(m.replies) {
		i = len(m.replies) - 1
	}
	m.calls++
	r := m.replies[i]
	return r.resp, r.err
}

// sleepRecorder は実際には待たずに待機時間だけを記録します。
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return ctx.Err()
}

type mockAIClient struct {
	generateWithPartsFunc func(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
}

func (m *mockAIClient) GenerateContent(ctx context.Context, model string, prompt string) (*gemini.Response, error) {
	return nil, nil
}

func (m *mockAIClient) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	return m.generateWithPartsFunc(ctx, model, parts, opts)
}

func (m *mockAIClient) UploadFile(ctx context.Context, data []byte, mimeType, displayName string) (string, string, error) {
	return "", "", nil
}

func (m *mockAIClient) DeleteFile(ctx context.Context, name string) error {
	return nil
}

func (m *mockAIClient) GetFile(ctx context.Context, name string) (*genai.File, error) {
	return nil, nil
}

func textResponse(texts ...string) *genai.GenerateContentResponse {
	parts := make([]*genai.Part, 0, len(texts))
	for _, t := range texts {
		parts = append(parts, &genai.Part{Text: t})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func testRequest() *domain.GenerationRequest {
	return &domain.GenerationRequest{
		PromptText: "a lighthouse at dusk",
		ModelID:    "gemini-2.0-flash-exp-image-generation",
		Contents:   []*genai.Content{{Parts: []*genai.Part{{Text: "a lighthouse at dusk"}}}},
		Modalities: []string{"Image", "Text"},
	}
}
