// Package fakeapi は generateContent エンドポイントを模倣するローカルサーバーです。
// API キー無しでのデモや、レート制限を含むリトライ動作のテストに使います。
package fakeapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"
	"google.golang.org/genai"
)

const generateSuffix = ":generateContent"

// Reply はスクリプトで指定する 1 回分の応答です。
// Status が 0 の場合は通常の生成レスポンスを返します。
type Reply struct {
	Status int
	Body   string
	Header http.Header
}

// Server は http.Handler として動作する偽の Gemini API です。
type Server struct {
	apiKey string

	mu        sync.Mutex
	script    []Reply
	calls     int
	generator *loremgen.Lorem
	pngData   []byte
}

// Option は Server の設定を変更します。
type Option func(*Server)

// WithScript は n 回目の呼び出しに n 番目の応答を返すように設定します。
// スクリプトを使い切った後は通常の生成レスポンスです。
func WithScript(replies ...Reply) Option {
	return func(s *Server) { s.script = append(s.script, replies...) }
}

// New は apiKey を要求する Server を作ります。
func New(apiKey string, opts ...Option) *Server {
	s := &Server{
		apiKey:    apiKey,
		generator: loremgen.New(),
		pngData:   onePixelPNG(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calls はこれまでに受け付けた generateContent 呼び出しの回数です。
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type requestBody struct {
	Contents         []*genai.Content `json:"contents"`
	GenerationConfig struct {
		ResponseModalities []string `json:"responseModalities"`
	} `json:"generationConfig"`
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	model, ok := modelFromPath(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("unknown path %s", r.URL.Path))
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "INVALID_ARGUMENT", "method not allowed")
		return
	}
	if r.URL.Query().Get("key") != s.apiKey {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "API key not valid. Please pass a valid API key.")
		return
	}

	var body requestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Contents) == 0 {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "Invalid JSON payload received.")
		return
	}

	reply, scripted := s.next()
	slog.Debug("fakeapi request", "model", model, "scripted", scripted, "status", reply.Status)

	if scripted && reply.Status != 0 {
		for k, vs := range reply.Header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reply.Status)
		_, _ = w.Write([]byte(reply.Body))
		return
	}

	resp := s.generate(wantsImage(body.GenerationConfig.ResponseModalities))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) next() (Reply, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.script) {
		return s.script[i], true
	}
	return Reply{}, false
}

func (s *Server) generate(withImage bool) *genai.GenerateContentResponse {
	s.mu.Lock()
	text := s.generator.Paragraph(3, 5)
	s.mu.Unlock()

	parts := []*genai.Part{{Text: text}}
	if withImage {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: s.pngData}})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

// RateLimitBody は retryDelay 付きの 429 エラー本文を返します。
func RateLimitBody(delay time.Duration) string {
	return fmt.Sprintf(`{"error":{"code":429,"message":"Resource has been exhausted (e.g. check quota).","status":"RESOURCE_EXHAUSTED","details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"%gs"}]}}`,
		delay.Seconds())
}

// RateLimited は RateLimitBody を本文に持つ 429 応答です。
func RateLimited(delay time.Duration) Reply {
	return Reply{Status: http.StatusTooManyRequests, Body: RateLimitBody(delay)}
}

func modelFromPath(path string) (string, bool) {
	i := strings.LastIndex(path, "/models/")
	if i < 0 || !strings.HasSuffix(path, generateSuffix) {
		return "", false
	}
	model := strings.TrimSuffix(path[i+len("/models/"):], generateSuffix)
	return model, model != ""
}

func wantsImage(modalities []string) bool {
	for _, m := range modalities {
		if strings.EqualFold(m, "image") {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, code int, status, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": message, "status": status},
	})
}

func onePixelPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 0x4f, G: 0x46, B: 0xe5, A: 0xff})
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
