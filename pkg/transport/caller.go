package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shouni/gemini-fanout-kit/pkg/domain"
	"github.com/shouni/gemini-fanout-kit/pkg/request"

	"google.golang.org/genai"
)

// DefaultBaseURL は Google Generative Language API のベース URL です。
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Caller は generateContent を 1 回だけ呼び出します。リトライは行いません。
//
// 返すエラーは以下のいずれかです。
//   - *domain.RateLimitedError（429）
//   - *domain.APIError（その他の非成功ステータス）
//   - *domain.NetworkError（接続失敗など）
//   - domain.ErrMalformedResponse をラップしたエラー（本文が解釈できない）
type Caller interface {
	CallOnce(ctx context.Context, req *domain.GenerationRequest) (*genai.GenerateContentResponse, error)
}

// Doer は *http.Client を抽象化したものです。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RESTCaller は REST API を直接叩く Caller です。
// 認証情報とエンドポイントは並列呼び出し間で読み取り専用に共有されます。
type RESTCaller struct {
	baseURL string
	apiKey  string
	doer    Doer
}

// NewRESTCaller は RESTCaller を初期化します。doer が nil なら http.DefaultClient を使います。
func NewRESTCaller(baseURL, apiKey string, doer Doer) (*RESTCaller, error) {
	if apiKey == "" {
		return nil, &domain.ValidationError{Field: "credential", Message: "API Key is required."}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if doer == nil {
		doer = http.DefaultClient
	}
	return &RESTCaller{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		doer:    doer,
	}, nil
}

// Endpoint はモデルごとの generateContent URL を返します。
func (c *RESTCaller) Endpoint(modelID string) string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(modelID), url.QueryEscape(c.apiKey))
}

// CallOnce は 1 回分の POST を行い、ステータスに応じてエラーを分類します。
func (c *RESTCaller) CallOnce(ctx context.Context, req *domain.GenerationRequest) (*genai.GenerateContentResponse, error) {
	body, err := request.MarshalBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(req.ModelID), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.doer.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.NetworkError{Err: fmt.Errorf("レスポンス読み込み失敗: %w", err)}
	}
	text := strings.TrimSpace(string(raw))

	if resp.StatusCode == http.StatusTooManyRequests {
		rl := &domain.RateLimitedError{Message: text}
		if d, ok := ParseRetryDelay(text); ok {
			rl.RetryAfter, rl.Advised = d, true
		} else if d, ok := parseRetryAfterHeader(resp.Header.Get("Retry-After")); ok {
			rl.RetryAfter, rl.Advised = d, true
		}
		return nil, rl
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: text}
	}

	var out genai.GenerateContentResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return &out, nil
}
