package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shouni/gemini-fanout-kit/pkg/domain"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// SDKCaller は go-gemini-client の GenerativeModel を Caller として使うアダプターです。
// gemini.GenerateOptions には responseModalities を指定する項目が無いため、
// req.Modalities は送信されず、出力形式はモデルの既定に従います。
type SDKCaller struct {
	aiClient gemini.GenerativeModel
}

// NewSDKCaller は SDKCaller を初期化します。
func NewSDKCaller(aiClient gemini.GenerativeModel) (*SDKCaller, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient (gemini.GenerativeModel) is required")
	}
	return &SDKCaller{aiClient: aiClient}, nil
}

// CallOnce はリクエストのパーツをそのまま GenerateWithParts に渡します。
func (c *SDKCaller) CallOnce(ctx context.Context, req *domain.GenerationRequest) (*genai.GenerateContentResponse, error) {
	var parts []*genai.Part
	for _, content := range req.Contents {
		if content != nil {
			parts = append(parts, content.Parts...)
		}
	}

	resp, err := c.aiClient.GenerateWithParts(ctx, req.ModelID, parts, gemini.GenerateOptions{})
	if err != nil {
		return nil, classifySDKError(ctx, err)
	}
	if resp == nil {
		return nil, nil
	}
	return resp.RawResponse, nil
}

// classifySDKError は SDK のエラーを Caller の契約に沿ったエラーに変換します。
func classifySDKError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return &domain.NetworkError{Err: err}
	}

	if apiErr.Code == http.StatusTooManyRequests {
		rl := &domain.RateLimitedError{Message: apiErr.Message}
		if d, ok := retryDelayFromDetails(apiErr.Details); ok {
			rl.RetryAfter, rl.Advised = d, true
		} else if d, ok := ParseRetryDelay(apiErr.Message); ok {
			rl.RetryAfter, rl.Advised = d, true
		}
		return rl
	}

	return &domain.APIError{
		StatusCode: apiErr.Code,
		Status:     fmt.Sprintf("%d %s", apiErr.Code, apiErr.Status),
		Body:       apiErr.Message,
	}
}

func retryDelayFromDetails(details []map[string]any) (time.Duration, bool) {
	for _, d := range details {
		if s, ok := d["retryDelay"].(string); ok {
			if delay, ok := parseDelayString(s); ok {
				return delay, true
			}
		}
	}
	return 0, false
}
