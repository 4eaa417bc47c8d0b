package pipeline

import (
	"fmt"
	"strings"

	"github.com/shouni/gemini-fanout-kit/pkg/domain"
)

// DefaultMaxRequests は 1 回の送信で許可する並列リクエスト数の上限です。
const DefaultMaxRequests = 10

// Submission はユーザーが 1 回の送信で指定する入力一式です。
type Submission struct {
	Credential   string
	PromptText   string
	ModelID      string
	File1        string // 任意。ローカルパスまたは http(s) URL
	File2        string // 任意
	RequestCount int
}

// Validate は前後の空白を除いた値で必須項目とリクエスト数を検証します。
// 検証エラーはネットワーク呼び出しより前に返されます。
func (s Submission) Validate(maxRequests int) error {
	if maxRequests < 1 {
		maxRequests = DefaultMaxRequests
	}
	switch {
	case strings.TrimSpace(s.Credential) == "":
		return &domain.ValidationError{Field: "credential", Message: "API Key is required."}
	case strings.TrimSpace(s.PromptText) == "":
		return &domain.ValidationError{Field: "prompt", Message: "Prompt is required."}
	case strings.TrimSpace(s.ModelID) == "":
		return &domain.ValidationError{Field: "model", Message: "Please select a generation model."}
	case s.RequestCount < 1 || s.RequestCount > maxRequests:
		return &domain.ValidationError{
			Field:   "requests",
			Message: fmt.Sprintf("Number of requests must be between 1 and %d.", maxRequests),
		}
	}
	return nil
}

// normalized は空白を除いたコピーを返します。
func (s Submission) normalized() Submission {
	s.Credential = strings.TrimSpace(s.Credential)
	s.PromptText = strings.TrimSpace(s.PromptText)
	s.ModelID = strings.TrimSpace(s.ModelID)
	s.File1 = strings.TrimSpace(s.File1)
	s.File2 = strings.TrimSpace(s.File2)
	return s
}
