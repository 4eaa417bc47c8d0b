package transport

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var (
	// RESOURCE_EXHAUSTED の後ろに JSON が埋め込まれた形式のエラーメッセージ
	resourceExhaustedPattern = regexp.MustCompile(`(?s)RESOURCE_EXHAUSTED\.\s*(\{.*\})`)
	retryAfterPattern        = regexp.MustCompile(`(?i)retry after (\d+)\s*seconds?`)
)

// ParseRetryDelay は 429 のエラー本文からサーバー推奨の待機時間を取り出します。
// 構造化された詳細（error.details[].retryDelay）を優先し、だめなら
// "retry after N seconds" の文言を探します。見つからなければ false です。
func ParseRetryDelay(message string) (time.Duration, bool) {
	if d, ok := parseStructuredDelay(message); ok {
		return d, true
	}

	if m := retryAfterPattern.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return time.Duration(n) * time.Second, true
		}
	}
	return 0, false
}

func parseStructuredDelay(message string) (time.Duration, bool) {
	var docs []string
	if m := resourceExhaustedPattern.FindStringSubmatch(message); m != nil {
		docs = append(docs, m[1])
	}
	if i := strings.Index(message, "{"); i >= 0 {
		docs = append(docs, message[i:])
	}

	for _, doc := range docs {
		if !gjson.Valid(doc) {
			continue
		}
		var (
			delay time.Duration
			found bool
		)
		gjson.Get(doc, "error.details").ForEach(func(_, detail gjson.Result) bool {
			v := detail.Get("retryDelay")
			if v.Type != gjson.String {
				return true
			}
			if d, ok := parseDelayString(v.String()); ok {
				delay, found = d, true
				return false
			}
			return true
		})
		if found {
			return delay, true
		}
	}
	return 0, false
}

// parseDelayString は "7s" や "1.5s" 形式の文字列を解釈します。
func parseDelayString(s string) (time.Duration, bool) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

// parseRetryAfterHeader は Retry-After ヘッダ（秒数）を解釈します。
func parseRetryAfterHeader(v string) (time.Duration, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}
