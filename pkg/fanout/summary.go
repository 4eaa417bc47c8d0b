package fanout

import (
	"fmt"
	"strings"

	"github.com/shouni/gemini-fanout-kit/pkg/domain"
)

// Summarize は集約結果からステータス文言を作ります。
// 2 番目の戻り値は、すべての呼び出しが失敗したときに true です。
func Summarize(res domain.AggregateResult) (string, bool) {
	if res.SuccessCount == 0 {
		msg := "Unknown error"
		if res.FirstError != nil {
			msg = res.FirstError.Error()
		}
		return fmt.Sprintf("All %d generation requests failed. First error: %s", res.Total(), msg), true
	}

	var parts []string
	if n := len(res.Images); n > 0 {
		parts = append(parts, fmt.Sprintf("Successfully generated %d image(s)", n))
	}
	if n := len(res.Texts); n > 0 {
		parts = append(parts, fmt.Sprintf("Successfully generated %d text(s)", n))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d request(s) succeeded but returned no content", res.SuccessCount))
	}

	status := strings.Join(parts, ". ")
	if res.FailureCount > 0 {
		status += fmt.Sprintf(" (%d request(s) failed)", res.FailureCount)
	}
	return status, false
}
