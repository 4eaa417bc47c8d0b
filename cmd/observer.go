package cmd

import (
	"log/slog"

	"github.com/shouni/gemini-fanout-kit/pkg/domain"
)

// logObserver は進捗イベントのうち、各パッケージが自身で記録しないものだけをログに出します。
// 送信・リトライ・呼び出しの成否・集計は pipeline / transport / fanout が slog で記録します。
func logObserver(ev domain.Event) {
	if ev.Kind == domain.EventPreparing {
		slog.Info(ev.Message)
	}
}
