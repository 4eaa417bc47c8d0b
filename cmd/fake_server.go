package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shouni/gemini-fanout-kit/internal/config"
	"github.com/shouni/gemini-fanout-kit/pkg/fakeapi"

	"github.com/spf13/cobra"
)

var fakeOpts struct {
	addr           string
	apiKey         string
	rateLimitFirst int
	retryDelay     time.Duration
}

// fakeServerCmd は API キー無しで動作を確認するためのローカル偽 API を起動します。
var fakeServerCmd = &cobra.Command{
	Use:   "fake-server",
	Short: "generateContent を模倣するローカルサーバーを起動します。",
	Long: `lorem ipsum のテキストと 1x1 の PNG を返す偽の Gemini API を起動します。
--rate-limit-first を指定すると、最初の N 回は retryDelay 付きの 429 を返します。
generate コマンドからは GEMINI_BASE_URL=http://<addr>/v1beta を指定して使います。`,
	Args: cobra.NoArgs,
	RunE: fakeServerCommand,
}

func init() {
	f := fakeServerCmd.Flags()
	f.StringVar(&fakeOpts.addr, "addr", config.DefaultFakeAddr, "待ち受けアドレス。")
	f.StringVar(&fakeOpts.apiKey, "api-key", "fake-key", "受け付ける API キー。")
	f.IntVar(&fakeOpts.rateLimitFirst, "rate-limit-first", 0, "最初の N 回の呼び出しに 429 を返します。")
	f.DurationVar(&fakeOpts.retryDelay, "retry-delay", 2*time.Second, "429 の本文に含める retryDelay。")
}

func fakeServerCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	replies := make([]fakeapi.Reply, 0, fakeOpts.rateLimitFirst)
	for i := 0; i < fakeOpts.rateLimitFirst; i++ {
		replies = append(replies, fakeapi.RateLimited(fakeOpts.retryDelay))
	}

	srv := &http.Server{
		Addr:              fakeOpts.addr,
		Handler:           fakeapi.New(fakeOpts.apiKey, fakeapi.WithScript(replies...)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Fake Gemini API listening", "addr", fakeOpts.addr, "base_url", fmt.Sprintf("http://%s/v1beta", fakeOpts.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("フェイクサーバーの起動に失敗しました: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("Shutting down fake server")
		return srv.Shutdown(shutdownCtx)
	}
}
