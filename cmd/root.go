package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/gemini-fanout-kit/internal/config"

	"github.com/spf13/cobra"
)

var (
	opts    config.GenerateOptions
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gemini-fanout",
	Short: "Gemini の画像生成リクエストを並列に送り、結果をまとめて保存します。",
	Long: `プロンプトと最大 2 枚の参照画像から 1 つの generateContent リクエストを組み立て、
同じリクエストを N 回並列に送信します。レート制限 (429) にはサーバー指定の待機時間か
指数バックオフで再試行し、成功した結果を画像とテキストに分けて保存します。`,
	SilenceUsage:      true,
	PersistentPreRunE: preRunAppE,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義します。
func addAppFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "読み込む .env ファイルのパス。")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "デバッグログを出力します。")
}

// preRunAppE は、コマンド実行前にロガーと .env の読み込みを行います。
func preRunAppE(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	return config.LoadEnvFile(envFile)
}

// Execute は、アプリケーションのメインエントリポイントです。
// main.go から呼び出され、cobra のコマンドライン解析を開始します。
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addAppFlags(rootCmd)
	rootCmd.AddCommand(generateCmd, themeCmd, fakeServerCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
