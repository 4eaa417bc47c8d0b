package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/shouni/gemini-fanout-kit/internal/builder"
	"github.com/shouni/gemini-fanout-kit/internal/config"
	"github.com/shouni/gemini-fanout-kit/pkg/pipeline"
	"github.com/shouni/gemini-fanout-kit/pkg/preference"
	"github.com/shouni/gemini-fanout-kit/pkg/render"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/spf13/cobra"
)

var apiKey string

// generateCmd は、同じリクエストを並列に送って画像とテキストを生成します。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "プロンプトと参照画像から画像を並列生成します。",
	Long: `プロンプトと最大 2 枚の参照画像（ローカルパス、http(s) URL、gs:// URI）を読み込み、
--requests で指定した回数だけ同じリクエストを並列送信します。
生成された画像は --output-dir に保存され、結果の一覧は --html のギャラリーに書き出されます。
--output-dir と --html には gs:// も指定できます（GCP の認証情報が必要です）。`,
	RunE: generateCommand,
}

func init() {
	f := generateCmd.Flags()

	// --- 入力 ---
	f.StringVarP(&opts.Prompt, "prompt", "p", "", "生成に使うプロンプト（必須）。")
	f.StringVar(&opts.Image1, "image1", "", "1 枚目の参照画像（パス、URL または gs://）。")
	f.StringVar(&opts.Image2, "image2", "", "2 枚目の参照画像（パス、URL または gs://）。")
	f.StringVar(&apiKey, "api-key", "", "Gemini API キー。未指定なら GEMINI_API_KEY を使います。")

	// --- 生成 ---
	f.StringVarP(&opts.Model, "model", "m", config.DefaultImageModel, "使用する Gemini モデル名。未指定なら GEMINI_IMAGE_MODEL を使います。")
	f.IntVarP(&opts.Requests, "requests", "n", config.DefaultRequests, "並列に送るリクエスト数。")
	f.StringVar(&opts.Policy, "policy", "per-unit", "結果の分類方法（per-unit または first-unit）。")
	f.StringVar(&opts.Backend, "backend", builder.BackendREST, "送信方式（rest または sdk）。")

	// --- 出力 ---
	f.StringVarP(&opts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "生成画像の保存先ディレクトリ（ローカル or gs://...）。")
	f.StringVar(&opts.GalleryFile, "html", config.DefaultGalleryFile, "ギャラリー HTML の出力先。空なら出力しません。")
	f.BoolVar(&opts.NoSave, "no-save", false, "画像ファイルを保存しません。")

	// --- 実行制御 ---
	f.DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "API 呼び出し 1 回あたりのタイムアウト（0 は無制限）。")
	f.IntVar(&opts.Concurrency, "concurrency", 0, "同時に実行するリクエスト数の上限（0 は無制限）。")
	f.DurationVar(&opts.DispatchInterval, "dispatch-interval", 0, "リクエスト開始の最小間隔（0 は無制限）。")
	f.IntVar(&opts.CompressQuality, "compress", 0, "参照画像を指定品質 (1-100) の JPEG に再圧縮します（0 は無効）。")
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 環境変数から基本設定をロード
	cfg := config.LoadConfig()

	// 2. コマンドライン引数の値を反映
	if !cmd.Flags().Changed("model") {
		opts.Model = cfg.GeminiImageModel
	}
	credential := apiKey
	if credential == "" {
		credential = cfg.GeminiAPIKey
	}
	cfg.Options = opts

	slog.Info("画像生成を開始します",
		"model", opts.Model,
		"requests", opts.Requests,
		"backend", opts.Backend,
		"output_dir", opts.OutputDir)

	// 3. パイプラインの構築と実行
	httpClient := httpkit.New(config.DefaultFetchTimeout)
	appCtx := builder.NewAppContext(cfg, httpClient, logObserver)
	if err := builder.BuildRemoteIO(ctx, &appCtx); err != nil {
		return err
	}
	p, err := builder.BuildPipeline(ctx, &appCtx)
	if err != nil {
		return err
	}

	report, err := p.Execute(ctx, pipeline.Submission{
		Credential:   credential,
		PromptText:   opts.Prompt,
		ModelID:      opts.Model,
		File1:        opts.Image1,
		File2:        opts.Image2,
		RequestCount: opts.Requests,
	})
	if err != nil {
		return err
	}

	// 4. 結果の保存
	if !opts.NoSave {
		w, err := builder.OutputWriterFor(&appCtx, opts.OutputDir)
		if err != nil {
			return err
		}
		paths, err := render.SaveImages(ctx, w, opts.OutputDir, report.Result.Images)
		if err != nil {
			return fmt.Errorf("画像の保存に失敗しました: %w", err)
		}
		for _, path := range paths {
			slog.Info("Saved image", "path", path)
		}
	}

	if opts.GalleryFile != "" {
		if err := writeGallery(ctx, &appCtx, report); err != nil {
			return err
		}
	}

	return reportStatus(cmd.OutOrStdout(), report)
}

// reportStatus は状況メッセージを w に出力します。
// 全件失敗時は出力せずエラーとして返し、表示は cobra に任せます。
func reportStatus(w io.Writer, report *pipeline.Report) error {
	if report.IsError {
		return errors.New(report.Status)
	}
	fmt.Fprintln(w, report.Status)
	return nil
}

func writeGallery(ctx context.Context, appCtx *builder.AppContext, report *pipeline.Report) error {
	cfg := appCtx.Config
	theme := preference.ThemeLight
	if store, err := preference.NewStore(cfg.ThemeFile); err == nil {
		if t, err := store.Theme(); err == nil {
			theme = t
		} else {
			slog.Warn("テーマ設定の読み込みに失敗しました。light を使います", "error", err)
		}
	}

	gallery, err := render.NewGallery()
	if err != nil {
		return err
	}
	w, err := builder.OutputWriterFor(appCtx, opts.GalleryFile)
	if err != nil {
		return err
	}

	buf := new(bytes.Buffer)
	if err := gallery.Render(buf, render.Page{
		Prompt:  opts.Prompt,
		Status:  report.Status,
		IsError: report.IsError,
		Result:  report.Result,
		Theme:   theme,
	}); err != nil {
		return err
	}
	if err := w.Write(ctx, opts.GalleryFile, buf, "text/html; charset=utf-8"); err != nil {
		return fmt.Errorf("ギャラリーファイルの書き込みに失敗しました: %w", err)
	}
	slog.Info("Gallery written", "path", opts.GalleryFile, "theme", theme)
	return nil
}
