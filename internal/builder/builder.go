package builder

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shouni/gemini-fanout-kit/internal/config"
	"github.com/shouni/gemini-fanout-kit/pkg/encoder"
	"github.com/shouni/gemini-fanout-kit/pkg/fanout"
	"github.com/shouni/gemini-fanout-kit/pkg/pipeline"
	"github.com/shouni/gemini-fanout-kit/pkg/transport"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-gemini-client/pkg/gemini"
)

const (
	BackendREST = "rest"
	BackendSDK  = "sdk"
)

// BuildPipeline は送信アクションを処理する Pipeline を構築します。
func BuildPipeline(ctx context.Context, appCtx *AppContext) (*pipeline.Pipeline, error) {
	p, err := pipeline.New(
		BuildEncoder(appCtx),
		BuildRunnerFactory(ctx, appCtx),
		pipeline.WithMaxRequests(appCtx.Config.MaxRequests),
		pipeline.WithObserver(appCtx.Observer),
	)
	if err != nil {
		return nil, fmt.Errorf("パイプラインの初期化に失敗しました: %w", err)
	}
	return p, nil
}

// BuildEncoder は入力画像のエンコーダーを構築します。
func BuildEncoder(appCtx *AppContext) *encoder.Encoder {
	// 同じ URL / gs:// の参照画像を繰り返し送る場合に再取得を避けるキャッシュ
	imgCache := cache.New(30*time.Minute, 1*time.Hour)
	cacheTTL := 1 * time.Hour

	opts := []encoder.Option{encoder.WithCache(imgCache, cacheTTL)}
	if appCtx.httpClient != nil {
		opts = append(opts, encoder.WithHTTPClient(appCtx.httpClient))
	}
	if appCtx.Reader != nil {
		opts = append(opts, encoder.WithRemoteReader(appCtx.Reader))
	}
	if q := appCtx.Options.CompressQuality; q > 0 {
		opts = append(opts, encoder.WithCompression(q))
	}
	return encoder.New(opts...)
}

// BuildRunnerFactory は送信ごとの認証情報からファンアウト Runner を組み立てる関数を返します。
func BuildRunnerFactory(ctx context.Context, appCtx *AppContext) pipeline.RunnerFactory {
	return func(credential string) (pipeline.Runner, error) {
		caller, err := buildCaller(ctx, appCtx, credential)
		if err != nil {
			return nil, err
		}

		client, err := transport.NewClient(caller,
			transport.WithPolicy(transport.Policy{
				MaxAttempts: appCtx.Config.RetryMaxAttempts,
				BaseDelay:   appCtx.Config.RetryBaseDelay,
			}),
			transport.WithObserver(appCtx.Observer),
		)
		if err != nil {
			return nil, fmt.Errorf("リトライクライアントの初期化に失敗しました: %w", err)
		}

		return fanout.New(client,
			fanout.WithPolicy(fanout.ParsePolicy(appCtx.Options.Policy)),
			fanout.WithConcurrencyLimit(appCtx.Options.Concurrency),
			fanout.WithDispatchInterval(appCtx.Options.DispatchInterval),
			fanout.WithObserver(appCtx.Observer),
		)
	}
}

func buildCaller(ctx context.Context, appCtx *AppContext, credential string) (transport.Caller, error) {
	switch appCtx.Options.Backend {
	case "", BackendREST:
		doer := &http.Client{Timeout: appCtx.Options.HTTPTimeout}
		return transport.NewRESTCaller(appCtx.Config.GeminiBaseURL, credential, doer)
	case BackendSDK:
		slog.Warn("sdk バックエンドは responseModalities を送信しません。出力形式はモデルの既定に従います", "model", appCtx.Options.Model)
		aiClient, err := InitializeAIClient(ctx, credential)
		if err != nil {
			return nil, err
		}
		return transport.NewSDKCaller(aiClient)
	default:
		return nil, fmt.Errorf("unknown backend %q (expected %s or %s)", appCtx.Options.Backend, BackendREST, BackendSDK)
	}
}

// InitializeAIClient は gemini クライアントを初期化します。
func InitializeAIClient(ctx context.Context, apiKey string) (gemini.GenerativeModel, error) {
	clientConfig := gemini.Config{
		APIKey: apiKey,
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

// DefaultConfig はテストやフェイクサーバー用に最低限の値を埋めた設定を返します。
func DefaultConfig() *config.Config {
	return &config.Config{
		GeminiBaseURL:    config.DefaultBaseURL,
		GeminiImageModel: config.DefaultImageModel,
		MaxRequests:      config.DefaultMaxRequests,
		RetryMaxAttempts: config.DefaultMaxAttempts,
		RetryBaseDelay:   config.DefaultBaseDelay,
	}
}
