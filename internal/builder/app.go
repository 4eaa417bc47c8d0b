package builder

import (
	"github.com/shouni/gemini-fanout-kit/internal/config"
	"github.com/shouni/gemini-fanout-kit/pkg/domain"
	"github.com/shouni/gemini-fanout-kit/pkg/encoder"
	"github.com/shouni/gemini-fanout-kit/pkg/render"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持します。
// これを各 Build 関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config     *config.Config          // Config は環境変数から読み込まれた設定です（APIキー、ベースURLなど）。
	Options    config.GenerateOptions  // Options はコマンドラインから渡された実行時の設定です。
	Observer   domain.Observer         // Observer は進捗イベントの受け手です。nil 可。
	Reader     encoder.RemoteReader    // Reader は gs:// の参照画像を読み込みます。gs:// を使わない場合は nil です。
	Writer     render.Writer           // Writer は gs:// の出力先へ書き込みます。gs:// を使わない場合は nil です。
	httpClient httpkit.ClientInterface // httpClient は参照画像の URL 取得に使う共通クライアント
}

// NewAppContext は AppContext の新しいインスタンスを生成します。
func NewAppContext(cfg *config.Config, httpClient httpkit.ClientInterface, observer domain.Observer) AppContext {
	return AppContext{
		Config:     cfg,
		Options:    cfg.Options,
		Observer:   observer,
		httpClient: httpClient,
	}
}
