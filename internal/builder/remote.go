package builder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/gemini-fanout-kit/pkg/render"

	"github.com/shouni/go-remote-io/pkg/gcsfactory"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// NeedsRemoteIO は入力か出力のいずれかに gs:// が含まれるかどうかを返します。
func NeedsRemoteIO(appCtx *AppContext) bool {
	o := appCtx.Options
	for _, p := range []string{o.Image1, o.Image2} {
		if strings.HasPrefix(strings.TrimSpace(p), "gs://") {
			return true
		}
	}
	return render.IsRemotePath(o.OutputDir) || render.IsRemotePath(o.GalleryFile)
}

// BuildRemoteIO は gs:// を使う場合に限り GCS のリーダーとライターを AppContext に設定します。
// GCS クライアントはアプリケーションデフォルト認証情報を使います。
func BuildRemoteIO(ctx context.Context, appCtx *AppContext) error {
	if !NeedsRemoteIO(appCtx) {
		return nil
	}

	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return fmt.Errorf("failed to create GCS client factory: %w", err)
	}
	var reader remoteio.InputReader
	if reader, err = gcsFactory.NewInputReader(); err != nil {
		return err
	}
	var writer remoteio.OutputWriter
	if writer, err = gcsFactory.NewOutputWriter(); err != nil {
		return err
	}

	appCtx.Reader = reader
	appCtx.Writer = writer
	slog.Debug("GCS の入出力を初期化しました")
	return nil
}

// OutputWriterFor は path に書き込むための Writer を返します。
// gs:// なら GCS ライター、それ以外はローカルファイルです。
func OutputWriterFor(appCtx *AppContext, path string) (render.Writer, error) {
	if !render.IsRemotePath(path) {
		return render.LocalWriter{}, nil
	}
	if appCtx.Writer == nil {
		return nil, fmt.Errorf("gs:// への出力には GCS ライターが必要です: %s", path)
	}
	return appCtx.Writer, nil
}
