package encoder

import (
	"context"
	"io"
	"time"
)

const (
	DefaultCompressionQuality = 75
	cacheKeyEncoded           = "encoded:"
)

// HTTPClient は、URL から画像データを取得するためのインターフェースです。
// go-http-kit の httpkit.New が返すクライアントを想定しています。
type HTTPClient interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// ImageCacher は、エンコード済み画像をキャッシュするためのインターフェースです。
type ImageCacher interface {
	Get(key string) (any, bool)
	Set(key string, value any, d time.Duration)
}

// RemoteReader は gs:// などのリモートストレージからの読み込みを抽象化します。
// go-remote-io の remoteio.InputReader がこの形を満たします。
type RemoteReader interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}
