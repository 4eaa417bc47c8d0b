package encoder

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/shouni/gemini-fanout-kit/pkg/domain"
	"github.com/shouni/gemini-fanout-kit/pkg/imgutil"

	"golang.org/x/sync/errgroup"
)

// Encoder は、ユーザーが選んだ画像（ローカルパスまたは URL）を送信用の
// base64 表現に変換します。
type Encoder struct {
	httpClient  HTTPClient
	reader      RemoteReader
	cache       ImageCacher
	cacheTTL    time.Duration
	compress    bool
	quality     int
	readFile    func(name string) ([]byte, error)
	validateURL func(rawURL string) error
}

// Option は Encoder の設定を変更します。
type Option func(*Encoder)

// WithHTTPClient は URL 入力の取得に使うクライアントを設定します。
func WithHTTPClient(c HTTPClient) Option {
	return func(e *Encoder) { e.httpClient = c }
}

// WithRemoteReader は gs:// 入力の読み込みに使うリーダーを設定します。
func WithRemoteReader(r RemoteReader) Option {
	return func(e *Encoder) { e.reader = r }
}

// WithCache はリモート入力のエンコード結果をキャッシュします。nil ならキャッシュしません。
// ローカルファイルは毎回読み直します。
func WithCache(c ImageCacher, ttl time.Duration) Option {
	return func(e *Encoder) {
		e.cache = c
		e.cacheTTL = ttl
	}
}

// WithCompression は送信前に JPEG へ再エンコードします。
func WithCompression(quality int) Option {
	return func(e *Encoder) {
		e.compress = true
		e.quality = quality
	}
}

// WithURLValidator は URL の安全性チェックを差し替えます。
func WithURLValidator(fn func(rawURL string) error) Option {
	return func(e *Encoder) { e.validateURL = fn }
}

// New は Encoder を初期化します。
func New(opts ...Option) *Encoder {
	e := &Encoder{
		quality:     DefaultCompressionQuality,
		readFile:    os.ReadFile,
		validateURL: ValidateURL,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode は source を読み込んで EncodedImage を返します。
// source が空なら (nil, nil) を返します。失敗はすべて *domain.ReadError です。
func (e *Encoder) Encode(ctx context.Context, source string) (*domain.EncodedImage, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, nil
	}

	cacheable := e.cache != nil && isRemote(source)
	if cacheable {
		if val, ok := e.cache.Get(cacheKeyEncoded + source); ok {
			if img, ok := val.(domain.EncodedImage); ok {
				return &img, nil
			}
			slog.WarnContext(ctx, "キャッシュデータが不正な型です", "source", source, "type", fmt.Sprintf("%T", val))
		}
	}

	data, name, err := e.load(ctx, source)
	if err != nil {
		return nil, &domain.ReadError{Source: source, Err: err}
	}
	if len(data) == 0 {
		return nil, &domain.ReadError{Source: source, Err: errors.New("empty file")}
	}

	mimeType := imgutil.DetectMimeType(name, data)
	if !imgutil.IsImage(mimeType) {
		return nil, &domain.ReadError{Source: source, Err: fmt.Errorf("not an image (detected %s)", mimeType)}
	}

	if e.compress {
		if compressed, err := imgutil.CompressToJPEG(data, e.quality); err == nil {
			data = compressed
			mimeType = "image/jpeg"
		} else {
			slog.WarnContext(ctx, "JPEG再エンコードに失敗したため元データを送信します", "source", source, "error", err)
		}
	}

	img := domain.EncodedImage{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}
	if cacheable {
		e.cache.Set(cacheKeyEncoded+source, img, e.cacheTTL)
	}
	return &img, nil
}

// EncodeAll は複数スロットを並列にエンコードし、スロット順を保ったまま
// 空スロットを除いた画像列を返します。1 つでも失敗すれば送信全体を中断します。
func (e *Encoder) EncodeAll(ctx context.Context, sources ...string) ([]domain.EncodedImage, error) {
	results := make([]*domain.EncodedImage, len(sources))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, src := range sources {
		eg.Go(func() error {
			img, err := e.Encode(egCtx, src)
			if err != nil {
				return err
			}
			results[i] = img
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	images := make([]domain.EncodedImage, 0, len(sources))
	for _, img := range results {
		if img != nil {
			images = append(images, *img)
		}
	}
	return images, nil
}

// load はソースの種類に応じてバイト列と MIME 判定用の名前を返します。
func (e *Encoder) load(ctx context.Context, source string) ([]byte, string, error) {
	if isHTTP(source) {
		if e.httpClient == nil {
			return nil, "", errors.New("http client is not configured")
		}
		if err := e.validateURL(source); err != nil {
			return nil, "", fmt.Errorf("安全ではないURLが指定されました: %w", err)
		}
		name := source
		if u, err := url.Parse(source); err == nil {
			name = u.Path
		}
		data, err := e.httpClient.FetchBytes(ctx, source)
		return data, name, err
	}

	if isGCS(source) {
		if e.reader == nil {
			return nil, "", errors.New("remote reader is not configured")
		}
		rc, err := e.reader.Open(ctx, source)
		if err != nil {
			return nil, "", err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		return data, source, err
	}

	data, err := e.readFile(source)
	return data, source, err
}

func isHTTP(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func isGCS(source string) bool {
	return strings.HasPrefix(source, "gs://")
}

// isRemote はキャッシュ対象となる取得系のソースかどうかを返します。
func isRemote(source string) bool {
	return isHTTP(source) || isGCS(source)
}
