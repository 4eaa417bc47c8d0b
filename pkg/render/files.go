package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Writer は生成物の書き込み先です。go-remote-io の remoteio.OutputWriter がこの形を満たします。
type Writer interface {
	Write(ctx context.Context, path string, r io.Reader, mimeType string) error
}

// LocalWriter はローカルファイルシステムへ書き込む Writer です。
// 親ディレクトリが無ければ作成します。
type LocalWriter struct{}

// Write は r の内容を path に書き込みます。mimeType は使いません。
func (LocalWriter) Write(ctx context.Context, path string, r io.Reader, mimeType string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("出力ディレクトリの作成に失敗しました: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// IsRemotePath は path が gs:// のリモートストレージを指すかどうかを返します。
func IsRemotePath(path string) bool {
	return strings.HasPrefix(strings.ToLower(path), "gs://")
}

// ResolveOutputPath は baseDir と fileName から出力パスを作ります。
// gs:// の場合はスキームを保ったままパス部分だけを結合します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	if IsRemotePath(baseDir) {
		u, err := url.Parse(baseDir)
		if err != nil {
			return "", fmt.Errorf("無効なGCS URIです: %w", err)
		}
		u.Path, err = url.JoinPath(u.Path, fileName)
		if err != nil {
			return "", fmt.Errorf("GCSパスの結合に失敗しました: %w", err)
		}
		return u.String(), nil
	}
	return filepath.Join(baseDir, fileName), nil
}

// DecodeDataURI は "data:<mime>;base64,<data>" を MIME タイプとバイト列に分解します。
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	mimeType, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return "", nil, fmt.Errorf("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("data URI のデコードに失敗しました: %w", err)
	}
	return mimeType, data, nil
}

// preferredExtensions はシステムの mime.types に依存せず固定したい拡張子です。
var preferredExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ExtensionFor は MIME タイプに対応するファイル拡張子を返します。
// 判定できない場合は .png です。
func ExtensionFor(mimeType string) string {
	if ext, ok := preferredExtensions[strings.ToLower(mimeType)]; ok {
		return ext
	}
	extensions, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(extensions) == 0 {
		slog.Warn("Could not determine file extension from MIME type, defaulting to .png",
			slog.String("mime_type", mimeType))
		return ".png"
	}
	return extensions[0]
}

// SaveImages は data URI の画像を dir に generated_image_<n><ext> として w 経由で保存し、
// 書き込んだパスを返します。dir はローカルパスでも gs:// でも構いません。
func SaveImages(ctx context.Context, w Writer, dir string, images []string) ([]string, error) {
	if len(images) == 0 {
		return nil, nil
	}

	paths := make([]string, 0, len(images))
	for i, uri := range images {
		mimeType, data, err := DecodeDataURI(uri)
		if err != nil {
			return paths, fmt.Errorf("image %d: %w", i+1, err)
		}

		path, err := ResolveOutputPath(dir, fmt.Sprintf("generated_image_%d%s", i+1, ExtensionFor(mimeType)))
		if err != nil {
			return paths, err
		}
		if err := w.Write(ctx, path, bytes.NewReader(data), mimeType); err != nil {
			return paths, fmt.Errorf("画像の保存に失敗しました (%s): %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
