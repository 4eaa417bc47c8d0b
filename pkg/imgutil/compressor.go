package imgutil

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"path"
	"strings"
)

// DefaultMimeType は拡張子からも中身からも判定できなかったときの MIME タイプです。
const DefaultMimeType = "image/jpeg"

// CompressToJPEG は画像データ（PNG, GIF, JPEG等）をJPEG形式に再エンコードします。
// quality は 1〜100 に丸めます。
func CompressToJPEG(data []byte, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("画像デコード失敗: %w", err)
	}

	if quality < 1 {
		quality = 1
	} else if quality > 100 {
		quality = 100
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DetectMimeType はファイル名の拡張子を優先して MIME タイプを決め、
// 不明な場合はデータの先頭バイトから推定します。
func DetectMimeType(name string, data []byte) string {
	if ext := path.Ext(name); ext != "" {
		if t := mime.TypeByExtension(strings.ToLower(ext)); t != "" {
			if mediaType, _, err := mime.ParseMediaType(t); err == nil {
				return mediaType
			}
		}
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return DefaultMimeType
}

// IsImage は MIME タイプが画像を示すかどうかを返します。
func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}
