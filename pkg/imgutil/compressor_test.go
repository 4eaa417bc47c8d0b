package imgutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// テスト用のダミー画像（10x10の赤い正方形）を作成するヘルパー
func createDummyImageData(t *testing.T, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}

	buf := new(bytes.Buffer)
	var err error
	switch format {
	case "png":
		err = png.Encode(buf, img)
	case "jpeg":
		err = jpeg.Encode(buf, img, nil)
	default:
		t.Fatalf("unsupported format: %s", format)
	}
	require.NoError(t, err)
	return buf.Bytes()
}

func TestCompressToJPEG(t *testing.T) {
	t.Run("PNG画像をJPEGに再エンコードできること", func(t *testing.T) {
		got, err := CompressToJPEG(createDummyImageData(t, "png"), 75)
		require.NoError(t, err)
		require.NotEmpty(t, got)

		_, format, err := image.Decode(bytes.NewReader(got))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
	})

	t.Run("不正なデータはエラーになること", func(t *testing.T) {
		_, err := CompressToJPEG([]byte("this is not an image"), 75)
		assert.Error(t, err)
	})

	t.Run("範囲外のQualityは丸められること", func(t *testing.T) {
		input := createDummyImageData(t, "png")

		_, err := CompressToJPEG(input, 0)
		assert.NoError(t, err)
		_, err = CompressToJPEG(input, 500)
		assert.NoError(t, err)
	})
}

func TestDetectMimeType(t *testing.T) {
	pngData := createDummyImageData(t, "png")

	tests := []struct {
		name     string
		fileName string
		data     []byte
		want     string
	}{
		{"拡張子を優先する", "photo.JPG", pngData, "image/jpeg"},
		{"拡張子が無ければ中身で判定する", "upload", pngData, "image/png"},
		{"判定材料が無ければデフォルト", "", nil, DefaultMimeType},
		{"画像以外も中身どおりに返す", "notes", []byte("plain text body"), "text/plain; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMimeType(tt.fileName, tt.data))
		})
	}
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("image/webp"))
	assert.False(t, IsImage("text/plain"))
}
