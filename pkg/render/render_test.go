package render

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shouni/gemini-fanout-kit/pkg/domain"
	"github.com/shouni/gemini-fanout-kit/pkg/preference"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGallery_Render(t *testing.T) {
	g, err := NewGallery()
	require.NoError(t, err)

	t.Run("画像とMarkdownテキストを描画する", func(t *testing.T) {
		var sb strings.Builder
		err := g.Render(&sb, Page{
			Prompt: "a <b>fox</b>",
			Status: "Successfully generated 1 image(s)",
			Result: domain.AggregateResult{
				Images: []string{"data:image/png;base64,aGVsbG8="},
				Texts:  []string{"# Title\n\n**bold**"},
			},
			Theme: preference.ThemeDark,
		})
		require.NoError(t, err)

		html := sb.String()
		assert.Contains(t, html, `src="data:image/png;base64,aGVsbG8="`)
		assert.Contains(t, html, `download="generated_image_1.png"`)
		assert.Contains(t, html, "<h1>Title</h1>")
		assert.Contains(t, html, "<strong>bold</strong>")
		assert.Contains(t, html, `<body class="dark-mode">`)
		assert.Contains(t, html, `class="success"`)
		assert.Contains(t, html, "a &lt;b&gt;fox&lt;/b&gt;")
	})

	t.Run("画像以外のURIは描画しない", func(t *testing.T) {
		var sb strings.Builder
		err := g.Render(&sb, Page{
			Status:  "All 1 generation requests failed. First error: x",
			IsError: true,
			Result:  domain.AggregateResult{Images: []string{"javascript:alert(1)", "data:text/html;base64,PGI+"}},
		})
		require.NoError(t, err)

		html := sb.String()
		assert.NotContains(t, html, "javascript:")
		assert.NotContains(t, html, "data:text/html")
		assert.Contains(t, html, `class="error"`)
	})

	t.Run("テキスト中の生HTMLはエスケープされる", func(t *testing.T) {
		var sb strings.Builder
		err := g.Render(&sb, Page{Result: domain.AggregateResult{Texts: []string{"<script>alert(1)</script>"}}})
		require.NoError(t, err)

		assert.NotContains(t, sb.String(), "<script>alert(1)</script>")
	})
}

func TestDecodeDataURI(t *testing.T) {
	mimeType, data, err := DecodeDataURI("data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, []byte("hello"), data)

	_, _, err = DecodeDataURI("https://example.com/a.png")
	assert.Error(t, err)
	_, _, err = DecodeDataURI("data:image/png,raw")
	assert.Error(t, err)
	_, _, err = DecodeDataURI("data:image/png;base64,@@@")
	assert.Error(t, err)
}

type recordingWriter struct {
	files map[string][]byte
	mimes map[string]string
	err   error
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{files: make(map[string][]byte), mimes: make(map[string]string)}
}

func (w *recordingWriter) Write(ctx context.Context, path string, r io.Reader, mimeType string) error {
	if w.err != nil {
		return w.err
	}
	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, r); err != nil {
		return err
	}
	w.files[path] = buf.Bytes()
	w.mimes[path] = mimeType
	return nil
}

func TestSaveImages(t *testing.T) {
	ctx := context.Background()

	t.Run("連番で保存する", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out")

		paths, err := SaveImages(ctx, LocalWriter{}, dir, []string{
			"data:image/png;base64,aGVsbG8=",
			"data:image/x-unknown-kind;base64,d29ybGQ=",
		})

		require.NoError(t, err)
		require.Len(t, paths, 2)
		assert.Equal(t, filepath.Join(dir, "generated_image_1.png"), paths[0])
		assert.Equal(t, filepath.Join(dir, "generated_image_2.png"), paths[1])
		got, err := os.ReadFile(paths[1])
		require.NoError(t, err)
		assert.Equal(t, "world", string(got))
	})

	t.Run("JPEGは.jpgで保存する", func(t *testing.T) {
		dir := t.TempDir()

		paths, err := SaveImages(ctx, LocalWriter{}, dir, []string{"data:image/jpeg;base64,aGVsbG8="})

		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "generated_image_1.jpg")}, paths)
	})

	t.Run("画像が無ければ何もしない", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "none")

		paths, err := SaveImages(ctx, LocalWriter{}, dir, nil)

		require.NoError(t, err)
		assert.Empty(t, paths)
		_, statErr := os.Stat(dir)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("gs://の出力先はWriterにGCSパスで渡す", func(t *testing.T) {
		w := newRecordingWriter()

		paths, err := SaveImages(ctx, w, "gs://my-bucket/run-1", []string{"data:image/webp;base64,aGVsbG8="})

		require.NoError(t, err)
		assert.Equal(t, []string{"gs://my-bucket/run-1/generated_image_1.webp"}, paths)
		assert.Equal(t, []byte("hello"), w.files[paths[0]])
		assert.Equal(t, "image/webp", w.mimes[paths[0]])
	})

	t.Run("Writerのエラーを返す", func(t *testing.T) {
		w := newRecordingWriter()
		w.err = errors.New("bucket not found")

		paths, err := SaveImages(ctx, w, "gs://my-bucket", []string{"data:image/png;base64,aGVsbG8="})

		assert.ErrorContains(t, err, "bucket not found")
		assert.Empty(t, paths)
	})
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		mimeType string
		want     string
	}{
		{"image/png", ".png"},
		{"image/jpeg", ".jpg"},
		{"IMAGE/JPEG", ".jpg"},
		{"image/webp", ".webp"},
		{"image/gif", ".gif"},
		{"image/x-unknown-kind", ".png"},
	}
	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtensionFor(tt.mimeType))
		})
	}
}

func TestResolveOutputPath(t *testing.T) {
	got, err := ResolveOutputPath("gs://bucket/dir/", "a.png")
	require.NoError(t, err)
	assert.Equal(t, "gs://bucket/dir/a.png", got)

	got, err = ResolveOutputPath("out", "a.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "a.png"), got)

	assert.True(t, IsRemotePath("GS://bucket/x"))
	assert.False(t, IsRemotePath("output"))
}

func TestDownloadName(t *testing.T) {
	assert.Equal(t, "generated_image_3.png", DownloadName(2))
}
