// Package render は集約結果をギャラリー HTML やファイルとして出力します。
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"strings"

	"github.com/shouni/gemini-fanout-kit/pkg/domain"
	"github.com/shouni/gemini-fanout-kit/pkg/preference"

	"github.com/yuin/goldmark"
)

// Page はギャラリー 1 枚分の表示内容です。
type Page struct {
	Prompt  string
	Status  string
	IsError bool
	Result  domain.AggregateResult
	Theme   preference.Theme
}

type imageView struct {
	Src          template.URL
	Alt          string
	DownloadName string
}

type pageView struct {
	Prompt      string
	Status      string
	StatusClass string
	BodyClass   string
	Images      []imageView
	Texts       []template.HTML
}

// Gallery は結果を自己完結した HTML ページとして描画します。
type Gallery struct {
	tmpl     *template.Template
	markdown goldmark.Markdown
}

// NewGallery は Gallery を初期化します。
func NewGallery() (*Gallery, error) {
	tmpl, err := template.New("gallery").Parse(galleryTemplate)
	if err != nil {
		return nil, fmt.Errorf("テンプレートの解析に失敗しました: %w", err)
	}
	return &Gallery{tmpl: tmpl, markdown: goldmark.New()}, nil
}

// Render は page を w に書き出します。テキストは Markdown として HTML に変換されます。
func (g *Gallery) Render(w io.Writer, page Page) error {
	view := pageView{
		Prompt:      page.Prompt,
		Status:      page.Status,
		StatusClass: "success",
	}
	if page.IsError {
		view.StatusClass = "error"
	}
	if page.Theme == preference.ThemeDark {
		view.BodyClass = "dark-mode"
	}

	for i, uri := range page.Result.Images {
		if !isImageDataURI(uri) {
			slog.Warn("Skipping non-image data URI in gallery", "index", i+1)
			continue
		}
		view.Images = append(view.Images, imageView{
			// 検証済みの data:image URI のみを信頼する
			Src:          template.URL(uri),
			Alt:          fmt.Sprintf("Generated Image %d", i+1),
			DownloadName: DownloadName(i),
		})
	}

	for _, text := range page.Result.Texts {
		var buf bytes.Buffer
		if err := g.markdown.Convert([]byte(text), &buf); err != nil {
			return fmt.Errorf("Markdown の変換に失敗しました: %w", err)
		}
		view.Texts = append(view.Texts, template.HTML(buf.String()))
	}

	if err := g.tmpl.Execute(w, view); err != nil {
		return fmt.Errorf("ギャラリーの描画に失敗しました: %w", err)
	}
	return nil
}

// DownloadName は i 番目 (0 始まり) の画像のダウンロード名です。
func DownloadName(i int) string {
	return fmt.Sprintf("generated_image_%d.png", i+1)
}

func isImageDataURI(s string) bool {
	return domain.IsDataURI(s) && strings.HasPrefix(s, "data:image/")
}

const galleryTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Gemini Image Generation</title>
  <style>
    body { font-family: system-ui, sans-serif; margin: 2rem; background: #f9fafb; color: #111827; }
    body.dark-mode { background: #111827; color: #e5e7eb; }
    #status { padding: .75rem 1rem; border-radius: .5rem; margin-bottom: 1.5rem; }
    #status.success { background: #d1fae5; color: #065f46; border: 1px solid #10b981; }
    #status.error { background: #fee2e2; color: #991b1b; border: 1px solid #ef4444; }
    body.dark-mode #status.success { background-color: #064e3b; color: #6ee7b7; border: 1px solid #059669; }
    body.dark-mode #status.error { background-color: #7f1d1d; color: #fca5a5; border: 1px solid #b91c1c; }
    .gallery { display: grid; grid-template-columns: repeat(auto-fill, minmax(240px, 1fr)); gap: 1rem; }
    .image-container { display: flex; flex-direction: column; gap: .5rem; }
    .gallery-image { width: 100%; border-radius: .5rem; }
    .download-button { text-align: center; padding: .4rem; border-radius: .375rem; background: #4f46e5; color: #fff; text-decoration: none; }
    .generated-text { grid-column: 1 / -1; padding: 1rem; border-radius: .5rem; background: rgba(127,127,127,.08); }
  </style>
</head>
<body class="{{.BodyClass}}">
  <h1>Gemini Image Generation</h1>
  {{if .Prompt}}<p class="prompt">{{.Prompt}}</p>{{end}}
  <div id="status" class="{{.StatusClass}}">{{.Status}}</div>
  <div class="gallery">
    {{range .Images}}
    <div class="image-container">
      <img class="gallery-image" src="{{.Src}}" alt="{{.Alt}}">
      <a class="download-button" href="{{.Src}}" download="{{.DownloadName}}">Download</a>
    </div>
    {{end}}
    {{range .Texts}}
    <div class="generated-text">{{.}}</div>
    {{end}}
  </div>
</body>
</html>
`
