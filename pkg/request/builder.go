package request

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shouni/gemini-fanout-kit/pkg/domain"

	"google.golang.org/genai"
)

// responseModalities に指定する値です。
const (
	ModalityText  = "Text"
	ModalityImage = "Image"
)

// Build はプロンプトと 0〜2 枚の画像、モデル ID から GenerationRequest を組み立てます。
// 同じ入力からは常に同じ構造のリクエストが得られます。
//
// パーツ順:
//   - 先頭は必ずプロンプトテキスト
//   - 画像 1 枚ならラベルなしで続ける
//   - 画像 2 枚なら "Image 1:" / "Image 2:" のラベルを各画像の前に置く
func Build(promptText string, images []domain.EncodedImage, modelID string) (*domain.GenerationRequest, error) {
	if promptText == "" {
		return nil, &domain.ValidationError{Field: "prompt", Message: "Prompt is required."}
	}
	if modelID == "" {
		return nil, &domain.ValidationError{Field: "model", Message: "Please select a generation model."}
	}
	if len(images) > domain.MaxImages {
		return nil, &domain.ValidationError{
			Field:   "images",
			Message: fmt.Sprintf("At most %d images can be attached (got %d).", domain.MaxImages, len(images)),
		}
	}

	imageParts := make([]*genai.Part, 0, len(images))
	for i, img := range images {
		data, err := img.Bytes()
		if err != nil {
			return nil, &domain.ReadError{Source: fmt.Sprintf("image %d", i+1), Err: err}
		}
		imageParts = append(imageParts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: img.MimeType, Data: data},
		})
	}

	parts := []*genai.Part{{Text: promptText}}
	switch len(imageParts) {
	case 1:
		parts = append(parts, imageParts[0])
	case 2:
		// 複数画像のときはモデルが区別できるよう位置ラベルを付ける
		for i, p := range imageParts {
			parts = append(parts, &genai.Part{Text: fmt.Sprintf("Image %d:", i+1)}, p)
		}
	}

	owned := make([]domain.EncodedImage, len(images))
	copy(owned, images)

	return &domain.GenerationRequest{
		PromptText: promptText,
		Images:     owned,
		ModelID:    modelID,
		Contents:   []*genai.Content{{Parts: parts}},
		Modalities: Modalities(modelID),
	}, nil
}

// Modalities はモデル ID から要求する出力モダリティを決めます。
// ID に "image" を含むモデルは画像とテキストの両方を返せるものとして扱います。
func Modalities(modelID string) []string {
	if strings.Contains(strings.ToLower(modelID), "image") {
		return []string{ModalityImage, ModalityText}
	}
	return []string{ModalityText}
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type requestBody struct {
	Contents         []*genai.Content `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

// MarshalBody は generateContent エンドポイントに POST する JSON を生成します。
func MarshalBody(req *domain.GenerationRequest) ([]byte, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	body := requestBody{
		Contents:         req.Contents,
		GenerationConfig: generationConfig{ResponseModalities: req.Modalities},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
	}
	return b, nil
}
