package request

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/shouni/gemini-fanout-kit/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encoded(raw string, mimeType string) domain.EncodedImage {
	return domain.EncodedImage{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString([]byte(raw))}
}

func TestBuild_PartOrdering(t *testing.T) {
	img1 := encoded("first", "image/png")
	img2 := encoded("second", "image/jpeg")

	t.Run("画像なしはテキストのみ", func(t *testing.T) {
		req, err := Build("draw a cat", nil, "gemini-2.0-flash")
		require.NoError(t, err)

		parts := req.Contents[0].Parts
		require.Len(t, parts, 1)
		assert.Equal(t, "draw a cat", parts[0].Text)
	})

	t.Run("画像1枚はラベルなしで続く", func(t *testing.T) {
		req, err := Build("make it blue", []domain.EncodedImage{img1}, "gemini-2.0-flash")
		require.NoError(t, err)

		parts := req.Contents[0].Parts
		require.Len(t, parts, 2)
		assert.Equal(t, "make it blue", parts[0].Text)
		require.NotNil(t, parts[1].InlineData)
		assert.Equal(t, "image/png", parts[1].InlineData.MIMEType)
		assert.Equal(t, []byte("first"), parts[1].InlineData.Data)
	})

	t.Run("画像2枚は位置ラベル付き", func(t *testing.T) {
		req, err := Build("merge", []domain.EncodedImage{img1, img2}, "gemini-2.0-flash")
		require.NoError(t, err)

		parts := req.Contents[0].Parts
		require.Len(t, parts, 5)
		assert.Equal(t, "merge", parts[0].Text)
		assert.Equal(t, "Image 1:", parts[1].Text)
		assert.Equal(t, []byte("first"), parts[2].InlineData.Data)
		assert.Equal(t, "Image 2:", parts[3].Text)
		assert.Equal(t, []byte("second"), parts[4].InlineData.Data)
	})

	t.Run("3枚以上はValidationError", func(t *testing.T) {
		_, err := Build("too many", []domain.EncodedImage{img1, img2, img1}, "gemini-2.0-flash")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("不正なbase64はReadError", func(t *testing.T) {
		bad := domain.EncodedImage{MimeType: "image/png", Data: "%%%"}
		_, err := Build("x", []domain.EncodedImage{bad}, "gemini-2.0-flash")
		assert.ErrorIs(t, err, domain.ErrRead)
	})

	t.Run("プロンプトとモデルは必須", func(t *testing.T) {
		_, err := Build("", nil, "gemini-2.0-flash")
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = Build("x", nil, "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestBuild_Idempotent(t *testing.T) {
	images := []domain.EncodedImage{encoded("a", "image/png"), encoded("b", "image/png")}

	first, err := Build("same", images, "gemini-2.0-flash-exp-image-generation")
	require.NoError(t, err)
	second, err := Build("same", images, "gemini-2.0-flash-exp-image-generation")
	require.NoError(t, err)

	assert.Equal(t, first, second)

	b1, err := MarshalBody(first)
	require.NoError(t, err)
	b2, err := MarshalBody(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(b1), string(b2))
}

func TestModalities(t *testing.T) {
	assert.Equal(t, []string{ModalityImage, ModalityText}, Modalities("gemini-2.0-flash-exp-image-generation"))
	assert.Equal(t, []string{ModalityImage, ModalityText}, Modalities("Gemini-IMAGE-preview"))
	assert.Equal(t, []string{ModalityText}, Modalities("gemini-2.5-pro"))
}

func TestMarshalBody(t *testing.T) {
	req, err := Build("hello", []domain.EncodedImage{encoded("a", "image/png"), encoded("b", "image/png")}, "imagen-like-image-model")
	require.NoError(t, err)

	raw, err := MarshalBody(req)
	require.NoError(t, err)

	var body struct {
		Contents []struct {
			Parts []map[string]any `json:"parts"`
		} `json:"contents"`
		GenerationConfig struct {
			ResponseModalities []string `json:"responseModalities"`
		} `json:"generationConfig"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))

	require.Len(t, body.Contents, 1)
	parts := body.Contents[0].Parts
	require.Len(t, parts, 5)
	assert.Equal(t, "hello", parts[0]["text"])
	assert.Equal(t, "Image 1:", parts[1]["text"])
	assert.Equal(t, "Image 2:", parts[3]["text"])
	assert.Equal(t, []string{"Image", "Text"}, body.GenerationConfig.ResponseModalities)

	_, err = MarshalBody(nil)
	assert.Error(t, err)
}
