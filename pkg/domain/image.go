package domain

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/genai"
)

// MaxImages は 1 回の生成要求に添付できる画像の上限です。
const MaxImages = 2

// EncodedImage は送信用に base64 化された入力画像です。
// 1 回の送信ごとに作られ、リクエスト送信後は破棄されます。
type EncodedImage struct {
	MimeType string
	Data     string // data URI のプレフィックスを含まない base64 文字列
}

// Bytes は base64 をデコードした生データを返します。
func (e EncodedImage) Bytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(e.Data)
	if err != nil {
		return nil, fmt.Errorf("base64デコード失敗: %w", err)
	}
	return b, nil
}

// GenerationRequest は推論エンドポイントへ送る 1 回分の生成要求です。
// Contents の先頭パーツは常にプロンプトテキストです。
type GenerationRequest struct {
	PromptText string
	Images     []EncodedImage
	ModelID    string

	Contents   []*genai.Content
	Modalities []string
}
