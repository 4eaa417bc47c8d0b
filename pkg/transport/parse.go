package transport

import (
	"encoding/base64"
	"fmt"

	"github.com/shouni/gemini-fanout-kit/pkg/domain"

	"google.golang.org/genai"
)

var errMissingParts = fmt.Errorf("%w: no candidate with content parts", domain.ErrMalformedResponse)

// ExtractUnits は最初の候補 (Candidate) のパーツをたどり、ResponseUnit の列に変換します。
// inline data（データと MIME タイプの両方あり）は画像、text はテキストとして扱い、順序を保ちます。
func ExtractUnits(resp *genai.GenerateContentResponse) ([]domain.ResponseUnit, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, errMissingParts
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil || candidate.Content.Parts == nil {
		return nil, errMissingParts
	}

	units := make([]domain.ResponseUnit, 0, len(candidate.Content.Parts))
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 && part.InlineData.MIMEType != "" {
			units = append(units, domain.ImageUnit(part.InlineData.MIMEType, base64.StdEncoding.EncodeToString(part.InlineData.Data)))
		}
		if part.Text != "" {
			units = append(units, domain.TextUnit(part.Text))
		}
	}
	return units, nil
}
