package imagegen

import (
	"encoding/base64"
	"fmt"
	"strings"

	"remodel/internal/domain"
)

// ExtractImage returns the first inline image across all candidates. When no
// candidate carries one, the failure is NoImageProduced with whatever text the
// model returned (a refusal, usually) as its detail.
func ExtractImage(resp *Response) (domain.Image, error) {
	if resp == nil {
		return domain.Image{}, domain.Classify(domain.ErrNoImageProduced, "", nil)
	}
	var texts []string
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return domain.Image{}, domain.Classify(domain.ErrUnknownUpstream, "decode inline image", err)
				}
				return domain.Image{MediaType: part.InlineData.MediaType, Data: data}, nil
			}
			if text := strings.TrimSpace(part.Text); text != "" {
				texts = append(texts, text)
			}
		}
	}
	detail := strings.Join(texts, " ")
	if detail == "" && resp.BlockReason != "" {
		detail = fmt.Sprintf("request blocked (%s)", resp.BlockReason)
	}
	return domain.Image{}, domain.Classify(domain.ErrNoImageProduced, detail, nil)
}
