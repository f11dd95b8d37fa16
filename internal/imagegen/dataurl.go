package imagegen

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"remodel/internal/domain"
)

var dataURLPattern = regexp.MustCompile(`^data:(image/[A-Za-z0-9.+-]+);base64,([A-Za-z0-9+/]+={0,2})$`)

// ParseDataURL validates data:image/<subtype>;base64,<payload> and returns the
// inline data it carries. Anything else is an InvalidInput failure.
func ParseDataURL(raw string) (InlineData, error) {
	trimmed := strings.TrimSpace(raw)
	m := dataURLPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return InlineData{}, domain.Classify(domain.ErrInvalidInput, "image must be a data:image/...;base64,... URL", nil)
	}
	if _, err := base64.StdEncoding.DecodeString(m[2]); err != nil {
		return InlineData{}, domain.Classify(domain.ErrInvalidInput, "image payload is not valid base64", err)
	}
	return InlineData{MediaType: strings.ToLower(m[1]), Data: m[2]}, nil
}

func FormatDataURL(mediaType, base64Data string) string {
	return fmt.Sprintf("data:%s;base64,%s", mediaType, base64Data)
}

// ImageSet is the ordered, immutable set of uploaded photos shared read-only by
// every task of a round.
type ImageSet struct {
	images []InlineData
}

// NewImageSet validates every data URL up front.
func NewImageSet(dataURLs []string) (ImageSet, error) {
	if len(dataURLs) == 0 {
		return ImageSet{}, domain.Classify(domain.ErrInvalidInput, "at least one image is required", nil)
	}
	images := make([]InlineData, 0, len(dataURLs))
	for i, raw := range dataURLs {
		data, err := ParseDataURL(raw)
		if err != nil {
			return ImageSet{}, fmt.Errorf("image %d: %w", i+1, err)
		}
		images = append(images, data)
	}
	return ImageSet{images: images}, nil
}

// NewImageSetFromImages builds a set from raw bytes, e.g. files read from disk.
func NewImageSetFromImages(images []domain.Image) (ImageSet, error) {
	if len(images) == 0 {
		return ImageSet{}, domain.Classify(domain.ErrInvalidInput, "at least one image is required", nil)
	}
	out := make([]InlineData, 0, len(images))
	for i, img := range images {
		if len(img.Data) == 0 {
			return ImageSet{}, domain.Classify(domain.ErrInvalidInput, fmt.Sprintf("image %d is empty", i+1), nil)
		}
		if !strings.HasPrefix(img.MediaType, "image/") {
			return ImageSet{}, domain.Classify(domain.ErrInvalidInput, fmt.Sprintf("image %d has media type %q", i+1, img.MediaType), nil)
		}
		out = append(out, InlineData{MediaType: img.MediaType, Data: base64.StdEncoding.EncodeToString(img.Data)})
	}
	return ImageSet{images: out}, nil
}

func (s ImageSet) Len() int {
	return len(s.images)
}

func (s ImageSet) Empty() bool {
	return len(s.images) == 0
}

// Parts returns fresh request parts for the images, so no caller can mutate
// the shared set.
func (s ImageSet) Parts() []Part {
	parts := make([]Part, len(s.images))
	for i := range s.images {
		data := s.images[i]
		parts[i] = Part{InlineData: &data}
	}
	return parts
}

// BuildRequest assembles image parts followed by one instruction.
func BuildRequest(images ImageSet, instruction string) Request {
	parts := images.Parts()
	parts = append(parts, TextPart(instruction))
	return Request{Parts: parts}
}
