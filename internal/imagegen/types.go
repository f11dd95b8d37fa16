package imagegen

import (
	"context"
	"encoding/base64"
	"strings"

	"remodel/internal/domain"
)

// InlineData carries base64-encoded bytes and their media type, the shape the
// upstream uses for both uploaded and generated images.
type InlineData struct {
	MediaType string `json:"mimeType"`
	Data      string `json:"data"`
}

// NewInlineData encodes img for transport.
func NewInlineData(img domain.Image) *InlineData {
	return &InlineData{MediaType: img.MediaType, Data: base64.StdEncoding.EncodeToString(img.Data)}
}

// DataURL reconstructs data:<mediaType>;base64,<data>.
func (d InlineData) DataURL() string {
	return FormatDataURL(d.MediaType, d.Data)
}

// Decode returns the raw bytes. A bad payload is InvalidInput.
func (d InlineData) Decode() (domain.Image, error) {
	data, err := base64.StdEncoding.DecodeString(d.Data)
	if err != nil {
		return domain.Image{}, domain.Classify(domain.ErrInvalidInput, "image payload is not valid base64", err)
	}
	return domain.Image{MediaType: d.MediaType, Data: data}, nil
}

// Part is one element of a request or a candidate: either text or inline data.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

func TextPart(text string) Part {
	return Part{Text: text}
}

// Request is an ordered list of image parts followed by one instruction.
type Request struct {
	Parts []Part
}

// Instruction returns the concatenated text parts of the request.
func (r Request) Instruction() string {
	var texts []string
	for _, p := range r.Parts {
		if p.InlineData == nil && strings.TrimSpace(p.Text) != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Images returns the inline-data parts of the request.
func (r Request) Images() []InlineData {
	var out []InlineData
	for _, p := range r.Parts {
		if p.InlineData != nil {
			out = append(out, *p.InlineData)
		}
	}
	return out
}

type Candidate struct {
	Parts        []Part
	FinishReason string
}

// Response is the raw upstream answer, returned unmodified by the Retrier.
type Response struct {
	Candidates  []Candidate
	BlockReason string
}

// Generator performs a single upstream call. Implementations classify
// failures with the domain error kinds; server-side faults must match
// domain.ErrTransientUpstream so that the Retrier retries them.
type Generator interface {
	GenerateContent(ctx context.Context, req Request) (*Response, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (*Response, error)

func (f GeneratorFunc) GenerateContent(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
