package genai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	sdk "google.golang.org/genai"

	"remodel/internal/domain"
	"remodel/internal/imagegen"
)

const DefaultModel = "gemini-2.5-flash-image-preview"

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Client sends one generateContent request per call through the GenAI SDK and
// translates the reply into imagegen types. It never retries; that is the
// Retrier's job.
type Client struct {
	models *sdk.Models
	model  string
	logger zerolog.Logger
}

// NewClient constructs a Gemini client. Callers may provide a nil HTTP client;
// one with a generous timeout is created since image generation is slow.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("genai: api key is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	cfg := &sdk.ClientConfig{
		APIKey:     apiKey,
		Backend:    sdk.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if base := strings.TrimRight(opts.BaseURL, "/"); base != "" {
		cfg.HTTPOptions = sdk.HTTPOptions{BaseURL: base + "/"}
	}

	sdkClient, err := sdk.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Client{models: sdkClient.Models, model: model, logger: logger}, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// GenerateContent implements imagegen.Generator.
func (c *Client) GenerateContent(ctx context.Context, req imagegen.Request) (*imagegen.Response, error) {
	parts, err := toSDKParts(req)
	if err != nil {
		return nil, err
	}
	contents := []*sdk.Content{sdk.NewContentFromParts(parts, sdk.RoleUser)}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, contents, &sdk.GenerateContentConfig{})
	if err != nil {
		classified := Classify(err)
		c.logger.Debug().
			Err(err).
			Str("model", c.model).
			Str("kind", domain.KindOf(classified).Error()).
			Dur("elapsed", time.Since(start)).
			Msg("genai: generateContent failed")
		return nil, classified
	}

	out := fromSDKResponse(resp)
	c.logger.Debug().
		Str("model", c.model).
		Int("candidates", len(out.Candidates)).
		Dur("elapsed", time.Since(start)).
		Msg("genai: generateContent returned")
	return out, nil
}

func toSDKParts(req imagegen.Request) ([]*sdk.Part, error) {
	parts := make([]*sdk.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.InlineData != nil {
			img, err := p.InlineData.Decode()
			if err != nil {
				return nil, err
			}
			parts = append(parts, sdk.NewPartFromBytes(img.Data, img.MediaType))
			continue
		}
		if p.Text != "" {
			parts = append(parts, sdk.NewPartFromText(p.Text))
		}
	}
	return parts, nil
}

func fromSDKResponse(resp *sdk.GenerateContentResponse) *imagegen.Response {
	out := &imagegen.Response{}
	if resp == nil {
		return out
	}
	if resp.PromptFeedback != nil {
		out.BlockReason = string(resp.PromptFeedback.BlockReason)
	}
	for _, cand := range resp.Candidates {
		if cand == nil {
			continue
		}
		converted := imagegen.Candidate{FinishReason: string(cand.FinishReason)}
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if part == nil || part.Thought {
					continue
				}
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					converted.Parts = append(converted.Parts, imagegen.Part{
						InlineData: imagegen.NewInlineData(domain.Image{
							MediaType: part.InlineData.MIMEType,
							Data:      part.InlineData.Data,
						}),
					})
					continue
				}
				if part.Text != "" {
					converted.Parts = append(converted.Parts, imagegen.TextPart(part.Text))
				}
			}
		}
		out.Candidates = append(out.Candidates, converted)
	}
	return out
}

// Classify maps an SDK or transport error onto the domain error kinds.
// Server-side faults (5xx, INTERNAL, UNAVAILABLE) are transient; everything
// the server rejected on purpose is not.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr sdk.APIError
	var apiErrPtr *sdk.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		apiErr = *apiErrPtr
	default:
		var netErr net.Error
		var urlErr *url.Error
		if errors.As(err, &netErr) || errors.As(err, &urlErr) {
			return domain.Classify(domain.ErrNetworkFailure, err.Error(), err)
		}
		return domain.Classify(domain.ErrUnknownUpstream, err.Error(), err)
	}

	detail := apiErr.Message
	if apiErr.Status != "" {
		detail = fmt.Sprintf("%s (%s)", apiErr.Message, apiErr.Status)
	}
	status := strings.ToUpper(apiErr.Status)
	if apiErr.Code >= 500 || status == "INTERNAL" || status == "UNAVAILABLE" {
		return domain.Classify(domain.ErrTransientUpstream, detail, err)
	}
	if apiErr.Code == http.StatusBadRequest && status == "INVALID_ARGUMENT" {
		return domain.Classify(domain.ErrInvalidInput, detail, err)
	}
	return domain.Classify(domain.ErrUnknownUpstream, detail, err)
}
