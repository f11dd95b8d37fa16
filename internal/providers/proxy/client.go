package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"remodel/internal/domain"
	"remodel/internal/imagegen"
)

// Error codes carried in the "error" field of a failed /api/generate reply.
const (
	CodeInvalidInput        = "invalid_input"
	CodeNoImage             = "no_image"
	CodeInternal            = "INTERNAL"
	CodeUpstreamUnreachable = "upstream_unreachable"
	CodeUpstreamError       = "upstream_error"
)

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Images []string `json:"images"`
	Prompt string   `json:"prompt"`
}

// GenerateResponse is the body of every /api/generate reply. ImageURL is set
// on success, Error on failure.
type GenerateResponse struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Client reaches the upstream through the backend's /api/generate endpoint,
// so the caller never holds the API credential.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("proxy: base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 150 * time.Second}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{endpoint: base + "/api/generate", httpClient: httpClient, logger: logger}, nil
}

// GenerateContent implements imagegen.Generator.
func (c *Client) GenerateContent(ctx context.Context, req imagegen.Request) (*imagegen.Response, error) {
	payload := GenerateRequest{Prompt: req.Instruction()}
	for _, img := range req.Images() {
		payload.Images = append(payload.Images, img.DataURL())
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("proxy: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("proxy: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.Classify(domain.ErrNetworkFailure, err.Error(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Classify(domain.ErrNetworkFailure, "read response body", err)
	}

	var decoded GenerateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil && resp.StatusCode == http.StatusOK {
		return nil, domain.Classify(domain.ErrUnknownUpstream, "malformed proxy response", err)
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Str("error", decoded.Error).
		Msg("proxy: /api/generate replied")

	return interpret(resp.StatusCode, decoded, raw)
}

func interpret(status int, body GenerateResponse, raw []byte) (*imagegen.Response, error) {
	message := strings.TrimSpace(body.Message)
	if message == "" && status != http.StatusOK {
		message = strings.TrimSpace(string(raw))
		if message == "" {
			message = http.StatusText(status)
		}
	}

	switch {
	case status == http.StatusOK:
		data, err := imagegen.ParseDataURL(body.ImageURL)
		if err != nil {
			return nil, domain.Classify(domain.ErrUnknownUpstream, "proxy returned an invalid image url", err)
		}
		return &imagegen.Response{Candidates: []imagegen.Candidate{{
			Parts: []imagegen.Part{{InlineData: &data}},
		}}}, nil
	case status == http.StatusUnprocessableEntity && body.Error == CodeNoImage:
		return &imagegen.Response{Candidates: []imagegen.Candidate{{
			Parts: []imagegen.Part{imagegen.TextPart(body.Message)},
		}}}, nil
	case status == http.StatusBadRequest:
		return nil, domain.Classify(domain.ErrInvalidInput, message, nil)
	case status == http.StatusBadGateway && body.Error == CodeUpstreamUnreachable:
		return nil, domain.Classify(domain.ErrNetworkFailure, message, nil)
	case body.Error == CodeUpstreamError:
		return nil, domain.Classify(domain.ErrUnknownUpstream, message, nil)
	case status >= 500 || body.Error == CodeInternal:
		return nil, domain.Classify(domain.ErrTransientUpstream, message, nil)
	default:
		return nil, domain.Classify(domain.ErrUnknownUpstream, fmt.Sprintf("status %d: %s", status, message), nil)
	}
}
