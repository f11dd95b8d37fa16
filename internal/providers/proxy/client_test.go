package proxy

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"remodel/internal/domain"
	"remodel/internal/imagegen"
)

var pngBytes = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

func testRequest(t *testing.T) imagegen.Request {
	t.Helper()
	set, err := imagegen.NewImageSetFromImages([]domain.Image{
		{MediaType: "image/png", Data: pngBytes},
		{MediaType: "image/jpeg", Data: []byte("second")},
	})
	if err != nil {
		t.Fatalf("NewImageSetFromImages: %v", err)
	}
	return imagegen.BuildRequest(set, "paint it blue")
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Options{BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func reply(w http.ResponseWriter, status int, body GenerateResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestGenerateContentSuccess(t *testing.T) {
	var got GenerateRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		reply(w, http.StatusOK, GenerateResponse{
			Success:  true,
			ImageURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
			Message:  "Image generated successfully",
		})
	})

	resp, err := client.GenerateContent(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if got.Prompt != "paint it blue" || len(got.Images) != 2 {
		t.Fatalf("unexpected request body: %+v", got)
	}
	if got.Images[1] != "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString([]byte("second")) {
		t.Fatalf("image order not preserved: %q", got.Images[1])
	}
	img, err := imagegen.ExtractImage(resp)
	if err != nil {
		t.Fatalf("ExtractImage: %v", err)
	}
	if img.MediaType != "image/png" || string(img.Data) != string(pngBytes) {
		t.Fatalf("unexpected image %+v", img)
	}
}

func TestGenerateContentFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   GenerateResponse
		want   error
	}{
		{name: "bad request", status: 400, body: GenerateResponse{Error: CodeInvalidInput, Message: "bad image"}, want: domain.ErrInvalidInput},
		{name: "internal", status: 503, body: GenerateResponse{Error: CodeInternal, Message: "model overloaded"}, want: domain.ErrTransientUpstream},
		{name: "unreachable", status: 502, body: GenerateResponse{Error: CodeUpstreamUnreachable, Message: "dial tcp"}, want: domain.ErrNetworkFailure},
		{name: "upstream error", status: 500, body: GenerateResponse{Error: CodeUpstreamError, Message: "API key not valid"}, want: domain.ErrUnknownUpstream},
		{name: "bare gateway timeout", status: 504, body: GenerateResponse{}, want: domain.ErrTransientUpstream},
		{name: "forbidden", status: 403, body: GenerateResponse{Message: "nope"}, want: domain.ErrUnknownUpstream},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				reply(w, tc.status, tc.body)
			})
			_, err := client.GenerateContent(context.Background(), testRequest(t))
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestGenerateContentNoImageBecomesTextResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusUnprocessableEntity, GenerateResponse{Error: CodeNoImage, Message: "I can't edit photos of people."})
	})

	resp, err := client.GenerateContent(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	_, err = imagegen.ExtractImage(resp)
	if !errors.Is(err, domain.ErrNoImageProduced) {
		t.Fatalf("error = %v, want no image produced", err)
	}
	if domain.DetailOf(err) != "I can't edit photos of people." {
		t.Fatalf("detail = %q", domain.DetailOf(err))
	}
}

func TestGenerateContentTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client, err := NewClient(Options{BaseURL: base})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.GenerateContent(context.Background(), testRequest(t))
	if !errors.Is(err, domain.ErrNetworkFailure) {
		t.Fatalf("error = %v, want network failure", err)
	}
}

func TestGenerateContentMalformedSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "<html>")
	})
	_, err := client.GenerateContent(context.Background(), testRequest(t))
	if !errors.Is(err, domain.ErrUnknownUpstream) {
		t.Fatalf("error = %v, want unknown upstream", err)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatalf("expected an error without a base url")
	}
}
