package imagegen

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"remodel/internal/domain"
)

var pngBytes = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

func testImages(t *testing.T) ImageSet {
	t.Helper()
	set, err := NewImageSetFromImages([]domain.Image{{MediaType: "image/png", Data: pngBytes}})
	if err != nil {
		t.Fatalf("NewImageSetFromImages: %v", err)
	}
	return set
}

func imageResponse(mediaType string, data []byte) *Response {
	return &Response{Candidates: []Candidate{{Parts: []Part{{
		InlineData: &InlineData{MediaType: mediaType, Data: base64.StdEncoding.EncodeToString(data)},
	}}}}}
}

func textResponse(text string) *Response {
	return &Response{Candidates: []Candidate{{Parts: []Part{{Text: text}}, FinishReason: "STOP"}}}
}

// stubGenerator records every request and answers through respond.
type stubGenerator struct {
	mu           sync.Mutex
	calls        int
	instructions []string
	respond      func(call int, req Request) (*Response, error)
}

func (s *stubGenerator) GenerateContent(ctx context.Context, req Request) (*Response, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.instructions = append(s.instructions, req.Instruction())
	s.mu.Unlock()
	return s.respond(call, req)
}

func (s *stubGenerator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubGenerator) distinctInstructions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	for _, instr := range s.instructions {
		seen[instr] = struct{}{}
	}
	return len(seen)
}

// recordingSleeper captures backoff delays without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func noSleep(ctx context.Context, d time.Duration) error {
	return nil
}

func transientErr() error {
	return domain.Classify(domain.ErrTransientUpstream, "status 500 INTERNAL", nil)
}
