package imagegen

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"remodel/internal/domain"
)

type funcRunner func(ctx context.Context, images ImageSet, style domain.Style) domain.Outcome

func (f funcRunner) Run(ctx context.Context, images ImageSet, style domain.Style) domain.Outcome {
	return f(ctx, images, style)
}

func TestSchedulerBoundsConcurrency(t *testing.T) {
	var inFlight, maxInFlight int32
	runner := funcRunner(func(ctx context.Context, images ImageSet, style domain.Style) domain.Outcome {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			cur := atomic.LoadInt32(&maxInFlight)
			if n <= cur || atomic.CompareAndSwapInt32(&maxInFlight, cur, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return domain.Done(domain.Image{MediaType: "image/png", Data: pngBytes})
	})

	sched := NewScheduler(runner, 2, zerolog.Nop())
	var mu sync.Mutex
	got := map[domain.Style]domain.Outcome{}
	sched.Run(context.Background(), testImages(t), domain.Catalogue(), func(r Result) {
		mu.Lock()
		got[r.Style] = r.Outcome
		mu.Unlock()
	})

	if len(got) != len(domain.Catalogue()) {
		t.Fatalf("results = %d, want %d", len(got), len(domain.Catalogue()))
	}
	if m := atomic.LoadInt32(&maxInFlight); m > 2 || m < 1 {
		t.Fatalf("max in flight = %d, want between 1 and 2", m)
	}
}

func TestSchedulerIsolatesFailures(t *testing.T) {
	runner := funcRunner(func(ctx context.Context, images ImageSet, style domain.Style) domain.Outcome {
		if style == domain.StyleIndustrial {
			return domain.Failed("boom")
		}
		return domain.Done(domain.Image{MediaType: "image/png", Data: pngBytes})
	})

	results := NewScheduler(runner, 2, zerolog.Nop()).Stream(context.Background(), testImages(t), domain.Catalogue())

	count := 0
	for r := range results {
		count++
		if !r.Outcome.Terminal() {
			t.Fatalf("style %s not terminal", r.Style)
		}
		wantFailed := r.Style == domain.StyleIndustrial
		if (r.Outcome.Status == domain.StatusFailed) != wantFailed {
			t.Fatalf("style %s status = %s", r.Style, r.Outcome.Status)
		}
	}
	if count != len(domain.Catalogue()) {
		t.Fatalf("results = %d, want %d", count, len(domain.Catalogue()))
	}
}

func TestSchedulerSlowStyleDoesNotBlockOthers(t *testing.T) {
	release := make(chan struct{})
	runner := funcRunner(func(ctx context.Context, images ImageSet, style domain.Style) domain.Outcome {
		if style == domain.StyleModern {
			<-release
		}
		return domain.Done(domain.Image{MediaType: "image/png", Data: pngBytes})
	})

	results := NewScheduler(runner, 2, zerolog.Nop()).Stream(context.Background(), testImages(t), domain.Catalogue())

	// With Modern held, the other worker must still finish the five other styles.
	for i := 0; i < len(domain.Catalogue())-1; i++ {
		select {
		case r := <-results:
			if r.Style == domain.StyleModern {
				t.Fatalf("held style completed early")
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for result %d", i+1)
		}
	}
	close(release)
	r, ok := <-results
	if !ok || r.Style != domain.StyleModern {
		t.Fatalf("expected Modern last, got %+v (ok=%v)", r, ok)
	}
	if _, ok := <-results; ok {
		t.Fatalf("stream should be closed")
	}
}

func TestSchedulerDefaultLimit(t *testing.T) {
	if got := NewScheduler(nil, 0, zerolog.Nop()).Limit(); got != DefaultConcurrency {
		t.Fatalf("Limit() = %d, want %d", got, DefaultConcurrency)
	}
}

func TestSchedulerEmptyQueue(t *testing.T) {
	called := false
	runner := funcRunner(func(ctx context.Context, images ImageSet, style domain.Style) domain.Outcome {
		called = true
		return domain.Failed("unexpected")
	})
	results := NewScheduler(runner, 2, zerolog.Nop()).Stream(context.Background(), testImages(t), nil)
	if _, ok := <-results; ok {
		t.Fatalf("expected closed stream")
	}
	if called {
		t.Fatalf("runner must not be called without styles")
	}
}
