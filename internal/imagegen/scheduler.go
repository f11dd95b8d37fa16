package imagegen

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"remodel/internal/domain"
)

const DefaultConcurrency = 2

// Result pairs a style with its terminal outcome.
type Result struct {
	Style   domain.Style
	Outcome domain.Outcome
}

// Scheduler drains a queue of styles through a fixed pool of workers. A
// failed style never cancels or delays its siblings.
type Scheduler struct {
	runner Runner
	limit  int
	logger zerolog.Logger
}

func NewScheduler(runner Runner, limit int, logger zerolog.Logger) *Scheduler {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	return &Scheduler{runner: runner, limit: limit, logger: logger}
}

func (s *Scheduler) Limit() int {
	return s.limit
}

// Run spawns exactly Limit workers and returns once every style has a
// terminal outcome. onResult is called from worker goroutines, once per
// style, as soon as that style completes.
func (s *Scheduler) Run(ctx context.Context, images ImageSet, styles []domain.Style, onResult func(Result)) {
	queue := make(chan domain.Style, len(styles))
	for _, style := range styles {
		queue <- style
	}
	close(queue)

	var g errgroup.Group
	for i := 0; i < s.limit; i++ {
		worker := i + 1
		g.Go(func() error {
			for style := range queue {
				s.logger.Debug().Int("worker", worker).Str("style", style.String()).Msg("imagegen: worker picked style")
				outcome := s.runner.Run(ctx, images, style)
				onResult(Result{Style: style, Outcome: outcome})
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Stream is generateAll: results arrive in completion order and the channel
// closes after the last one.
func (s *Scheduler) Stream(ctx context.Context, images ImageSet, styles []domain.Style) <-chan Result {
	out := make(chan Result, len(styles))
	go func() {
		defer close(out)
		s.Run(ctx, images, styles, func(r Result) {
			out <- r
		})
	}()
	return out
}
