package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"remodel/internal/domain"
	"remodel/internal/imagegen"
)

// EventKind distinguishes outcome updates from state resets.
type EventKind string

const (
	EventOutcome EventKind = "outcome"
	EventCleared EventKind = "cleared"
)

// Event is published to subscribers whenever the session state changes.
type Event struct {
	Kind    EventKind
	Epoch   uint64
	Style   domain.Style
	Outcome domain.Outcome
}

// StyleState is one entry of a snapshot.
type StyleState struct {
	Style   domain.Style
	Outcome domain.Outcome
}

// Snapshot is a consistent, ordered copy of the session state.
type Snapshot struct {
	ID         string
	Epoch      uint64
	ImageCount int
	Styles     []domain.Style
	Results    []StyleState
	UpdatedAt  time.Time
}

// Done returns the images of every style whose outcome is Done, in display
// order.
func (s Snapshot) Done() []StyleState {
	var out []StyleState
	for _, r := range s.Results {
		if r.Outcome.Status == domain.StatusDone {
			out = append(out, r)
		}
	}
	return out
}

// Outcome returns the outcome for style, if any.
func (s Snapshot) Outcome(style domain.Style) (domain.Outcome, bool) {
	for _, r := range s.Results {
		if r.Style == style {
			return r.Outcome, true
		}
	}
	return domain.Outcome{}, false
}

const subscriberBuffer = 32

// Session owns one user's generation state. All writes go through mu, and
// every completion is tagged with the epoch it was started in: once the
// images are replaced or the session is reset, late completions from the
// previous epoch are dropped. Rounds and regenerations share one pool of
// limit upstream slots.
type Session struct {
	id     string
	runner imagegen.Runner
	limit  int
	logger zerolog.Logger

	mu        sync.Mutex
	images    imagegen.ImageSet
	styles    []domain.Style
	outcomes  map[domain.Style]domain.Outcome
	epoch     uint64
	cancels   map[int]context.CancelFunc
	nextTask  int
	subs      map[int]chan Event
	nextSub   int
	updatedAt time.Time
	closed    bool
}

// New creates a session over images. An empty styles list selects the whole
// catalogue.
func New(id string, runner imagegen.Runner, limit int, styles []domain.Style, logger zerolog.Logger) *Session {
	if len(styles) == 0 {
		styles = domain.Catalogue()
	}
	if limit <= 0 {
		limit = imagegen.DefaultConcurrency
	}
	return &Session{
		id:        id,
		runner:    slotRunner{runner: runner, slots: semaphore.NewWeighted(int64(limit))},
		limit:     limit,
		logger:    logger.With().Str("session_id", id).Logger(),
		styles:    append([]domain.Style(nil), styles...),
		outcomes:  make(map[domain.Style]domain.Outcome),
		cancels:   make(map[int]context.CancelFunc),
		subs:      make(map[int]chan Event),
		updatedAt: time.Now(),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Upload replaces the image set and clears every outcome.
func (s *Session) Upload(images imagegen.ImageSet) error {
	if images.Empty() {
		return domain.Classify(domain.ErrInvalidInput, "at least one image is required", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = images
	s.clearLocked()
	s.logger.Info().Int("images", images.Len()).Uint64("epoch", s.epoch).Msg("session: images uploaded")
	return nil
}

// Reset discards the images and every outcome.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = imagegen.ImageSet{}
	s.clearLocked()
	s.logger.Info().Uint64("epoch", s.epoch).Msg("session: reset")
}

// Start begins a generation round for every style of the session. Every
// style is Pending when Start returns; the returned channel is closed once
// all of them have reached a terminal outcome.
func (s *Session) Start(ctx context.Context) (<-chan struct{}, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, domain.Classify(domain.ErrNotFound, "session closed", nil)
	}
	if s.images.Empty() {
		s.mu.Unlock()
		return nil, domain.Classify(domain.ErrInvalidInput, "upload at least one image before generating", nil)
	}
	s.clearLocked()
	epoch := s.epoch
	images := s.images
	styles := append([]domain.Style(nil), s.styles...)
	for _, style := range styles {
		s.setLocked(style, domain.Pending())
	}
	roundCtx, release := s.trackLocked(ctx)
	s.mu.Unlock()

	s.logger.Info().Uint64("epoch", epoch).Int("styles", len(styles)).Int("concurrency", s.limit).Msg("session: round started")

	done := make(chan struct{})
	scheduler := imagegen.NewScheduler(s.runner, s.limit, s.logger)
	go func() {
		defer close(done)
		defer release()
		scheduler.Run(roundCtx, images, styles, func(r imagegen.Result) {
			s.complete(epoch, r.Style, r.Outcome)
		})
		s.logger.Info().Uint64("epoch", epoch).Msg("session: round settled")
	}()
	return done, nil
}

// Regenerate reruns a single style. It is refused with ErrAlreadyPending,
// without touching the state, while that style is still pending.
func (s *Session) Regenerate(ctx context.Context, style domain.Style) (<-chan struct{}, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, domain.Classify(domain.ErrNotFound, "session closed", nil)
	}
	if !s.hasStyleLocked(style) {
		s.mu.Unlock()
		return nil, domain.Classify(domain.ErrInvalidInput, fmt.Sprintf("style %q is not part of this session", style), nil)
	}
	if s.images.Empty() {
		s.mu.Unlock()
		return nil, domain.Classify(domain.ErrInvalidInput, "upload at least one image before generating", nil)
	}
	if current, ok := s.outcomes[style]; ok && current.Status == domain.StatusPending {
		s.mu.Unlock()
		return nil, domain.Classify(domain.ErrAlreadyPending, style.String(), nil)
	}
	epoch := s.epoch
	images := s.images
	s.setLocked(style, domain.Pending())
	taskCtx, release := s.trackLocked(ctx)
	s.mu.Unlock()

	s.logger.Info().Uint64("epoch", epoch).Str("style", style.String()).Msg("session: regenerating style")

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer release()
		s.complete(epoch, style, s.runner.Run(taskCtx, images, style))
	}()
	return done, nil
}

// Snapshot returns an ordered copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:         s.id,
		Epoch:      s.epoch,
		ImageCount: s.images.Len(),
		Styles:     append([]domain.Style(nil), s.styles...),
		UpdatedAt:  s.updatedAt,
	}
	for _, style := range s.styles {
		if outcome, ok := s.outcomes[style]; ok {
			snap.Results = append(snap.Results, StyleState{Style: style, Outcome: outcome})
		}
	}
	return snap
}

// Subscribe registers for state change events. Slow subscribers miss events
// rather than block writers; cancel must be called to release the channel.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
}

// Close cancels in-flight work and ends every subscription.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancelLocked()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Session) complete(epoch uint64, style domain.Style, outcome domain.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.closed {
		s.logger.Debug().
			Uint64("epoch", epoch).
			Uint64("current_epoch", s.epoch).
			Str("style", style.String()).
			Msg("session: dropping stale completion")
		return
	}
	s.setLocked(style, outcome)
}

func (s *Session) setLocked(style domain.Style, outcome domain.Outcome) {
	s.outcomes[style] = outcome
	s.updatedAt = time.Now()
	s.publishLocked(Event{Kind: EventOutcome, Epoch: s.epoch, Style: style, Outcome: outcome})
}

func (s *Session) clearLocked() {
	s.cancelLocked()
	s.epoch++
	s.outcomes = make(map[domain.Style]domain.Outcome)
	s.updatedAt = time.Now()
	s.publishLocked(Event{Kind: EventCleared, Epoch: s.epoch})
}

// trackLocked derives a cancellable context for one unit of work. The
// returned release cancels it and forgets it; it is safe to call after
// cancelLocked has already run.
func (s *Session) trackLocked(ctx context.Context) (context.Context, func()) {
	taskCtx, cancel := context.WithCancel(ctx)
	id := s.nextTask
	s.nextTask++
	s.cancels[id] = cancel
	return taskCtx, func() {
		cancel()
		s.mu.Lock()
		delete(s.cancels, id)
		s.mu.Unlock()
	}
}

func (s *Session) cancelLocked() {
	for _, cancel := range s.cancels {
		cancel()
	}
	clear(s.cancels)
}

// slotRunner holds one of the session's upstream slots for the duration of
// each Run.
type slotRunner struct {
	runner imagegen.Runner
	slots  *semaphore.Weighted
}

func (r slotRunner) Run(ctx context.Context, images imagegen.ImageSet, style domain.Style) domain.Outcome {
	if err := r.slots.Acquire(ctx, 1); err != nil {
		return domain.Failed(domain.Reason(err))
	}
	defer r.slots.Release(1)
	return r.runner.Run(ctx, images, style)
}

func (s *Session) publishLocked(ev Event) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Session) hasStyleLocked(style domain.Style) bool {
	for _, st := range s.styles {
		if st == style {
			return true
		}
	}
	return false
}
