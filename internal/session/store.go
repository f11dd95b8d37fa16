package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"remodel/internal/domain"
	"remodel/internal/imagegen"
)

// Store keeps sessions in memory. Nothing survives a restart.
type Store struct {
	runner imagegen.Runner
	limit  int
	logger zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore(runner imagegen.Runner, limit int, logger zerolog.Logger) *Store {
	return &Store{
		runner:   runner,
		limit:    limit,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session holding images.
func (st *Store) Create(images imagegen.ImageSet, styles []domain.Style) (*Session, error) {
	sess := New(uuid.NewString(), st.runner, st.limit, styles, st.logger)
	if err := sess.Upload(images); err != nil {
		return nil, err
	}
	st.mu.Lock()
	st.sessions[sess.ID()] = sess
	st.mu.Unlock()
	return sess, nil
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[id]
	if !ok {
		return nil, domain.Classify(domain.ErrNotFound, "session "+id, nil)
	}
	return sess, nil
}

// Delete closes and forgets the session.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	sess, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if !ok {
		return domain.Classify(domain.ErrNotFound, "session "+id, nil)
	}
	sess.Close()
	return nil
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Close shuts down every session.
func (st *Store) Close() {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}
}

// Stats counts live sessions and their style outcomes.
type Stats struct {
	Sessions int
	Pending  int
	Done     int
	Failed   int
}

func (st *Store) Stats() Stats {
	st.mu.RLock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, sess := range st.sessions {
		sessions = append(sessions, sess)
	}
	st.mu.RUnlock()

	out := Stats{Sessions: len(sessions)}
	for _, sess := range sessions {
		for _, r := range sess.Snapshot().Results {
			switch r.Outcome.Status {
			case domain.StatusPending:
				out.Pending++
			case domain.StatusDone:
				out.Done++
			case domain.StatusFailed:
				out.Failed++
			}
		}
	}
	return out
}
