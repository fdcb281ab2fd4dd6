// Package games holds the quiz and trash-sort state machines and the server-side sessions
// that track a profile's game in progress.
package games

import (
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultSessionCacheSize bounds the number of concurrent game sessions kept in memory.
const DefaultSessionCacheSize = 1024

// Kind distinguishes the two mini-games.
type Kind string

const (
	KindQuiz  Kind = "quiz"
	KindTrash Kind = "trash"
)

// Session is one profile's game. Callers hold Lock while advancing it.
type Session struct {
	sync.Mutex

	ID        string    `json:"id"`
	ProfileID string    `json:"-"`
	Kind      Kind      `json:"kind"`
	StartedAt time.Time `json:"startedAt"`

	Quiz  *Quiz      `json:"-"`
	Trash *TrashSort `json:"-"`
}

// Sessions stores live sessions in a bounded LRU. Evicted sessions are simply gone.
type Sessions struct {
	cache   *lru.Cache
	content Content
	ids     IDGenerator
	rand    RandSource
	now     func() time.Time
}

// SessionsOption customises NewSessions.
type SessionsOption func(*Sessions)

// WithIDGenerator overrides session id generation.
func WithIDGenerator(ids IDGenerator) SessionsOption {
	return func(s *Sessions) { s.ids = ids }
}

// WithRandSource overrides the trash-sort item generator.
func WithRandSource(src RandSource) SessionsOption {
	return func(s *Sessions) { s.rand = src }
}

// NewSessions builds a session registry over content. size <= 0 uses DefaultSessionCacheSize.
func NewSessions(size int, content Content, opts ...SessionsOption) (*Sessions, error) {
	if err := content.Validate(); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultSessionCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	s := &Sessions{
		cache:   cache,
		content: content,
		ids:     NewUUIDGenerator(),
		rand:    newTimeSeededRand,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Content is the material sessions are built from.
func (s *Sessions) Content() Content {
	return s.content
}

// StartQuiz opens a new quiz for profileID.
func (s *Sessions) StartQuiz(profileID string) *Session {
	sess := s.newSession(profileID, KindQuiz)
	sess.Quiz = NewQuiz(s.content.Questions)
	s.cache.Add(sess.ID, sess)
	return sess
}

// StartTrash opens a new trash-sort game for profileID.
func (s *Sessions) StartTrash(profileID string) *Session {
	sess := s.newSession(profileID, KindTrash)
	sess.Trash = NewTrashSort(s.content.Trash.Items, s.content.Trash.Bins, s.rand())
	s.cache.Add(sess.ID, sess)
	return sess
}

// Get returns the session id of the given kind owned by profileID. Sessions owned by other
// profiles are reported as not found.
func (s *Sessions) Get(profileID, id string, kind Kind) (*Session, error) {
	raw, ok := s.cache.Get(strings.TrimSpace(id))
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess := raw.(*Session)
	if sess.ProfileID != profileID || sess.Kind != kind {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// End discards a session.
func (s *Sessions) End(id string) {
	s.cache.Remove(id)
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	return s.cache.Len()
}

func (s *Sessions) newSession(profileID string, kind Kind) *Session {
	return &Session{
		ID:        s.ids.NewID(),
		ProfileID: profileID,
		Kind:      kind,
		StartedAt: s.now().UTC(),
	}
}
