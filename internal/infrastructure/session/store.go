package session

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

type Options struct {
	MaxMessages         int
	Timeout             time.Duration
	AutoCleanupInterval int

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

func DefaultOptions() Options {
	return Options{
		MaxMessages:         20,
		Timeout:             60 * time.Minute,
		AutoCleanupInterval: 100,
	}
}

func (o Options) normalize() Options {
	d := DefaultOptions()
	if o.MaxMessages < 2 {
		o.MaxMessages = d.MaxMessages
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.AutoCleanupInterval < 1 {
		o.AutoCleanupInterval = d.AutoCleanupInterval
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

type conversation struct {
	messages     []domain.Message
	createdAt    time.Time
	lastAccessed time.Time
}

func (c *conversation) touch(now time.Time) {
	if now.After(c.lastAccessed) {
		c.lastAccessed = now
	}
}

// Store keeps bounded conversation history in memory. A single mutex guards
// the session map, every message slice and the operation counter.
type Store struct {
	opts Options

	mu             sync.Mutex
	sessions       map[string]*conversation
	operationCount int
	totalSweeps    int
	totalExpired   int
}

func NewStore(opts Options) *Store {
	return &Store{
		opts:     opts.normalize(),
		sessions: make(map[string]*conversation),
	}
}

// GetOrCreate refreshes an existing live session or allocates a new one with
// a fresh id. Expired sessions are treated as absent.
func (s *Store) GetOrCreate(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tickLocked()
	now := s.opts.Now()
	if c := s.liveLocked(sessionID, now); c != nil {
		c.touch(now)
		return sessionID
	}
	return s.createLocked("", now)
}

// AppendMessage adds one message and trims the oldest ones beyond the
// capacity. An unknown non-empty id is created under that id so the caller's
// handle stays valid. The id that received the message is returned.
func (s *Store) AppendMessage(sessionID string, role domain.Role, text string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	c := s.liveLocked(sessionID, now)
	if c == nil {
		sessionID = s.createLocked(sessionID, now)
		c = s.sessions[sessionID]
	}
	c.messages = append(c.messages, domain.Message{Role: role, Text: text, Timestamp: now})
	c.touch(now)
	s.trimLocked(c)
	s.tickLocked()
	return sessionID
}

// AppendTurn records a user message and its answer as one unit, so
// concurrent turns on a session never interleave. A missing or expired id
// gets a fresh session, as in GetOrCreate. The id that received the turn is
// returned.
func (s *Store) AppendTurn(sessionID, userText, assistantText string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	c := s.liveLocked(sessionID, now)
	if c == nil {
		sessionID = s.createLocked("", now)
		c = s.sessions[sessionID]
	}
	c.messages = append(c.messages,
		domain.Message{Role: domain.RoleUser, Text: userText, Timestamp: now},
		domain.Message{Role: domain.RoleAssistant, Text: assistantText, Timestamp: now},
	)
	c.touch(now)
	s.trimLocked(c)
	s.tickLocked()
	return sessionID
}

func (s *Store) History(sessionID string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	c := s.liveLocked(sessionID, now)
	if c == nil {
		s.tickLocked()
		return nil
	}
	c.touch(now)
	out := make([]domain.Message, len(c.messages))
	copy(out, c.messages)
	s.tickLocked()
	return out
}

// Context renders the last lastNPairs user/assistant pairs as "Role: text"
// lines, oldest first. lastNPairs <= 0 includes the whole history.
func (s *Store) Context(sessionID string, lastNPairs int) string {
	messages := s.History(sessionID)
	if len(messages) == 0 {
		return ""
	}
	if lastNPairs > 0 && len(messages) > lastNPairs*2 {
		messages = messages[len(messages)-lastNPairs*2:]
	}

	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleUser:
			lines = append(lines, "User: "+m.Text)
		case domain.RoleAssistant:
			lines = append(lines, "Assistant: "+m.Text)
		}
	}
	return strings.Join(lines, "\n")
}

// Clear drops the history but keeps the session and its creation time.
// Expired sessions are not revived.
func (s *Store) Clear(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	c := s.liveLocked(sessionID, now)
	if c == nil {
		return false
	}
	c.messages = nil
	c.touch(now)
	return true
}

func (s *Store) Delete(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.liveLocked(sessionID, s.opts.Now()) == nil {
		return false
	}
	delete(s.sessions, sessionID)
	return true
}

// Info reports a live session. An expired entry still awaiting a sweep is
// reported as absent and left for the sweep to remove.
func (s *Store) Info(sessionID string) (domain.SessionInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.sessions[sessionID]
	if !ok || s.expiredLocked(c, s.opts.Now()) {
		return domain.SessionInfo{}, false
	}
	return domain.SessionInfo{
		SessionID:    sessionID,
		MessageCount: len(c.messages),
		CreatedAt:    c.createdAt,
		LastAccessed: c.lastAccessed,
		Active:       true,
	}, true
}

// ListActive returns the ids of non-expired sessions in lexical order.
func (s *Store) ListActive() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	out := make([]string, 0, len(s.sessions))
	for id, c := range s.sessions {
		if !s.expiredLocked(c, now) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// SweepExpired removes every session idle for at least the timeout.
func (s *Store) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

// ForceSweep sweeps immediately and restarts the operation counter.
func (s *Store) ForceSweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operationCount = 0
	return s.sweepLocked()
}

// Stats sweeps first so the active count is accurate at call time.
func (s *Store) Stats() domain.MemoryStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.operationCount = 0
	s.sweepLocked()
	return s.snapshotLocked()
}

// Snapshot reports the same figures as Stats without sweeping.
func (s *Store) Snapshot() domain.MemoryStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) CleanupStats() domain.CleanupStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupStatsLocked()
}

// Run sweeps on a fixed interval until ctx is done. It complements the
// operation-count trigger for idle processes.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepExpired()
		}
	}
}

func (s *Store) liveLocked(sessionID string, now time.Time) *conversation {
	if sessionID == "" {
		return nil
	}
	c, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	if s.expiredLocked(c, now) {
		s.purgeLocked([]string{sessionID})
		return nil
	}
	return c
}

func (s *Store) createLocked(sessionID string, now time.Time) string {
	if sessionID == "" {
		sessionID = s.opts.NewID()
		for _, taken := s.sessions[sessionID]; taken; _, taken = s.sessions[sessionID] {
			sessionID = s.opts.NewID()
		}
	}
	s.sessions[sessionID] = &conversation{createdAt: now, lastAccessed: now}
	return sessionID
}

// trimLocked drops the oldest messages in pairs, never leaving fewer than two.
func (s *Store) trimLocked(c *conversation) {
	n := len(c.messages)
	if n <= s.opts.MaxMessages {
		return
	}
	remove := n - s.opts.MaxMessages
	if remove%2 == 1 {
		remove++
	}
	if remove > n-2 {
		remove = n - 2
	}
	if remove <= 0 {
		return
	}
	kept := make([]domain.Message, n-remove)
	copy(kept, c.messages[remove:])
	c.messages = kept
}

func (s *Store) tickLocked() {
	s.operationCount++
	if s.operationCount >= s.opts.AutoCleanupInterval {
		s.operationCount = 0
		s.sweepLocked()
	}
}

func (s *Store) sweepLocked() int {
	now := s.opts.Now()
	var expired []string
	for id, c := range s.sessions {
		if s.expiredLocked(c, now) {
			expired = append(expired, id)
		}
	}
	return s.purgeLocked(expired)
}

// purgeLocked removes expired sessions and counts them in the cleanup
// statistics, whether found by a sweep or on lookup.
func (s *Store) purgeLocked(ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	for _, id := range ids {
		delete(s.sessions, id)
	}
	s.totalSweeps++
	s.totalExpired += len(ids)
	slog.Info("session_sweep", "removed", len(ids), "remaining", len(s.sessions))
	return len(ids)
}

func (s *Store) expiredLocked(c *conversation, now time.Time) bool {
	return now.Sub(c.lastAccessed) >= s.opts.Timeout
}

func (s *Store) snapshotLocked() domain.MemoryStats {
	now := s.opts.Now()
	active, messages := 0, 0
	for _, c := range s.sessions {
		if !s.expiredLocked(c, now) {
			active++
		}
		messages += len(c.messages)
	}
	return domain.MemoryStats{
		TotalSessions:         len(s.sessions),
		ActiveSessions:        active,
		ExpiredSessions:       len(s.sessions) - active,
		TotalMessages:         messages,
		MaxMessagesPerSession: s.opts.MaxMessages,
		SessionTimeout:        domain.Duration(s.opts.Timeout),
		Cleanup:               s.cleanupStatsLocked(),
	}
}

func (s *Store) cleanupStatsLocked() domain.CleanupStats {
	next := s.opts.AutoCleanupInterval - s.operationCount
	if next < 0 {
		next = 0
	}
	return domain.CleanupStats{
		TotalSweeps:        s.totalSweeps,
		TotalExpiredPurged: s.totalExpired,
		AutoCleanupEvery:   s.opts.AutoCleanupInterval,
		OperationCount:     s.operationCount,
		NextCleanupIn:      next,
	}
}
