package activity

import (
	"strings"
	"sync"
)

// SeenCommits is the run-scoped registry of commit keys. Force-pushes and
// rebases change SHAs but keep messages, so commits are keyed on a normalized
// message. Two unrelated commits with the same message collapse into one.
type SeenCommits struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewSeenCommits() *SeenCommits {
	return &SeenCommits{keys: make(map[string]struct{})}
}

// SeenBefore reports whether c's key was already registered, registering it
// if not. The check and the insert happen under one lock.
func (s *SeenCommits) SeenBefore(c Commit) bool {
	key := DedupKey(c.Message)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return true
	}
	s.keys[key] = struct{}{}
	return false
}

// Len is the number of distinct keys registered
func (s *SeenCommits) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// DedupKey lower-cases the message, drops line breaks and replaces each run of
// characters outside [a-z0-9 ] with a single underscore
func DedupKey(message string) string {
	msg := strings.ToLower(strings.TrimSpace(message))

	var b strings.Builder
	b.Grow(len(msg))
	filler := false
	for _, r := range msg {
		switch {
		case r == '\r' || r == '\n':
			continue
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
			filler = false
		default:
			if !filler {
				b.WriteByte('_')
				filler = true
			}
		}
	}
	return b.String()
}
