// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package search

import (
	"strings"
	"sync"
)

// DefaultMaxAttempts is how often the same query may run per session
// before the guard stops it.
const DefaultMaxAttempts = 2

// Session is the per-session retry guard. Repeating the same query burns
// an attempt; once the ceiling is reached further repeats are refused until
// the query changes or the session resets. Normalization is
// case-insensitive and whitespace-collapsing, so trivial rephrasings don't
// dodge the guard.
type Session struct {
	mu          sync.Mutex
	maxAttempts int
	lastQuery   string
	attempts    int
}

// NewSession creates a retry guard. maxAttempts below 1 falls back to
// DefaultMaxAttempts.
func NewSession(maxAttempts int) *Session {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Session{maxAttempts: maxAttempts}
}

// Allow reports whether the query may run, and counts the attempt if so.
func (s *Session) Allow(query string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := normalizeQuery(query)
	if normalized != s.lastQuery {
		s.lastQuery = normalized
		s.attempts = 0
	}
	if s.attempts >= s.maxAttempts {
		return false
	}
	s.attempts++
	return true
}

// Attempts returns how often the current query has run.
func (s *Session) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Reset clears the guard, as at the start of a new session.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery = ""
	s.attempts = 0
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
