package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/support-engine/internal/assistant"
	"github.com/spec-kit/support-engine/internal/config"
)

const profileCacheSize = 100

type storedMessage struct {
	role    string
	content string
	at      time.Time
}

type requesterProfile struct {
	keywords    []string
	behavior    string
	lastUpdated time.Time
}

// ConversationStore keeps a bounded per-ticket history of exchanged
// messages plus a per-requester side channel of previously seen issue
// keywords. The side channel is advisory context only: it enriches
// assistant calls but never blocks or fails a resolution attempt.
type ConversationStore struct {
	mu       sync.Mutex
	history  map[string][]storedMessage
	profiles map[int64]*requesterProfile

	maxHistory    int
	contextWindow int
	retention     time.Duration
	keywordCap    int
	now           func() time.Time
}

// NewConversationStore builds the store from config bounds.
func NewConversationStore(cfg config.ConversationConfig) *ConversationStore {
	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = 20
	}
	window := cfg.ContextWindow
	if window <= 0 || window > maxHistory {
		window = 10
	}
	retention := cfg.Retention()
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	keywordCap := cfg.KeywordCap
	if keywordCap <= 0 {
		keywordCap = 10
	}
	return &ConversationStore{
		history:       make(map[string][]storedMessage),
		profiles:      make(map[int64]*requesterProfile),
		maxHistory:    maxHistory,
		contextWindow: window,
		retention:     retention,
		keywordCap:    keywordCap,
		now:           time.Now,
	}
}

// Append pushes a message onto the per-ticket bounded deque; pushing
// past the bound drops the oldest entry.
func (s *ConversationStore) Append(ticketID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := append(s.history[ticketID], storedMessage{role: role, content: content, at: s.now()})
	if len(msgs) > s.maxHistory {
		msgs = msgs[len(msgs)-s.maxHistory:]
	}
	s.history[ticketID] = msgs
}

// Context returns the last messages of the ticket, prefixed with
// advisory requester context when available.
func (s *ConversationStore) Context(ticketID string, requesterID int64) []assistant.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []assistant.Message
	if profile, ok := s.profiles[requesterID]; ok {
		if len(profile.keywords) > 0 {
			shown := profile.keywords
			if len(shown) > 3 {
				shown = shown[len(shown)-3:]
			}
			out = append(out, assistant.Message{
				Role:    "system",
				Content: "The user has had similar issues before: " + strings.Join(shown, ", "),
			})
		}
		if profile.behavior != "" {
			out = append(out, assistant.Message{
				Role:    "system",
				Content: "Behavioral notes: " + profile.behavior,
			})
		}
	}

	msgs := s.history[ticketID]
	if len(msgs) > s.contextWindow {
		msgs = msgs[len(msgs)-s.contextWindow:]
	}
	for _, msg := range msgs {
		out = append(out, assistant.Message{Role: msg.role, Content: msg.content})
	}
	return out
}

// ContextFingerprint derives a deterministic key for the ticket's
// current context, used for response-cache lookups. Empty context
// yields a stable sentinel so fresh tickets share cache entries.
func (s *ConversationStore) ContextFingerprint(ticketID string, requesterID int64) string {
	msgs := s.Context(ticketID, requesterID)
	if len(msgs) == 0 {
		return "none"
	}
	var b strings.Builder
	for _, msg := range msgs {
		fmt.Fprintf(&b, "%s:%s\n", msg.Role, msg.Content)
	}
	return Fingerprint(b.String())
}

// RecordKeywords folds issue keywords into the requester's rolling
// profile, keeping at most the configured number of unique entries.
func (s *ConversationStore) RecordKeywords(requesterID int64, keywords []string) {
	if len(keywords) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := s.profileLocked(requesterID)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if containsString(profile.keywords, kw) {
			continue
		}
		profile.keywords = append(profile.keywords, kw)
	}
	if len(profile.keywords) > s.keywordCap {
		profile.keywords = profile.keywords[len(profile.keywords)-s.keywordCap:]
	}
	profile.lastUpdated = s.now()
}

// SetBehavior records an optional behavioral summary for a requester.
func (s *ConversationStore) SetBehavior(requesterID int64, summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := s.profileLocked(requesterID)
	profile.behavior = summary
	profile.lastUpdated = s.now()
}

// Sweep purges history entries older than the retention window and
// removes per-ticket records left empty. Returns the number of tickets
// purged entirely.
func (s *ConversationStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.retention)
	purged := 0
	for ticketID, msgs := range s.history {
		kept := msgs[:0]
		for _, msg := range msgs {
			if msg.at.After(cutoff) {
				kept = append(kept, msg)
			}
		}
		if len(kept) == 0 {
			delete(s.history, ticketID)
			purged++
			continue
		}
		s.history[ticketID] = kept
	}
	return purged
}

// HistoryLen reports the current history length for a ticket.
func (s *ConversationStore) HistoryLen(ticketID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history[ticketID])
}

func (s *ConversationStore) profileLocked(requesterID int64) *requesterProfile {
	profile, ok := s.profiles[requesterID]
	if !ok {
		if len(s.profiles) >= profileCacheSize {
			s.evictOldestProfileLocked()
		}
		profile = &requesterProfile{}
		s.profiles[requesterID] = profile
	}
	return profile
}

func (s *ConversationStore) evictOldestProfileLocked() {
	var oldestID int64
	var oldestAt time.Time
	first := true
	for id, profile := range s.profiles {
		if first || profile.lastUpdated.Before(oldestAt) {
			oldestID = id
			oldestAt = profile.lastUpdated
			first = false
		}
	}
	if !first {
		delete(s.profiles, oldestID)
	}
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
