package session

import (
	"sync"

	"github.com/magalia-labs/voicemesh/logging"
	"github.com/magalia-labs/voicemesh/model"
)

// UsageCollector accumulates token usage across all model rounds of a
// session. Safe for concurrent use.
type UsageCollector struct {
	mu       sync.Mutex
	usage    model.TokenUsage
	requests int
}

// NewUsageCollector constructs an empty collector.
func NewUsageCollector() *UsageCollector {
	return &UsageCollector{}
}

// Add folds one response's usage into the running totals.
func (u *UsageCollector) Add(usage *model.TokenUsage) {
	if usage == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.usage.PromptTokens += usage.PromptTokens
	u.usage.CompletionTokens += usage.CompletionTokens
	u.usage.TotalTokens += usage.TotalTokens
	u.requests++
}

// Snapshot returns the accumulated totals.
func (u *UsageCollector) Snapshot() model.TokenUsage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.usage
}

// Requests returns the number of responses folded in.
func (u *UsageCollector) Requests() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.requests
}

// LogSummary writes the totals, typically on session shutdown.
func (u *UsageCollector) LogSummary(logger logging.Logger, sessionID string) {
	u.mu.Lock()
	snapshot := u.usage
	requests := u.requests
	u.mu.Unlock()

	logger.Info("session.usage",
		"session_id", sessionID,
		"requests", requests,
		"prompt_tokens", snapshot.PromptTokens,
		"completion_tokens", snapshot.CompletionTokens,
		"total_tokens", snapshot.TotalTokens,
	)
}
