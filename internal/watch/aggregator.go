package watch

import (
	"log/slog"
	"sync"
	"time"
)

// Kind identifies what happened to a path. It is recorded for diagnostic
// output only; the eventual action is always "sync whatever differs".
type Kind string

const (
	KindModified Kind = "modified"
	KindCreated  Kind = "created"
	KindDeleted  Kind = "deleted"
)

// Event is the last accepted change, kept for diagnostics
type Event struct {
	Path string    `json:"path"`
	Kind Kind      `json:"kind"`
	At   time.Time `json:"at"`
}

// Aggregator coalesces accepted filesystem events into a single pending
// flag. Many goroutines may set the flag; only the sync loop clears it.
type Aggregator struct {
	mu         sync.Mutex
	pending    bool
	last       Event
	classifier *Classifier
	logger     *slog.Logger
}

// NewAggregator creates an aggregator that filters events through classifier
func NewAggregator(classifier *Classifier, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		classifier: classifier,
		logger:     logger,
	}
}

// Notify records a filesystem change. Ignored paths are a no-op.
func (a *Aggregator) Notify(path string, kind Kind) {
	if a.classifier.Ignore(path) {
		a.logger.Debug("ignoring event", "path", path, "kind", string(kind))
		return
	}
	a.logger.Info("change detected", "path", path, "kind", string(kind))
	a.mark(path, kind)
}

// Trigger marks a pending change without classification. Used by the HTTP
// trigger endpoint, where the request itself is the change signal.
func (a *Aggregator) Trigger(reason string) {
	a.logger.Info("sync triggered", "reason", reason)
	a.mark(reason, KindModified)
}

func (a *Aggregator) mark(path string, kind Kind) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = true
	a.last = Event{Path: path, Kind: kind, At: time.Now()}
}

// HasPending reports whether an unsynced change exists
func (a *Aggregator) HasPending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Clear resets the pending flag. Called by the sync engine after a
// completed cycle, never by event producers.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = false
}

// Last returns the most recently accepted event
func (a *Aggregator) Last() Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}
