package routing

import (
	"time"

	"github.com/andywolf/cde/internal/events"
)

// ProgressEvent is one heartbeat emitted during an agent attempt.
type ProgressEvent struct {
	PhaseKey   string
	Percentage float64 // in [0,1]
	Message    string
}

// ProgressSink receives best-effort progress notifications. Report must
// never block or panic; a slow or misbehaving sink must not affect routing.
type ProgressSink interface {
	Report(event ProgressEvent)
}

// NoopProgressSink discards every event; it is the default observer handle,
// per the redesign note replacing the source's global progress singleton.
type NoopProgressSink struct{}

func (NoopProgressSink) Report(ProgressEvent) {}

// ChanProgressSink forwards events onto a buffered channel, dropping events
// when the channel is full rather than blocking the router.
type ChanProgressSink struct {
	events chan ProgressEvent
}

// NewChanProgressSink creates a sink with the given buffer size.
func NewChanProgressSink(buffer int) *ChanProgressSink {
	return &ChanProgressSink{events: make(chan ProgressEvent, buffer)}
}

func (s *ChanProgressSink) Report(event ProgressEvent) {
	select {
	case s.events <- event:
	default:
	}
}

// Events exposes the channel for a caller to drain.
func (s *ChanProgressSink) Events() <-chan ProgressEvent {
	return s.events
}

// FileProgressSink appends every ProgressEvent to a project's events.jsonl as
// an events.AgentEvent, giving a durable on-disk trace of a run's phase
// heartbeats independent of whatever terminal happened to be attached.
type FileProgressSink struct {
	file      *events.FileSink
	sessionID string
}

// NewFileProgressSink opens (or creates) dir/events.jsonl. sessionID tags
// every written event so a multi-feature project's log can be filtered back
// down to one run.
func NewFileProgressSink(dir, sessionID string) (*FileProgressSink, error) {
	f, err := events.NewFileSink(dir)
	if err != nil {
		return nil, err
	}
	return &FileProgressSink{file: f, sessionID: sessionID}, nil
}

func (s *FileProgressSink) Report(event ProgressEvent) {
	_ = s.file.WriteOne(events.AgentEvent{
		Timestamp: time.Now().UTC(),
		SessionID: s.sessionID,
		Adapter:   event.PhaseKey,
		Type:      events.EventText,
		Summary:   event.Message,
		Content:   event.Message,
	})
}

// Close flushes and closes the underlying file.
func (s *FileProgressSink) Close() error {
	return s.file.Close()
}
