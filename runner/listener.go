package runner

import (
	"fmt"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"

	"github.com/yamf-go/op-marker/attachments"
	"github.com/yamf-go/op-marker/metrics"
	"github.com/yamf-go/op-marker/types"
)

// MarkSource resolves the marking metadata declared for a check.
// ok is false when the check carries no marking.
type MarkSource interface {
	Lookup(id types.CheckID) (meta *types.MarkMetadata, ok bool, err error)
}

// Listener turns the lifecycle events of one run into result records.
// Handle is safe to call from several goroutines at once.
type Listener struct {
	log       log.Logger
	runID     string
	marks     MarkSource
	evidence  *attachments.Registry
	collector *Collector

	started  atomic.Bool
	finished atomic.Bool
}

// ListenerConfig holds the collaborators of a Listener
type ListenerConfig struct {
	Log       log.Logger
	RunID     string
	Marks     MarkSource
	Evidence  *attachments.Registry
	Collector *Collector
}

// NewListener creates a listener for one run
func NewListener(cfg ListenerConfig) (*Listener, error) {
	if cfg.Marks == nil {
		return nil, fmt.Errorf("mark source cannot be nil")
	}
	if cfg.Evidence == nil {
		return nil, fmt.Errorf("evidence registry cannot be nil")
	}
	if cfg.Collector == nil {
		return nil, fmt.Errorf("collector cannot be nil")
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	return &Listener{
		log:       cfg.Log,
		runID:     cfg.RunID,
		marks:     cfg.Marks,
		evidence:  cfg.Evidence,
		collector: cfg.Collector,
	}, nil
}

// Handle processes one lifecycle event
func (l *Listener) Handle(ev Event) {
	switch ev.Kind {
	case EventRunStarted:
		l.started.Store(true)
		l.log.Info("Checks started", "run_id", l.runID)
		l.evidence.Reset()

	case EventRunFinished:
		l.finished.Store(true)
		l.log.Info("Checks finished", "run_id", l.runID)
		l.evidence.Reset()

	case EventCheckSkipped:
		if ev.IsLeaf() {
			l.log.Info("Check skipped", "check", ev.ID, "reason", ev.Reason)
			// evidence attributable to the skip decision is still captured
			l.evidence.StartScope(ev.ID)
		}

	case EventCheckStarted:
		if ev.IsLeaf() {
			l.log.Info("Running check", "check", ev.ID)
			l.evidence.StartScope(ev.ID)
		}

	case EventAttachment:
		l.evidence.For(ev.ID).Add(ev.Name, ev.Path, ev.MediaType)

	case EventCheckFinished:
		if ev.IsLeaf() {
			l.checkFinished(ev)
		}

	default:
		l.log.Warn("Ignoring unknown lifecycle event", "event", ev.Kind, "check", ev.ID)
	}
}

func (l *Listener) checkFinished(ev Event) {
	if !l.evidence.IsOpen(ev.ID) {
		l.log.Warn("Ignoring finished check that never started", "check", ev.ID, "status", ev.Status)
		return
	}
	defer l.evidence.EndScope(ev.ID)

	status := types.StatusFromRunner(ev.Status)
	l.log.Info("Check finished", "check", ev.ID, "status", status)

	meta, ok, err := l.resolve(ev.ID)
	if err != nil {
		l.log.Error("Cannot extract marking from check", "check", ev.ID, "err", err)
		metrics.RecordErrorDetails("marking_extraction", err)
		return
	}
	if !ok {
		l.log.Warn("No marking found for check", "check", ev.ID)
		metrics.RecordUnmarkedCheck(l.runID)
		return
	}

	record := types.ResultRecord{
		ID:          ev.ID,
		Status:      status,
		Marking:     meta,
		Failure:     ev.Error,
		Attachments: l.evidence.Drain(ev.ID),
	}
	l.collector.Add(record)
	metrics.RecordCheck(l.runID, status)

	if record.NeedsReview() {
		l.log.Info("Check needs manual review", "check", ev.ID, "status", status, "manual", meta.ManualRequired)
	}
}

// resolve looks up marking metadata, turning a panicking source into an error for this check only
func (l *Listener) resolve(id types.CheckID) (meta *types.MarkMetadata, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			meta, ok, err = nil, false, fmt.Errorf("mark lookup panicked: %v", r)
		}
	}()
	return l.marks.Lookup(id)
}

// Observed reports whether a run-started event was received
func (l *Listener) Observed() bool {
	return l.started.Load()
}

// Completed reports whether a run-finished event was received
func (l *Listener) Completed() bool {
	return l.finished.Load()
}
