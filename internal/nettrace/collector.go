package nettrace

import (
	"sync"
	"time"
)

type openPhase struct {
	start time.Time
	meta  PhaseMeta
}

// Collector accumulates phases reported by httptrace callbacks, which may
// arrive on transport goroutines.
type Collector struct {
	mu       sync.Mutex
	started  time.Time
	finished time.Time
	err      string
	phases   []Phase
	open     map[PhaseKind]*openPhase
}

func NewCollector() *Collector {
	return &Collector{open: make(map[PhaseKind]*openPhase)}
}

func (c *Collector) Begin(kind PhaseKind, ts time.Time) {
	if !kind.traceable() {
		return
	}
	ts = orNow(ts)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started.IsZero() || ts.Before(c.started) {
		c.started = ts
	}
	c.open[kind] = &openPhase{start: ts}
}

// End closes kind. A phase that was never begun is recorded with zero length.
func (c *Collector) End(kind PhaseKind, ts time.Time, err error) {
	if !kind.traceable() {
		return
	}
	ts = orNow(ts)

	c.mu.Lock()
	defer c.mu.Unlock()
	op, ok := c.open[kind]
	if !ok {
		op = &openPhase{start: ts}
	}
	delete(c.open, kind)
	c.closeLocked(kind, op, ts, errText(err))
}

// Annotate edits the metadata of an open phase.
func (c *Collector) Annotate(kind PhaseKind, fn func(*PhaseMeta)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if op := c.open[kind]; op != nil {
		fn(&op.meta)
	}
}

// Fail keeps the first error seen.
func (c *Collector) Fail(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == "" {
		c.err = err.Error()
	}
}

// Complete closes every open phase as incomplete.
func (c *Collector) Complete(ts time.Time) {
	ts = orNow(ts)

	c.mu.Lock()
	defer c.mu.Unlock()
	for kind, op := range c.open {
		c.closeLocked(kind, op, ts, "incomplete")
	}
	c.open = make(map[PhaseKind]*openPhase)
	if ts.After(c.finished) {
		c.finished = ts
	}
}

// Timeline returns nil when nothing was observed.
func (c *Collector) Timeline() *Timeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.phases) == 0 && c.started.IsZero() {
		return nil
	}

	tl := &Timeline{
		Started:   c.started,
		Completed: c.finished,
		Err:       c.err,
		Phases:    sortPhases(append([]Phase(nil), c.phases...)),
	}
	if tl.Started.IsZero() && len(tl.Phases) > 0 {
		tl.Started = tl.Phases[0].Start
	}
	if !tl.Completed.Before(tl.Started) {
		tl.Duration = tl.Completed.Sub(tl.Started)
	}
	return tl
}

func (c *Collector) closeLocked(kind PhaseKind, op *openPhase, ts time.Time, errMsg string) {
	if ts.Before(op.start) {
		ts = op.start
	}
	c.phases = append(c.phases, Phase{
		Kind:     kind,
		Start:    op.start,
		End:      ts,
		Duration: ts.Sub(op.start),
		Err:      errMsg,
		Meta:     op.meta,
	})
	if ts.After(c.finished) {
		c.finished = ts
	}
}

func orNow(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now()
	}
	return ts
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
