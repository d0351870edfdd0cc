package nettrace

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type PhaseKind string

const (
	PhaseDNS      PhaseKind = "dns"
	PhaseConnect  PhaseKind = "connect"
	PhaseTLS      PhaseKind = "tls"
	PhaseReqHdrs  PhaseKind = "request_headers"
	PhaseReqBody  PhaseKind = "request_body"
	PhaseTTFB     PhaseKind = "ttfb"
	PhaseTransfer PhaseKind = "transfer"
	PhaseTotal    PhaseKind = "total"
)

var knownPhases = map[PhaseKind]struct{}{
	PhaseDNS:      {},
	PhaseConnect:  {},
	PhaseTLS:      {},
	PhaseReqHdrs:  {},
	PhaseReqBody:  {},
	PhaseTTFB:     {},
	PhaseTransfer: {},
	PhaseTotal:    {},
}

// traceable reports whether a collector records kind; total is derived.
func (k PhaseKind) traceable() bool {
	_, ok := knownPhases[k]
	return ok && k != PhaseTotal
}

type PhaseMeta struct {
	Addr   string `json:"addr,omitempty"`
	Reused bool   `json:"reused,omitempty"`
	Cached bool   `json:"cached,omitempty"`
}

type Phase struct {
	Kind     PhaseKind     `json:"kind"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
	Meta     PhaseMeta     `json:"meta"`
}

// Timeline is the phase breakdown of one execution, ordered by start time.
type Timeline struct {
	Started   time.Time     `json:"started"`
	Completed time.Time     `json:"completed"`
	Duration  time.Duration `json:"duration"`
	Err       string        `json:"error,omitempty"`
	Phases    []Phase       `json:"phases"`
}

// Durations sums phases by kind; a redirect chain resolves DNS more than once.
func (tl *Timeline) Durations() map[PhaseKind]time.Duration {
	if tl == nil {
		return nil
	}
	out := make(map[PhaseKind]time.Duration, len(tl.Phases)+1)
	for _, phase := range tl.Phases {
		if phase.Duration > 0 {
			out[phase.Kind] += phase.Duration
		}
	}
	out[PhaseTotal] = tl.Duration
	return out
}

func sortPhases(phases []Phase) []Phase {
	sort.SliceStable(phases, func(i, j int) bool {
		if phases[i].Start.Equal(phases[j].Start) {
			return phases[i].End.Before(phases[j].End)
		}
		return phases[i].Start.Before(phases[j].Start)
	})
	return phases
}

// Budget caps the total duration and, optionally, single phases.
type Budget struct {
	Total     time.Duration
	Tolerance time.Duration
	Phases    map[PhaseKind]time.Duration
}

func (b Budget) IsZero() bool {
	return b.Total <= 0 && len(b.Phases) == 0
}

// ParseBudget reads "500ms" or "total=500ms,ttfb=200ms,tolerance=20ms".
func ParseBudget(raw string) (Budget, error) {
	var b Budget
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			key, value = string(PhaseTotal), part
		}
		key = strings.ToLower(strings.TrimSpace(key))
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil || d < 0 {
			return Budget{}, fmt.Errorf("budget %q: invalid duration %q", key, value)
		}

		switch kind := PhaseKind(key); {
		case key == "tolerance":
			b.Tolerance = d
		case kind == PhaseTotal:
			b.Total = d
		case kind.traceable():
			if b.Phases == nil {
				b.Phases = make(map[PhaseKind]time.Duration)
			}
			b.Phases[kind] = d
		default:
			return Budget{}, fmt.Errorf("budget: unknown phase %q", key)
		}
	}
	return b, nil
}

type BudgetBreach struct {
	Kind   PhaseKind
	Limit  time.Duration
	Actual time.Duration
	Over   time.Duration
}

// EvaluateBudget lists every limit the timeline exceeds, total first, then
// phases in name order.
func EvaluateBudget(tl *Timeline, b Budget) []BudgetBreach {
	if tl == nil || b.IsZero() {
		return nil
	}
	actual := tl.Durations()

	var out []BudgetBreach
	check := func(kind PhaseKind, limit time.Duration) {
		if limit <= 0 {
			return
		}
		if over := actual[kind] - (limit + b.Tolerance); over > 0 {
			out = append(out, BudgetBreach{Kind: kind, Limit: limit, Actual: actual[kind], Over: over})
		}
	}

	check(PhaseTotal, b.Total)
	kinds := make([]string, 0, len(b.Phases))
	for kind := range b.Phases {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		check(PhaseKind(kind), b.Phases[PhaseKind(kind)])
	}
	return out
}
