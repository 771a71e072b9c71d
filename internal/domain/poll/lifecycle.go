package poll

import "time"

type Phase string

const (
	PhaseScheduled Phase = "scheduled"
	PhaseActive    Phase = "active"
	PhaseClosed    Phase = "closed"
)

// PhaseAt reports where p sits in its lifecycle at now. It is the only place
// that decides whether votes may be cast; callers must not read IsActive or
// the time window on their own.
func PhaseAt(p *Poll, now time.Time) Phase {
	switch {
	case !p.IsActive || now.After(p.EndTime):
		return PhaseClosed
	case now.Before(p.StartTime):
		return PhaseScheduled
	default:
		return PhaseActive
	}
}
