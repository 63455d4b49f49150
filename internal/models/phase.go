package models

// Phase is the orchestrator's current state in its top-level control flow.
type Phase string

const (
	PhaseIntake      Phase = "intake"
	PhaseWaiting     Phase = "waiting"
	PhasePlanning    Phase = "planning"
	PhaseResearching Phase = "researching"
	PhaseGenerating  Phase = "generating"
	PhaseReviewing   Phase = "reviewing"
	PhaseTicketing   Phase = "ticketing"
	PhaseComplete    Phase = "complete"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseIntake, PhaseWaiting, PhasePlanning, PhaseResearching,
		PhaseGenerating, PhaseReviewing, PhaseTicketing, PhaseComplete:
		return true
	}
	return false
}
