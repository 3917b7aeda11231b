package models

// MTradingPhase is the coarse state of a market for one trading date.
type MTradingPhase string

const (
	// PhaseWaiting: not actively trading right now (pre-open, silent period, lunch, or a future date).
	PhaseWaiting MTradingPhase = "WAITING"
	// PhaseTrading: ticks are updating.
	PhaseTrading MTradingPhase = "TRADING"
	// PhaseFinished: the session for the date is over.
	PhaseFinished MTradingPhase = "FINISHED"
)

func (p MTradingPhase) String() string {
	return string(p)
}
