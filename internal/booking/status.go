package booking

type Status string

const (
	StatusPendingAnalysis Status = "PENDING_ANALYSIS"
	StatusEscrowLocked    Status = "ESCROW_LOCKED"
	StatusEscrowReleased  Status = "ESCROW_RELEASED"
)

// Maju satu arah saja; RELEASED terminal.
var validNext = map[Status]map[Status]bool{
	StatusPendingAnalysis: {StatusEscrowLocked: true},
	StatusEscrowLocked:    {StatusEscrowReleased: true},
	StatusEscrowReleased:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusEscrowReleased
}
