package orders

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusDelivering Status = "DELIVERING"
	StatusSuccess    Status = "SUCCESS"
	StatusCancelled  Status = "CANCELLED"
)

// validNext is the full transition table. PENDING is entry-only: orders are
// created there and no transition ever leads back.
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusDelivering: true, StatusCancelled: true},
	StatusDelivering: {StatusSuccess: true},
	StatusSuccess:    {},
	StatusCancelled:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusDelivering, StatusSuccess, StatusCancelled:
		return true
	}
	return false
}
