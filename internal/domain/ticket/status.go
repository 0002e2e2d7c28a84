package ticket

type Status string

const (
	StatusOpen            Status = "open"
	StatusInProgress      Status = "in_progress"
	StatusPendingCustomer Status = "pending_customer"
	StatusResolved        Status = "resolved"
	StatusPendingClosure  Status = "pending_closure"
	StatusClosed          Status = "closed"
	StatusCancelled       Status = "cancelled"
)

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// Active reports whether work on the ticket is still expected.
func (s Status) Active() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusPendingCustomer:
		return true
	default:
		return false
	}
}

var transitions = map[Status][]Status{
	StatusOpen:            {StatusInProgress, StatusResolved, StatusCancelled},
	StatusInProgress:      {StatusPendingCustomer, StatusResolved, StatusCancelled},
	StatusPendingCustomer: {StatusInProgress, StatusResolved, StatusCancelled},
	StatusResolved:        {StatusPendingClosure, StatusInProgress, StatusCancelled},
	StatusPendingClosure:  {StatusClosed, StatusInProgress, StatusCancelled},
	StatusClosed:          {StatusInProgress},
	StatusCancelled:       {},
}

// CanTransition reports whether moving from -> to is a legal status change.
// Reopening (resolved/closed -> in_progress) is handled by the same table.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
