package scheduler

import "fmt"

type BarberState int32

const (
	BS_SLEEPING BarberState = iota
	BS_PROCESSING
	BS_STOPPED
)

func (bs BarberState) String() string {
	switch bs {
	case BS_SLEEPING:
		return "SLEEPING"
	case BS_PROCESSING:
		return "PROCESSING"
	case BS_STOPPED:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

func (bs BarberState) MarshalJSON() ([]byte, error) {
	return []byte("\"" + bs.String() + "\""), nil
}

func (bs *BarberState) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"SLEEPING"`:
		*bs = BS_SLEEPING
	case `"PROCESSING"`:
		*bs = BS_PROCESSING
	case `"STOPPED"`:
		*bs = BS_STOPPED
	default:
		return fmt.Errorf("unknown barber state %s", data)
	}
	return nil
}

// Admission is the outcome of offering a customer to the waiting room.
type Admission int

const (
	AD_ACCEPTED Admission = iota
	AD_DUPLICATE
	AD_OVERFLOW
)

func (a Admission) String() string {
	switch a {
	case AD_ACCEPTED:
		return "ACCEPTED"
	case AD_DUPLICATE:
		return "DUPLICATE"
	case AD_OVERFLOW:
		return "OVERFLOW"
	default:
		return "UNKNOWN"
	}
}
