package lib

import "time"

// A WorkItem is one customer of the barbershop: a URL waiting for, or
// receiving, a haircut. Two items with the same ID are the same customer.
type WorkItem struct {
	ID         string
	AdmittedAt time.Time
}

func NewWorkItem(id string) WorkItem {
	return WorkItem{ID: id, AdmittedAt: time.Now()}
}

func (w WorkItem) String() string {
	return w.ID
}
