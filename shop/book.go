package shop

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/oystub/barbershop/crawl"
	"github.com/oystub/barbershop/runlog"
)

// customerBook keeps the customers of the current run in memory, appends
// them to the run's customers.log and passes them on to the database.
type customerBook struct {
	mutex     sync.Mutex
	runID     uuid.UUID
	customers []crawl.Customer

	next     crawl.Recorder
	runFiles *runlog.RunFileHook
}

func (b *customerBook) reset(runID uuid.UUID) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.runID = runID
	b.customers = nil
}

func (b *customerBook) AddCustomer(c crawl.Customer) error {
	b.mutex.Lock()
	if c.RunID == b.runID {
		b.customers = append(b.customers, c)
	}
	b.mutex.Unlock()

	var err error
	if b.next != nil {
		err = b.next.AddCustomer(c)
	}
	if b.runFiles != nil {
		if dir, ok := b.runFiles.Dir(c.RunID.String()); ok {
			if ferr := appendLine(filepath.Join(dir, "customers.log"), c.String()); ferr != nil && err == nil {
				err = ferr
			}
		}
	}
	return err
}

func (b *customerBook) list() (uuid.UUID, []crawl.Customer) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.runID, append([]crawl.Customer{}, b.customers...)
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrap(err, "opening customer log")
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, line)
	return err
}
