package shell

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/oystub/barbershop/config"
	"github.com/oystub/barbershop/crawl"
	"github.com/oystub/barbershop/runlog"
	"github.com/oystub/barbershop/scheduler"
)

func (sh *Shell) start(args []string) error {
	_, err := sh.shop.Start()
	switch {
	case err == nil:
		sh.println(runlog.Green, "Simulation started successfully.")
		return nil
	case errors.Cause(err) == scheduler.ErrAlreadyRunning:
		sh.println(runlog.Yellow, "Barber is still working.")
		return nil
	default:
		return err
	}
}

func (sh *Shell) stop(args []string) error {
	if sh.shop.Status().Running {
		sh.shop.Stop()
		sh.println(runlog.Red, "Simulation stopped successfully.")
	} else {
		sh.println(runlog.Yellow, "Barber is not working.")
	}
	_, customers := sh.shop.Customers()
	sh.summary(customers)
	return nil
}

func (sh *Shell) summary(customers []crawl.Customer) {
	if len(customers) == 0 {
		sh.println(runlog.Cyan, "No customers processed.")
		return
	}
	sh.println(runlog.Cyan, "Processed customers:")
	for _, c := range customers {
		sh.println(runlog.Cyan, c.String())
	}
	sh.println(runlog.Cyan, "This is end of the simulation.")
}

func (sh *Shell) status(args []string) error {
	s := sh.shop.Status()
	if s.Running {
		sh.println(runlog.Blue, "Simulation is running.")
	} else {
		sh.println(runlog.Blue, "Simulation is not running.")
	}
	if s.RunID == uuid.Nil {
		return nil
	}

	table := tablewriter.NewWriter(sh.out)
	table.SetHeader([]string{"Field", "Value"})
	table.Append([]string{"Run", s.RunID.String()})
	table.Append([]string{"Barber", s.BarberState.String()})
	table.Append([]string{"Waiting room", fmt.Sprintf("%d/%d", s.QueueLength, s.QueueCapacity)})
	table.Append([]string{"Admitted", fmt.Sprint(s.Admitted)})
	table.Append([]string{"Duplicates turned away", fmt.Sprint(s.RejectedDuplicate)})
	table.Append([]string{"Left, room full", fmt.Sprint(s.RejectedOverflow)})
	table.Append([]string{"Processed", fmt.Sprint(s.Processed)})
	table.Append([]string{"Failed", fmt.Sprint(s.Failed)})
	table.Append([]string{"Sent home", fmt.Sprint(s.Dismissed)})
	table.Append([]string{"Stored links", fmt.Sprint(s.StoredLinks)})
	table.Append([]string{"Started", s.StartedAt.Format(time.RFC3339)})
	if !s.StoppedAt.IsZero() {
		table.Append([]string{"Stopped", s.StoppedAt.Format(time.RFC3339)})
	}
	if dir, ok := sh.shop.RunDir(s.RunID); ok {
		table.Append([]string{"Log directory", dir})
	}
	table.Render()
	return nil
}

func (sh *Shell) edit(args []string) error {
	if len(args) > 2 {
		// Unquoted lists arrive as several words
		args = []string{args[0], strings.Join(args[1:], " ")}
	}
	kinds := config.EditableKeys()

	var key string
	if len(args) > 0 {
		key = args[0]
	} else {
		var ok bool
		if key, ok = sh.ask("Enter the config key to edit:"); !ok {
			return nil
		}
	}
	kind, known := kinds[key]
	if !known {
		sh.println(runlog.Red, fmt.Sprintf("Unknown key '%s'. Edit canceled.", key))
		return nil
	}

	if len(args) == 2 {
		sh.applyEdit(key, args[1])
		return nil
	}
	for {
		value, ok := sh.ask(fmt.Sprintf("Enter the new value for '%s' (type '%s') or 'cancel' to abort:", key, kind))
		if !ok || sh.applyEdit(key, value) {
			return nil
		}
	}
}

func (sh *Shell) applyEdit(key, value string) bool {
	if _, err := sh.shop.Edit(key, value); err != nil {
		sh.println(runlog.Red, fmt.Sprintf("Invalid input, please try again: %v", err))
		return false
	}
	sh.println(runlog.Green, fmt.Sprintf("Config key '%s' updated to '%s'. Changes apply at the next start.", key, value))
	return true
}

func (sh *Shell) customers(args []string) error {
	var (
		customers []crawl.Customer
		err       error
	)
	if len(args) == 0 {
		_, customers = sh.shop.Customers()
	} else {
		id, perr := uuid.Parse(args[0])
		if perr != nil {
			return errors.Errorf("malformed run id %q", args[0])
		}
		if customers, err = sh.shop.CustomersOf(id); err != nil {
			return err
		}
	}
	if len(customers) == 0 {
		sh.println(runlog.Cyan, "No customers processed.")
		return nil
	}

	table := tablewriter.NewWriter(sh.out)
	table.SetHeader([]string{"URL", "Keywords", "Links", "Digest"})
	for _, c := range customers {
		table.Append([]string{c.URL, formatKeywords(c.Keywords), fmt.Sprint(c.LinksFound), shortDigest(c)})
	}
	table.Render()
	return nil
}

func (sh *Shell) history(args []string) error {
	runs, err := sh.shop.Runs()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		sh.println(runlog.Cyan, "No runs yet.")
		return nil
	}
	table := tablewriter.NewWriter(sh.out)
	table.SetHeader([]string{"Run", "Started", "Duration", "Admitted", "Processed", "Failed", "Sent home"})
	for _, r := range runs {
		duration := "running"
		if !r.StoppedAt.IsZero() {
			duration = r.StoppedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		table.Append([]string{
			r.ID.String(),
			r.StartedAt.Format("2006-01-02 15:04:05"),
			duration,
			fmt.Sprint(r.Admitted),
			fmt.Sprint(r.Processed),
			fmt.Sprint(r.Failed),
			fmt.Sprint(r.Dismissed),
		})
	}
	table.Render()
	return nil
}

func (sh *Shell) printConfig(cfg config.Config) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return
	}
	line := strings.Repeat("#", 50)
	sh.println(runlog.Cyan, line)
	for _, l := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		sh.println(runlog.Cyan, l)
	}
	sh.println(runlog.Cyan, line)
}

func formatKeywords(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}

func shortDigest(c crawl.Customer) string {
	if c.Digest == "" {
		return ""
	}
	encoded := c.Digest.Hex()
	if len(encoded) > 12 {
		encoded = encoded[:12]
	}
	return encoded
}
