package localdb

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "embed"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"

	"github.com/oystub/barbershop/crawl"
	"github.com/oystub/barbershop/scheduler"
)

const db_schema_version = 1

//go:embed db_schema_v1.sql
var db_schema string

const runSqlFieldsOrdered = "id, started_at, stopped_at, admitted, rejected_duplicate, rejected_overflow, processed, failed, dismissed"
const customerSqlFieldsOrdered = "run_id, url, digest, keywords, links_found, processed_at"

// Run is the stored summary of one simulation run.
type Run struct {
	ID                uuid.UUID `json:"id"`
	StartedAt         time.Time `json:"startedAt"`
	StoppedAt         time.Time `json:"stoppedAt"`
	Admitted          int64     `json:"admitted"`
	RejectedDuplicate int64     `json:"rejectedDuplicate"`
	RejectedOverflow  int64     `json:"rejectedOverflow"`
	Processed         int64     `json:"processed"`
	Failed            int64     `json:"failed"`
	Dismissed         int64     `json:"dismissed"`
}

func (r Run) MarshalJSON() ([]byte, error) {
	type plain Run
	out := struct {
		plain
		StoppedAt *time.Time `json:"stoppedAt,omitempty"`
	}{plain: plain(r)}
	if !r.StoppedAt.IsZero() {
		out.StoppedAt = &r.StoppedAt
	}
	return json.Marshal(out)
}

func RunFromStatus(s scheduler.Status) Run {
	return Run{
		ID:                s.RunID,
		StartedAt:         s.StartedAt,
		StoppedAt:         s.StoppedAt,
		Admitted:          s.Admitted,
		RejectedDuplicate: s.RejectedDuplicate,
		RejectedOverflow:  s.RejectedOverflow,
		Processed:         s.Processed,
		Failed:            s.Failed,
		Dismissed:         s.Dismissed,
	}
}

type scannableRow interface {
	Scan(dest ...any) error
}

type LocalDb struct {
	db *sql.DB
}

func (l *LocalDb) Init(databasePath string) error {
	db, err := sql.Open("sqlite3", databasePath)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	if databasePath == ":memory:" {
		// Every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	var userVersion int
	if err := db.QueryRow("PRAGMA user_version").Scan(&userVersion); err != nil {
		db.Close()
		return errors.Wrap(err, "failed to read database schema version")
	}
	if userVersion != db_schema_version {
		if userVersion != 0 {
			db.Close()
			return errors.Errorf("database schema version is %d, expected %d", userVersion, db_schema_version)
		}
		if _, err := db.Exec(db_schema); err != nil {
			db.Close()
			return errors.Wrap(err, "failed to create tables")
		}
	}
	l.db = db
	return nil
}

func (l *LocalDb) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// SaveRun inserts the run or overwrites its counters if it is already stored.
func (l *LocalDb) SaveRun(run Run) error {
	stmnt := "INSERT INTO runs (" + runSqlFieldsOrdered + ") VALUES (?,?,?,?,?,?,?,?,?) " +
		"ON CONFLICT(id) DO UPDATE SET stopped_at = excluded.stopped_at, admitted = excluded.admitted, " +
		"rejected_duplicate = excluded.rejected_duplicate, rejected_overflow = excluded.rejected_overflow, " +
		"processed = excluded.processed, failed = excluded.failed, dismissed = excluded.dismissed"
	_, err := l.db.Exec(stmnt, run.ID.String(), run.StartedAt.UnixNano(), nullTime(run.StoppedAt),
		run.Admitted, run.RejectedDuplicate, run.RejectedOverflow, run.Processed, run.Failed, run.Dismissed)
	return errors.Wrapf(err, "failed to save run %s", run.ID)
}

// GetRunById returns sql.ErrNoRows if the run is unknown.
func (l *LocalDb) GetRunById(id uuid.UUID) (Run, error) {
	row := l.db.QueryRow("SELECT "+runSqlFieldsOrdered+" FROM runs WHERE id = ?", id.String())
	return parseRunFromRow(row)
}

// GetRuns returns every stored run, most recent first.
func (l *LocalDb) GetRuns() ([]Run, error) {
	rows, err := l.db.Query("SELECT " + runSqlFieldsOrdered + " FROM runs ORDER BY started_at DESC")
	if err != nil {
		return nil, errors.Wrap(err, "failed to query runs")
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := parseRunFromRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (l *LocalDb) AddCustomer(c crawl.Customer) error {
	keywords, err := json.Marshal(c.Keywords)
	if err != nil {
		return errors.Wrap(err, "failed to encode keyword counts")
	}
	stmnt := "INSERT INTO customers (" + customerSqlFieldsOrdered + ") VALUES (?,?,?,?,?,?)"
	_, err = l.db.Exec(stmnt, c.RunID.String(), c.URL, c.Digest.String(), string(keywords), c.LinksFound, c.ProcessedAt.UnixNano())
	return errors.Wrapf(err, "failed to record customer %s", c.URL)
}

// GetCustomersByRun returns the customers served during a run in the order
// they were served.
func (l *LocalDb) GetCustomersByRun(runID uuid.UUID) ([]crawl.Customer, error) {
	stmnt := "SELECT " + customerSqlFieldsOrdered + " FROM customers WHERE run_id = ? ORDER BY processed_at, id"
	rows, err := l.db.Query(stmnt, runID.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to query customers")
	}
	defer rows.Close()

	customers := []crawl.Customer{}
	for rows.Next() {
		c, err := parseCustomerFromRow(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func parseRunFromRow(row scannableRow) (Run, error) {
	var run Run
	var id string
	var startedAt int64
	var stoppedAt sql.NullInt64
	err := row.Scan(&id, &startedAt, &stoppedAt, &run.Admitted, &run.RejectedDuplicate, &run.RejectedOverflow, &run.Processed, &run.Failed, &run.Dismissed)
	if err != nil {
		return Run{}, err
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return Run{}, errors.Wrapf(err, "malformed run id %q", id)
	}
	run.StartedAt = time.Unix(0, startedAt)
	if stoppedAt.Valid {
		run.StoppedAt = time.Unix(0, stoppedAt.Int64)
	}
	return run, nil
}

func parseCustomerFromRow(row scannableRow) (crawl.Customer, error) {
	var c crawl.Customer
	var runID, dgst, keywords string
	var processedAt int64
	if err := row.Scan(&runID, &c.URL, &dgst, &keywords, &c.LinksFound, &processedAt); err != nil {
		return crawl.Customer{}, err
	}
	id, err := uuid.Parse(runID)
	if err != nil {
		return crawl.Customer{}, errors.Wrapf(err, "malformed run id %q", runID)
	}
	c.RunID = id
	c.Digest = digest.Digest(dgst)
	if err := json.Unmarshal([]byte(keywords), &c.Keywords); err != nil {
		return crawl.Customer{}, errors.Wrap(err, "malformed keyword counts")
	}
	c.ProcessedAt = time.Unix(0, processedAt)
	return c, nil
}

func nullTime(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
