package shop

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/oystub/barbershop/config"
	"github.com/oystub/barbershop/crawl"
	"github.com/oystub/barbershop/localdb"
	"github.com/oystub/barbershop/runlog"
	"github.com/oystub/barbershop/scheduler"
)

const logBufferLines = 2000

type Options struct {
	ConfigPath string
	// DbPath is the sqlite file runs and customers are stored in. Empty
	// keeps them in memory only.
	DbPath string
	// LogDir receives one directory per run. Empty disables run logs.
	LogDir string
	Log    *logrus.Logger
}

// Shop ties the configuration file, the simulation, the crawler and the
// database together. Every front end (shell, REST, headless run) drives the
// simulation through one Shop.
type Shop struct {
	ConfigPath string
	Log        *logrus.Logger
	Buffer     *runlog.Buffer
	Controller *scheduler.Controller
	Db         *localdb.LocalDb

	runFiles *runlog.RunFileHook
	book     *customerBook

	mutex sync.Mutex
	graph *crawl.LinkGraph
}

func Open(opts Options) (*Shop, error) {
	log := opts.Log
	if log == nil {
		log = logrus.New()
	}
	s := &Shop{
		ConfigPath: opts.ConfigPath,
		Log:        log,
		Buffer:     runlog.NewBuffer(logBufferLines),
		book:       &customerBook{},
		graph:      crawl.NewLinkGraph(),
	}
	log.AddHook(s.Buffer)
	if opts.LogDir != "" {
		s.runFiles = runlog.NewRunFileHook(opts.LogDir)
		s.book.runFiles = s.runFiles
		log.AddHook(s.runFiles)
	}
	if opts.DbPath != "" {
		s.Db = &localdb.LocalDb{}
		if err := s.Db.Init(opts.DbPath); err != nil {
			return nil, errors.Wrapf(err, "opening database %s", opts.DbPath)
		}
		s.book.next = s.Db
	}

	s.Controller = scheduler.NewController(log, s.newProcessor)
	s.Controller.OnStop(s.finish)
	return s, nil
}

// Close stops a running simulation and releases the database and log files.
func (s *Shop) Close() error {
	s.Controller.Stop()
	if s.runFiles != nil {
		s.runFiles.Close()
	}
	if s.Db != nil {
		return s.Db.Close()
	}
	return nil
}

// Start reads the configuration file and opens the shop with it.
func (s *Shop) Start() (uuid.UUID, error) {
	cfg, err := config.Load(s.ConfigPath)
	if err != nil {
		return uuid.Nil, &scheduler.ConfigError{Err: err}
	}
	return s.Controller.Start(cfg)
}

// Stop closes the shop and returns the final status of the run.
func (s *Shop) Stop() scheduler.Status {
	s.Controller.Stop()
	return s.Controller.Status()
}

func (s *Shop) Status() scheduler.Status {
	return s.Controller.Status()
}

// Customers returns the customers served in the current or most recent run.
func (s *Shop) Customers() (uuid.UUID, []crawl.Customer) {
	return s.book.list()
}

// CustomersOf returns the customers of any stored run.
func (s *Shop) CustomersOf(runID uuid.UUID) ([]crawl.Customer, error) {
	if current, customers := s.book.list(); current == runID {
		return customers, nil
	}
	if s.Db == nil {
		return []crawl.Customer{}, nil
	}
	return s.Db.GetCustomersByRun(runID)
}

// Runs returns the stored run history, most recent first.
func (s *Shop) Runs() ([]localdb.Run, error) {
	if s.Db == nil {
		status := s.Controller.Status()
		if status.RunID == uuid.Nil {
			return []localdb.Run{}, nil
		}
		return []localdb.Run{localdb.RunFromStatus(status)}, nil
	}
	return s.Db.GetRuns()
}

// Graph returns the link graph of the current or most recent run.
func (s *Shop) Graph() *crawl.LinkGraph {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.graph
}

// RunDir returns the log directory of a run started by this shop.
func (s *Shop) RunDir(runID uuid.UUID) (string, bool) {
	if s.runFiles == nil {
		return "", false
	}
	return s.runFiles.Dir(runID.String())
}

// Config reads the configuration file the next run will use.
func (s *Shop) Config() (config.Config, error) {
	return config.Load(s.ConfigPath)
}

// Edit changes one key of the configuration file. The running simulation
// keeps its configuration, the change applies at the next start.
func (s *Shop) Edit(key, value string) (config.Config, error) {
	return config.Edit(s.ConfigPath, key, value)
}

// newProcessor is called by the controller at the start of every run,
// before any customer arrives.
func (s *Shop) newProcessor(cfg config.Config, runID uuid.UUID) scheduler.Processor {
	graph := crawl.NewLinkGraph()
	s.mutex.Lock()
	s.graph = graph
	s.mutex.Unlock()
	s.book.reset(runID)

	if s.Db != nil {
		if err := s.Db.SaveRun(localdb.Run{ID: runID, StartedAt: time.Now()}); err != nil {
			s.Log.WithError(err).Warn("Could not store the new run")
		}
	}

	log := s.Log.WithFields(logrus.Fields{runlog.FieldRunID: runID.String(), "role": "barber"})
	fetcher := crawl.NewFetcher(cfg.Fetch, log)
	return crawl.NewCrawler(fetcher, cfg.Keywords, s.book, graph, log)
}

func (s *Shop) finish(status scheduler.Status) {
	if s.Db == nil {
		return
	}
	if err := s.Db.SaveRun(localdb.RunFromStatus(status)); err != nil {
		s.Log.WithError(err).Warn("Could not store the finished run")
	}
}
