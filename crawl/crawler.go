package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"

	"github.com/oystub/barbershop/lib"
	"github.com/oystub/barbershop/scheduler"
)

// Customer is a page the barber has served.
type Customer struct {
	RunID       uuid.UUID      `json:"runId"`
	URL         string         `json:"url"`
	Keywords    map[string]int `json:"keywords"`
	LinksFound  int            `json:"linksFound"`
	Digest      digest.Digest  `json:"digest"`
	ProcessedAt time.Time      `json:"processedAt"`
}

func (c Customer) String() string {
	return fmt.Sprintf("URL: %s, Keywords: %v, New Links: %d", c.URL, c.Keywords, c.LinksFound)
}

type Recorder interface {
	AddCustomer(c Customer) error
}

// Crawler is the processor that gives a URL its haircut: download the page,
// count the keywords and collect its links.
type Crawler struct {
	fetcher  *Fetcher
	keywords []string
	recorder Recorder
	graph    *LinkGraph
	log      *logrus.Entry
}

// NewCrawler builds a crawler. recorder and graph may be nil.
func NewCrawler(fetcher *Fetcher, keywords []string, recorder Recorder, graph *LinkGraph, log *logrus.Entry) *Crawler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Crawler{
		fetcher:  fetcher,
		keywords: keywords,
		recorder: recorder,
		graph:    graph,
		log:      log,
	}
}

var _ scheduler.Processor = (*Crawler)(nil)

func (c *Crawler) Process(ctx context.Context, item lib.WorkItem) ([]string, error) {
	body, err := c.fetcher.Fetch(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	links := ParseLinks(body, item.ID)
	customer := Customer{
		URL:         item.ID,
		Keywords:    CountKeywords(body, c.keywords),
		LinksFound:  len(links),
		Digest:      digest.FromBytes(body),
		ProcessedAt: time.Now(),
	}
	if id, ok := scheduler.RunIDFromContext(ctx); ok {
		customer.RunID = id
	}

	log := c.log.WithFields(logrus.Fields{"url": item.ID, "digest": customer.Digest.String()})
	log.Infof("Barber analyzed page: %v, found %d links", customer.Keywords, len(links))

	if c.recorder != nil {
		if err := c.recorder.AddCustomer(customer); err != nil {
			log.WithError(err).Warn("Could not record customer")
		}
	}
	if c.graph != nil {
		if err := c.graph.AddPage(item.ID, links); err != nil {
			log.WithError(err).Warn("Could not update link graph")
		}
	}
	return links, nil
}
