package crawl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/oystub/barbershop/config"
)

const maxBodySize = 8 << 20

// StatusError is returned when the server answers with anything but 200 and
// the answer is not worth retrying.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.Code)
}

// Fetcher downloads pages, retrying transport errors with exponential
// backoff. A 429 answer holds back every request to that host for as long
// as the server asked.
type Fetcher struct {
	Client     *http.Client
	UserAgent  string
	MaxRetries int
	Hosts      *HostPool

	backoff    time.Duration
	maxBackoff time.Duration
	log        *logrus.Entry
}

const maxRequestsPerHost = 2

func NewFetcher(cfg config.FetchConfig, log *logrus.Entry) *Fetcher {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}
	return &Fetcher{
		Client:     &http.Client{Timeout: cfg.Timeout()},
		UserAgent:  cfg.UserAgent,
		MaxRetries: retries,
		Hosts:      NewHostPool(maxRequestsPerHost),
		backoff:    time.Second,
		maxBackoff: 30 * time.Second,
		log:        log,
	}
}

// Fetch returns the body of rawURL. Every attempt, rate limited or failed,
// counts against MaxRetries.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", rawURL)
	}
	backoff := f.backoff
	var lastErr error
	for attempt := 1; attempt <= f.MaxRetries; attempt++ {
		body, wait, err := f.attempt(ctx, u)
		if err == nil {
			f.log.WithField("url", rawURL).Debug("Fetched")
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if wait < 0 {
			return nil, err
		}
		lastErr = err
		if attempt == f.MaxRetries {
			break
		}

		log := f.log.WithError(err).WithFields(logrus.Fields{"url": rawURL, "attempt": attempt})
		if _, limited := err.(*StatusError); limited {
			if wait <= 0 {
				wait = backoff
			}
			if wait > f.maxBackoff {
				wait = f.maxBackoff
			}
			log.WithField("wait", wait.String()).Warn("Too many requests, holding back the host")
			f.Hosts.ProhibitUntil(u.Host, time.Now().Add(wait))
		} else {
			wait = backoff
			if wait > f.maxBackoff {
				wait = f.maxBackoff
			}
			log.WithField("wait", wait.String()).Warn("Fetch failed, retrying")
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		backoff *= 2
	}
	return nil, errors.Wrapf(lastErr, "giving up on %s after %d attempts", rawURL, f.MaxRetries)
}

// attempt performs a single request. A negative wait means the error is final.
func (f *Fetcher) attempt(ctx context.Context, u *url.URL) ([]byte, time.Duration, error) {
	release, err := f.Hosts.Acquire(ctx, u.Host)
	if err != nil {
		return nil, 0, err
	}
	defer release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, -1, errors.Wrapf(err, "building request for %s", u)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	res, err := f.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
		if err != nil {
			return nil, 0, errors.Wrap(err, "reading body")
		}
		return body, 0, nil
	case res.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, res.Body)
		return nil, retryAfter(res.Header.Get("Retry-After")), &StatusError{URL: u.String(), Code: res.StatusCode}
	default:
		return nil, -1, &StatusError{URL: u.String(), Code: res.StatusCode}
	}
}

func retryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}
