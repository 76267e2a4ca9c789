package connectivity

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// Prober polls a health URL and drives a Signal from the result.
type Prober struct {
	URL      string
	Interval time.Duration
	Signal   *Signal
	http     *resty.Client
}

// NewProber creates a prober with a per-request timeout.
func NewProber(url string, interval, timeout time.Duration, signal *Signal) *Prober {
	return &Prober{
		URL:      url,
		Interval: interval,
		Signal:   signal,
		http:     resty.New().SetTimeout(timeout),
	}
}

// Check performs one probe and updates the signal. Any transport error or
// non-2xx answer counts as offline.
func (p *Prober) Check(ctx context.Context) bool {
	resp, err := p.http.R().SetContext(ctx).Get(p.URL)
	online := err == nil && !resp.IsError()
	if err != nil {
		log.WithError(err).WithField("url", p.URL).Debug("connectivity probe failed")
	}
	p.Signal.Set(online)
	return online
}

// Run probes immediately and then every Interval until ctx is done.
func (p *Prober) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}
