// Package remote implements the authority that offline-created complaints are
// synchronized with once connectivity returns.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"incluverse/backend/internal/config"
	"incluverse/backend/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
)

// Authority accepts a batch of complaints. A nil error means every complaint in
// the batch was accepted; an error means none of them should be considered synced.
type Authority interface {
	Submit(ctx context.Context, batch []models.Complaint) error
}

// ErrRejected is returned by the stub when it is configured to fail.
var ErrRejected = errors.New("remote authority rejected the batch")

// Stub simulates the remote authority: it waits Delay and then succeeds unless
// failing has been switched on.
type Stub struct {
	Delay   time.Duration
	failing atomic.Bool
	calls   atomic.Int64
}

// NewStub returns a stub that always succeeds after delay.
func NewStub(delay time.Duration) *Stub {
	return &Stub{Delay: delay}
}

// SetFailing toggles whether Submit returns ErrRejected.
func (s *Stub) SetFailing(failing bool) {
	s.failing.Store(failing)
}

// Calls is the number of Submit invocations so far.
func (s *Stub) Calls() int64 {
	return s.calls.Load()
}

// Submit implements Authority.
func (s *Stub) Submit(ctx context.Context, batch []models.Complaint) error {
	s.calls.Add(1)
	if s.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.Delay):
		}
	}
	if s.failing.Load() {
		return ErrRejected
	}
	return nil
}

// HTTPAuthority posts batches as JSON to a grievance endpoint.
type HTTPAuthority struct {
	URL  string
	http *resty.Client
}

// NewHTTPAuthority creates an authority posting to url.
func NewHTTPAuthority(url string, timeout time.Duration) *HTTPAuthority {
	return &HTTPAuthority{URL: url, http: resty.New().SetTimeout(timeout)}
}

type batchRequest struct {
	Complaints []models.Complaint `json:"complaints"`
}

// Submit implements Authority.
func (a *HTTPAuthority) Submit(ctx context.Context, batch []models.Complaint) error {
	r, err := a.http.R().SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(batchRequest{Complaints: batch}).
		Post(a.URL)
	if err != nil {
		return err
	}
	if r.IsError() {
		return fmt.Errorf("grievance authority: %s; body: %s", r.Status(), r.String())
	}
	return nil
}

// RedisAuthority publishes batches on a Redis channel for a downstream
// grievance processor. Publishing to a channel with no subscriber is an error,
// since nobody would have received the batch.
type RedisAuthority struct {
	Redis   *redis.Client
	Channel string
}

// NewRedisAuthority publishes to channel on rdb.
func NewRedisAuthority(rdb *redis.Client, channel string) *RedisAuthority {
	return &RedisAuthority{Redis: rdb, Channel: channel}
}

// Submit implements Authority.
func (a *RedisAuthority) Submit(ctx context.Context, batch []models.Complaint) error {
	payload, err := json.Marshal(batchRequest{Complaints: batch})
	if err != nil {
		return err
	}
	receivers, err := a.Redis.Publish(ctx, a.Channel, string(payload)).Result()
	if err != nil {
		return err
	}
	if receivers == 0 {
		return fmt.Errorf("no subscriber on channel %s", a.Channel)
	}
	return nil
}

// New builds the authority selected by cfg.RemoteMode.
func New(cfg *config.Config) (Authority, error) {
	switch cfg.RemoteMode {
	case "", "stub":
		return NewStub(config.DefaultRemoteDelay), nil
	case "http":
		if cfg.RemoteURL == "" {
			return nil, errors.New("REMOTE_URL is required for http remote mode")
		}
		return NewHTTPAuthority(cfg.RemoteURL, 10*time.Second), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedisAuthority(rdb, cfg.RemoteChannel), nil
	default:
		return nil, fmt.Errorf("unknown remote mode %q", cfg.RemoteMode)
	}
}
