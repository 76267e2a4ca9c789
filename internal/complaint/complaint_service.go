// Package complaint provides the core logic for handling grievances: the
// local-first complaint store, its status lifecycle and the sync with the
// remote authority once connectivity returns.
package complaint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"

	"incluverse/backend/internal/analysis"
	"incluverse/backend/internal/config"
	"incluverse/backend/internal/localization"
	"incluverse/backend/internal/models"
	"incluverse/backend/internal/remote"
	"incluverse/backend/internal/storage"

	log "github.com/sirupsen/logrus"
)

// Connectivity reports whether the remote authority is currently reachable.
type Connectivity interface {
	Online() bool
}

// Publisher receives an event after every committed mutation. Publish must not block.
type Publisher interface {
	Publish(event models.ComplaintEvent)
}

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	Key       string
	Policy    Policy
	Selector  Selector
	Localizer *localization.Localizer
	Publisher Publisher
	Now       func() time.Time
}

// Service owns the complaint collection. All mutation goes through it; every
// mutation is written to Storage before it becomes visible in memory.
type Service struct {
	Storage      storage.KVStore
	Remote       remote.Authority
	Connectivity Connectivity

	key       string
	policy    Policy
	selector  Selector
	localizer *localization.Localizer
	publisher Publisher
	now       func() time.Time

	mu         sync.Mutex
	complaints []models.Complaint // newest first
	stored     string             // raw value last read from or written to storage
	loaded     bool
	lastID     int64
	inFlight   map[int64]struct{}

	// syncMu serializes TrySyncPending so a record is never submitted twice concurrently.
	syncMu sync.Mutex
}

// NewService creates a complaint service. Call Load before serving requests;
// mutations on a service that was never loaded load it first.
func NewService(s storage.KVStore, authority remote.Authority, conn Connectivity, opts Options) *Service {
	svc := &Service{
		Storage:      s,
		Remote:       authority,
		Connectivity: conn,
		key:          opts.Key,
		policy:       opts.Policy,
		selector:     opts.Selector,
		localizer:    opts.Localizer,
		publisher:    opts.Publisher,
		now:          opts.Now,
		inFlight:     make(map[int64]struct{}),
	}
	if svc.key == "" {
		svc.key = config.DefaultStorageKey
	}
	if svc.policy == "" {
		svc.policy = PolicyStrict
	}
	if svc.selector == nil {
		svc.selector = NewRandomSelector(uint64(time.Now().UnixNano()))
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// Load reads the collection from storage. When nothing has been stored yet it
// seeds the demonstration complaints and persists them. A corrupt collection
// yields an empty result and an ErrPersistence error; the service stays
// usable and the next write replaces it. An unreadable store leaves the
// service unloaded.
func (s *Service) Load(ctx context.Context) ([]models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.loadLocked(ctx)
	return cloneAll(s.complaints), err
}

func (s *Service) loadLocked(ctx context.Context) error {
	if err := s.readLocked(ctx); err != nil {
		if s.loaded {
			log.WithError(err).Error("complaint store is corrupt, starting empty")
		} else {
			log.WithError(err).Error("failed to read complaint store")
		}
		return err
	}
	if s.stored != "" {
		return nil
	}

	err := s.applyLocked(ctx, func(list []models.Complaint) ([]models.Complaint, error) {
		if s.stored != "" {
			// another writer created the collection first
			return nil, nil
		}
		return SeedComplaints(s.now()), nil
	})
	if err != nil {
		log.WithError(err).Error("failed to persist seed complaints")
		s.loaded = false
		return err
	}
	s.lastID = max(s.lastID, maxID(s.complaints))
	log.WithField("count", len(s.complaints)).Info("seeded complaint store")
	return nil
}

// readLocked replaces the in-memory collection with what storage holds now.
// The service only counts as loaded once storage was actually readable; a
// corrupt value counts as loaded-but-empty so the next write replaces it.
func (s *Service) readLocked(ctx context.Context) error {
	s.loaded = false
	s.complaints = nil
	s.stored = ""

	raw, err := s.Storage.Get(ctx, s.key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		raw, err = "", nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrPersistence, s.key, err)
	}
	s.loaded = true
	s.stored = raw
	if raw == "" {
		return nil
	}

	var list []models.Complaint
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return fmt.Errorf("%w: corrupt collection under %s: %w", ErrPersistence, s.key, err)
	}
	s.complaints = list
	s.lastID = max(s.lastID, maxID(list))
	return nil
}

// ensureLoadedLocked loads on first use. It fails only when storage could not
// be read at all, so nothing is written over a collection we have not seen.
func (s *Service) ensureLoadedLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	err := s.loadLocked(ctx)
	if s.loaded {
		if err != nil {
			log.WithError(err).Warn("continuing with an empty complaint collection")
		}
		return nil
	}
	return err
}

// applyLocked runs fn over a copy of the collection and writes the result
// only if storage still holds the value this service last read or wrote.
// When another process wrote in between, the collection is re-read and fn
// runs again on the fresh copy, so fn must be safe to repeat. A nil result
// means nothing to write. On failure the in-memory state is unchanged
// unless it was re-read. Caller holds s.mu.
func (s *Service) applyLocked(ctx context.Context, fn func([]models.Complaint) ([]models.Complaint, error)) error {
	for attempt := 1; ; attempt++ {
		next, err := fn(cloneAll(s.complaints))
		if err != nil || next == nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("%w: encode collection: %w", ErrPersistence, err)
		}

		err = s.Storage.CompareAndSwap(ctx, s.key, s.stored, string(data))
		if err == nil {
			s.complaints = next
			s.stored = string(data)
			return nil
		}
		if !errors.Is(err, storage.ErrConflict) {
			return fmt.Errorf("%w: write %s: %w", ErrPersistence, s.key, err)
		}
		if attempt == config.CommitAttempts {
			return fmt.Errorf("%w: %s kept changing during %d attempts: %w", ErrPersistence, s.key, attempt, err)
		}

		log.WithField("attempt", attempt).Debug("complaint store changed by another writer, re-reading")
		if err := s.readLocked(ctx); err != nil && !s.loaded {
			return err
		}
	}
}

// nextIDLocked returns a creation-time id that is strictly greater than any
// id handed out before, even within the same millisecond.
func (s *Service) nextIDLocked(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// Submit files a new complaint. Online, the complaint is stored as submitted
// and handed to the remote authority; if that fails it falls back to offline
// and waits for the next reconnect. Offline, it is stored as offline.
// New complaints are prepended, so the collection stays newest first.
func (s *Service) Submit(ctx context.Context, text string, lang models.Language) (models.Complaint, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Complaint{}, ErrEmptyText
	}
	if lang == "" {
		lang = models.LanguageEnglish
	}
	if _, ok := models.Languages[lang]; !ok {
		return models.Complaint{}, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}

	online := s.Connectivity.Online()

	s.mu.Lock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		s.mu.Unlock()
		return models.Complaint{}, err
	}
	var c models.Complaint
	err := s.applyLocked(ctx, func(list []models.Complaint) ([]models.Complaint, error) {
		now := s.now()
		c = models.Complaint{
			ID:        s.nextIDLocked(now),
			Text:      text,
			CreatedAt: now,
			Language:  lang,
			Status:    models.StatusOffline,
			Priority:  models.PriorityMedium,
			Category:  models.DefaultCategory,
		}
		if online {
			c.Status = models.StatusSubmitted
		}
		return append([]models.Complaint{c}, list...), nil
	})
	if err != nil {
		s.mu.Unlock()
		log.WithError(err).Error("failed to store new complaint")
		return models.Complaint{}, err
	}
	if online {
		s.inFlight[c.ID] = struct{}{}
	}
	s.mu.Unlock()

	if !online {
		log.WithField("id", c.ID).Info("complaint saved offline")
		s.publish(models.EventSubmitted, c)
		return c.Clone(), nil
	}

	remoteErr := s.Remote.Submit(ctx, []models.Complaint{c})

	s.mu.Lock()
	delete(s.inFlight, c.ID)
	updated, err := s.updateLocked(ctx, c.ID, func(x *models.Complaint) error {
		if remoteErr != nil {
			if x.Status == models.StatusSubmitted {
				x.Status = models.StatusOffline
			}
			x.Synced = false
			return nil
		}
		x.Synced = true
		if x.Status == models.StatusOffline {
			x.Status = models.StatusSubmitted
		}
		return nil
	})
	s.mu.Unlock()

	if remoteErr != nil {
		log.WithError(remoteErr).WithField("id", c.ID).Warn("remote submission failed, complaint kept offline")
	}
	if err != nil {
		return updated, err
	}
	s.publish(models.EventSubmitted, updated)
	return updated, nil
}

// TrySyncPending sends every unsynced complaint to the remote authority as one
// batch. On success all of them become submitted and synced, whatever status
// they had; on failure none is changed and an ErrSync error is returned.
// Calling it again with nothing new pending returns 0. The collection is
// re-read first so complaints filed by other processes are included.
func (s *Service) TrySyncPending(ctx context.Context) (int, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.mu.Lock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	if err := s.readLocked(ctx); err != nil && !s.loaded {
		s.mu.Unlock()
		return 0, err
	}
	var pending []models.Complaint
	for _, c := range s.complaints {
		if _, busy := s.inFlight[c.ID]; !c.Synced && !busy {
			pending = append(pending, c.Clone())
		}
	}
	s.mu.Unlock()

	if len(pending) == 0 {
		return 0, nil
	}

	if err := s.Remote.Submit(ctx, pending); err != nil {
		log.WithError(err).WithField("pending", len(pending)).Warn("sync failed, will retry on next reconnect")
		return 0, fmt.Errorf("%w: %w", ErrSync, err)
	}

	ids := make(map[int64]struct{}, len(pending))
	for _, c := range pending {
		ids[c.ID] = struct{}{}
	}

	s.mu.Lock()
	var synced []models.Complaint
	err := s.applyLocked(ctx, func(list []models.Complaint) ([]models.Complaint, error) {
		synced = nil
		for i := range list {
			if _, ok := ids[list[i].ID]; !ok || list[i].Synced {
				continue
			}
			list[i].Synced = true
			list[i].Status = models.StatusSubmitted
			synced = append(synced, list[i].Clone())
		}
		if len(synced) == 0 {
			return nil, nil
		}
		return list, nil
	})
	if err != nil {
		s.mu.Unlock()
		log.WithError(err).Error("failed to persist synced complaints")
		return 0, err
	}
	s.mu.Unlock()

	log.WithField("count", len(synced)).Info("offline complaints synced")
	s.publish(models.EventSynced, synced...)
	return len(synced), nil
}

// SetResponse records a responder's answer and moves the complaint to
// in-progress, whatever its current status.
func (s *Service) SetResponse(ctx context.Context, id int64, text string) (models.Complaint, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Complaint{}, ErrEmptyResponse
	}
	return s.mutate(ctx, id, models.EventResponded, func(c *models.Complaint) error {
		at := s.now()
		c.Response = text
		c.ResponseAt = &at
		c.Status = models.StatusInProgress
		return nil
	})
}

// SetStatus lets a responder change the status, subject to the configured Policy.
func (s *Service) SetStatus(ctx context.Context, id int64, status models.Status) (models.Complaint, error) {
	if _, ok := models.ParseStatus(string(status)); !ok {
		return models.Complaint{}, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	return s.mutate(ctx, id, models.EventStatus, func(c *models.Complaint) error {
		if err := s.policy.CheckTransition(c.Status, status); err != nil {
			return err
		}
		c.Status = status
		if status == models.StatusOffline {
			c.Synced = false
		}
		return nil
	})
}

// GenerateAutoResponse answers the complaint with a canned reply in its language.
func (s *Service) GenerateAutoResponse(ctx context.Context, id int64) (models.Complaint, error) {
	i := s.selector.Pick(len(AutoResponses))
	return s.mutate(ctx, id, models.EventResponded, func(c *models.Complaint) error {
		at := s.now()
		c.Response = autoResponseText(s.localizer, c.Language, i)
		c.ResponseAt = &at
		c.Status = models.StatusInProgress
		return nil
	})
}

// Rate stores the filer's 1-5 rating of a resolved complaint. Ratings can be overwritten.
func (s *Service) Rate(ctx context.Context, id int64, rating int) (models.Complaint, error) {
	if rating < config.MinRating || rating > config.MaxRating {
		return models.Complaint{}, fmt.Errorf("%w: got %d", ErrRatingRange, rating)
	}
	return s.mutate(ctx, id, models.EventRated, func(c *models.Complaint) error {
		if c.Status != models.StatusResolved {
			return ErrNotResolved
		}
		c.Rating = &rating
		return nil
	})
}

// mutate applies fn to complaint id, commits and publishes. On any error the
// previously committed complaint is returned alongside it.
func (s *Service) mutate(ctx context.Context, id int64, event models.EventType, fn func(*models.Complaint) error) (models.Complaint, error) {
	s.mu.Lock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		s.mu.Unlock()
		return models.Complaint{}, err
	}
	updated, err := s.updateLocked(ctx, id, fn)
	s.mu.Unlock()
	if err != nil {
		return updated, err
	}
	s.publish(event, updated)
	return updated, nil
}

func (s *Service) updateLocked(ctx context.Context, id int64, fn func(*models.Complaint) error) (models.Complaint, error) {
	var updated models.Complaint
	err := s.applyLocked(ctx, func(list []models.Complaint) ([]models.Complaint, error) {
		idx := slices.IndexFunc(list, func(c models.Complaint) bool { return c.ID == id })
		if idx < 0 {
			return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		if err := fn(&list[idx]); err != nil {
			return nil, err
		}
		updated = list[idx].Clone()
		return list, nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrValidation) {
			log.WithError(err).WithField("id", id).Error("failed to persist complaint update")
		}
		if idx := slices.IndexFunc(s.complaints, func(c models.Complaint) bool { return c.ID == id }); idx >= 0 {
			return s.complaints[idx].Clone(), err
		}
		return models.Complaint{}, err
	}
	return updated, nil
}

// Get returns one complaint.
func (s *Service) Get(id int64) (models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.complaints {
		if c.ID == id {
			return c.Clone(), nil
		}
	}
	return models.Complaint{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
}

// All returns a snapshot of the collection, newest first.
func (s *Service) All() []models.Complaint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.complaints)
}

// Search yields complaints whose text or category contains term (ignoring
// case) and whose status matches statusFilter. An empty filter or "all"
// matches every status. Results follow collection order over a snapshot
// taken at call time.
func (s *Service) Search(term, statusFilter string) iter.Seq[models.Complaint] {
	snapshot := s.All()
	term = strings.TrimSpace(term)
	return func(yield func(models.Complaint) bool) {
		for _, c := range snapshot {
			if statusFilter != "" && statusFilter != models.StatusAll && string(c.Status) != statusFilter {
				continue
			}
			if !c.Matches(term) {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// Recent returns the n most recently created complaints.
func (s *Service) Recent(n int) []models.Complaint {
	return analysis.Recent(s.All(), n)
}

// Queue returns the unresolved complaints in the order a responder should
// take them: highest priority first, oldest first within a priority.
func (s *Service) Queue() []models.Complaint {
	open := slices.DeleteFunc(s.All(), func(c models.Complaint) bool {
		return c.Status == models.StatusResolved
	})
	return analysis.ByUrgency(open)
}

// Stats summarizes the collection for the dashboard.
func (s *Service) Stats() analysis.Stats {
	return analysis.Summarize(s.All())
}

// Localizer returns the catalogue used for auto-responses, possibly nil.
func (s *Service) Localizer() *localization.Localizer {
	return s.localizer
}

func (s *Service) publish(t models.EventType, complaints ...models.Complaint) {
	if s.publisher == nil || len(complaints) == 0 {
		return
	}
	s.publisher.Publish(models.ComplaintEvent{Type: t, Complaints: complaints, At: s.now()})
}

func cloneAll(in []models.Complaint) []models.Complaint {
	out := make([]models.Complaint, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

func maxID(list []models.Complaint) int64 {
	var m int64
	for _, c := range list {
		m = max(m, c.ID)
	}
	return m
}
