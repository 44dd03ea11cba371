package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wsdottie/dottie-go/internal/catalog"
	"github.com/wsdottie/dottie-go/internal/models"
	"github.com/wsdottie/dottie-go/internal/observability"
	"github.com/wsdottie/dottie-go/internal/store"
	"github.com/wsdottie/dottie-go/internal/wsdate"
)

type subscription struct {
	endpoint models.Endpoint
	params   models.Params
}

// Manager keeps subscribed endpoints fresh in the store
type Manager struct {
	fetcher        *Fetcher
	catalog        *catalog.Catalog
	store          *store.Store
	updateInterval time.Duration
	maxConcurrent  int
	logger         zerolog.Logger

	mu   sync.Mutex
	subs map[string]subscription

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager creates a new feed manager
func NewManager(fetcher *Fetcher, cat *catalog.Catalog, store *store.Store, updateInterval time.Duration, maxConcurrent int, logger zerolog.Logger) *Manager {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if updateInterval <= 0 {
		updateInterval = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		fetcher:        fetcher,
		catalog:        cat,
		store:          store,
		updateInterval: updateInterval,
		maxConcurrent:  maxConcurrent,
		logger:         logger.With().Str("component", "feed").Logger(),
		subs:           make(map[string]subscription),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Subscribe adds an endpoint call to the refresh set
func (m *Manager) Subscribe(ep models.Endpoint, params map[string]string) error {
	normalized, err := catalog.ValidateParams(ep, params)
	if err != nil {
		return &Error{Kind: KindInvalidParams, API: ep.API, Function: ep.Function, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[normalized.CacheKey(ep.Key())] = subscription{endpoint: ep, params: normalized}
	return nil
}

// Subscriptions returns the cache keys of subscribed calls in sorted order
func (m *Manager) Subscriptions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.subs))
	for key := range m.subs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Start begins the feed update loop
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.updateLoop()
}

// Stop stops the feed update loop and waits for in-flight fetches
func (m *Manager) Stop() {
	m.stopOnce.Do(m.cancel)
	m.wg.Wait()
}

// RefreshNow runs one update cycle immediately
func (m *Manager) RefreshNow(ctx context.Context) error {
	return m.update(ctx)
}

func (m *Manager) updateLoop() {
	defer m.wg.Done()

	// Initial update
	if err := m.update(m.ctx); err != nil {
		m.logger.Warn().Err(err).Msg("initial update failed")
	}

	ticker := time.NewTicker(m.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.update(m.ctx); err != nil {
				m.logger.Warn().Err(err).Msg("update failed")
			}
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *Manager) snapshot() []subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := make([]subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].params.CacheKey(subs[i].endpoint.Key()) < subs[j].params.CacheKey(subs[j].endpoint.Key())
	})
	return subs
}

// update checks WSF flush dates first so invalidated entries are refetched
// in the same cycle, then refreshes every stale subscription
func (m *Manager) update(ctx context.Context) error {
	subs := m.snapshot()
	if len(subs) == 0 {
		return nil
	}

	var errs []error
	if err := m.checkFlushDates(ctx, subs); err != nil {
		errs = append(errs, err)
	}

	var (
		mu        sync.Mutex
		refreshed int
	)
	g := new(errgroup.Group)
	g.SetLimit(m.maxConcurrent)
	for _, sub := range subs {
		sub := sub
		key := sub.params.CacheKey(sub.endpoint.Key())
		if _, fresh := m.store.Get(key); fresh {
			continue
		}
		g.Go(func() error {
			res, err := m.fetcher.Fetch(ctx, sub.endpoint, sub.params)
			if err != nil {
				m.logger.Warn().Str("key", key).Err(err).Msg("refresh failed")
				return err
			}
			m.store.Put(sub.endpoint, res.Params, res.Value)
			mu.Lock()
			refreshed++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}

	m.logger.Debug().Int("refreshed", refreshed).Int("subscriptions", len(subs)).Msg("update cycle done")
	return errors.Join(errs...)
}

// checkFlushDates polls cacheflushdate for every WSF API with a
// subscription. A changed date drops that API's cached entries.
func (m *Manager) checkFlushDates(ctx context.Context, subs []subscription) error {
	apis := make(map[string]bool)
	for _, sub := range subs {
		if sub.endpoint.Host == models.HostWSF {
			apis[sub.endpoint.API] = true
		}
	}

	var errs []error
	for api := range apis {
		ep, ok := m.catalog.FlushEndpoint(api)
		if !ok {
			continue
		}
		res, err := m.fetcher.Fetch(ctx, ep, nil)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		raw, ok := res.Value.AsString()
		if !ok {
			errs = append(errs, fmt.Errorf("feed: %s: cacheflushdate is %s, not string", api, res.Value.Kind()))
			continue
		}
		flushed, err := wsdate.Parse(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("feed: %s: %w", api, err))
			continue
		}
		if m.store.SetFlushDate(api, flushed) {
			n := m.store.InvalidateAPI(api)
			observability.RecordInvalidation(api, n)
			m.logger.Info().Str("api", api).Time("flush_date", flushed).Int("dropped", n).Msg("upstream cache flushed")
		}
	}
	return errors.Join(errs...)
}
