package dottie

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wsdottie/dottie-go/internal/catalog"
	"github.com/wsdottie/dottie-go/internal/feed"
	"github.com/wsdottie/dottie-go/internal/models"
	"github.com/wsdottie/dottie-go/internal/observability"
	"github.com/wsdottie/dottie-go/internal/store"
)

// AccessTokenEnv names the environment variable read when Config.AccessCode is empty
const AccessTokenEnv = "WSDOT_ACCESS_TOKEN"

// LocalClient implements the Client interface for local usage
// Manages in-memory cache and background refresh of subscriptions
type LocalClient struct {
	catalog     *catalog.Catalog
	store       *store.Store
	fetcher     *feed.Fetcher
	feedManager *feed.Manager
	logger      zerolog.Logger
}

// NewLocal creates a new local client
// Starts background feed manager for automatic refresh of subscriptions
func NewLocal(config Config) (*LocalClient, error) {
	if config.AccessCode == "" {
		config.AccessCode = os.Getenv(AccessTokenEnv)
	}
	if config.AccessCode == "" {
		return nil, fmt.Errorf("access code required (set Config.AccessCode or %s)", AccessTokenEnv)
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.RequestTimeout}
	}

	cat := catalog.Default()
	fetcher := feed.NewFetcher(cat, feed.FetcherConfig{
		AccessCode: config.AccessCode,
		BaseURLs: map[models.Host]string{
			models.HostWSDOT: config.WSDOTBaseURL,
			models.HostWSF:   config.WSFBaseURL,
		},
		HTTPClient: httpClient,
		RateLimit:  config.RateLimit,
		RateBurst:  config.RateBurst,
		Validate:   config.Validate,
		Logger:     &logger,
	})

	s := store.NewStore()
	fm := feed.NewManager(fetcher, cat, s, config.UpdateInterval, config.MaxConcurrent, logger)
	for _, sub := range config.Subscriptions {
		ep, params, err := parseSubscription(cat, sub)
		if err != nil {
			return nil, err
		}
		if err := fm.Subscribe(ep, params); err != nil {
			return nil, fmt.Errorf("subscription %q: %w", sub, err)
		}
	}
	fm.Start()

	return &LocalClient{
		catalog:     cat,
		store:       s,
		fetcher:     fetcher,
		feedManager: fm,
		logger:      logger,
	}, nil
}

func parseSubscription(cat *catalog.Catalog, sub string) (models.Endpoint, map[string]string, error) {
	path, rawQuery, _ := strings.Cut(sub, "?")
	api, function, ok := strings.Cut(path, "/")
	if !ok {
		return models.Endpoint{}, nil, fmt.Errorf("subscription %q must be api/function", sub)
	}
	ep, ok := cat.Lookup(api, function)
	if !ok {
		return models.Endpoint{}, nil, fmt.Errorf("subscription %q: %w", sub, ErrUnknownEndpoint)
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return models.Endpoint{}, nil, fmt.Errorf("subscription %q: %w", sub, err)
	}
	params := make(map[string]string, len(query))
	for name := range query {
		params[name] = query.Get(name)
	}
	return ep, params, nil
}

// Close gracefully shuts down the local client
// Must be called to stop background goroutines and prevent leaks
func (c *LocalClient) Close() {
	c.feedManager.Stop()
}

func (c *LocalClient) APIs() []APIInfo {
	return c.catalog.APIs()
}

func (c *LocalClient) Endpoints(api string) ([]Endpoint, error) {
	eps := c.catalog.Endpoints(api)
	if eps == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAPI, api)
	}
	return eps, nil
}

func (c *LocalClient) endpoint(api, function string) (models.Endpoint, error) {
	ep, ok := c.catalog.Lookup(api, function)
	if !ok {
		if c.catalog.Endpoints(api) == nil {
			return models.Endpoint{}, fmt.Errorf("%w: %s", ErrUnknownAPI, api)
		}
		return models.Endpoint{}, fmt.Errorf("%w: %s/%s", ErrUnknownEndpoint, api, function)
	}
	return ep, nil
}

func (c *LocalClient) Fetch(ctx context.Context, api, function string, params map[string]string) (Response, error) {
	ep, err := c.endpoint(api, function)
	if err != nil {
		return Response{}, err
	}
	normalized, err := catalog.ValidateParams(ep, params)
	if err != nil {
		return Response{}, &feed.Error{Kind: feed.KindInvalidParams, API: api, Function: function, Err: err}
	}

	e, hit := c.store.Get(normalized.CacheKey(ep.Key()))
	observability.RecordCacheLookup(api, hit)
	if hit {
		return fromEntry(e, true), nil
	}
	return c.refresh(ctx, ep, normalized)
}

func (c *LocalClient) Refresh(ctx context.Context, api, function string, params map[string]string) (Response, error) {
	ep, err := c.endpoint(api, function)
	if err != nil {
		return Response{}, err
	}
	return c.refresh(ctx, ep, params)
}

func (c *LocalClient) refresh(ctx context.Context, ep models.Endpoint, params map[string]string) (Response, error) {
	res, err := c.fetcher.Fetch(ctx, ep, params)
	if err != nil {
		var fe *feed.Error
		if !errors.As(err, &fe) || fe.Kind != feed.KindInvalidParams {
			c.logger.Warn().Str("endpoint", ep.Key()).Err(err).Msg("fetch failed")
		}
		return Response{}, err
	}
	return fromEntry(c.store.Put(ep, res.Params, res.Value), false), nil
}

func (c *LocalClient) GetLastUpdate() time.Time {
	return c.store.GetLastUpdate()
}

// Subscriptions lists the cache keys kept fresh in the background
func (c *LocalClient) Subscriptions() []string {
	return c.feedManager.Subscriptions()
}

func fromEntry(e store.Entry, cached bool) Response {
	return Response{
		Key:       e.Key,
		API:       e.API,
		Function:  e.Function,
		Params:    e.Params,
		Value:     e.Value,
		FetchedAt: e.FetchedAt,
		ExpiresAt: e.ExpiresAt,
		Cached:    cached,
	}
}
