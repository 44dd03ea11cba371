package dottie

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/wsdottie/dottie-go/internal/decode"
	"github.com/wsdottie/dottie-go/internal/feed"
	"github.com/wsdottie/dottie-go/internal/models"
	"github.com/wsdottie/dottie-go/internal/value"
)

type (
	Value         = value.Value
	Endpoint      = models.Endpoint
	APIInfo       = models.APIInfo
	Params        = models.Params
	CacheStrategy = models.CacheStrategy
	FetchError    = feed.Error
	ErrorKind     = feed.Kind
	DecodeError   = decode.Error
)

var (
	ErrUnknownAPI      = errors.New("unknown api")
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	ErrUndecodable     = decode.ErrUndecodable
)

// Client defines the interface for accessing WSDOT and WSF data
// Abstracts different data sources (local vs remote) behind common interface
type Client interface {
	APIs() []APIInfo
	Endpoints(api string) ([]Endpoint, error)

	// Fetch serves from cache while the endpoint's TTL allows, else calls upstream
	Fetch(ctx context.Context, api, function string, params map[string]string) (Response, error)
	// Refresh always calls upstream and replaces the cached entry
	Refresh(ctx context.Context, api, function string, params map[string]string) (Response, error)

	GetLastUpdate() time.Time
}

// Response is a decoded, validated upstream payload
type Response struct {
	Key       string    `json:"key"`
	API       string    `json:"api"`
	Function  string    `json:"function"`
	Params    Params    `json:"params,omitempty"`
	Value     Value     `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Cached    bool      `json:"cached"`
}

// Config holds configuration for the client
// AccessCode is required by every upstream API; when empty the
// WSDOT_ACCESS_TOKEN environment variable is used
type Config struct {
	AccessCode     string
	WSDOTBaseURL   string
	WSFBaseURL     string
	UpdateInterval time.Duration
	RequestTimeout time.Duration
	RateLimit      float64
	RateBurst      int
	MaxConcurrent  int
	Validate       bool
	// Subscriptions are kept fresh in the background, written as
	// "api/function" or "api/function?Param=value"
	Subscriptions []string
	Logger        *zerolog.Logger
	HTTPClient    *http.Client
}

// DefaultConfig returns default configuration
// 30-second update interval keeps REALTIME endpoints within a few TTLs
func DefaultConfig() Config {
	return Config{
		WSDOTBaseURL:   "https://wsdot.wa.gov",
		WSFBaseURL:     "https://www.wsdot.wa.gov",
		UpdateInterval: 30 * time.Second,
		RequestTimeout: 30 * time.Second,
		RateLimit:      10,
		RateBurst:      5,
		MaxConcurrent:  4,
		Validate:       true,
	}
}

// Decode runs the fallback JSON decoder on text
func Decode(text string) (Value, error) {
	return decode.Decode(text)
}
