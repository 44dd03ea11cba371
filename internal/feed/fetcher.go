package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/wsdottie/dottie-go/internal/catalog"
	"github.com/wsdottie/dottie-go/internal/decode"
	"github.com/wsdottie/dottie-go/internal/models"
	"github.com/wsdottie/dottie-go/internal/observability"
	"github.com/wsdottie/dottie-go/internal/value"
)

const (
	maxBodyBytes  = 32 << 20
	maxErrorBytes = 512
	userAgent     = "dottie-go"
)

// ErrBodyTooLarge is returned when a response exceeds the configured body limit
var ErrBodyTooLarge = errors.New("response body too large")

// FetcherConfig configures a Fetcher
type FetcherConfig struct {
	AccessCode string
	BaseURLs   map[models.Host]string
	HTTPClient *http.Client
	RateLimit  float64 // requests per second, 0 disables limiting
	RateBurst  int
	Validate   bool
	Decoder    *decode.Decoder
	Logger     *zerolog.Logger

	MaxBodyBytes int64 // 0 means 32 MiB
}

// Result is a decoded upstream response
type Result struct {
	Value  value.Value
	Params models.Params
	Tier   decode.Tier
}

// Fetcher performs single endpoint calls against the upstream APIs
type Fetcher struct {
	catalog    *catalog.Catalog
	accessCode string
	baseURLs   map[models.Host]string
	httpClient *http.Client
	limiter    *rate.Limiter
	validate   bool
	maxBody    int64
	decoder    *decode.Decoder
	logger     zerolog.Logger
}

// NewFetcher creates a fetcher backed by cat
func NewFetcher(cat *catalog.Catalog, cfg FetcherConfig) *Fetcher {
	f := &Fetcher{
		catalog:    cat,
		accessCode: cfg.AccessCode,
		baseURLs:   cfg.BaseURLs,
		httpClient: cfg.HTTPClient,
		validate:   cfg.Validate,
		maxBody:    cfg.MaxBodyBytes,
		decoder:    cfg.Decoder,
		logger:     zerolog.Nop(),
	}
	if f.httpClient == nil {
		f.httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	if f.maxBody <= 0 {
		f.maxBody = maxBodyBytes
	}
	if f.decoder == nil {
		f.decoder = decode.New()
	}
	if cfg.Logger != nil {
		f.logger = cfg.Logger.With().Str("component", "fetcher").Logger()
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return f
}

// Fetch validates params, calls ep and decodes the response
func (f *Fetcher) Fetch(ctx context.Context, ep models.Endpoint, params map[string]string) (Result, error) {
	start := time.Now()
	res, err := f.fetch(ctx, ep, params)

	outcome := "ok"
	var fe *Error
	if errors.As(err, &fe) {
		outcome = string(fe.Kind)
	}
	observability.RecordFetch(ep.API, ep.Function, outcome, time.Since(start))
	return res, err
}

func (f *Fetcher) fetch(ctx context.Context, ep models.Endpoint, params map[string]string) (Result, error) {
	fail := func(kind Kind, u string, status int, err error) (Result, error) {
		return Result{}, &Error{Kind: kind, API: ep.API, Function: ep.Function, URL: u, Status: status, Err: err}
	}

	normalized, err := catalog.ValidateParams(ep, params)
	if err != nil {
		return fail(KindInvalidParams, "", 0, err)
	}

	base, ok := f.baseURLs[ep.Host]
	if !ok {
		return fail(KindInvalidParams, "", 0, fmt.Errorf("no base URL for host %s", ep.Host))
	}
	u, err := BuildURL(base, f.accessCode, ep, normalized)
	if err != nil {
		return fail(KindInvalidParams, "", 0, err)
	}
	safeURL := redact(u, ep.Host)

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return fail(KindTimeout, safeURL, 0, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fail(KindInvalidParams, safeURL, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fail(classify(ctx, err), safeURL, 0, errors.New(redactError(err.Error(), u, safeURL)))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		msg := strings.TrimSpace(string(snippet))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fail(KindAPI, safeURL, resp.StatusCode, errors.New(msg))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return fail(classify(ctx, err), safeURL, resp.StatusCode, err)
	}
	if int64(len(body)) > f.maxBody {
		return fail(KindAPI, safeURL, resp.StatusCode, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, f.maxBody))
	}

	v, tier, err := f.decoder.DecodeTier(string(body))
	observability.RecordDecode(tier.String())
	if err != nil {
		f.logger.Warn().
			Str("endpoint", ep.Key()).
			Int("bytes", len(body)).
			Err(err).
			Msg("undecodable response")
		return fail(KindDecode, safeURL, resp.StatusCode, err)
	}
	if tier != decode.TierStrict {
		f.logger.Debug().
			Str("endpoint", ep.Key()).
			Stringer("tier", tier).
			Msg("recovered malformed response")
	}

	if f.validate {
		if err := f.catalog.Validate(ep, v); err != nil {
			return fail(KindValidation, safeURL, resp.StatusCode, err)
		}
	}

	return Result{Value: v, Params: normalized, Tier: tier}, nil
}

func classify(ctx context.Context, err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}

// redactError strips the access code from transport errors, which quote the URL
func redactError(msg, rawURL, safeURL string) string {
	return strings.ReplaceAll(msg, rawURL, safeURL)
}
