package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"nse-oi-tracker/internal/config"
	"nse-oi-tracker/internal/errors"
	"nse-oi-tracker/internal/logging"
	"nse-oi-tracker/internal/metrics"
	"nse-oi-tracker/internal/models"
	"nse-oi-tracker/internal/resilience"
)

const maxBodyBytes = 16 << 20

// HTTPProvider reads option-chain data from the relay service.
type HTTPProvider struct {
	baseURL   string
	userAgent string
	client    *http.Client
	breaker   *resilience.CircuitBreaker
	logger    zerolog.Logger
}

type lookupResponse struct {
	ID string `json:"id"`
}

type expiriesResponse struct {
	ExpiryDates []string `json:"expiryDates"`
}

// NewHTTPProvider creates a relay client from cfg.
func NewHTTPProvider(cfg config.ProviderConfig, logger zerolog.Logger) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "nse-oi-tracker/1.0"
	}

	breakerCfg := resilience.DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold > 0 {
		breakerCfg.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.BreakerTimeout > 0 {
		breakerCfg.Timeout = cfg.BreakerTimeout
	}
	// A symbol the relay does not know says nothing about relay health.
	breakerCfg.Counts = func(err error) bool {
		return !errors.Is(err, errors.ErrLookupFailure)
	}

	logger = logger.With().Str("component", "provider").Logger()
	return &HTTPProvider{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		breaker:   resilience.NewCircuitBreaker("provider", breakerCfg, logger),
		logger:    logger,
	}
}

// Breaker exposes the circuit breaker guarding the relay.
func (p *HTTPProvider) Breaker() *resilience.CircuitBreaker {
	return p.breaker
}

// LookupSymbol implements Provider.
func (p *HTTPProvider) LookupSymbol(ctx context.Context, symbol models.Index) (string, error) {
	body, err := p.get(ctx, "lookup", symbol.String(), "/lookup", url.Values{"symbol": {symbol.String()}})
	if err != nil {
		return "", err
	}

	var resp lookupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.NewProviderError("lookup", symbol.String(), 0, fmt.Errorf("%w: decoding lookup: %v", errors.ErrTransportFailure, err))
	}
	if strings.TrimSpace(resp.ID) == "" {
		return "", errors.NewProviderError("lookup", symbol.String(), 0, errors.ErrLookupFailure)
	}
	return resp.ID, nil
}

// Expiries implements Provider.
func (p *HTTPProvider) Expiries(ctx context.Context, id string) ([]string, error) {
	body, err := p.get(ctx, "expiries", id, "/expiries", url.Values{"id": {id}})
	if err != nil {
		return nil, err
	}

	var resp expiriesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewProviderError("expiries", id, 0, fmt.Errorf("%w: decoding expiries: %v", errors.ErrTransportFailure, err))
	}
	return resp.ExpiryDates, nil
}

// FetchSnapshot implements Provider. The payload is returned undecoded.
func (p *HTTPProvider) FetchSnapshot(ctx context.Context, id, expiry, cutoff string) ([]byte, error) {
	return p.get(ctx, "option_chain", id, "/option-chain", url.Values{
		"id":     {id},
		"expiry": {expiry},
		"time":   {cutoff},
	})
}

func (p *HTTPProvider) get(ctx context.Context, op, subject, path string, query url.Values) ([]byte, error) {
	start := time.Now()
	endpoint := p.baseURL + path + "?" + query.Encode()

	body, err := resilience.ExecuteWithResult(p.breaker, ctx, func(ctx context.Context) ([]byte, error) {
		return p.do(ctx, op, subject, endpoint)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		err = errors.NewProviderError(op, subject, 0, fmt.Errorf("%w: %w", errors.ErrTransportFailure, err))
	}

	metrics.ObserveProvider(op, start, err)
	logging.LogAPICall(p.logger, http.MethodGet, path, time.Since(start), err)
	return body, err
}

func (p *HTTPProvider) do(ctx context.Context, op, subject, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewProviderError(op, subject, 0, fmt.Errorf("%w: creating request: %w", errors.ErrTransportFailure, err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.NewProviderError(op, subject, 0, fmt.Errorf("%w: %w", errors.ErrTransportFailure, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.NewProviderError(op, subject, resp.StatusCode, errors.ErrLookupFailure)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, errors.NewProviderError(op, subject, resp.StatusCode, errors.ErrTransportFailure)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.NewProviderError(op, subject, resp.StatusCode, fmt.Errorf("%w: reading body: %w", errors.ErrTransportFailure, err))
	}
	return body, nil
}
