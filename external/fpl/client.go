package fpl

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/fantasy-contest/internal/platform/logging"
	"github.com/riskibarqy/fantasy-contest/internal/platform/metrics"
	"github.com/riskibarqy/fantasy-contest/internal/platform/resilience"
	"github.com/riskibarqy/fantasy-contest/internal/usecase"
	"golang.org/x/sync/singleflight"
)

const (
	defaultBaseURL   = "https://fantasy.premierleague.com/api"
	defaultUserAgent = "fantasy-contest-sync/1.0"
	maxResponseBytes = 8 << 20
)

var (
	errFPLTransient   = crerr.New("fpl transient failure")
	errFPLCircuitOpen = crerr.Wrap(resilience.ErrCircuitOpen, "fpl")
)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	UserAgent      string
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads gameweek, fixture and entry data from the public FPL API.
// It implements usecase.ScoringProvider.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	userAgent      string
	maxRetries     int
	backoff        resilience.Backoff
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         singleflight.Group
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	breakerCfg := cfg.CircuitBreaker.Normalized()
	breaker := resilience.NewNamedCircuitBreaker("fpl", breakerCfg)
	breaker.OnStateChange(func(name string, _, to resilience.CircuitState) {
		metrics.ObserveCircuitState(name, string(to))
	})

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		userAgent:      userAgent,
		maxRetries:     max(cfg.MaxRetries, 0),
		backoff:        resilience.Backoff{Base: backoff, Max: 8 * backoff},
		logger:         logger,
		breaker:        breaker,
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (c *Client) GetStaticConfig(ctx context.Context) (usecase.ExternalStaticConfig, error) {
	var payload bootstrapStaticPayload
	if err := c.doJSON(ctx, "bootstrap_static", "/bootstrap-static/", nil, c.maxRetries, &payload); err != nil {
		return usecase.ExternalStaticConfig{}, err
	}

	out := usecase.ExternalStaticConfig{Gameweeks: make([]usecase.ExternalGameweek, 0, len(payload.Events))}
	for _, event := range payload.Events {
		if event.ID <= 0 {
			continue
		}
		out.Gameweeks = append(out.Gameweeks, usecase.ExternalGameweek{
			ID:          event.ID,
			Name:        strings.TrimSpace(event.Name),
			DeadlineAt:  parseTime(event.DeadlineTime),
			Finished:    event.Finished,
			DataChecked: event.DataChecked,
			IsCurrent:   event.IsCurrent,
		})
	}
	return out, nil
}

func (c *Client) GetFixtures(ctx context.Context, gameweek int) ([]usecase.ExternalFixture, error) {
	if gameweek <= 0 {
		return nil, fmt.Errorf("%w: gameweek must be greater than zero", usecase.ErrInvalidInput)
	}

	var payload []fixturePayload
	query := url.Values{"event": []string{strconv.Itoa(gameweek)}}
	if err := c.doJSON(ctx, "fixtures", "/fixtures/", query, c.maxRetries, &payload); err != nil {
		return nil, err
	}

	out := make([]usecase.ExternalFixture, 0, len(payload))
	for _, item := range payload {
		if item.Event != nil && *item.Event != gameweek {
			continue
		}
		out = append(out, usecase.ExternalFixture{
			ID:        item.ID,
			Gameweek:  gameweek,
			KickoffAt: parseTime(item.KickoffTime),
			Started:   item.Started != nil && *item.Started,
			Finished:  item.Finished,
		})
	}
	return out, nil
}

func (c *Client) GetCloseConfirmation(ctx context.Context) ([]usecase.ExternalCloseConfirmation, error) {
	var payload eventStatusPayload
	if err := c.doJSON(ctx, "event_status", "/event-status/", nil, c.maxRetries, &payload); err != nil {
		return nil, err
	}

	out := make([]usecase.ExternalCloseConfirmation, 0, len(payload.Status))
	for _, item := range payload.Status {
		if item.Event <= 0 {
			continue
		}
		out = append(out, usecase.ExternalCloseConfirmation{
			Gameweek:   item.Event,
			Date:       strings.TrimSpace(item.Date),
			BonusAdded: item.BonusAdded,
			Points:     strings.TrimSpace(item.Points),
		})
	}
	return out, nil
}

// GetEntryPeriodScore returns the net gameweek score after transfer costs.
// A team without a history row for gameweek reports zero. Entry reads make a single
// attempt; ScoreResolver owns their retries.
func (c *Client) GetEntryPeriodScore(ctx context.Context, teamID int64, gameweek int) (usecase.ExternalEntryScore, error) {
	if teamID <= 0 || gameweek <= 0 {
		return usecase.ExternalEntryScore{}, fmt.Errorf("%w: team id and gameweek must be greater than zero", usecase.ErrInvalidInput)
	}

	var payload entryHistoryPayload
	path := fmt.Sprintf("/entry/%d/history/", teamID)
	if err := c.doJSON(ctx, "entry_history", path, nil, 0, &payload); err != nil {
		return usecase.ExternalEntryScore{}, err
	}

	out := usecase.ExternalEntryScore{TeamID: teamID, Gameweek: gameweek}
	for _, row := range payload.Current {
		if row.Event != gameweek {
			continue
		}
		out.Deduction = row.EventTransfersCost
		out.Points = row.Points - row.EventTransfersCost
		break
	}
	return out, nil
}

func (c *Client) GetLiveUnitScores(ctx context.Context, gameweek int) (usecase.ExternalLiveSnapshot, error) {
	if gameweek <= 0 {
		return usecase.ExternalLiveSnapshot{}, fmt.Errorf("%w: gameweek must be greater than zero", usecase.ErrInvalidInput)
	}

	var payload eventLivePayload
	path := fmt.Sprintf("/event/%d/live/", gameweek)
	if err := c.doJSON(ctx, "event_live", path, nil, c.maxRetries, &payload); err != nil {
		return usecase.ExternalLiveSnapshot{}, err
	}

	out := usecase.ExternalLiveSnapshot{
		Gameweek: gameweek,
		Points:   make(map[int64]int, len(payload.Elements)),
	}
	for _, element := range payload.Elements {
		if element.ID <= 0 {
			continue
		}
		out.Points[element.ID] = element.Stats.TotalPoints
	}
	return out, nil
}

func (c *Client) GetEntryPicks(ctx context.Context, teamID int64, gameweek int) ([]usecase.ExternalPick, error) {
	if teamID <= 0 || gameweek <= 0 {
		return nil, fmt.Errorf("%w: team id and gameweek must be greater than zero", usecase.ErrInvalidInput)
	}

	var payload entryPicksPayload
	path := fmt.Sprintf("/entry/%d/event/%d/picks/", teamID, gameweek)
	if err := c.doJSON(ctx, "entry_picks", path, nil, 0, &payload); err != nil {
		return nil, err
	}

	out := make([]usecase.ExternalPick, 0, len(payload.Picks))
	for _, pick := range payload.Picks {
		if pick.Element <= 0 {
			continue
		}
		out = append(out, usecase.ExternalPick{
			UnitID:     pick.Element,
			Position:   pick.Position,
			Multiplier: pick.Multiplier,
		})
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, endpoint, path string, query url.Values, retries int, target any) error {
	fullURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	started := time.Now()
	// Callers joining an in-flight request share its breaker admission and outcome.
	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		if c.circuitEnabled {
			if err := c.breaker.Allow(); err != nil {
				c.logger.WarnContext(ctx, "fpl circuit breaker rejected request", "endpoint", endpoint, "state", c.breaker.State())
				return nil, &usecase.UpstreamError{Endpoint: endpoint, Transient: true, Err: errFPLCircuitOpen}
			}
		}

		raw, reqErr := c.executeRequest(ctx, endpoint, fullURL, retries)
		if c.circuitEnabled {
			if reqErr != nil && isCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	metrics.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, outcomeLabel(err)).Inc()
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return &usecase.UpstreamError{Endpoint: endpoint, Err: fmt.Errorf("unexpected response payload type %T", out)}
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "malformed").Inc()
		c.logger.WarnContext(ctx, "fpl payload malformed", "endpoint", endpoint, "url", fullURL, "body", abbreviateBody(raw), "error", err)
		return &usecase.UpstreamError{Endpoint: endpoint, Transient: true, Err: fmt.Errorf("decode provider payload: %w", err)}
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

func (c *Client) executeRequest(ctx context.Context, endpoint, fullURL string, retries int) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, &usecase.UpstreamError{Endpoint: endpoint, Err: fmt.Errorf("build request: %w", err)}
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set("user-agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = &usecase.UpstreamError{Endpoint: endpoint, Transient: true, Err: fmt.Errorf("%w: send request: %v", errFPLTransient, err)}
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = &usecase.UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Transient: true, Err: fmt.Errorf("%w: read response body: %v", errFPLTransient, readErr)}
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = &usecase.UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Transient: true, Err: fmt.Errorf("%w: body=%s", errFPLTransient, abbreviateBody(raw))}
			default:
				return nil, &usecase.UpstreamError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("body=%s", abbreviateBody(raw))}
			}
		}

		if attempt == retries {
			break
		}
		if err := resilience.Sleep(ctx, c.backoff.Delay(attempt)); err != nil {
			return nil, &usecase.UpstreamError{Endpoint: endpoint, Transient: true, Err: err}
		}
	}

	if lastErr == nil {
		lastErr = &usecase.UpstreamError{Endpoint: endpoint, Transient: true, Err: errFPLTransient}
	}
	c.logger.WarnContext(ctx, "fpl request failed", "endpoint", endpoint, "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func isCircuitFailure(err error) bool {
	return err != nil && stderrors.Is(err, errFPLTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func outcomeLabel(err error) string {
	var upstreamErr *usecase.UpstreamError
	if stderrors.As(err, &upstreamErr) {
		switch {
		case upstreamErr.StatusCode == http.StatusNotFound:
			return "not_found"
		case stderrors.Is(upstreamErr.Err, resilience.ErrCircuitOpen):
			return "circuit_open"
		case upstreamErr.Transient:
			return "transient"
		}
	}
	return "failed"
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func parseTime(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	parsed = parsed.UTC()
	return &parsed
}
