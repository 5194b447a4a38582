package ledger

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/fantasy-contest/internal/domain/contest"
	"github.com/riskibarqy/fantasy-contest/internal/platform/logging"
	"github.com/riskibarqy/fantasy-contest/internal/platform/metrics"
	"github.com/riskibarqy/fantasy-contest/internal/platform/resilience"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const creditsPath = "/v1/credits"

var (
	errLedgerTransient   = crerr.New("ledger transient failure")
	errLedgerCircuitOpen = crerr.New("ledger circuit breaker open")
)

type ClientConfig struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	Retries        int
	RetryBackoff   time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client posts settled contest payouts to the wallet ledger.
// It implements usecase.PayoutCreditor.
type Client struct {
	http           *fasthttp.Client
	baseURL        string
	token          string
	timeout        time.Duration
	retries        int
	backoff        resilience.Backoff
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewClient(cfg ClientConfig, logger *logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.Default()
	}
	baseURL, err := validateHTTPBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, crerr.Wrap(err, "invalid LEDGER_BASE_URL")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	breakerCfg := cfg.CircuitBreaker.Normalized()
	breaker := resilience.NewNamedCircuitBreaker("ledger", breakerCfg)
	breaker.OnStateChange(func(name string, _, to resilience.CircuitState) {
		metrics.ObserveCircuitState(name, string(to))
	})

	return &Client{
		http: &fasthttp.Client{
			Name:                "fantasy-contest-ledger",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		timeout:        timeout,
		retries:        max(cfg.Retries, 0),
		backoff:        resilience.Backoff{Base: backoff, Max: 8 * backoff},
		logger:         logger,
		breaker:        breaker,
		circuitEnabled: breakerCfg.Enabled,
	}, nil
}

type creditRequest struct {
	Reference string       `json:"reference"`
	Reason    string       `json:"reason"`
	Credits   []creditLine `json:"credits"`
}

type creditLine struct {
	EntryID string  `json:"entry_id"`
	TeamID  int64   `json:"team_id"`
	Amount  float64 `json:"amount"`
}

// CreditPayouts is safe to repeat: the ledger deduplicates on the contest idempotency key.
func (c *Client) CreditPayouts(ctx context.Context, contestID string, payouts []contest.Payout) error {
	contestID = strings.TrimSpace(contestID)
	if contestID == "" {
		return crerr.New("contest id is required")
	}
	if len(payouts) == 0 {
		return nil
	}

	payload := creditRequest{
		Reference: contestID,
		Reason:    "contest_payout",
		Credits:   make([]creditLine, 0, len(payouts)),
	}
	for _, p := range payouts {
		payload.Credits = append(payload.Credits, creditLine{EntryID: p.EntryID, TeamID: p.TeamID, Amount: p.Amount})
	}
	body, err := sonic.Marshal(payload)
	if err != nil {
		return crerr.Wrap(err, "marshal ledger credits")
	}

	endpoint := c.baseURL + creditsPath
	key := IdempotencyKey(contestID)
	curlPreview := buildCurlPreview(endpoint, key, truncateForLog(string(body), 4096))

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("ledger.url", endpoint),
			attribute.String("ledger.idempotency_key", key),
			attribute.Int("ledger.credits", len(payouts)),
			attribute.String("ledger.request_curl_preview", curlPreview),
		)
	}
	c.logger.DebugContext(ctx, "ledger credit request", "contest_id", contestID, "credits", len(payouts), "curl_preview", curlPreview)

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := resilience.Sleep(ctx, c.backoff.Delay(attempt-1)); err != nil {
				return fmt.Errorf("credit contest=%s: %w", contestID, err)
			}
		}

		lastErr = c.post(ctx, endpoint, key, body)
		if lastErr == nil {
			c.logger.InfoContext(ctx, "ledger credits accepted", "contest_id", contestID, "credits", len(payouts), "attempts", attempt+1)
			return nil
		}
		if !stderrors.Is(lastErr, errLedgerTransient) {
			break
		}
	}
	return fmt.Errorf("credit contest=%s: %w", contestID, lastErr)
}

func (c *Client) post(ctx context.Context, endpoint, idempotencyKey string, body []byte) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "ledger circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: %w", errLedgerCircuitOpen, err)
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.SetBody(body)

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	var callErr error
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		callErr = fmt.Errorf("%w: post credits: %v", errLedgerTransient, err)
	} else if status := resp.StatusCode(); status/100 != 2 {
		raw := truncateForLog(strings.TrimSpace(string(resp.Body())), 1024)
		if isRetryableStatus(status) {
			callErr = fmt.Errorf("%w: ledger status=%d body=%s", errLedgerTransient, status, raw)
		} else {
			callErr = fmt.Errorf("ledger status=%d body=%s", status, raw)
		}
	}
	c.recordCircuitResult(callErr)
	return callErr
}

// IdempotencyKey scopes ledger deduplication to one contest settlement.
func IdempotencyKey(contestID string) string {
	return "contest-payout:" + contestID
}

func (c *Client) recordCircuitResult(err error) {
	if !c.circuitEnabled || c.breaker == nil {
		return
	}
	if err != nil && stderrors.Is(err, errLedgerTransient) {
		c.breaker.RecordFailure()
		return
	}
	c.breaker.RecordSuccess()
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}

func validateHTTPBaseURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}
	return strings.TrimRight(candidate, "/"), nil
}

func buildCurlPreview(endpoint, idempotencyKey, body string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	appendPart := func(part string) {
		if buf.Len() > 0 {
			_ = buf.WriteByte(' ')
		}
		_, _ = buf.WriteString(part)
	}
	appendHeader := func(value string) {
		appendPart("-H")
		appendPart(shellQuote(value))
	}

	appendPart("curl")
	appendPart("-X")
	appendPart("POST")
	appendPart(shellQuote(endpoint))
	appendHeader("Authorization: Bearer ***")
	appendHeader("Content-Type: application/json")
	appendHeader("Idempotency-Key: " + idempotencyKey)
	appendPart("-d")
	appendPart(shellQuote(body))
	appendPart("#")
	appendPart(shellQuote("bytes=" + strconv.Itoa(len(body))))

	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}

func truncateForLog(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	return value[:limit] + "...(truncated)"
}
