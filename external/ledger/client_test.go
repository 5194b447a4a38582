package ledger

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/fantasy-contest/internal/domain/contest"
	"github.com/riskibarqy/fantasy-contest/internal/platform/logging"
	"github.com/riskibarqy/fantasy-contest/internal/platform/resilience"
)

type recordedRequest struct {
	path           string
	authorization  string
	idempotencyKey string
	body           creditRequest
}

func newLedgerServer(t *testing.T, statuses ...int) (*httptest.Server, func() []recordedRequest) {
	t.Helper()

	var (
		mu       sync.Mutex
		requests []recordedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body creditRequest
		if err := sonic.Unmarshal(raw, &body); err != nil {
			t.Errorf("decode ledger body: %v", err)
		}

		mu.Lock()
		requests = append(requests, recordedRequest{
			path:           r.URL.Path,
			authorization:  r.Header.Get("Authorization"),
			idempotencyKey: r.Header.Get("Idempotency-Key"),
			body:           body,
		})
		status := http.StatusAccepted
		if n := len(requests); n <= len(statuses) {
			status = statuses[n-1]
		}
		mu.Unlock()

		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	return server, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), requests...)
	}
}

func newTestLedgerClient(t *testing.T, baseURL string, retries int) *Client {
	t.Helper()

	client, err := NewClient(ClientConfig{
		BaseURL:        baseURL,
		Token:          "ledger-secret",
		Timeout:        2 * time.Second,
		Retries:        retries,
		RetryBackoff:   time.Millisecond,
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("new ledger client: %v", err)
	}
	return client
}

func TestClient_CreditPayouts_SendsIdempotentRequest(t *testing.T) {
	t.Parallel()

	server, requests := newLedgerServer(t)
	client := newTestLedgerClient(t, server.URL, 0)

	err := client.CreditPayouts(context.Background(), "gw3-classic", []contest.Payout{
		{EntryID: "e1", TeamID: 1, Amount: 900},
		{EntryID: "e2", TeamID: 2, Amount: 540},
	})
	if err != nil {
		t.Fatalf("credit payouts: %v", err)
	}

	got := requests()
	if len(got) != 1 {
		t.Fatalf("unexpected request count: %d", len(got))
	}
	req := got[0]
	if req.path != creditsPath {
		t.Fatalf("unexpected path: %s", req.path)
	}
	if req.authorization != "Bearer ledger-secret" {
		t.Fatalf("unexpected authorization header: %q", req.authorization)
	}
	if req.idempotencyKey != "contest-payout:gw3-classic" {
		t.Fatalf("unexpected idempotency key: %q", req.idempotencyKey)
	}
	if req.body.Reference != "gw3-classic" || len(req.body.Credits) != 2 || req.body.Credits[0].Amount != 900 {
		t.Fatalf("unexpected body: %+v", req.body)
	}
}

func TestClient_CreditPayouts_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	server, requests := newLedgerServer(t, http.StatusServiceUnavailable, http.StatusBadGateway)
	client := newTestLedgerClient(t, server.URL, 2)

	if err := client.CreditPayouts(context.Background(), "c1", []contest.Payout{{EntryID: "e1", Amount: 10}}); err != nil {
		t.Fatalf("credit payouts: %v", err)
	}

	got := requests()
	if len(got) != 3 {
		t.Fatalf("unexpected request count: got=%d want=3", len(got))
	}
	for _, req := range got {
		if req.idempotencyKey != "contest-payout:c1" {
			t.Fatalf("retries must reuse the idempotency key, got %q", req.idempotencyKey)
		}
	}
}

func TestClient_CreditPayouts_DoesNotRetryRejection(t *testing.T) {
	t.Parallel()

	server, requests := newLedgerServer(t, http.StatusUnprocessableEntity)
	client := newTestLedgerClient(t, server.URL, 3)

	err := client.CreditPayouts(context.Background(), "c1", []contest.Payout{{EntryID: "e1", Amount: 10}})
	if err == nil || !strings.Contains(err.Error(), "status=422") {
		t.Fatalf("expected rejection error, got %v", err)
	}
	if n := len(requests()); n != 1 {
		t.Fatalf("rejection must not be retried, got %d requests", n)
	}
}

func TestClient_CreditPayouts_EmptyIsNoop(t *testing.T) {
	t.Parallel()

	server, requests := newLedgerServer(t)
	client := newTestLedgerClient(t, server.URL, 0)

	if err := client.CreditPayouts(context.Background(), "c1", nil); err != nil {
		t.Fatalf("credit payouts: %v", err)
	}
	if n := len(requests()); n != 0 {
		t.Fatalf("empty payouts must not call the ledger, got %d requests", n)
	}
}

func TestNewClient_RejectsInvalidBaseURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "ftp://ledger.local", "http://"} {
		if _, err := NewClient(ClientConfig{BaseURL: raw}, logging.NewNop()); err == nil {
			t.Fatalf("expected error for base url %q", raw)
		}
	}
}

func TestBuildCurlPreview_MasksToken(t *testing.T) {
	t.Parallel()

	got := buildCurlPreview("https://ledger.local/v1/credits", "contest-payout:c1", `{"reference":"c'1"}`)
	if strings.Contains(got, "ledger-secret") {
		t.Fatalf("preview leaked token: %s", got)
	}
	for _, want := range []string{"Authorization: Bearer ***", "Idempotency-Key: contest-payout:c1", `'{"reference":"c'"'"'1"}'`} {
		if !strings.Contains(got, want) {
			t.Fatalf("preview missing %q: %s", want, got)
		}
	}
}
