package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// PointLedger applies reward point deltas to the external user ledger.
type PointLedger interface {
	ApplyPointDelta(ctx context.Context, userID model.UserID, delta int) error
}

// ledgerClient implements PointLedger against the ledger service HTTP
// endpoint.
type ledgerClient struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// LedgerOption is a functional option for the ledger client.
type LedgerOption func(*ledgerClient)

// WithLedgerHTTPClient overrides the HTTP client, mainly for tests.
func WithLedgerHTTPClient(c *http.Client) LedgerOption {
	return func(l *ledgerClient) {
		l.httpClient = c
	}
}

// NewLedger creates a PointLedger calling the given endpoint with a
// bearer token.
func NewLedger(endpoint, token string, opts ...LedgerOption) PointLedger {
	l := &ledgerClient{
		endpoint:   endpoint,
		token:      token,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *ledgerClient) ApplyPointDelta(ctx context.Context, userID model.UserID, delta int) error {
	body, err := json.Marshal(map[string]any{
		"user_id": userID,
		"delta":   delta,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to marshal ledger request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
	if err != nil {
		return goerr.Wrap(err, "failed to build ledger request")
	}
	req.Header.Set("Content-Type", "application/json")
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to call point ledger", goerr.T(model.ErrTagProvider))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return goerr.New("point ledger rejected delta",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(msg)),
			goerr.V("user_id", userID),
			goerr.T(model.ErrTagProvider))
	}

	return nil
}
