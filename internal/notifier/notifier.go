package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oshokin/geo-guardian/internal/config"
)

// Gateway sends texts and places calls through an SMS/voice provider's
// form-encoded HTTP API.
type Gateway struct {
	baseURL    string
	accountID  string
	authToken  string
	fromNumber string
	httpClient *http.Client
}

// NewGateway creates a gateway client with a bounded request timeout.
func NewGateway(cfg config.Notifier, timeout time.Duration) *Gateway {
	return &Gateway{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		accountID:  cfg.AccountID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SendText dispatches one outbound message.
func (g *Gateway) SendText(ctx context.Context, to, body string) error {
	form := url.Values{
		"To":   {to},
		"From": {g.fromNumber},
		"Body": {body},
	}

	if err := g.post(ctx, "/Messages", form); err != nil {
		return fmt.Errorf("send text: %w", err)
	}

	return nil
}

// PlaceCall places one outbound voice call that speaks the fixed script.
func (g *Gateway) PlaceCall(ctx context.Context, to, script string) error {
	form := url.Values{
		"To":     {to},
		"From":   {g.fromNumber},
		"Script": {script},
	}

	if err := g.post(ctx, "/Calls", form); err != nil {
		return fmt.Errorf("place call: %w", err)
	}

	return nil
}

// post submits one form-encoded request and fails on non-2xx responses.
func (g *Gateway) post(ctx context.Context, path string, form url.Values) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s%s", g.baseURL, g.accountID, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(g.accountID, g.authToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// Keep a snippet of the body for the log line.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))

		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	return nil
}
