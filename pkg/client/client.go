// Package client talks to the credithub ledger endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const creditsPath = "/api/sunrun/credits"

var (
	ErrInvalidRequest         = errors.New("invalid request")
	ErrInsufficientFunds      = errors.New("insufficient credits")
	ErrCodeInvalid            = errors.New("code invalid or already used")
	ErrTicketInvalid          = errors.New("refund ticket invalid or already used")
	ErrCreditFailedAfterClaim = errors.New("code claimed but credit failed")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrStoreNotConfigured     = errors.New("store not configured")
)

// APIError is a non-success envelope returned by the server.
type APIError struct {
	Status  int
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("credithub: %d/%d %s", e.Status, e.Code, e.Message)
}

// Unwrap maps the business code to one of the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case 40901:
		return ErrInsufficientFunds
	case 40902:
		return ErrCodeInvalid
	case 40903:
		return ErrTicketInvalid
	case 50001:
		return ErrCreditFailedAfterClaim
	case 50301:
		return ErrStoreNotConfigured
	}
	switch {
	case e.Status == http.StatusBadRequest:
		return ErrInvalidRequest
	case e.Status >= 500:
		return ErrStoreUnavailable
	}
	return nil
}

type Balance struct {
	UserID        string `json:"userId"`
	Balance       int64  `json:"balance"`
	GrantedAmount int64  `json:"grantedAmount,omitempty"`
	Ticket        string `json:"ticket,omitempty"`
}

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout. It applies to a copy of any client
// passed through WithHTTPClient, never to the caller's client itself.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/")}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.httpClient == nil:
		timeout := c.timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	case c.timeout > 0:
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

func (c *Client) Get(ctx context.Context, userID string) (*Balance, error) {
	return c.call(ctx, request{Action: "get", UserID: userID})
}

// Consume spends one credit. The returned Ticket, when set, must be passed to
// Refund to give the credit back.
func (c *Client) Consume(ctx context.Context, userID string) (*Balance, error) {
	return c.call(ctx, request{Action: "consume", UserID: userID})
}

func (c *Client) Refund(ctx context.Context, userID, ticket string) (*Balance, error) {
	return c.call(ctx, request{Action: "refund", UserID: userID, Ticket: ticket})
}

func (c *Client) Redeem(ctx context.Context, userID, code string) (*Balance, error) {
	return c.call(ctx, request{Action: "redeem", UserID: userID, Code: code})
}

// WithCredit consumes one credit, runs fn, and refunds the credit if fn fails.
// A failed refund is joined to fn's error.
func (c *Client) WithCredit(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	consumed, err := c.Consume(ctx, userID)
	if err != nil {
		return err
	}

	fnErr := fn(ctx)
	if fnErr == nil {
		return nil
	}
	if _, err := c.Refund(context.WithoutCancel(ctx), userID, consumed.Ticket); err != nil {
		return errors.Join(fnErr, fmt.Errorf("refund credit: %w", err))
	}
	return fnErr
}

type request struct {
	Action string `json:"action"`
	UserID string `json:"userId"`
	Code   string `json:"code,omitempty"`
	Ticket string `json:"ticket,omitempty"`
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) call(ctx context.Context, body request) (*Balance, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+creditsPath, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", body.Action, body.UserID, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &APIError{Status: resp.StatusCode, Code: resp.StatusCode, Message: "undecodable response: " + err.Error()}
	}
	if resp.StatusCode != http.StatusOK || env.Code != 0 {
		return nil, &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message, Data: env.Data}
	}

	var bal Balance
	if err := json.Unmarshal(env.Data, &bal); err != nil {
		return nil, fmt.Errorf("decode balance: %w", err)
	}
	return &bal, nil
}
