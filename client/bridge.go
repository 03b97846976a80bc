package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// State is the position of the bridge in the authentication flow.
type State int

const (
	StateIdle State = iota
	StateRequestingNonce
	StateAwaitingSignature
	StateVerifying
	StateRedeeming
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequestingNonce:
		return "requesting_nonce"
	case StateAwaitingSignature:
		return "awaiting_signature"
	case StateVerifying:
		return "verifying"
	case StateRedeeming:
		return "redeeming"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// ErrUserRejected is returned by a Signer when the user declines the
// signature prompt. The bridge treats it as a silent abort, not a failure.
var ErrUserRejected = errors.New("user rejected signature request")

// Signer is the wallet half of the handshake.
type Signer interface {
	// Address returns the wallet address the signer controls.
	Address() string
	// SignMessage asks the wallet to sign the exact message bytes. It
	// returns ErrUserRejected when the user declines.
	SignMessage(ctx context.Context, message string) (string, error)
}

// Session holds the tokens of an established session.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// SessionCreationError reports a redemption the server refused. The
// handshake up to that point succeeded; retrying requires a fresh nonce.
type SessionCreationError struct {
	StatusCode int
	Message    string
}

func (e *SessionCreationError) Error() string {
	return fmt.Sprintf("session creation failed (%d): %s", e.StatusCode, e.Message)
}

// APIError is any other non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Option configures a Bridge.
type Option func(b *Bridge)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(b *Bridge) { b.httpClient = httpClient }
}

// WithBridgeLogger attaches a structured logger.
func WithBridgeLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// Bridge drives the wallet authentication flow against a gate server:
// request nonce, collect signature, verify, redeem. One flow runs at a
// time; a second Authenticate call while one is in flight fails.
type Bridge struct {
	baseURL    string
	signer     Signer
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.Mutex
	state State
}

// New creates a bridge for the gate server at baseURL.
func New(baseURL string, signer Signer, opts ...Option) *Bridge {
	b := &Bridge{
		baseURL:    baseURL,
		signer:     signer,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the current flow state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bridge) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// begin moves Idle to RequestingNonce, rejecting concurrent flows.
func (b *Bridge) begin() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateIdle && b.state != StateAuthenticated {
		return fmt.Errorf("authentication already in progress (state %s)", b.state)
	}
	b.state = StateRequestingNonce
	return nil
}

// Authenticate runs the full handshake for the given purpose.
//
// A user rejection of the signature prompt returns (nil, nil): the flow
// resets silently and the caller shows no error. Any other failure resets
// the flow and returns the error.
func (b *Bridge) Authenticate(ctx context.Context, purpose string) (*Session, error) {
	if err := b.begin(); err != nil {
		return nil, err
	}

	session, err := b.run(ctx, purpose)
	if err != nil {
		b.setState(StateIdle)
		if errors.Is(err, ErrUserRejected) {
			b.logger.Debug("signature request declined")
			return nil, nil
		}
		return nil, err
	}

	b.setState(StateAuthenticated)
	return session, nil
}

func (b *Bridge) run(ctx context.Context, purpose string) (*Session, error) {
	address := b.signer.Address()

	var nonceResp struct {
		Message string `json:"message"`
		Nonce   string `json:"nonce"`
	}
	err := b.post(ctx, "/auth/nonce", map[string]string{
		"address": address,
		"purpose": purpose,
	}, &nonceResp)
	if err != nil {
		return nil, fmt.Errorf("nonce request failed: %w", err)
	}

	b.setState(StateAwaitingSignature)

	signature, err := b.signer.SignMessage(ctx, nonceResp.Message)
	if err != nil {
		return nil, err
	}
	// A signature that arrives after cancellation is discarded; the nonce
	// stays unconsumed on the server until it expires.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.setState(StateVerifying)

	var verifyResp struct {
		ExchangeToken string `json:"exchange_token"`
	}
	err = b.post(ctx, "/auth/verify", map[string]string{
		"message":   nonceResp.Message,
		"signature": signature,
		"address":   address,
		"purpose":   purpose,
	}, &verifyResp)
	if err != nil {
		return nil, fmt.Errorf("verification failed: %w", err)
	}

	b.setState(StateRedeeming)

	var redeemResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	err = b.post(ctx, "/auth/redeem", map[string]string{
		"exchange_token": verifyResp.ExchangeToken,
	}, &redeemResp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, &SessionCreationError{StatusCode: apiErr.StatusCode, Message: apiErr.Message}
		}
		return nil, fmt.Errorf("redemption failed: %w", err)
	}

	return &Session{
		AccessToken:  redeemResp.AccessToken,
		RefreshToken: redeemResp.RefreshToken,
		ExpiresIn:    redeemResp.ExpiresIn,
	}, nil
}

// Refresh rotates a session's tokens.
func (b *Bridge) Refresh(ctx context.Context, session *Session) (*Session, error) {
	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	err := b.post(ctx, "/auth/refresh", map[string]string{
		"refresh_token": session.RefreshToken,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("refresh failed: %w", err)
	}
	return &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}, nil
}

// Logout invalidates the session server side and resets the bridge.
func (b *Bridge) Logout(ctx context.Context, session *Session) error {
	err := b.post(ctx, "/auth/logout", map[string]string{
		"refresh_token": session.RefreshToken,
	}, nil)
	if err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	b.setState(StateIdle)
	return nil
}

// post sends a JSON body and decodes a JSON response. Non-2xx responses
// become APIError with the server's error message.
func (b *Bridge) post(ctx context.Context, path string, body map[string]string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &errBody)
		return &APIError{StatusCode: resp.StatusCode, Message: errBody.Error}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
