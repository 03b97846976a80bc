package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/healingbudsglobal/walletgate/adapters/metrics"
	"github.com/healingbudsglobal/walletgate/core"
	"github.com/healingbudsglobal/walletgate/ports"
)

// AuthService handles the wallet authentication handshake: challenge
// issuance, signature verification with asset gating, exchange token
// redemption and session lifecycle.
type AuthService struct {
	challenges  ports.ChallengeStore
	exchanges   ports.ExchangeTokenStore
	identities  ports.IdentityStore
	revocations ports.RevocationStore
	verifier    ports.SignatureVerifier
	oracle      ports.OwnershipOracle
	limiter     ports.RateLimiter
	tokenizer   ports.Tokenizer
	eventPub    ports.EventPublisher

	appName  string
	policies map[core.Purpose]core.PurposePolicy

	challengeTTL time.Duration
	exchangeTTL  time.Duration
	accessTTL    time.Duration
	refreshTTL   time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Deps bundles the required collaborators of an AuthService.
type Deps struct {
	Challenges  ports.ChallengeStore
	Exchanges   ports.ExchangeTokenStore
	Identities  ports.IdentityStore
	Revocations ports.RevocationStore
	Verifier    ports.SignatureVerifier
	Oracle      ports.OwnershipOracle
	Limiter     ports.RateLimiter
	Tokenizer   ports.Tokenizer
	EventPub    ports.EventPublisher
}

// Option configures optional service behavior.
type Option func(s *AuthService)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *AuthService) { s.logger = logger }
}

// WithMetrics attaches Prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *AuthService) { s.metrics = m }
}

// WithPolicies overrides the purpose policy table.
func WithPolicies(policies map[core.Purpose]core.PurposePolicy) Option {
	return func(s *AuthService) { s.policies = policies }
}

// WithTTLs overrides the default lifetimes.
func WithTTLs(challenge, exchange, access, refresh time.Duration) Option {
	return func(s *AuthService) {
		s.challengeTTL = challenge
		s.exchangeTTL = exchange
		s.accessTTL = access
		s.refreshTTL = refresh
	}
}

// WithClock overrides the time source. Tests use it to exercise expiry.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService creates a new authentication service
func NewAuthService(appName string, deps Deps, opts ...Option) *AuthService {
	s := &AuthService{
		challenges:   deps.Challenges,
		exchanges:    deps.Exchanges,
		identities:   deps.Identities,
		revocations:  deps.Revocations,
		verifier:     deps.Verifier,
		oracle:       deps.Oracle,
		limiter:      deps.Limiter,
		tokenizer:    deps.Tokenizer,
		eventPub:     deps.EventPub,
		appName:      appName,
		policies:     core.DefaultPurposePolicies,
		challengeTTL: 5 * time.Minute,
		exchangeTTL:  2 * time.Minute,
		accessTTL:    5 * time.Minute,
		refreshTTL:   5 * 24 * time.Hour, // 5 days
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignInMessage renders the message the wallet is asked to sign for a
// challenge. Client and verifier build the exact same bytes.
func (s *AuthService) SignInMessage(challenge *core.Challenge) string {
	return core.SignInMessage(s.appName, challenge.Address, challenge.Purpose, challenge.Nonce, challenge.IssuedAt)
}

// CreateChallenge generates a new authentication challenge for (address,
// purpose), replacing any outstanding one for the same pair.
func (s *AuthService) CreateChallenge(ctx context.Context, address, purpose string) (*core.Challenge, error) {
	if !common.IsHexAddress(address) {
		return nil, core.ErrInvalidAddress
	}
	p, err := core.ParsePurpose(purpose)
	if err != nil {
		return nil, err
	}
	if _, ok := s.policies[p]; !ok {
		return nil, core.ErrInvalidPurpose
	}

	addr := core.NormalizeAddress(address)

	allowed, err := s.limiter.Allow(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !allowed {
		return nil, core.ErrRateLimited
	}

	// 32 bytes of entropy, well past the 128-bit floor.
	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.now()
	challenge := &core.Challenge{
		ID:        uuid.New().String(),
		Address:   addr,
		Purpose:   p,
		Nonce:     hex.EncodeToString(nonceBytes),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.challengeTTL),
	}

	if err := s.challenges.Put(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ChallengesIssued.WithLabelValues(string(p)).Inc()
	}
	s.logger.Debug("challenge issued", "address", addr, "purpose", string(p))

	return challenge, nil
}

// Verify validates a signed challenge and, for gated purposes, the signer's
// holdings; on success it mints a one-time session-exchange token.
//
// The order is fixed: challenge state, then signature recovery, then the
// atomic consume, then the ownership query. Forged requests never reach the
// chain, and the replay window closes before any external call.
func (s *AuthService) Verify(ctx context.Context, message, signature, address, purpose string) (*core.ExchangeToken, *core.Identity, error) {
	if !common.IsHexAddress(address) {
		return nil, nil, s.verifyFailed(core.ErrInvalidAddress)
	}
	p, err := core.ParsePurpose(purpose)
	if err != nil {
		return nil, nil, s.verifyFailed(err)
	}
	policy, ok := s.policies[p]
	if !ok {
		return nil, nil, s.verifyFailed(core.ErrInvalidPurpose)
	}

	addr := core.NormalizeAddress(address)
	now := s.now()

	challenge, err := s.challenges.Get(ctx, addr, p)
	if err != nil {
		return nil, nil, s.verifyFailed(err)
	}
	if challenge.Consumed {
		return nil, nil, s.verifyFailed(core.ErrNonceAlreadyConsumed)
	}
	if challenge.Expired(now) {
		return nil, nil, s.verifyFailed(core.ErrNonceExpired)
	}

	// The signature only counts over the exact issued bytes. A message that
	// deviates, including one built from a replaced nonce, references a
	// challenge that no longer exists.
	expected := s.SignInMessage(challenge)
	if message != expected {
		return nil, nil, s.verifyFailed(core.ErrNonceNotFound)
	}
	if err := s.verifier.Verify(message, signature, addr); err != nil {
		return nil, nil, s.verifyFailed(err)
	}

	// Close the replay window before the ownership query; a concurrent
	// verification of the same nonce fails here.
	if _, err := s.challenges.Consume(ctx, addr, p, challenge.Nonce, now); err != nil {
		return nil, nil, s.verifyFailed(err)
	}

	if policy.RequiresHolding {
		holds, err := s.oracle.HoldsGatingAsset(ctx, addr)
		if err != nil {
			s.logger.Error("ownership query failed", "address", addr, "error", err)
			return nil, nil, s.verifyFailed(fmt.Errorf("failed to query holdings: %w", err))
		}
		if !holds {
			return nil, nil, s.verifyFailed(core.ErrAccessDenied)
		}
	}

	identity, err := s.findOrCreateIdentity(ctx, addr, now)
	if err != nil {
		return nil, nil, s.verifyFailed(err)
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, nil, s.verifyFailed(fmt.Errorf("failed to generate exchange token: %w", err))
	}

	exchange := &core.ExchangeToken{
		Token:      hex.EncodeToString(tokenBytes),
		Address:    addr,
		IdentityID: identity.ID,
		Purpose:    p,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.exchangeTTL),
	}
	if err := s.exchanges.Put(ctx, exchange); err != nil {
		return nil, nil, s.verifyFailed(fmt.Errorf("failed to store exchange token: %w", err))
	}

	if s.metrics != nil {
		s.metrics.Verifications.WithLabelValues("success").Inc()
	}
	s.logger.Info("wallet verified", "address", addr, "purpose", string(p))

	return exchange, identity, nil
}

// Redeem exchanges a one-time token for a durable session. Redemption is
// atomic; a second attempt with the same token fails.
func (s *AuthService) Redeem(ctx context.Context, token string) (accessToken, refreshToken string, session *core.Session, err error) {
	now := s.now()

	exchange, err := s.exchanges.Redeem(ctx, token, now)
	if err != nil {
		s.countRedemption("rejected")
		return "", "", nil, fmt.Errorf("exchange token rejected: %w", core.ErrSessionCreationFailed)
	}

	identity, err := s.identities.FindByID(ctx, exchange.IdentityID)
	if err != nil {
		s.countRedemption("error")
		return "", "", nil, fmt.Errorf("identity lookup failed: %w", core.ErrSessionCreationFailed)
	}

	session = &core.Session{
		ID:            uuid.New().String(),
		Address:       exchange.Address,
		IdentityID:    identity.ID,
		Role:          identity.Role,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err = s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		s.countRedemption("error")
		return "", "", nil, fmt.Errorf("failed to create access token: %w", core.ErrSessionCreationFailed)
	}
	refreshToken, err = s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		s.countRedemption("error")
		return "", "", nil, fmt.Errorf("failed to create refresh token: %w", core.ErrSessionCreationFailed)
	}

	// Cross-instance notification only; the session already exists.
	if err := s.eventPub.PublishLogin(ctx, session.Address, session.IdentityID); err != nil {
		s.logger.Warn("failed to publish login event", "error", err)
	}

	s.countRedemption("success")
	s.logger.Info("session established", "address", session.Address, "identity", session.IdentityID)

	return accessToken, refreshToken, session, nil
}

// Refresh rotates the refresh token and issues new access and refresh tokens
func (s *AuthService) Refresh(ctx context.Context, refreshTokenStr string) (string, string, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", err)
	}

	now := s.now()
	if now.After(session.RefreshExpiry) {
		return "", "", core.ErrTokenExpired
	}

	if err := s.checkRevocations(ctx, session); err != nil {
		return "", "", err
	}

	// Invalidate the old refresh token for the remainder of its life.
	remaining := session.RefreshExpiry.Sub(now)
	if err := s.revocations.InvalidateToken(ctx, session.RefreshID, remaining); err != nil {
		return "", "", fmt.Errorf("failed to invalidate old token: %w", err)
	}

	// Role is re-read so a demoted identity cannot keep refreshing an
	// admin session.
	identity, err := s.identities.FindByID(ctx, session.IdentityID)
	if err != nil {
		return "", "", fmt.Errorf("identity lookup failed: %w", err)
	}

	newSession := &core.Session{
		ID:            uuid.New().String(),
		Address:       session.Address,
		IdentityID:    identity.ID,
		Role:          identity.Role,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(newSession)
	if err != nil {
		return "", "", fmt.Errorf("failed to create new access token: %w", err)
	}
	refreshToken, err := s.tokenizer.SessionToRefreshToken(newSession)
	if err != nil {
		return "", "", fmt.Errorf("failed to create new refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// Logout invalidates a refresh token
func (s *AuthService) Logout(ctx context.Context, refreshTokenStr string) error {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return fmt.Errorf("invalid refresh token: %w", err)
	}

	// Even an expired token gets an invalidation record, with a floor so
	// clock skew cannot resurrect it.
	remaining := session.RefreshExpiry.Sub(s.now())
	if remaining < time.Hour {
		remaining = time.Hour
	}

	if err := s.revocations.InvalidateToken(ctx, session.RefreshID, remaining); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	// The token is already invalidated; the event is best effort.
	if err := s.eventPub.PublishLogout(ctx, session.Address, session.RefreshID); err != nil {
		s.logger.Warn("failed to publish logout event", "error", err)
	}

	return nil
}

// ValidateAccessToken parses and validates an access token, returning the
// session it carries.
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	if s.now().After(session.AccessExpiry) {
		return nil, core.ErrTokenExpired
	}

	if err := s.checkRevocations(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// RevokeAddress invalidates every session for an address until the longest
// outstanding refresh token would have expired. Used when the address loses
// the gating asset.
func (s *AuthService) RevokeAddress(ctx context.Context, address string) error {
	if err := s.revocations.RevokeAddress(ctx, core.NormalizeAddress(address), s.refreshTTL); err != nil {
		return fmt.Errorf("failed to revoke address: %w", err)
	}
	return nil
}

// checkRevocations rejects sessions whose refresh token or whole address
// has been revoked.
func (s *AuthService) checkRevocations(ctx context.Context, session *core.Session) error {
	if session.RefreshID != "" {
		invalidated, err := s.revocations.IsTokenInvalidated(ctx, session.RefreshID)
		if err != nil {
			return fmt.Errorf("failed to check token invalidation: %w", err)
		}
		if invalidated {
			return core.ErrTokenInvalidated
		}
	}

	revoked, err := s.revocations.IsAddressRevoked(ctx, session.Address)
	if err != nil {
		return fmt.Errorf("failed to check address revocation: %w", err)
	}
	if revoked {
		return core.ErrTokenInvalidated
	}
	return nil
}

// findOrCreateIdentity resolves the identity record a verified wallet
// attaches to, creating a fresh unverified patient record on first contact.
func (s *AuthService) findOrCreateIdentity(ctx context.Context, address string, now time.Time) (*core.Identity, error) {
	identity, err := s.identities.FindByAddress(ctx, address)
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, core.ErrIdentityNotFound) {
		return nil, fmt.Errorf("identity lookup failed: %w", err)
	}

	identity = &core.Identity{
		ID:        uuid.New().String(),
		Address:   address,
		Role:      core.RolePatient,
		CreatedAt: now,
	}
	if err := s.identities.Save(ctx, identity); err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}
	return identity, nil
}

// verifyFailed counts a verification failure by its error kind.
func (s *AuthService) verifyFailed(err error) error {
	if s.metrics != nil {
		s.metrics.Verifications.WithLabelValues(verifyResultLabel(err)).Inc()
	}
	return err
}

func verifyResultLabel(err error) string {
	switch {
	case errors.Is(err, core.ErrNonceNotFound):
		return "nonce_not_found"
	case errors.Is(err, core.ErrNonceExpired):
		return "nonce_expired"
	case errors.Is(err, core.ErrNonceAlreadyConsumed):
		return "nonce_already_consumed"
	case errors.Is(err, core.ErrSignatureMismatch):
		return "signature_mismatch"
	case errors.Is(err, core.ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, core.ErrInvalidAddress), errors.Is(err, core.ErrInvalidPurpose):
		return "invalid_input"
	default:
		return "error"
	}
}

func (s *AuthService) countRedemption(result string) {
	if s.metrics != nil {
		s.metrics.Redemptions.WithLabelValues(result).Inc()
	}
}
