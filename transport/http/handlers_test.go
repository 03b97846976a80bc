package http

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/healingbudsglobal/walletgate/adapters/eth"
	"github.com/healingbudsglobal/walletgate/adapters/oracle"
	"github.com/healingbudsglobal/walletgate/adapters/ratelimit"
	"github.com/healingbudsglobal/walletgate/adapters/store"
	"github.com/healingbudsglobal/walletgate/adapters/tokenizer"
	"github.com/healingbudsglobal/walletgate/core"
	"github.com/healingbudsglobal/walletgate/ports"
	"github.com/healingbudsglobal/walletgate/service"
)

type nullPublisher struct{}

func (nullPublisher) PublishLogin(ctx context.Context, address, identityID string) error { return nil }
func (nullPublisher) PublishLogout(ctx context.Context, address, tokenID string) error  { return nil }
func (nullPublisher) PublishHoldingsLost(ctx context.Context, address string) error     { return nil }

var _ ports.EventPublisher = nullPublisher{}

type routerFixture struct {
	router     *gin.Engine
	identities *store.MemoryIdentityStore
	oracle     *oracle.StaticOracle
	key        *ecdsa.PrivateKey
	address    string
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	address := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	identities := store.NewMemoryIdentityStore()
	chain := oracle.NewStaticOracle(address)

	svc := service.NewAuthService("Healing Buds", service.Deps{
		Challenges:  store.NewMemoryChallengeStore(),
		Exchanges:   store.NewMemoryExchangeStore(),
		Identities:  identities,
		Revocations: store.NewMemoryRevocationStore(),
		Verifier:    eth.PersonalSignVerifier{},
		Oracle:      chain,
		Limiter:     ratelimit.NewMemoryLimiter(100, time.Minute),
		Tokenizer:   tokenizer.NewJWTTokenizer(signKey),
		EventPub:    nullPublisher{},
	})

	router := SetupRouter(RouterConfig{
		AuthService: svc,
		Gate:        service.NewGate(identities),
		AccessTTL:   5 * time.Minute,
	})

	return &routerFixture{
		router:     router,
		identities: identities,
		oracle:     chain,
		key:        key,
		address:    address,
	}
}

func (f *routerFixture) post(t *testing.T, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *routerFixture) get(t *testing.T, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// handshake runs nonce, verify and redeem, returning the session tokens.
func (f *routerFixture) handshake(t *testing.T) (access, refresh string) {
	t.Helper()

	w := f.post(t, "/auth/nonce", gin.H{"address": f.address, "purpose": "login"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	nonceBody := decodeBody(t, w)
	message := nonceBody["message"].(string)

	signature, err := eth.SignMessage(message, f.key)
	require.NoError(t, err)

	w = f.post(t, "/auth/verify", gin.H{
		"message":   message,
		"signature": signature,
		"address":   f.address,
		"purpose":   "login",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	verifyBody := decodeBody(t, w)

	w = f.post(t, "/auth/redeem", gin.H{"exchange_token": verifyBody["exchange_token"]}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	redeemBody := decodeBody(t, w)

	return redeemBody["access_token"].(string), redeemBody["refresh_token"].(string)
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestNonceEndpoint(t *testing.T) {
	f := newRouterFixture(t)

	w := f.post(t, "/auth/nonce", gin.H{"address": f.address, "purpose": "login"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	require.Equal(t, core.NormalizeAddress(f.address), body["address"])
	require.Equal(t, "login", body["purpose"])
	require.NotEmpty(t, body["nonce"])
	require.Contains(t, body["message"], body["nonce"])
}

func TestNonceEndpointRejectsBadInput(t *testing.T) {
	f := newRouterFixture(t)

	cases := []struct {
		name string
		body gin.H
		code int
	}{
		{"missing purpose", gin.H{"address": f.address}, http.StatusBadRequest},
		{"bad address", gin.H{"address": "not-an-address", "purpose": "login"}, http.StatusBadRequest},
		{"unknown purpose", gin.H{"address": f.address, "purpose": "root"}, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.post(t, "/auth/nonce", tc.body, nil)
			require.Equal(t, tc.code, w.Code)
		})
	}
}

func TestFullHandshake(t *testing.T) {
	f := newRouterFixture(t)

	access, _ := f.handshake(t)

	w := f.get(t, "/api/me", bearer(access))
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	require.Equal(t, core.NormalizeAddress(f.address), body["address"])
	require.Equal(t, "patient", body["role"])
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	f := newRouterFixture(t)

	w := f.post(t, "/auth/nonce", gin.H{"address": f.address, "purpose": "login"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	message := decodeBody(t, w)["message"].(string)

	otherKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	signature, err := eth.SignMessage(message, otherKey)
	require.NoError(t, err)

	w = f.post(t, "/auth/verify", gin.H{
		"message":   message,
		"signature": signature,
		"address":   f.address,
		"purpose":   "login",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyWithoutChallenge(t *testing.T) {
	f := newRouterFixture(t)

	signature, err := eth.SignMessage("unrelated", f.key)
	require.NoError(t, err)

	w := f.post(t, "/auth/verify", gin.H{
		"message":   "unrelated",
		"signature": signature,
		"address":   f.address,
		"purpose":   "login",
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyDeniesNonHolder(t *testing.T) {
	f := newRouterFixture(t)
	f.oracle.SetHolder(f.address, false)

	w := f.post(t, "/auth/nonce", gin.H{"address": f.address, "purpose": "login"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	message := decodeBody(t, w)["message"].(string)

	signature, err := eth.SignMessage(message, f.key)
	require.NoError(t, err)

	w = f.post(t, "/auth/verify", gin.H{
		"message":   message,
		"signature": signature,
		"address":   f.address,
		"purpose":   "login",
	}, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRedeemRejectsReuse(t *testing.T) {
	f := newRouterFixture(t)

	w := f.post(t, "/auth/nonce", gin.H{"address": f.address, "purpose": "login"}, nil)
	message := decodeBody(t, w)["message"].(string)
	signature, err := eth.SignMessage(message, f.key)
	require.NoError(t, err)

	w = f.post(t, "/auth/verify", gin.H{
		"message":   message,
		"signature": signature,
		"address":   f.address,
		"purpose":   "login",
	}, nil)
	token := decodeBody(t, w)["exchange_token"]

	w = f.post(t, "/auth/redeem", gin.H{"exchange_token": token}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.post(t, "/auth/redeem", gin.H{"exchange_token": token}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshAndLogout(t *testing.T) {
	f := newRouterFixture(t)
	_, refresh := f.handshake(t)

	w := f.post(t, "/auth/refresh", gin.H{"refresh_token": refresh}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rotated := decodeBody(t, w)["refresh_token"].(string)

	// The rotated-out token no longer refreshes.
	w = f.post(t, "/auth/refresh", gin.H{"refresh_token": refresh}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.post(t, "/auth/logout", gin.H{"refresh_token": rotated}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.post(t, "/auth/refresh", gin.H{"refresh_token": rotated}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejections(t *testing.T) {
	f := newRouterFixture(t)

	t.Run("no header", func(t *testing.T) {
		w := f.get(t, "/api/me", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		w := f.get(t, "/api/me", map[string]string{"Authorization": "Token abc"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := f.get(t, "/api/me", bearer("not-a-jwt"))
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestGatedRoute(t *testing.T) {
	f := newRouterFixture(t)
	access, _ := f.handshake(t)

	// A fresh patient identity has neither KYC nor approval.
	w := f.get(t, "/api/gated/authorize", bearer(access))
	require.Equal(t, http.StatusForbidden, w.Code)

	identity, err := f.identities.FindByAddress(context.Background(), core.NormalizeAddress(f.address))
	require.NoError(t, err)
	identity.KYCVerified = true
	identity.AdminApproved = true
	require.NoError(t, f.identities.Save(context.Background(), identity))

	w = f.get(t, "/api/gated/authorize", bearer(access))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, decodeBody(t, w)["authorized"])
}

func TestGatedRouteAdminBypass(t *testing.T) {
	f := newRouterFixture(t)
	access, _ := f.handshake(t)

	identity, err := f.identities.FindByAddress(context.Background(), core.NormalizeAddress(f.address))
	require.NoError(t, err)
	identity.Role = core.RoleAdmin
	require.NoError(t, f.identities.Save(context.Background(), identity))

	w := f.get(t, "/api/gated/authorize", bearer(access))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHealthz(t *testing.T) {
	f := newRouterFixture(t)

	w := f.get(t, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
}
