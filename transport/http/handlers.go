package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/healingbudsglobal/walletgate/core"
	"github.com/healingbudsglobal/walletgate/service"
)

// AuthHandlers contains HTTP handlers for the wallet authentication endpoints
type AuthHandlers struct {
	authService *service.AuthService
	accessTTL   time.Duration
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, accessTTL time.Duration) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		accessTTL:   accessTTL,
	}
}

// Nonce issues a signing challenge for (address, purpose). The response
// carries everything the client needs to rebuild the message.
func (h *AuthHandlers) Nonce(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
		Purpose string `json:"purpose" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	challenge, err := h.authService.CreateChallenge(c.Request.Context(), req.Address, req.Purpose)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to create challenge"

		switch {
		case errors.Is(err, core.ErrInvalidAddress):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid wallet address"
		case errors.Is(err, core.ErrInvalidPurpose):
			statusCode = http.StatusBadRequest
			errorMsg = "Unknown purpose"
		case errors.Is(err, core.ErrRateLimited):
			statusCode = http.StatusTooManyRequests
			errorMsg = "Too many challenge requests"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":    challenge.Address,
		"purpose":    string(challenge.Purpose),
		"nonce":      challenge.Nonce,
		"message":    h.authService.SignInMessage(challenge),
		"issued_at":  challenge.IssuedAt.UTC().Format(time.RFC3339),
		"expires_at": challenge.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Verify validates a signed challenge and returns a one-time exchange token
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		Message   string `json:"message" binding:"required"`
		Signature string `json:"signature" binding:"required"`
		Address   string `json:"address" binding:"required"`
		Purpose   string `json:"purpose" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	exchange, _, err := h.authService.Verify(c.Request.Context(), req.Message, req.Signature, req.Address, req.Purpose)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Verification failed"

		switch {
		case errors.Is(err, core.ErrInvalidAddress), errors.Is(err, core.ErrInvalidPurpose):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid request"
		case errors.Is(err, core.ErrNonceNotFound):
			statusCode = http.StatusBadRequest
			errorMsg = "No outstanding challenge"
		case errors.Is(err, core.ErrNonceExpired):
			statusCode = http.StatusBadRequest
			errorMsg = "Challenge expired"
		case errors.Is(err, core.ErrNonceAlreadyConsumed):
			statusCode = http.StatusConflict
			errorMsg = "Challenge already used"
		case errors.Is(err, core.ErrSignatureMismatch):
			statusCode = http.StatusUnauthorized
			errorMsg = "Invalid signature"
		case errors.Is(err, core.ErrAccessDenied):
			statusCode = http.StatusForbidden
			errorMsg = "Wallet does not hold the required asset"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"exchange_token": exchange.Token,
		"expires_at":     exchange.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Redeem exchanges a one-time token for session tokens
func (h *AuthHandlers) Redeem(c *gin.Context) {
	var req struct {
		ExchangeToken string `json:"exchange_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	accessToken, refreshToken, _, err := h.authService.Redeem(c.Request.Context(), req.ExchangeToken)
	if err != nil {
		// Redemption failures collapse to a single message so a caller
		// cannot probe whether a token existed.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session creation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    int(h.accessTTL.Seconds()),
	})
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	accessToken, refreshToken, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to refresh tokens"

		switch {
		case errors.Is(err, core.ErrInvalidToken):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid refresh token"
		case errors.Is(err, core.ErrTokenExpired):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token expired"
		case errors.Is(err, core.ErrTokenInvalidated):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token has been invalidated"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    int(h.accessTTL.Seconds()),
	})
}

// Logout handles session logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidToken):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid refresh token"})
		case errors.Is(err, core.ErrTokenExpired):
			// An expired token is already dead; logout still succeeds.
			c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns information about the authenticated session
func (h *AuthHandlers) Me(c *gin.Context) {
	session := SessionFromContext(c)
	if session == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":  session.Address,
		"identity": session.IdentityID,
		"role":     string(session.Role),
	})
}
