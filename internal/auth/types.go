package auth

import "time"

// ClientClaims identifies the API client a token was issued to
type ClientClaims struct {
	ClientID string   `json:"client_id"`
	Scopes   []string `json:"scopes,omitempty"`
}

// TokenResponse is returned when a token is issued
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
	TokenType   string `json:"token_type"` // Always "Bearer"
}

// Config holds authentication configuration
type Config struct {
	JWTSecret           string        `json:"jwt_secret"`
	Issuer              string        `json:"issuer"`
	AccessTokenDuration time.Duration `json:"access_token_duration"`
}

// DefaultConfig returns default authentication configuration
func DefaultConfig() Config {
	return Config{
		JWTSecret:           "", // Must be set
		Issuer:              "drummond-geometry",
		AccessTokenDuration: 15 * time.Minute,
	}
}

// Error types for authentication
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e AuthError) Error() string {
	return e.Message
}

// Common authentication errors
var (
	ErrInvalidToken   = AuthError{Code: "INVALID_TOKEN", Message: "invalid or expired token"}
	ErrTokenExpired   = AuthError{Code: "TOKEN_EXPIRED", Message: "token has expired"}
	ErrUnauthorized   = AuthError{Code: "UNAUTHORIZED", Message: "unauthorized access"}
	ErrMissingSecret  = AuthError{Code: "MISSING_SECRET", Message: "jwt secret is not configured"}
	ErrMissingSubject = AuthError{Code: "MISSING_SUBJECT", Message: "client id is required"}
	ErrForbidden      = AuthError{Code: "FORBIDDEN", Message: "token lacks the required scope"}
)

// ScopeAdmin grants cache maintenance routes
const ScopeAdmin = "admin"

// HasScope reports whether the claims carry scope
func (c *ClientClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
