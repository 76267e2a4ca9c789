package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleUser      = "user"
	RoleResponder = "responder"

	tokenTTL    = 72 * time.Hour
	tokenIssuer = "incluverse-grievance"
	roleKey     = "role"
)

var errInvalidToken = errors.New("invalid token")

// Claims is the JWT payload. Subject is an anonymous id, never a real identity.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth issues and verifies HS256 tokens.
type Auth struct {
	secret           []byte
	responderKeyHash []byte
	now              func() time.Time
}

// NewAuth creates an Auth. responderKeyHash is a bcrypt hash; empty disables
// responder tokens.
func NewAuth(secret, responderKeyHash string) *Auth {
	return &Auth{secret: []byte(secret), responderKeyHash: []byte(responderKeyHash), now: time.Now}
}

// HashResponderKey produces the value for RESPONDER_KEY_HASH.
func HashResponderKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash responder key: %w", err)
	}
	return string(hash), nil
}

// IssueToken signs a token for a fresh anonymous id.
func (a *Auth) IssueToken(role string) (token, subject string, err error) {
	subject = uuid.NewString()
	now := a.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	return token, subject, err
}

// ParseToken validates the signature and expiry and returns the claims.
func (a *Auth) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

func (a *Auth) responderKeyMatches(key string) bool {
	if len(a.responderKeyHash) == 0 || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.responderKeyHash, []byte(key)) == nil
}

// tokenFromRequest reads "Authorization: Bearer ..." or, for browsers opening
// a websocket, the token query parameter.
func tokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

// OptionalAuth stores the caller's role when a valid token is present.
func (a *Auth) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := tokenFromRequest(c); raw != "" {
			if claims, err := a.ParseToken(raw); err == nil {
				c.Set(roleKey, claims.Role)
			}
		}
		c.Next()
	}
}

// RequireResponder rejects requests without a valid responder token.
func (h *Handler) RequireResponder() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFromRequest(c)
		if raw == "" {
			h.abort(c, http.StatusUnauthorized, "responder_only", "authorization token missing")
			return
		}
		claims, err := h.Auth.ParseToken(raw)
		if err != nil {
			h.abort(c, http.StatusUnauthorized, "responder_only", "invalid token or expired")
			return
		}
		if claims.Role != RoleResponder {
			h.abort(c, http.StatusForbidden, "responder_only", "responder role required")
			return
		}
		c.Set(roleKey, claims.Role)
		c.Next()
	}
}

type tokenRequest struct {
	Role string `json:"role"`
	Key  string `json:"key"`
}

// IssueToken hands out an anonymous token. Responder tokens need the responder key.
func (h *Handler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, err)
			return
		}
	}
	switch req.Role {
	case "", RoleUser:
		req.Role = RoleUser
	case RoleResponder:
		if !h.Auth.responderKeyMatches(req.Key) {
			h.abort(c, http.StatusForbidden, "responder_only", "invalid responder key")
			return
		}
	default:
		h.badRequest(c, errors.New("unknown role"))
		return
	}

	token, subject, err := h.Auth.IssueToken(req.Role)
	if err != nil {
		h.abort(c, http.StatusInternalServerError, "invalid_request", "failed to create token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "anon_id": subject, "role": req.Role})
}
