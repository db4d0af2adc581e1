package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gravitas-games/hexfront/internal/config"
	"github.com/gravitas-games/hexfront/pkg/logger"
	"github.com/gravitas-games/hexfront/pkg/models"
)

var (
	errMissingToken = errors.New("missing authentication token")
	errBlacklisted  = errors.New("token is blacklisted")
)

// JWTValidator handles JWT token validation
type JWTValidator struct {
	config    *config.Config
	publicKey *ecdsa.PublicKey
	keyMu     sync.RWMutex
	redis     *redis.Client // nil disables the blacklist
	log       *logrus.Entry
}

// Claims represents JWT token claims from the login service
type Claims struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	AuthMethod  string `json:"auth_method"`
	Permissions int64  `json:"permissions"`
	Activated   int64  `json:"activated"`
	jwt.RegisteredClaims
}

// NewJWTValidator fetches the signing key and keeps it fresh until ctx is
// done.
func NewJWTValidator(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (*JWTValidator, error) {
	v := &JWTValidator{
		config: cfg,
		redis:  redisClient,
		log:    logger.Component("auth"),
	}
	if err := v.RefreshPublicKey(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch public key: %w", err)
	}
	go v.periodicKeyRefresh(ctx)

	v.log.Info("JWT validator initialized")
	return v, nil
}

// NewJWTValidatorWithKey builds a validator around a known key.
func NewJWTValidatorWithKey(cfg *config.Config, key *ecdsa.PublicKey, redisClient *redis.Client) *JWTValidator {
	return &JWTValidator{
		config:    cfg,
		publicKey: key,
		redis:     redisClient,
		log:       logger.Component("auth"),
	}
}

// RefreshPublicKey fetches the PEM encoded ECDSA key from the configured URL
func (v *JWTValidator) RefreshPublicKey(ctx context.Context) error {
	v.log.WithField("url", v.config.JWT.PublicKeyURL).Debug("fetching public key")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.config.JWT.PublicKeyURL, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch public key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("public key endpoint returned status %d", resp.StatusCode)
	}

	keyData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read public key: %w", err)
	}
	key, err := parsePublicKey(keyData)
	if err != nil {
		return err
	}

	v.keyMu.Lock()
	v.publicKey = key
	v.keyMu.Unlock()
	return nil
}

func parsePublicKey(data []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}
	pubKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	ecdsaKey, ok := pubKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ECDSA")
	}
	return ecdsaKey, nil
}

func (v *JWTValidator) periodicKeyRefresh(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(v.config.JWT.PublicKeyRefreshHrs) * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := v.RefreshPublicKey(ctx); err != nil {
				v.log.WithError(err).Warn("failed to refresh public key")
			}
		case <-ctx.Done():
			return
		}
	}
}

// ValidateToken validates a JWT token and returns player information
func (v *JWTValidator) ValidateToken(ctx context.Context, tokenString string) (*models.Player, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		v.keyMu.RLock()
		defer v.keyMu.RUnlock()
		return v.publicKey, nil
	}, jwt.WithIssuer(v.config.JWT.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Activated == 0 {
		return nil, fmt.Errorf("user not activated")
	}
	if claims.Activated == -1 {
		return nil, fmt.Errorf("user is banned")
	}

	userID := strconv.FormatInt(claims.UserID, 10)
	if v.redis != nil {
		key := v.config.Redis.BlacklistPrefix + userID
		n, err := v.redis.Exists(ctx, key).Result()
		if err != nil {
			// Redis outages must not lock players out.
			v.log.WithError(err).Warn("failed to check blacklist")
		} else if n > 0 {
			return nil, errBlacklisted
		}
	}

	return &models.Player{
		ID:          userID,
		Username:    models.CleanName(claims.Username),
		Email:       claims.Email,
		Permissions: claims.Permissions,
		Activated:   claims.Activated,
		AuthMethod:  claims.AuthMethod,
	}, nil
}

// guestPlayer builds an identity from the ?name= query parameter. Named
// guests keep their identity across reconnects; unnamed ones get a fresh id.
func guestPlayer(r *http.Request) *models.Player {
	name := models.CleanName(r.URL.Query().Get("name"))
	id := "guest:" + strings.ToLower(name)
	if name == models.AnonymousName {
		id = "guest:" + uuid.NewString()
	}
	return &models.Player{
		ID:         id,
		Username:   name,
		Activated:  time.Now().Unix(),
		AuthMethod: "guest",
	}
}

// extractTokenFromHeader extracts JWT token from WebSocket connection header
func extractTokenFromHeader(r *http.Request) string {
	// Sec-WebSocket-Protocol: "access_token, <token>"
	if protocols := r.Header.Get("Sec-WebSocket-Protocol"); protocols != "" {
		parts := splitAndTrim(protocols, ",")
		if len(parts) == 2 && parts[0] == "access_token" {
			return parts[1]
		}
	}

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	// Query parameter (less secure, but supported)
	return r.URL.Query().Get("token")
}

// splitAndTrim splits a string and drops empty trimmed parts
func splitAndTrim(s, sep string) []string {
	var result []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
