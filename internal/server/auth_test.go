package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gravitas-games/hexfront/internal/config"
)

func testKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func signToken(t *testing.T, key *ecdsa.PrivateKey, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func validClaims(issuer string) Claims {
	return Claims{
		UserID:    42,
		Email:     "alice@example.com",
		Username:  "  Alice ",
		Activated: time.Now().Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestValidateToken(t *testing.T) {
	cfg := config.Default()
	cfg.JWT.Issuer = "login"
	key := testKey(t)
	v := NewJWTValidatorWithKey(cfg, &key.PublicKey, nil)
	ctx := context.Background()

	player, err := v.ValidateToken(ctx, signToken(t, key, validClaims("login")))
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if player.ID != "42" || player.Username != "Alice" || player.Email != "alice@example.com" {
		t.Fatalf("unexpected player %+v", player)
	}

	wrongIssuer := validClaims("elsewhere")
	expired := validClaims("login")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExpiry := validClaims("login")
	noExpiry.ExpiresAt = nil
	banned := validClaims("login")
	banned.Activated = -1
	inactive := validClaims("login")
	inactive.Activated = 0

	cases := map[string]string{
		"wrong issuer": signToken(t, key, wrongIssuer),
		"expired":      signToken(t, key, expired),
		"no expiry":    signToken(t, key, noExpiry),
		"banned":       signToken(t, key, banned),
		"inactive":     signToken(t, key, inactive),
		"other key":    signToken(t, testKey(t), validClaims("login")),
		"garbage":      "not.a.token",
	}
	for name, token := range cases {
		if _, err := v.ValidateToken(ctx, token); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestRefreshPublicKey(t *testing.T) {
	key := testKey(t)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	pemData := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pemData)
	}))
	defer ts.Close()

	cfg := config.Default()
	cfg.JWT.PublicKeyURL = ts.URL
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v, err := NewJWTValidator(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("NewJWTValidator: %v", err)
	}
	if !v.publicKey.Equal(&key.PublicKey) {
		t.Fatalf("fetched key does not match")
	}

	if _, err := parsePublicKey([]byte("nope")); err == nil {
		t.Fatalf("expected PEM decode error")
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=query", nil)
	if got := extractTokenFromHeader(r); got != "query" {
		t.Fatalf("query token = %q", got)
	}

	r.Header.Set("Authorization", "Bearer header")
	if got := extractTokenFromHeader(r); got != "header" {
		t.Fatalf("bearer token = %q", got)
	}

	r.Header.Set("Sec-WebSocket-Protocol", "access_token, proto")
	if got := extractTokenFromHeader(r); got != "proto" {
		t.Fatalf("subprotocol token = %q", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	if got := extractTokenFromHeader(r); got != "" {
		t.Fatalf("expected no token, got %q", got)
	}
}

func TestGuestPlayer(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?name=Alice", nil)
	p := guestPlayer(r)
	if p.ID != "guest:alice" || p.Username != "Alice" || !p.IsGuest() {
		t.Fatalf("unexpected guest %+v", p)
	}
	if again := guestPlayer(r); again.ID != p.ID {
		t.Fatalf("named guest id not stable: %s vs %s", again.ID, p.ID)
	}

	anon1 := guestPlayer(httptest.NewRequest(http.MethodGet, "/ws", nil))
	anon2 := guestPlayer(httptest.NewRequest(http.MethodGet, "/ws?name=%20%20", nil))
	if anon1.Username != "Anonymous" || anon2.Username != "Anonymous" {
		t.Fatalf("expected anonymous names, got %q and %q", anon1.Username, anon2.Username)
	}
	if anon1.ID == anon2.ID || !strings.HasPrefix(anon1.ID, "guest:") {
		t.Fatalf("anonymous guests share id %s", anon1.ID)
	}
}
