package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "merchant-sim/internal/domain/errors"
)

func TestAuthClient_GetToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token", r.URL.Path)

		var req tokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "pos-client", req.ClientID)
		assert.Equal(t, "pos-secret", req.ClientSecret)

		json.NewEncoder(w).Encode(tokenResponse{AccessToken: "abc123", ExpiresIn: 3600})
	}))
	defer srv.Close()

	client := NewAuthClient(srv.URL)
	cred, err := client.GetToken(context.Background(), "pos-client", "pos-secret")
	require.NoError(t, err)

	assert.Equal(t, "abc123", cred.AccessToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), cred.ExpiresAt, 5*time.Second)
}

func TestAuthClient_GetToken_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewAuthClient(srv.URL)
	_, err := client.GetToken(context.Background(), "bad-client", "bad-secret")
	assert.ErrorIs(t, err, domainerrors.ErrAuthFailed)
}

func TestAuthClient_GetToken_EmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tokenResponse{})
	}))
	defer srv.Close()

	client := NewAuthClient(srv.URL)
	_, err := client.GetToken(context.Background(), "pos-client", "pos-secret")
	assert.ErrorIs(t, err, domainerrors.ErrAuthFailed)
}

func TestTokenExpiry_ExplicitExpiresIn(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	got := tokenExpiry(tokenResponse{AccessToken: "opaque", ExpiresIn: 900}, now)
	assert.Equal(t, now.Add(15*time.Minute), got)
}

func TestTokenExpiry_JWTExpClaim(t *testing.T) {
	exp := time.Date(2024, 6, 1, 13, 30, 0, 0, time.UTC)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "pos-client",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	got := tokenExpiry(tokenResponse{AccessToken: signed}, now)
	assert.Equal(t, exp.Unix(), got.Unix())
}

func TestTokenExpiry_DefaultLifetime(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	got := tokenExpiry(tokenResponse{AccessToken: "not-a-jwt"}, now)
	assert.Equal(t, now.Add(defaultTokenLifetime), got)
}
