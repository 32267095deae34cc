package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"merchant-sim/internal/domain/entities"
	domainerrors "merchant-sim/internal/domain/errors"
)

// defaultTokenLifetime is assumed when the auth service reports no expiry
// and the token carries no exp claim
const defaultTokenLifetime = 15 * time.Minute

// AuthClient requests bearer tokens from the authentication service
type AuthClient struct {
	baseURL string
	client  *http.Client
}

// NewAuthClient creates a new auth client
func NewAuthClient(baseURL string) *AuthClient {
	return &AuthClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type tokenRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// GetToken requests a fresh token for the given client identity
func (a *AuthClient) GetToken(ctx context.Context, clientID, clientSecret string) (*entities.Credential, error) {
	body, err := json.Marshal(tokenRequest{ClientID: clientID, ClientSecret: clientSecret})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/token", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: auth service returned status %d", domainerrors.ErrAuthFailed, resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(respBody, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", domainerrors.ErrAuthFailed)
	}

	return &entities.Credential{
		AccessToken: tokenResp.AccessToken,
		ExpiresAt:   tokenExpiry(tokenResp, time.Now()),
	}, nil
}

// tokenExpiry derives the token expiry: explicit expiresIn wins, then the
// JWT exp claim of the token itself, then a fixed default
func tokenExpiry(resp tokenResponse, now time.Time) time.Time {
	if resp.ExpiresIn > 0 {
		return now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(resp.AccessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}

	return now.Add(defaultTokenLifetime)
}
