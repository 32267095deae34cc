package entities

import "time"

// Credential is a bearer token for a client identity
type Credential struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Valid reports whether the token still has at least margin of lifetime left
func (c *Credential) Valid(now time.Time, margin time.Duration) bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	return c.ExpiresAt.Sub(now) >= margin
}
