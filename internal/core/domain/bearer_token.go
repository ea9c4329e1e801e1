package domain

import "time"

// BearerToken is a long-lived opaque credential for programmatic API access.
// Only the SHA-256 digest of the secret is stored; the secret itself is shown
// to the caller exactly once at issuance.
type BearerToken struct {
	// KeyID is the public lookup handle, 8 random bytes url-safe-base64 encoded.
	KeyID      string     `json:"keyID"`
	UserID     int64      `json:"userID"`
	Label      string     `json:"label"`
	SecretHash string     `json:"-"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// IsExpired reports whether the token has passed its expiry at the given instant.
func (t *BearerToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
