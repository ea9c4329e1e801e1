package domain

import "time"

// ProviderKind is the closed set of authentication provider types.
type ProviderKind string

const (
	ProviderLocal     ProviderKind = "local"
	ProviderDirectory ProviderKind = "directory"
	ProviderFederated ProviderKind = "federated"
	ProviderGuest     ProviderKind = "guest"
)

// Valid reports whether k is one of the known provider kinds.
func (k ProviderKind) Valid() bool {
	switch k {
	case ProviderLocal, ProviderDirectory, ProviderFederated, ProviderGuest:
		return true
	}
	return false
}

// Identity is one way a User can authenticate. The tuple
// (ProviderKind, ProviderInstance, SubjectID) is unique across all users,
// and a user holds at most one identity per provider instance.
type Identity struct {
	IdentityID       int64        `json:"identityID"`
	UserID           int64        `json:"userID"`
	Kind             ProviderKind `json:"kind"`
	ProviderInstance string       `json:"providerInstance"`
	// SubjectID is the external provider's stable identifier. Empty for local identities.
	SubjectID string `json:"subjectID,omitempty"`
	// PasswordHash is set only for local identities. Never serialized.
	PasswordHash string `json:"-"`
	// SyncSource marks the identity whose provider-supplied profile fields
	// overwrite the user's profile on each login.
	SyncSource bool      `json:"syncSource"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ExternalProfile is the normalized result of a successful authentication
// against an external provider, before it is reconciled with an Identity.
type ExternalProfile struct {
	SubjectID   string `json:"subjectID"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}
