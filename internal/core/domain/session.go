package domain

// LoginState is the authentication sub-state of a session. UserID is zero
// until a login flow completes.
type LoginState struct {
	UserID           int64        `json:"userID,omitempty"`
	Kind             ProviderKind `json:"kind,omitempty"`
	ProviderInstance string       `json:"providerInstance,omitempty"`
}

// Authenticated reports whether the session carries a completed login.
func (s LoginState) Authenticated() bool {
	return s.UserID != 0
}

// SSOHandshake holds the short-lived state of an in-flight federated login:
// the PKCE verifier and anti-CSRF state between the redirect and the
// callback, and the provider's session handle after the flow completes.
type SSOHandshake struct {
	InstanceID   string `json:"instanceID"`
	CodeVerifier string `json:"codeVerifier,omitempty"`
	State        string `json:"state,omitempty"`
	IDToken      string `json:"idToken,omitempty"`
	// ProviderSessionID is the issuer's sid claim, used to match
	// backchannel logout requests to this session.
	ProviderSessionID string `json:"providerSessionID,omitempty"`
}

// PendingRegistration is profile data proposed by an external provider,
// held until the user confirms registration and an Identity/User pair is
// created.
type PendingRegistration struct {
	Kind             ProviderKind    `json:"kind"`
	ProviderInstance string          `json:"providerInstance"`
	SubjectID        string          `json:"subjectID"`
	Proposal         ExternalProfile `json:"proposal"`
}

// SessionRecord is the ephemeral server-side state keyed by an opaque
// session id. Each provider touches only its own sub-state.
type SessionRecord struct {
	SessionID string               `json:"sessionID"`
	Login     LoginState           `json:"login"`
	SSO       *SSOHandshake        `json:"sso,omitempty"`
	Pending   *PendingRegistration `json:"pending,omitempty"`
}
