package dto

import "github.com/scribehub/identity-core/internal/core/domain"

// BeginSSOResponse carries the provider authorization URL the client must
// redirect the browser to.
type BeginSSOResponse struct {
	AuthorizationURL string `json:"authorizationURL"`
}

// SSOCallbackResult is returned after the code exchange. Exactly one of the
// two shapes applies: an existing account was logged in, or a registration
// proposal awaits confirmation.
type SSOCallbackResult struct {
	LoggedIn bool          `json:"loggedIn"`
	User     *UserResponse `json:"user,omitempty"`
	// Proposal is present when the subject has no account yet and
	// registration is open.
	Proposal *ProposalResponse `json:"proposal,omitempty"`
}

// ProposalResponse is the provider-supplied profile offered for confirmation.
type ProposalResponse struct {
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// ToProposalResponse converts an external profile to its response DTO.
func ToProposalResponse(profile domain.ExternalProfile) ProposalResponse {
	return ProposalResponse{
		Username:    profile.Username,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
		PhotoURL:    profile.PhotoURL,
	}
}

// ConfirmRegistrationRequest carries the user's confirmed profile edits for
// completing a pending federated registration.
type ConfirmRegistrationRequest struct {
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}
