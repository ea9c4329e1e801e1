package dto

// RegisterRequest is the body for local account registration.
type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=64"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName" binding:"max=128"`
}

// LoginRequest is the body for local password login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// DirectoryLoginRequest is the body for directory-backed login.
type DirectoryLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest is the body for changing the local password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// GuestLoginRequest is the body for starting a guest session.
type GuestLoginRequest struct {
	DisplayName string `json:"displayName" binding:"max=128"`
}

// LoginResponse is returned by every successful interactive login.
type LoginResponse struct {
	User UserResponse `json:"user"`
}

// LogoutResponse carries the optional provider end-session URL the client
// should redirect to after a federated logout.
type LogoutResponse struct {
	ProviderLogoutURL string `json:"providerLogoutURL,omitempty"`
}
