package domain

// PrincipalKind classifies the outcome of resolving a request's credentials.
type PrincipalKind string

const (
	PrincipalUser  PrincipalKind = "user"
	PrincipalGuest PrincipalKind = "guest"
)

// Principal is the single normalized "authenticated caller" handed to the
// authorization layer. Guest principals carry no user.
type Principal struct {
	Kind PrincipalKind `json:"kind"`
	User *User         `json:"user,omitempty"`
}

// IsGuest reports whether the principal is an anonymous guest.
func (p Principal) IsGuest() bool {
	return p.Kind == PrincipalGuest
}
