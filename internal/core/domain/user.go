package domain

import "time"

// User represents an application account. UserID is numeric, stable and
// never reused. Username is unique case-insensitively once set; guests that
// have not completed registration carry an empty username.
type User struct {
	UserID      int64      `json:"userID"`
	Username    string     `json:"username"`
	DisplayName string     `json:"displayName"`
	Email       string     `json:"email,omitempty"`
	PhotoURL    string     `json:"photoURL,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeletedAt   *time.Time `json:"-"`
}
