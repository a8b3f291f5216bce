package core

import "time"

// Connection is a linked social account for a user. AccessToken and
// AccessSecret/RefreshToken are stored encrypted by the adapters.
type Connection struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Platform     string     `json:"platform"`
	AccountID    string     `json:"account_id"`
	Handle       string     `json:"handle"`
	DisplayName  string     `json:"display_name"`
	PictureURL   string     `json:"picture_url,omitempty"`
	Email        string     `json:"email,omitempty"`
	AccountType  string     `json:"account_type,omitempty"`
	AccessToken  string     `json:"-"`
	AccessSecret string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenExpiry  *time.Time `json:"token_expiry,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
