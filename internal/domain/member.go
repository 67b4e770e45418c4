package domain

import "time"

type Member struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name,omitempty"`
	CredentialHash string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}
