package models

import (
	"time"
)

type User struct {
	ID              int64
	Name            string
	Email           string
	EmailVerifiedAt *time.Time // nil until the address is confirmed
	PasswordHash    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
