package models

import (
	"time"
)

// IssuedToken is a signed access token together with its expiry
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}
