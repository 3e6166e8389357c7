package service

import (
	"time"
)

// expiryFrom turns a relative expires_in into an absolute expiry. fallback
// is used when expires_in is absent; with neither the token never expires.
func expiryFrom(now time.Time, expiresIn int64, fallback time.Duration) *time.Time {
	lifetime := time.Duration(expiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = fallback
	}
	if lifetime <= 0 {
		return nil
	}
	exp := now.Add(lifetime)
	return &exp
}
