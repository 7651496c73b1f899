package user

import (
	"fmt"
	"time"
)

// User is a searcher identified by phone number (immutable value object).
type User struct {
	uuid          string
	phone         string
	searchCredits int
	lastSearch    int64
}

// New creates a first-contact user with no credits and no prior search.
func New(uuid, phone string) (User, error) {
	if uuid == "" {
		return User{}, fmt.Errorf("user uuid is required")
	}
	return User{uuid: uuid, phone: phone}, nil
}

// Reconstruct creates a User without validation (storage hydration).
func Reconstruct(uuid, phone string, searchCredits int, lastSearch int64) User {
	return User{uuid: uuid, phone: phone, searchCredits: searchCredits, lastSearch: lastSearch}
}

// UUID returns the stable user identifier.
func (u *User) UUID() string { return u.uuid }

// Phone returns the phone number the user registered with.
func (u *User) Phone() string { return u.phone }

// SearchCredits returns the remaining free searches.
func (u *User) SearchCredits() int { return u.searchCredits }

// LastSearch returns the epoch seconds of the last accepted search, 0 if none.
func (u *User) LastSearch() int64 { return u.lastSearch }

// SearchedWithin reports whether the last search happened less than window before now.
// A zero timestamp never counts as recent.
func (u *User) SearchedWithin(now time.Time, window time.Duration) bool {
	if u.lastSearch <= 0 || window <= 0 {
		return false
	}
	return now.Sub(time.Unix(u.lastSearch, 0)) < window
}
