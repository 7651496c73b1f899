package user

import domuser "github.com/rx-radar/medsearch/internal/domain/user"

// userDoc is the stored user document. Numbers are decoded as float64 because the
// billing side may write credits as JSON floats.
type userDoc struct {
	Phone               string  `json:"phone"`
	UserUUID            string  `json:"user_uuid"`
	SearchCredits       float64 `json:"search_credits"`
	LastSearchTimestamp float64 `json:"last_search_timestamp"`
}

func toDoc(u *domuser.User) userDoc {
	return userDoc{
		Phone:               u.Phone(),
		UserUUID:            u.UUID(),
		SearchCredits:       float64(u.SearchCredits()),
		LastSearchTimestamp: float64(u.LastSearch()),
	}
}

func fromDoc(d *userDoc) domuser.User {
	return domuser.Reconstruct(d.UserUUID, d.Phone, int(d.SearchCredits), int64(d.LastSearchTimestamp))
}
