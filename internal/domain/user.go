package domain

import "time"

// User is the local record for an externally authenticated identity.
// Email is the external identity key; Username defaults to the email on
// first sight. Both are unique.
type User struct {
	ID        int64
	Username  string
	Email     string
	CreatedAt time.Time
}
