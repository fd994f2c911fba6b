package model

import "time"

// User represents an application user record as stored in the `users`
// table.  IsAdmin marks cinema administrators, who publish movie details
// and manage their halls and the reservations made against them.
type User struct {
	ID           uint64    `db:"id"`            // users.id
	Email        string    `db:"email"`         // users.email
	Name         string    `db:"name"`          // users.name
	PasswordHash string    `db:"password_hash"` // users.password_hash
	IsAdmin      bool      `db:"is_admin"`      // users.is_admin
	CreatedAt    time.Time `db:"created_at"`    // users.created_at
	UpdatedAt    time.Time `db:"updated_at"`    // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is never stored; only its SHA‑256 hash.
type RefreshToken struct {
	ID        uint64     `db:"id"`         // refresh_tokens.id
	UserID    uint64     `db:"user_id"`    // refresh_tokens.user_id
	TokenHash string     `db:"token_hash"` // refresh_tokens.token_hash
	ExpiresAt time.Time  `db:"expires_at"` // refresh_tokens.expires_at
	RevokedAt *time.Time `db:"revoked_at"` // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  `db:"created_at"` // refresh_tokens.created_at
}

// Principal is the authenticated caller.  It is handed explicitly to every
// service operation.
type Principal struct {
	UserID  uint64
	IsAdmin bool
}

// Administers reports whether p is the admin who published a movie detail
// owned by adminID.  Being an admin elsewhere grants nothing here.
func (p Principal) Administers(adminID uint64) bool {
	return p.IsAdmin && p.UserID == adminID
}

// Owns reports whether p may act on a reservation made by userID against a
// movie detail published by adminID.
func (p Principal) Owns(userID, adminID uint64) bool {
	return p.UserID == userID || p.Administers(adminID)
}
