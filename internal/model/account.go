package model

import "time"

// Roles carried in the access token and stored on the account row.
const (
	RoleMember = "MEMBER"
	RoleAdmin  = "ADMIN"
)

// Account is a ledger participant.  It is created once at signup and
// never deleted.  The internal ID is what ledger entries and tokens
// reference; PublicID is the short, fixed-length identifier that other
// members type when sending points.
//
// Fields:
//  ID           – primary key identifier.
//  PublicID     – unique public identifier (upper case, fixed length).
//  Email        – unique login email.
//  PasswordHash – bcrypt hash of the password.
//  Role         – MEMBER or ADMIN.
//  CreatedAt    – signup timestamp.
type Account struct {
	ID           uint64    `db:"id"`            // accounts.id
	PublicID     string    `db:"public_id"`     // accounts.public_id
	Email        string    `db:"email"`         // accounts.email
	PasswordHash string    `db:"password_hash"` // accounts.password_hash
	Role         string    `db:"role"`          // accounts.role
	CreatedAt    time.Time `db:"created_at"`    // accounts.created_at
}
