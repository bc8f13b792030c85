package domain

import (
	"strings"
	"time"
)

// Role is the single authorization attribute carried by an account.
type Role string

const (
	RoleRegular Role = "regular"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleRegular || r == RoleAdmin
}

// Toggled returns the opposite role.
func (r Role) Toggled() Role {
	if r == RoleAdmin {
		return RoleRegular
	}
	return RoleAdmin
}

// Account models a registered identity. Email is stored normalized and is
// unique across all accounts.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (a *Account) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// Clone returns a copy so callers never share store-owned memory.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

// AccountUpdate carries the mutable account fields. Nil fields are left as is.
type AccountUpdate struct {
	Email        *string
	PasswordHash *string
}

func (u AccountUpdate) Empty() bool {
	return u.Email == nil && u.PasswordHash == nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail is a structural check only: one @ with a non-empty local part
// and a dotted domain.
func ValidEmail(email string) bool {
	if len(email) > 254 || strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	host := email[at+1:]
	dot := strings.IndexByte(host, '.')
	return dot > 0 && dot < len(host)-1
}

const (
	MinPasswordLength = 4
	// bcrypt ignores anything past 72 bytes.
	MaxPasswordLength = 72
)
