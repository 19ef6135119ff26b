package models

type PrincipalKind string

const (
	PrincipalUser  PrincipalKind = "user"
	PrincipalAdmin PrincipalKind = "admin"
)

// Principal is the authenticated caller, whichever session model produced it.
type Principal interface {
	PrincipalID() string
	PrincipalKind() PrincipalKind
}

// UserPrincipal comes from a verified stateless access token.
type UserPrincipal struct {
	User    User
	TokenID string
}

func (p UserPrincipal) PrincipalID() string          { return p.User.ID }
func (p UserPrincipal) PrincipalKind() PrincipalKind { return PrincipalUser }

// AdminPrincipal comes from a server-tracked admin session.
type AdminPrincipal struct {
	Admin   User
	Session AdminSession
}

func (p AdminPrincipal) PrincipalID() string          { return p.Admin.ID }
func (p AdminPrincipal) PrincipalKind() PrincipalKind { return PrincipalAdmin }
