package auth

// Principal is the authenticated identity carried by a session token.
type Principal struct {
	UserID string
	Name   string
	Email  string
	Role   string
}
