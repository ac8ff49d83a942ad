package models

// UserAccount is a registered user. The password is stored and compared as
// entered.
type UserAccount struct {
	Username string `json:"username"`
	Password string `json:"-"`
}

// Session is the currently authenticated user.
type Session struct {
	Username string `json:"username"`
}

// SessionFor builds the session view of an account.
func SessionFor(u *UserAccount) *Session {
	if u == nil {
		return nil
	}
	return &Session{Username: u.Username}
}
