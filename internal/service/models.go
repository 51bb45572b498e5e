package service

// TokenWithUser is the envelope returned by register and login.
type TokenWithUser struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	User        UserViewModel `json:"user"`
}

// UserViewModel is the public projection of an account. The password hash
// and internal fields never leave the service layer. Name is a pointer so
// accounts without one serialize as an explicit null rather than dropping
// the key.
type UserViewModel struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}
