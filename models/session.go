package models

// Session is the client-held authentication state. It is replaced wholesale
// on login and logout and has its tokens rotated in place on refresh.
type Session struct {
	User            *User  `json:"user"`
	AccessToken     string `json:"accessToken"`
	RefreshToken    string `json:"refreshToken"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// Authenticated is true iff a user and an access token are both held.
func (s Session) Authenticated() bool {
	return s.User != nil && s.AccessToken != ""
}
