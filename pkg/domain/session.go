package domain

import "time"

// Session is the authenticated-user state: the token pair, their expirations
// and the profile returned at login.
type Session struct {
	AccessToken            string    `json:"accessToken"`
	AccessTokenExpiration  time.Time `json:"accessTokenExpiration"`
	RefreshToken           string    `json:"refreshToken"`
	RefreshTokenExpiration time.Time `json:"refreshTokenExpiration"`
	UserID                 string    `json:"user_id"`
	Email                  string    `json:"email"`
	FirstName              string    `json:"firstName"`
	LastName               string    `json:"lastName"`
}

// RefreshExpired reports whether the refresh token is no longer usable at now.
func (s *Session) RefreshExpired(now time.Time) bool {
	return !s.RefreshTokenExpiration.After(now)
}

// AccessExpired reports whether the access token is no longer usable at now.
func (s *Session) AccessExpired(now time.Time) bool {
	return !s.AccessTokenExpiration.After(now)
}

// UserInfo returns the display projection of the session's profile.
func (s *Session) UserInfo() UserInfo {
	return UserInfo{
		UserID:    s.UserID,
		Email:     s.Email,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Name:      s.FirstName + " " + s.LastName,
	}
}

// UserInfo is the profile of the logged-in user.
type UserInfo struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Name      string `json:"name"`
}

// LoginResponse is returned by both /auth/login and /auth/refresh.
type LoginResponse struct {
	AccessToken            string    `json:"access_token"`
	AccessTokenExpiration  time.Time `json:"access_token_expiration"`
	RefreshToken           string    `json:"refresh_token"`
	RefreshTokenExpiration time.Time `json:"refresh_token_expiration"`
	UserID                 string    `json:"user_id"`
	Email                  string    `json:"email"`
	FirstName              string    `json:"first_name"`
	LastName               string    `json:"last_name"`
}

// Session builds a fresh Session from the response.
func (r *LoginResponse) Session() *Session {
	return &Session{
		AccessToken:            r.AccessToken,
		AccessTokenExpiration:  r.AccessTokenExpiration,
		RefreshToken:           r.RefreshToken,
		RefreshTokenExpiration: r.RefreshTokenExpiration,
		UserID:                 r.UserID,
		Email:                  r.Email,
		FirstName:              r.FirstName,
		LastName:               r.LastName,
	}
}
