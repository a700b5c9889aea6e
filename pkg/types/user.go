// Package types provides the core data types for the meeting-synthesis client.
package types

// UserProfile is an immutable snapshot of the authenticated user.
// It is replaced wholesale on every login or session restore, never
// partially mutated.
type UserProfile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// TokenResponse is the body returned by the token refresh endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// LoginResponse is the body returned by the password login endpoint.
type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	User         *UserProfile `json:"user"`
}
