package domain

// LoginRequest is the payload for /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=100"`
}

// RegisterRequest is the payload for /auth/register.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=100"`
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Password  string `json:"password" validate:"required,min=10,max=100"`
}

// TokenRequest carries a one-time token from an email link.
type TokenRequest struct {
	Token string `json:"token" validate:"required,max=1000"`
}

// BeginResetPasswordRequest starts the password reset flow.
type BeginResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=100"`
}

// ResetPasswordRequest finishes the password reset flow.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required,max=1000"`
	NewPassword string `json:"new_password" validate:"required,min=10,max=100"`
}

// ChangePasswordRequest changes the logged-in user's password.
type ChangePasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=10,max=100"`
}

// ChangeNameRequest updates the logged-in user's display name.
type ChangeNameRequest struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
}
