package dto

// RegisterRequest is the registration form.
type RegisterRequest struct {
	StudentID       string `form:"student_id" validate:"required,max=64"`
	Email           string `form:"email" validate:"required,email,max=255"`
	Password        string `form:"password" validate:"required,min=6,max=72"`
	PasswordConfirm string `form:"password_confirm" validate:"required,eqfield=Password"`
}

// LoginRequest is the login form.
type LoginRequest struct {
	StudentID string `form:"student_id" validate:"required"`
	Password  string `form:"password" validate:"required"`
}

// ForgotPasswordRequest asks for a reset link.
type ForgotPasswordRequest struct {
	Email string `form:"email" validate:"required,email"`
}

// ResetPasswordRequest sets a new password through a reset link.
type ResetPasswordRequest struct {
	Password        string `form:"password" validate:"required,min=6,max=72"`
	PasswordConfirm string `form:"password_confirm" validate:"required,eqfield=Password"`
}
