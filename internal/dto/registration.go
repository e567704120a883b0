package dto

// RegisterRequest is the public signup payload. Accounts stay PENDING until
// an admin approves them.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
}

// RejectRegistrationRequest carries the mandatory rejection reason.
type RejectRegistrationRequest struct {
	Reason string `json:"reason" validate:"required"`
}
