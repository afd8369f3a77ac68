package dto

// ChangePasswordRequest payload for authenticated password changes.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,strongpassword,nefield=CurrentPassword"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// UpdateRolesRequest payload for replacing a user's roles.
type UpdateRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,required"`
}

// UpdateStatusRequest payload for enabling or disabling a user.
type UpdateStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Active    bool     `json:"active"`
	Roles     []string `json:"roles"`
}
