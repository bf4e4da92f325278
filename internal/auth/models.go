package auth

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	Name     string `json:"name"`
}

// RegisterRequest fields are declared in the order their errors are reported.
type RegisterRequest struct {
	Name     string `json:"name" validate:"display_name"`
	Username string `json:"username" validate:"username"`
	Password string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}
