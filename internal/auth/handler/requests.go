package handler

// RegisterRequest is the payload for POST /auth/register. Field rules
// live in the auth service so the CLI and HTTP surfaces reject input
// the same way.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
