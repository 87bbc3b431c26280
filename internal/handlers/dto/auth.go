package dto

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type RegisterResponse struct {
	ID             uint64 `json:"id"`
	Username       string `json:"username"`
	Token          string `json:"token"`
	TokenExpiresAt string `json:"token_expires_at"`
}

// LoginRequest accepts either the username or the email as Login.
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token          string   `json:"token"`
	TokenExpiresAt string   `json:"token_expires_at"`
	User           UserInfo `json:"user"`
}
