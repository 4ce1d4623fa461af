// Package identity manages user accounts and authentication: login with
// bcrypt verification, access/refresh token issuance, password changes, and
// admin-only user administration.
package identity

import "time"

// User maps to the users table. The password hash never serializes.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Role         string    `db:"role" json:"role"`
	CompanyID    *int64    `db:"company_id" json:"companyId,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// LoginResult is the successful login response body.
type LoginResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type createUserRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CompanyID *int64 `json:"companyId"`
}

type updateUserRequest struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	CompanyID *int64 `json:"companyId"`
}
