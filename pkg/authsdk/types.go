package authsdk

import (
	"time"

	"github.com/shunines-eng/manage-system/pkg/jwtx"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// MessageResponse acknowledges an operation that returns no resource.
type MessageResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// Health and discovery
// ============================================================================

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
	Accounts string `json:"accounts"`
	Signer   string `json:"signer"`
}

// JWKSResponse is the public key set served at /.well-known/jwks.json.
type JWKSResponse jwtx.JWKS

// ============================================================================
// Captcha and login
// ============================================================================

// CaptchaResponse carries a freshly issued challenge. Image is a
// data:image/png;base64 URL ready for an <img> tag.
type CaptchaResponse struct {
	Session   string `json:"session"`
	Image     string `json:"image"`
	ExpiresIn int    `json:"expires_in"`
}

type LoginRequest struct {
	Identifier      string `json:"identifier"`
	Secret          string `json:"secret"`
	ChallengeAnswer string `json:"challenge_answer"`
	OTP             string `json:"otp,omitempty"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"full_name,omitempty"`
	Role      string `json:"role"`
}

// ============================================================================
// Registration
// ============================================================================

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

type RegisterResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Message  string `json:"message"`
}

type AvailabilityResponse struct {
	Available bool `json:"available"`
}

// ============================================================================
// Users
// ============================================================================

// UserResponse is an account as shown to its owner or an administrator.
type UserResponse struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	EmailVerified  bool       `json:"email_verified"`
	FullName       string     `json:"full_name,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Age            *int       `json:"age,omitempty"`
	Gender         string     `json:"gender,omitempty"`
	Role           string     `json:"role"`
	Enabled        bool       `json:"enabled"`
	Locked         bool       `json:"locked"`
	LockedAt       *time.Time `json:"locked_at,omitempty"`
	FailedAttempts int        `json:"failed_attempts"`
	MFAEnabled     bool       `json:"mfa_enabled"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

// UpdateProfileRequest changes the caller's own profile. Omitted fields
// are left alone.
type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Email    *string `json:"email,omitempty"`
	Age      *int    `json:"age,omitempty"`
	Gender   *string `json:"gender,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type MFAEnrollResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
	Issuer     string `json:"issuer"`
	Account    string `json:"account"`
}

type MFACodeRequest struct {
	Code string `json:"code"`
}

// ============================================================================
// Administration
// ============================================================================

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role,omitempty"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

type UpdateUserRequest struct {
	UpdateProfileRequest
	Role    *string `json:"role,omitempty"`
	Enabled *bool   `json:"enabled,omitempty"`
}

type SetPasswordRequest struct {
	Password string `json:"password"`
}

type UserListResponse struct {
	Users []UserResponse `json:"users"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

type OperationLogResponse struct {
	ID            string    `json:"id"`
	ActorID       string    `json:"actor_id"`
	ActorUsername string    `json:"actor_username"`
	Action        string    `json:"action"`
	TargetType    string    `json:"target_type"`
	TargetID      string    `json:"target_id,omitempty"`
	TargetLabel   string    `json:"target_label,omitempty"`
	Success       bool      `json:"success"`
	Detail        string    `json:"detail,omitempty"`
	OriginAddress string    `json:"origin_address,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type OperationLogListResponse struct {
	Logs  []OperationLogResponse `json:"logs"`
	Total int                    `json:"total"`
	Page  int                    `json:"page"`
	Size  int                    `json:"size"`
}

type OperationLogStatsResponse struct {
	Total    int            `json:"total"`
	Success  int            `json:"success"`
	Failure  int            `json:"failure"`
	ByAction map[string]int `json:"by_action"`
}

// ListUsersParams and ListLogsParams are query filters. Zero values are
// omitted from the query string.
type ListUsersParams struct {
	Page    int
	Size    int
	Keyword string
}

type ListLogsParams struct {
	Page       int
	Size       int
	Actor      string
	Action     string
	TargetType string
	Success    *bool
	Start      *time.Time
	End        *time.Time
}
