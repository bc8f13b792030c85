package handler

import (
	"strings"
	"time"
)

type credentialsRequest struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=4,max=72"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type updateUserRequest struct {
	Email *string `json:"email" validate:"required,email,max=254"`
}

type predictionRequest struct {
	Prediction string  `json:"prediction" validate:"required,max=200"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=100"`
	Model      string  `json:"model"      validate:"max=100"`
	Filename   string  `json:"filename"   validate:"max=255"`
}

func (r *credentialsRequest) trim()   { r.Email = strings.TrimSpace(r.Email) }
func (r *loginRequest) trim()         { r.Email = strings.TrimSpace(r.Email) }
func (r *updateProfileRequest) trim() { r.Email = strings.TrimSpace(r.Email) }

func (r *updateUserRequest) trim() {
	if r.Email != nil {
		email := strings.TrimSpace(*r.Email)
		r.Email = &email
	}
}

type historyQuery struct {
	UserEmail string `query:"user_email"`
	Action    string `query:"action"`
	Limit     int    `query:"limit"`
}

// userResponse is the public projection of an account. The credential is
// never part of it.
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

type authResponse struct {
	User      userResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type meResponse struct {
	SignedIn bool         `json:"signed_in"`
	User     userResponse `json:"user"`
}

type userEnvelope struct {
	Message string       `json:"message,omitempty"`
	User    userResponse `json:"user"`
}

type usersResponse struct {
	Users []userResponse `json:"users"`
}

type toggleAdminResponse struct {
	Message string `json:"message"`
	IsAdmin bool   `json:"is_admin"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type statsResponse struct {
	TotalUsers   int            `json:"total_users"`
	AdminUsers   int            `json:"admin_users"`
	RegularUsers int            `json:"regular_users"`
	UsersToday   int            `json:"users_today"`
	UsersWeek    int            `json:"users_week"`
	UsersMonth   int            `json:"users_month"`
	RecentUsers  []userResponse `json:"recent_users"`
	GeneratedAt  time.Time      `json:"generated_at"`
}

type historyEntryResponse struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	UserEmail  string         `json:"user_email"`
	Action     string         `json:"action"`
	SubjectID  string         `json:"subject_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type historyResponse struct {
	History []historyEntryResponse `json:"history"`
}

type entryEnvelope struct {
	Entry historyEntryResponse `json:"entry"`
}

type accessResponse struct {
	Decision   string `json:"decision"`
	RedirectTo string `json:"redirect_to,omitempty"`
}
