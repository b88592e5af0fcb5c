package rbac

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model. CurrentToken is the session binding: it holds the
// one live token for this user or NULL when logged out, and is the source of
// truth for revocation.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          UserRole   `bun:"role,notnull" json:"role,omitempty"`
	FirstName     string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	Address       string     `bun:"address" json:"address,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	CurrentToken  *string    `bun:"current_token,nullzero" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// ReportStatus values accepted on report submission
const (
	ReportStatusDraft     = "draft"
	ReportStatusSubmitted = "submitted"
	ReportStatusApproved  = "approved"
	ReportStatusRejected  = "rejected"
)

// Report belongs to the user that submitted it
type Report struct {
	bun.BaseModel `bun:"table:reports,alias:rpt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Title         string     `bun:"report_title,notnull" json:"report_title,omitempty"`
	Content       string     `bun:"report_content" json:"report_content,omitempty"`
	Status        string     `bun:"status,notnull" json:"status,omitempty"`
	SubmittedAt   *time.Time `bun:"submitted_at,nullzero,default:current_timestamp" json:"submitted_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsLoggedIn reports whether the user currently holds a bound session token
func (u *User) IsLoggedIn() bool {
	return u.CurrentToken != nil && *u.CurrentToken != ""
}
