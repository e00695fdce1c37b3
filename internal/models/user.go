package models

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// AccountStatus is the administrative lifecycle of an account. It is
// independent of email verification.
type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
)

// Valid reports whether s is one of the known account states.
func (s AccountStatus) Valid() bool {
	return s == AccountActive || s == AccountInactive
}

// User represents a user in the system
type User struct {
	BaseModel `bson:",inline"`

	Name     string        `gorm:"size:200" bson:"name" json:"name"`
	Email    string        `gorm:"uniqueIndex;size:255;not null" bson:"email" json:"email"`
	Password string        `gorm:"size:255;not null" bson:"password" json:"-"` // Never send password in JSON
	Phone    string        `gorm:"size:50" bson:"phone,omitempty" json:"phone,omitempty"`
	Role     Role          `gorm:"size:20;default:'patient';index" bson:"role" json:"role"`
	Status   AccountStatus `gorm:"size:20;default:'active'" bson:"status" json:"status"`

	Verified  bool       `gorm:"default:false" bson:"verified" json:"verified"`
	OTP       *string    `gorm:"size:6" bson:"otp" json:"-"`
	OTPExpiry *time.Time `bson:"otp_expiry" json:"-"`

	ResetToken       *string    `gorm:"size:64;index" bson:"reset_token" json:"-"`
	ResetTokenExpiry *time.Time `bson:"reset_token_expiry" json:"-"`

	// Doctor profile, display only
	Specialty  string `gorm:"size:100" bson:"specialty,omitempty" json:"specialty,omitempty"`
	Department string `gorm:"size:100;index" bson:"department,omitempty" json:"department,omitempty"`
	Bio        string `gorm:"type:text" bson:"bio,omitempty" json:"bio,omitempty"`
	Timing     string `gorm:"size:100" bson:"timing,omitempty" json:"timing,omitempty"`
}

// VerificationState is either Unverified or Verified.
type VerificationState interface {
	isVerificationState()
}

// Unverified carries the outstanding one-time code. Code is empty when no
// code has been issued.
type Unverified struct {
	Code   string
	Expiry time.Time
}

// Verified means the email address has been proven.
type Verified struct{}

func (Unverified) isVerificationState() {}
func (Verified) isVerificationState()   {}

// Verification folds the verified flag and the otp pair into one value.
func (u *User) Verification() VerificationState {
	if u.Verified {
		return Verified{}
	}
	st := Unverified{}
	if u.OTP != nil && u.OTPExpiry != nil {
		st.Code = *u.OTP
		st.Expiry = *u.OTPExpiry
	}
	return st
}

// IsActive reports whether the account may log in.
func (u *User) IsActive() bool {
	return u.Status == "" || u.Status == AccountActive
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

// NormalizeEmail trims and lower-cases an address. Every lookup and write
// keyed by email goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var honorific = regexp.MustCompile(`(?i)^dr(\.\s*|\s+)`)

// DoctorName strips a leading "Dr"/"Dr." honorific and surrounding space.
func DoctorName(s string) string {
	return strings.TrimSpace(honorific.ReplaceAllString(strings.TrimSpace(s), ""))
}

// doctorKey is the form doctor names are compared in: no honorific, single
// spaces, lower case.
func doctorKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(DoctorName(s)), " "))
}

// MatchesDoctor reports whether u is a doctor of department whose name,
// honorific and case aside, is name.
func (u *User) MatchesDoctor(name, department string) bool {
	if u.Role != RoleDoctor {
		return false
	}
	key := doctorKey(name)
	if key == "" || key != doctorKey(u.Name) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(u.Department), strings.TrimSpace(department))
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Phone      string        `json:"phone,omitempty"`
	Role       Role          `json:"role"`
	Status     AccountStatus `json:"status"`
	Verified   bool          `json:"verified"`
	Specialty  string        `json:"specialty,omitempty"`
	Department string        `json:"department,omitempty"`
	Bio        string        `json:"bio,omitempty"`
	Timing     string        `json:"timing,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Phone:      u.Phone,
		Role:       u.Role,
		Status:     u.Status,
		Verified:   u.Verified,
		Specialty:  u.Specialty,
		Department: u.Department,
		Bio:        u.Bio,
		Timing:     u.Timing,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// UserProfile is the short identity block returned on login.
type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Profile returns the login profile of u.
func (u *User) Profile() UserProfile {
	return UserProfile{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
