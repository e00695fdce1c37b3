package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_Verification(t *testing.T) {
	code := "123456"
	expiry := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	u := User{OTP: &code, OTPExpiry: &expiry}
	assert.Equal(t, Unverified{Code: code, Expiry: expiry}, u.Verification())

	u = User{}
	assert.Equal(t, Unverified{}, u.Verification())

	u = User{Verified: true}
	assert.Equal(t, Verified{}, u.Verification())
}

func TestUser_Password(t *testing.T) {
	u := User{}
	require.NoError(t, u.SetPassword("s3cret-pass"))
	assert.NotEqual(t, "s3cret-pass", u.Password)
	assert.True(t, u.CheckPassword("s3cret-pass"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestUser_IsActive(t *testing.T) {
	assert.True(t, (&User{}).IsActive())
	assert.True(t, (&User{Status: AccountActive}).IsActive())
	assert.False(t, (&User{Status: AccountInactive}).IsActive())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
}

func TestUser_JSONHidesSecrets(t *testing.T) {
	code, token := "123456", "abc"
	u := User{Email: "a@x.com", Password: "hash", OTP: &code, ResetToken: &token}

	b, err := json.Marshal(u)
	require.NoError(t, err)
	s := string(b)
	assert.NotContains(t, s, "hash")
	assert.NotContains(t, s, code)
	assert.NotContains(t, s, token)
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleDoctor.Valid())
	assert.True(t, RolePatient.Valid())
	assert.False(t, Role("superuser").Valid())
}

func TestIdentity_HasRole(t *testing.T) {
	id := Identity{UserID: "u", Role: RoleDoctor}
	assert.True(t, id.HasRole(RoleAdmin, RoleDoctor))
	assert.False(t, id.HasRole(RolePatient))
	assert.False(t, id.HasRole())
}

func TestDoctorName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Dr. Asha Rao", "Asha Rao"},
		{"dr Asha Rao", "Asha Rao"},
		{"DR.Asha Rao", "Asha Rao"},
		{"  Asha Rao  ", "Asha Rao"},
		{"Drew Carey", "Drew Carey"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DoctorName(tt.in), tt.in)
	}
}

func TestUser_MatchesDoctor(t *testing.T) {
	doc := &User{Name: "Dr. Jane Smith", Role: RoleDoctor, Department: "Cardiology"}

	assert.True(t, doc.MatchesDoctor("Dr. Jane Smith", "Cardiology"))
	assert.True(t, doc.MatchesDoctor("jane smith", "cardiology"))
	assert.True(t, doc.MatchesDoctor("  JANE   SMITH ", " Cardiology"))
	assert.False(t, doc.MatchesDoctor("Jane Smithers", "Cardiology"))
	assert.False(t, doc.MatchesDoctor("Jane Smith", "Neurology"))
	assert.False(t, doc.MatchesDoctor("Dr.", "Cardiology"))

	plain := &User{Name: "Drew Carey", Role: RoleDoctor, Department: "Cardiology"}
	assert.True(t, plain.MatchesDoctor("Dr Drew Carey", "Cardiology"))

	patient := &User{Name: "Jane Smith", Role: RolePatient, Department: "Cardiology"}
	assert.False(t, patient.MatchesDoctor("Jane Smith", "Cardiology"))
}
