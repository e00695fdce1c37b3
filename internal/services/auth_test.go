package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trueheal-portal/internal/models"
)

func TestRegister_CreatesUnverifiedPatient(t *testing.T) {
	f := newFixture(t)
	code := f.register(t, " Jane@Example.com ", "password1")

	u := f.user(t, "jane@example.com")
	assert.False(t, u.Verified)
	assert.Equal(t, models.RolePatient, u.Role)
	assert.Equal(t, models.AccountActive, u.Status)
	assert.NotEqual(t, "password1", u.Password)
	require.NotNil(t, u.OTPExpiry)
	assert.Equal(t, f.clock().Add(5*time.Minute), *u.OTPExpiry)
	assert.Len(t, code, 6)
	requireOTPPair(t, u)

	msg := f.mail.last(t)
	assert.Equal(t, "jane@example.com", msg.To)
	assert.Contains(t, msg.Body, code)
}

func TestRegister_RejectsVerifiedDuplicate(t *testing.T) {
	f := newFixture(t)
	f.verifiedPatient(t, "jane@example.com", "password1")

	err := f.auth.Register(context.Background(), RegisterInput{Name: "Other", Email: "JANE@example.com", Password: "password2"})
	assert.ErrorIs(t, err, ErrDuplicateAccount)
	assert.True(t, f.user(t, "jane@example.com").CheckPassword("password1"), "existing account untouched")
}

func TestRegister_AgainReplacesCode(t *testing.T) {
	f := newFixture(t)
	first := f.register(t, "jane@example.com", "password1")

	f.advance(2 * time.Minute)
	second := f.register(t, "jane@example.com", "password2")

	u := f.user(t, "jane@example.com")
	require.NotNil(t, u.OTPExpiry)
	assert.Equal(t, f.clock().Add(5*time.Minute), *u.OTPExpiry, "expiry restarts with the new code")
	assert.True(t, u.CheckPassword("password1"), "password stays as first registered")
	assert.Equal(t, second, *u.OTP)
	assert.Contains(t, f.mail.last(t).Body, second)

	if first != second {
		err := f.auth.VerifyOTP(context.Background(), "jane@example.com", first)
		assert.ErrorIs(t, err, ErrInvalidOrExpiredOTP, "old code no longer works")
	}
	require.NoError(t, f.auth.VerifyOTP(context.Background(), "jane@example.com", second))
}

func TestRegister_AgainCannotTakeOverPendingAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.auth.Register(ctx, RegisterInput{
		Name: "Victim", Email: "victim@example.com", Phone: "555-0100", Password: "victim-pass-1",
	}))
	require.NoError(t, f.auth.Register(ctx, RegisterInput{
		Name: "Attacker", Email: "victim@example.com", Phone: "555-0666", Password: "attacker-pass",
	}))

	u := f.user(t, "victim@example.com")
	assert.Equal(t, "Victim", u.Name)
	assert.Equal(t, "555-0100", u.Phone)
	require.NotNil(t, u.OTP)
	require.NoError(t, f.auth.VerifyOTP(ctx, "victim@example.com", *u.OTP))

	_, err := f.auth.Login(ctx, "victim@example.com", "attacker-pass")
	assert.ErrorIs(t, err, ErrBadCredentials)

	res, err := f.auth.Login(ctx, "victim@example.com", "victim-pass-1")
	require.NoError(t, err)
	assert.Equal(t, "Victim", res.User.Name)
}

func TestRegister_DeliveryIsBounded(t *testing.T) {
	f := newFixture(t)
	f.auth.sendTimeout = 20 * time.Millisecond
	blocking := &blockingMailer{}
	f.auth.mailer = blocking

	start := time.Now()
	require.NoError(t, f.auth.Register(context.Background(), RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "password1"}))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, blocking.hadDeadline, "send runs under a deadline")
}

func TestRegister_ConcurrentCallsLeaveOneConsistentAccount(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := f.auth.Register(context.Background(), RegisterInput{
				Name: fmt.Sprintf("Jane %d", i), Email: "jane@example.com", Password: "password1",
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	users, err := f.store.ListUsers(context.Background(), storeFilterAll)
	require.NoError(t, err)
	require.Len(t, users, 1)

	u := users[0]
	requireOTPPair(t, u)
	require.NotNil(t, u.OTP)
	var mailed []string
	for _, m := range f.mail.messages() {
		mailed = append(mailed, m.Body)
	}
	assert.Contains(t, strings.Join(mailed, "\n"), *u.OTP, "stored code was mailed")
	require.NoError(t, f.auth.VerifyOTP(context.Background(), "jane@example.com", *u.OTP))
}

func TestRegister_EmailFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.mail.err = errSMTPDown

	require.NoError(t, f.auth.Register(context.Background(), RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "password1"}))
	assert.False(t, f.user(t, "jane@example.com").Verified)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []RegisterInput{
		{Name: "Jane", Email: "not-an-email", Password: "password1"},
		{Name: "", Email: "jane@example.com", Password: "password1"},
		{Name: "Jane", Email: "jane@example.com", Password: "short"},
	}
	for _, in := range tests {
		err := f.auth.Register(context.Background(), in)
		requireKind(t, err, KindValidation)
	}
	assert.Empty(t, f.mail.messages())
}

func TestVerifyOTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := f.register(t, "jane@example.com", "password1")

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	assert.ErrorIs(t, f.auth.VerifyOTP(ctx, "jane@example.com", wrong), ErrInvalidOrExpiredOTP)
	u := f.user(t, "jane@example.com")
	assert.False(t, u.Verified)
	requireOTPPair(t, u)
	require.NotNil(t, u.OTPExpiry)
	assert.Equal(t, f.clock().Add(5*time.Minute), *u.OTPExpiry, "failed attempts do not extend the expiry")

	assert.ErrorIs(t, f.auth.VerifyOTP(ctx, "nobody@example.com", code), ErrInvalidOrExpiredOTP)

	require.NoError(t, f.auth.VerifyOTP(ctx, "JANE@example.com", code))
	u = f.user(t, "jane@example.com")
	assert.True(t, u.Verified)
	assert.Equal(t, models.Verified{}, u.Verification())
	requireOTPPair(t, u)

	assert.ErrorIs(t, f.auth.VerifyOTP(ctx, "jane@example.com", code), ErrInvalidOrExpiredOTP, "codes are single use")
}

func TestVerifyOTP_Expired(t *testing.T) {
	f := newFixture(t)
	code := f.register(t, "jane@example.com", "password1")

	f.advance(5 * time.Minute)
	assert.ErrorIs(t, f.auth.VerifyOTP(context.Background(), "jane@example.com", code), ErrInvalidOrExpiredOTP)
	assert.False(t, f.user(t, "jane@example.com").Verified)
}

func TestVerifyOTP_LinksGuestBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	guest, err := f.appts.Book(ctx, booking("j@x.com"), nil)
	require.NoError(t, err)
	require.Nil(t, guest.OwnerID)

	u := f.verifiedPatient(t, "j@x.com", "password1")

	got, err := f.store.GetAppointment(ctx, guest.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OwnerID)
	assert.Equal(t, u.ID, *got.OwnerID)
}

func TestLogin_CheckOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Login(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	f.register(t, "pending@example.com", "password1")
	_, err = f.auth.Login(ctx, "pending@example.com", "password1")
	assert.ErrorIs(t, err, ErrNotVerified)

	u := f.verifiedPatient(t, "jane@example.com", "password1")
	_, err = f.store.SetUserStatus(ctx, u.ID, models.AccountInactive)
	require.NoError(t, err)
	_, err = f.auth.Login(ctx, "jane@example.com", "password1")
	assert.ErrorIs(t, err, ErrDeactivated, "deactivation wins over a correct password")
	_, err = f.auth.Login(ctx, "jane@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrDeactivated, "status is checked before the password")

	pending := f.user(t, "pending@example.com")
	_, err = f.store.SetUserStatus(ctx, pending.ID, models.AccountInactive)
	require.NoError(t, err)
	_, err = f.auth.Login(ctx, "pending@example.com", "password1")
	assert.ErrorIs(t, err, ErrDeactivated, "status is checked before verification")
}

func TestLogin_NoLockout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifiedPatient(t, "jane@example.com", "password1")

	for i := 0; i < 4; i++ {
		_, err := f.auth.Login(ctx, "jane@example.com", "wrong-password")
		assert.ErrorIs(t, err, ErrBadCredentials)
	}
	res, err := f.auth.Login(ctx, "jane@example.com", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestLogin_IssuesToken(t *testing.T) {
	f := newFixture(t)
	u := f.verifiedPatient(t, "jane@example.com", "password1")

	res, err := f.auth.Login(context.Background(), "Jane@Example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, models.UserProfile{ID: u.ID, Name: "Jane Doe", Email: "jane@example.com", Role: models.RolePatient}, res.User)

	id, err := f.gate.Authenticate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, models.Identity{UserID: u.ID, Role: models.RolePatient}, id)

	f.advance(7*24*time.Hour - time.Minute)
	_, err = f.gate.Authenticate(res.Token)
	require.NoError(t, err, "valid for seven days")

	f.advance(2 * time.Minute)
	_, err = f.gate.Authenticate(res.Token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestLogin_LinksBookingsMadeAfterVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.verifiedPatient(t, "jane@example.com", "password1")

	a, err := f.appts.Book(ctx, booking("Jane@Example.com"), nil)
	require.NoError(t, err)
	require.Nil(t, a.OwnerID)

	_, err = f.auth.Login(ctx, "jane@example.com", "password1")
	require.NoError(t, err)

	got, err := f.store.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOwnedBy(u.ID))
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifiedPatient(t, "jane@example.com", "password1")

	assert.ErrorIs(t, f.auth.ForgotPassword(ctx, "nobody@example.com"), ErrUserNotFound)

	require.NoError(t, f.auth.ForgotPassword(ctx, "jane@example.com"))
	u := f.user(t, "jane@example.com")
	require.NotNil(t, u.ResetToken)
	require.NotNil(t, u.ResetTokenExpiry)
	assert.Equal(t, f.clock().Add(15*time.Minute), *u.ResetTokenExpiry)
	token := *u.ResetToken
	assert.Len(t, token, 64)
	assert.Contains(t, f.mail.last(t).Body, "http://portal.test/reset-password/"+token)

	requireKind(t, f.auth.ResetPassword(ctx, token, "short"), KindValidation)

	require.NoError(t, f.auth.ResetPassword(ctx, token, "new-password"))
	u = f.user(t, "jane@example.com")
	assert.Nil(t, u.ResetToken)
	assert.Nil(t, u.ResetTokenExpiry)

	_, err := f.auth.Login(ctx, "jane@example.com", "new-password")
	require.NoError(t, err)
	_, err = f.auth.Login(ctx, "jane@example.com", "password1")
	assert.ErrorIs(t, err, ErrBadCredentials)

	assert.ErrorIs(t, f.auth.ResetPassword(ctx, token, "another-password"), ErrInvalidOrExpiredToken, "tokens are single use")
}

func TestPasswordReset_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifiedPatient(t, "jane@example.com", "password1")

	require.NoError(t, f.auth.ForgotPassword(ctx, "jane@example.com"))
	token := *f.user(t, "jane@example.com").ResetToken

	f.advance(16 * time.Minute)
	assert.ErrorIs(t, f.auth.ResetPassword(ctx, token, "new-password"), ErrInvalidOrExpiredToken)
	assert.True(t, f.user(t, "jane@example.com").CheckPassword("password1"))
}

func TestPasswordReset_DoesNotTouchOTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code := f.register(t, "jane@example.com", "password1")

	require.NoError(t, f.auth.ForgotPassword(ctx, "jane@example.com"))
	u := f.user(t, "jane@example.com")
	require.NotNil(t, u.OTP)
	assert.Equal(t, code, *u.OTP)
	assert.NotEqual(t, code, *u.ResetToken)
}

func TestGuestBookingThenRegistration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.appts.Book(ctx, booking("j@x.com"), nil)
	require.NoError(t, err)

	code := f.register(t, "j@x.com", "password1")
	got, err := f.store.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.OwnerID, "registration alone does not link")

	require.NoError(t, f.auth.VerifyOTP(ctx, "j@x.com", code))
	u := f.user(t, "j@x.com")

	got, err = f.store.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OwnerID)
	assert.Equal(t, u.ID, *got.OwnerID)

	mine, err := f.appts.ListForOwner(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ID)
}
