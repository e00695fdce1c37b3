package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trueheal-portal/internal/logging"
	"trueheal-portal/internal/mailer"
	"trueheal-portal/internal/models"
	"trueheal-portal/internal/store"
	"trueheal-portal/internal/store/memstore"
)

const testSecret = "test-secret"

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *recordingMailer) messages() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.sent...)
}

func (m *recordingMailer) last(t *testing.T) mailer.Message {
	t.Helper()
	msgs := m.messages()
	require.NotEmpty(t, msgs, "no email sent")
	return msgs[len(msgs)-1]
}

// blockingMailer waits for the context to end, as a stalled relay would.
type blockingMailer struct {
	hadDeadline bool
}

func (m *blockingMailer) Send(ctx context.Context, msg mailer.Message) error {
	_, m.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return ctx.Err()
}

type fixture struct {
	store *memstore.Store
	mail  *recordingMailer
	auth  *AuthService
	appts *AppointmentService
	users *UserService
	gate  *TokenGate

	reports     *ReportService
	messages    *MessageService
	departments *DepartmentService

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memstore.New(),
		mail:  &recordingMailer{},
		now:   time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	log := logging.Discard()
	linker := NewLinker(f.store, log, nil)
	f.auth = NewAuthService(f.store, linker, f.mail, AuthConfig{
		JWTSecret: testSecret,
		TokenTTL:  7 * 24 * time.Hour,
		OTPTTL:    5 * time.Minute,
		ResetTTL:  15 * time.Minute,
		ClientURL: "http://portal.test/",
	}, log, nil)
	f.auth.now = f.clock
	f.appts = NewAppointmentService(f.store, f.store, f.mail, AppointmentConfig{Hospital: "Test Hospital"}, log, nil)
	f.users = NewUserService(f.store, log)
	f.reports = NewReportService(f.store, f.store, log)
	f.messages = NewMessageService(f.store, f.mail, "Test Hospital", log, nil)
	f.departments = NewDepartmentService(f.store, log)
	f.gate = NewTokenGate(testSecret)
	f.gate.now = f.clock
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := f.store.GetUserByEmail(context.Background(), email)
	require.NoError(t, err)
	return u
}

// register runs Register and returns the code that was stored.
func (f *fixture) register(t *testing.T, email, password string) string {
	t.Helper()
	require.NoError(t, f.auth.Register(context.Background(), RegisterInput{
		Name: "Jane Doe", Email: email, Phone: "555-0100", Password: password,
	}))
	u := f.user(t, email)
	require.NotNil(t, u.OTP)
	return *u.OTP
}

// verifiedPatient registers and verifies an account.
func (f *fixture) verifiedPatient(t *testing.T, email, password string) *models.User {
	t.Helper()
	code := f.register(t, email, password)
	require.NoError(t, f.auth.VerifyOTP(context.Background(), email, code))
	return f.user(t, email)
}

func (f *fixture) doctor(t *testing.T, name, department string) *models.User {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), CreateUserInput{
		Name: name, Email: strings.ReplaceAll(strings.ToLower(name), " ", ".") + "@hospital.test", Password: "doctor-pass",
		Role: "doctor", Department: department,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) admin(t *testing.T) *models.User {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), CreateUserInput{
		Name: "Root", Email: "admin@hospital.test", Password: "admin-pass", Role: "admin",
	})
	require.NoError(t, err)
	return u
}

func identity(u *models.User) models.Identity {
	return models.Identity{UserID: u.ID, Role: u.Role}
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	se, ok := AsError(err)
	require.True(t, ok, "expected service error, got %v", err)
	require.Equal(t, kind, se.Kind)
}

// requireOTPPair checks that otp and its expiry are set together.
func requireOTPPair(t *testing.T, u *models.User) {
	t.Helper()
	require.Equal(t, u.OTP == nil, u.OTPExpiry == nil, "otp and otp expiry must be both set or both unset")
	if u.Verified {
		require.Nil(t, u.OTP)
	}
}

var (
	errSMTPDown    = errors.New("smtp down")
	storeFilterAll = store.UserFilter{}
)
