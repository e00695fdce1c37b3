// Package storetest holds the behaviour every store.Store driver must share.
// Driver packages call Run from their own tests.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trueheal-portal/internal/models"
	"trueheal-portal/internal/store"
)

// Factory returns an empty store. Drivers backed by a shared database should
// hand out a fresh schema or database per call.
type Factory func(t *testing.T) store.Store

// Run executes the contract suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateUserDuplicateEmail", func(t *testing.T) { testDuplicateEmail(t, newStore(t)) })
	t.Run("PendingRegistration", func(t *testing.T) { testPendingRegistration(t, newStore(t)) })
	t.Run("ConsumeOTP", func(t *testing.T) { testConsumeOTP(t, newStore(t)) })
	t.Run("ResetToken", func(t *testing.T) { testResetToken(t, newStore(t)) })
	t.Run("UserAdmin", func(t *testing.T) { testUserAdmin(t, newStore(t)) })
	t.Run("FindDoctor", func(t *testing.T) { testFindDoctor(t, newStore(t)) })
	t.Run("TransitionAppointment", func(t *testing.T) { testTransition(t, newStore(t)) })
	t.Run("ListAppointments", func(t *testing.T) { testListAppointments(t, newStore(t)) })
	t.Run("LinkGuestAppointments", func(t *testing.T) { testLink(t, newStore(t)) })
	t.Run("LinkConcurrent", func(t *testing.T) { testLinkConcurrent(t, newStore(t)) })
	t.Run("UpdateProfile", func(t *testing.T) { testUpdateProfile(t, newStore(t)) })
	t.Run("Reports", func(t *testing.T) { testReports(t, newStore(t)) })
	t.Run("Messages", func(t *testing.T) { testMessages(t, newStore(t)) })
	t.Run("Departments", func(t *testing.T) { testDepartments(t, newStore(t)) })
}

func ptr[T any](v T) *T { return &v }

func email() string {
	return "user-" + uuid.NewString()[:8] + "@example.com"
}

func newPending(addr string, code string, expiry time.Time) *models.User {
	return &models.User{
		Name:      "Pending",
		Email:     addr,
		Password:  "hash",
		Role:      models.RolePatient,
		Status:    models.AccountActive,
		OTP:       ptr(code),
		OTPExpiry: ptr(expiry),
	}
}

func testDuplicateEmail(t *testing.T, s store.Store) {
	ctx := context.Background()
	addr := email()
	require.NoError(t, s.CreateUser(ctx, newPending(addr, "111111", time.Now().Add(time.Minute))))

	err := s.CreateUser(ctx, newPending(addr, "222222", time.Now().Add(time.Minute)))
	assert.ErrorIs(t, err, store.ErrDuplicate)

	_, err = s.GetUserByEmail(ctx, "missing-"+addr)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testPendingRegistration(t *testing.T, s store.Store) {
	ctx := context.Background()
	addr := email()
	u := newPending(addr, "111111", time.Now().Add(time.Minute))
	require.NoError(t, s.CreateUser(ctx, u))
	require.NotEmpty(t, u.ID)

	expiry := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	got, err := s.RefreshPendingRegistration(ctx, store.PendingRegistration{
		Email: addr, OTP: "222222", OTPExpiry: expiry,
	})
	require.NoError(t, err)
	assert.Equal(t, "Pending", got.Name, "only the code is reissued")
	assert.Equal(t, "hash", got.Password)
	require.NotNil(t, got.OTP)
	assert.Equal(t, "222222", *got.OTP)
	require.NotNil(t, got.OTPExpiry)
	assert.WithinDuration(t, expiry, *got.OTPExpiry, time.Second)

	_, err = s.ConsumeOTP(ctx, addr, "222222", time.Now())
	require.NoError(t, err)

	_, err = s.RefreshPendingRegistration(ctx, store.PendingRegistration{Email: addr, OTP: "333333", OTPExpiry: expiry})
	assert.ErrorIs(t, err, store.ErrNotFound, "verified accounts are never refreshed")
}

func testConsumeOTP(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now()
	addr := email()
	require.NoError(t, s.CreateUser(ctx, newPending(addr, "123456", now.Add(5*time.Minute))))

	_, err := s.ConsumeOTP(ctx, addr, "000000", now)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.ConsumeOTP(ctx, addr, "123456", now.Add(10*time.Minute))
	assert.ErrorIs(t, err, store.ErrNotFound, "expired code")

	u, err := s.ConsumeOTP(ctx, addr, "123456", now)
	require.NoError(t, err)
	assert.True(t, u.Verified)
	assert.Nil(t, u.OTP)
	assert.Nil(t, u.OTPExpiry)

	_, err = s.ConsumeOTP(ctx, addr, "123456", now)
	assert.ErrorIs(t, err, store.ErrNotFound, "codes are single use")
}

func testResetToken(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now()
	addr := email()
	require.NoError(t, s.CreateUser(ctx, newPending(addr, "123456", now.Add(time.Minute))))

	_, err := s.SetResetToken(ctx, "missing-"+addr, "tok", now)
	assert.ErrorIs(t, err, store.ErrNotFound)

	token := uuid.NewString()
	_, err = s.SetResetToken(ctx, addr, token, now.Add(15*time.Minute))
	require.NoError(t, err)

	_, err = s.ConsumeResetToken(ctx, token, "newhash", now.Add(20*time.Minute))
	assert.ErrorIs(t, err, store.ErrNotFound, "expired token")

	u, err := s.ConsumeResetToken(ctx, token, "newhash", now)
	require.NoError(t, err)
	assert.Equal(t, "newhash", u.Password)
	assert.Nil(t, u.ResetToken)
	assert.Nil(t, u.ResetTokenExpiry)

	_, err = s.ConsumeResetToken(ctx, token, "again", now)
	assert.ErrorIs(t, err, store.ErrNotFound, "tokens are single use")
}

func testUserAdmin(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := &models.User{Name: "Admin", Email: email(), Password: "h", Role: models.RoleAdmin, Status: models.AccountActive, Verified: true}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.SetUserStatus(ctx, u.ID, models.AccountInactive)
	require.NoError(t, err)
	assert.Equal(t, models.AccountInactive, got.Status)

	list, err := s.ListUsers(ctx, store.UserFilter{Role: models.RoleAdmin, Status: models.AccountInactive})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, u.ID, list[0].ID)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	_, err = s.GetUserByID(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), store.ErrNotFound)

	_, err = s.SetUserStatus(ctx, u.ID, models.AccountActive)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testFindDoctor(t *testing.T, s store.Store) {
	ctx := context.Background()
	doc := &models.User{Name: "Asha Rao", Email: email(), Password: "h", Role: models.RoleDoctor, Status: models.AccountActive, Verified: true, Department: "Cardiology"}
	require.NoError(t, s.CreateUser(ctx, doc))

	got, err := s.FindDoctor(ctx, "Asha Rao", "Cardiology")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	_, err = s.FindDoctor(ctx, "Asha Rao", "Neurology")
	assert.ErrorIs(t, err, store.ErrNotFound)

	titled := &models.User{Name: "Dr. Jane Smith", Email: email(), Password: "h", Role: models.RoleDoctor, Status: models.AccountActive, Verified: true, Department: "Neurology"}
	require.NoError(t, s.CreateUser(ctx, titled))
	for _, name := range []string{"Dr. Jane Smith", "jane smith", "DR JANE  SMITH", "Jane Smith"} {
		got, err := s.FindDoctor(ctx, name, "neurology")
		require.NoError(t, err, name)
		assert.Equal(t, titled.ID, got.ID, name)
	}

	patient := &models.User{Name: "Jane Smith", Email: email(), Password: "h", Role: models.RolePatient, Status: models.AccountActive, Department: "Cardiology"}
	require.NoError(t, s.CreateUser(ctx, patient))
	_, err = s.FindDoctor(ctx, "Jane Smith", "Cardiology")
	assert.ErrorIs(t, err, store.ErrNotFound, "only doctors match")
}

func newAppointment(addr string, owner *string) *models.Appointment {
	return &models.Appointment{
		ContactEmail: addr,
		OwnerID:      owner,
		FirstName:    "Jo",
		Department:   "Cardiology",
		Date:         "2026-11-02",
		Time:         "10:00",
		Status:       models.StatusPending,
	}
}

func testTransition(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := newAppointment(email(), nil)
	require.NoError(t, s.CreateAppointment(ctx, a))
	require.NotEmpty(t, a.ID)

	got, err := s.TransitionAppointment(ctx, a.ID, models.StatusPending, store.AppointmentUpdate{
		Status: models.StatusRescheduled, Date: ptr("2026-11-05"), Time: ptr("14:30"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRescheduled, got.Status)
	assert.Equal(t, "2026-11-05", got.Date)
	assert.Equal(t, "14:30", got.Time)

	_, err = s.TransitionAppointment(ctx, a.ID, models.StatusPending, store.AppointmentUpdate{Status: models.StatusConfirmed})
	assert.ErrorIs(t, err, store.ErrConflict, "stale status loses")

	_, err = s.TransitionAppointment(ctx, uuid.NewString(), models.StatusPending, store.AppointmentUpdate{Status: models.StatusConfirmed})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetAppointment(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testListAppointments(t *testing.T, s store.Store) {
	ctx := context.Background()
	owner := uuid.NewString()
	doctor := uuid.NewString()

	a1 := newAppointment(email(), ptr(owner))
	a1.Date = "2026-11-03"
	a2 := newAppointment(email(), ptr(owner))
	a2.Date = "2026-11-01"
	a2.DoctorID = ptr(doctor)
	a3 := newAppointment(email(), nil)
	a3.DoctorID = ptr(doctor)
	a3.Status = models.StatusConfirmed
	for _, a := range []*models.Appointment{a1, a2, a3} {
		require.NoError(t, s.CreateAppointment(ctx, a))
	}

	mine, err := s.ListAppointments(ctx, store.AppointmentFilter{OwnerID: owner})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, a2.ID, mine[0].ID, "ordered by date")

	docs, err := s.ListAppointments(ctx, store.AppointmentFilter{DoctorID: doctor, Status: models.StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, a3.ID, docs[0].ID)
}

func testLink(t *testing.T, s store.Store) {
	ctx := context.Background()
	addr := email()
	other := uuid.NewString()
	user := uuid.NewString()

	g1 := newAppointment(addr, nil)
	g2 := newAppointment(addr, nil)
	owned := newAppointment(addr, ptr(other))
	unrelated := newAppointment(email(), nil)
	for _, a := range []*models.Appointment{g1, g2, owned, unrelated} {
		require.NoError(t, s.CreateAppointment(ctx, a))
	}

	n, err := s.LinkGuestAppointments(ctx, user, addr)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = s.LinkGuestAppointments(ctx, uuid.NewString(), addr)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "second run is a no-op")

	for _, a := range []*models.Appointment{g1, g2} {
		got, err := s.GetAppointment(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, got.IsOwnedBy(user))
	}
	got, err := s.GetAppointment(ctx, owned.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOwnedBy(other), "owned appointments are never reassigned")

	got, err = s.GetAppointment(ctx, unrelated.ID)
	require.NoError(t, err)
	assert.Nil(t, got.OwnerID)
}

func testLinkConcurrent(t *testing.T, s store.Store) {
	ctx := context.Background()
	addr := email()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.CreateAppointment(ctx, newAppointment(addr, nil)))
	}

	user := uuid.NewString()
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int64
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.LinkGuestAppointments(ctx, user, addr)
			assert.NoError(t, err)
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 5, total, "each appointment is linked exactly once")

	list, err := s.ListAppointments(ctx, store.AppointmentFilter{OwnerID: user})
	require.NoError(t, err)
	assert.Len(t, list, 5)
}

func testUpdateProfile(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := &models.User{Name: "Asha", Email: email(), Password: "h", Role: models.RoleDoctor, Status: models.AccountActive, Phone: "111", Department: "Cardiology"}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.UpdateProfile(ctx, u.ID, store.ProfileUpdate{Phone: ptr("222"), Bio: ptr("Heart doctor")})
	require.NoError(t, err)
	assert.Equal(t, "222", got.Phone)
	assert.Equal(t, "Heart doctor", got.Bio)
	assert.Equal(t, "Asha", got.Name, "unset fields are kept")
	assert.Equal(t, "Cardiology", got.Department)
	assert.Equal(t, "h", got.Password)

	_, err = s.UpdateProfile(ctx, uuid.NewString(), store.ProfileUpdate{Name: ptr("x")})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testReports(t *testing.T, s store.Store) {
	ctx := context.Background()
	patient := uuid.NewString()
	doctor := uuid.NewString()

	r1 := &models.Report{PatientID: patient, DoctorID: doctor, Title: "Blood panel", FileURL: "https://files.test/1.pdf"}
	require.NoError(t, s.CreateReport(ctx, r1))
	require.NotEmpty(t, r1.ID)
	assert.Equal(t, models.ReportPending, r1.Status)

	r2 := &models.Report{PatientID: uuid.NewString(), DoctorID: doctor, Title: "X-ray", FileURL: "https://files.test/2.pdf"}
	require.NoError(t, s.CreateReport(ctx, r2))

	mine, err := s.ListReports(ctx, store.ReportFilter{PatientID: patient})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, r1.ID, mine[0].ID)

	byDoctor, err := s.ListReports(ctx, store.ReportFilter{DoctorID: doctor})
	require.NoError(t, err)
	assert.Len(t, byDoctor, 2)

	got, err := s.TransitionReport(ctx, r1.ID, models.ReportPending, models.ReportReady)
	require.NoError(t, err)
	assert.Equal(t, models.ReportReady, got.Status)

	_, err = s.TransitionReport(ctx, r1.ID, models.ReportPending, models.ReportRejected)
	assert.ErrorIs(t, err, store.ErrConflict, "a reviewed report is not reviewed again")

	_, err = s.TransitionReport(ctx, uuid.NewString(), models.ReportPending, models.ReportReady)
	assert.ErrorIs(t, err, store.ErrNotFound)

	ready, err := s.ListReports(ctx, store.ReportFilter{Status: models.ReportReady})
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, r1.ID, ready[0].ID)

	_, err = s.GetReport(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testMessages(t *testing.T, s store.Store) {
	ctx := context.Background()
	first := &models.ContactMessage{Name: "Jo", Email: email(), Subject: "Parking", Body: "Is there parking?"}
	require.NoError(t, s.CreateMessage(ctx, first))
	time.Sleep(10 * time.Millisecond)
	second := &models.ContactMessage{Name: "Sam", Email: email(), Body: "Visiting hours?"}
	require.NoError(t, s.CreateMessage(ctx, second))

	list, err := s.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, "Is there parking?", list[1].Body)
}

func testDepartments(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateDepartment(ctx, &models.Department{Name: "Neurology", Timing: "By Appointment"}))
	require.NoError(t, s.CreateDepartment(ctx, &models.Department{Name: "Cardiology"}))

	err := s.CreateDepartment(ctx, &models.Department{Name: "Cardiology"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	list, err := s.ListDepartments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Cardiology", list[0].Name)
	assert.Equal(t, "By Appointment", list[1].Timing)
}
