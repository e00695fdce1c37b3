package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trueheal-portal/internal/models"
)

func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.doctor(t, "Asha Rao", "Cardiology")
	assert.True(t, doc.Verified, "admin-created accounts skip verification")
	assert.Equal(t, models.RoleDoctor, doc.Role)
	assert.Equal(t, models.AccountActive, doc.Status)
	assert.Nil(t, doc.OTP)

	_, err := f.users.CreateUser(ctx, CreateUserInput{Name: "X", Email: "asha.rao@hospital.test", Password: "password1", Role: "patient"})
	assert.ErrorIs(t, err, ErrDuplicateAccount)

	_, err = f.users.CreateUser(ctx, CreateUserInput{Name: "X", Email: "x@hospital.test", Password: "password1", Role: "doctor"})
	requireKind(t, err, KindValidation)

	_, err = f.users.CreateUser(ctx, CreateUserInput{Name: "X", Email: "x@hospital.test", Password: "password1", Role: "superuser"})
	requireKind(t, err, KindValidation)

	res, err := f.auth.Login(ctx, "asha.rao@hospital.test", "doctor-pass")
	require.NoError(t, err)
	assert.Equal(t, models.RoleDoctor, res.User.Role)
}

func TestListDoctors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	f.doctor(t, "Asha Rao", "Cardiology")
	off := f.doctor(t, "Ben Cole", "Cardiology")
	f.doctor(t, "Cara Diaz", "Neurology")
	f.verifiedPatient(t, "jane@example.com", "password1")

	_, err := f.users.SetStatus(ctx, off.ID, "inactive", identity(admin))
	require.NoError(t, err)

	all, err := f.users.ListDoctors(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cardio, err := f.users.ListDoctors(ctx, "Cardiology")
	require.NoError(t, err)
	require.Len(t, cardio, 1)
	assert.Equal(t, "Asha Rao", cardio[0].Name)
}

func TestListUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.admin(t)
	f.doctor(t, "Asha Rao", "Cardiology")

	users, err := f.users.ListUsers(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, users, 2)

	users, err = f.users.ListUsers(ctx, "DOCTOR", "active")
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = f.users.ListUsers(ctx, "wizard", "")
	requireKind(t, err, KindValidation)
	_, err = f.users.ListUsers(ctx, "", "sleeping")
	requireKind(t, err, KindValidation)
}

func TestSetAndToggleStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	u := f.verifiedPatient(t, "jane@example.com", "password1")

	got, err := f.users.ToggleStatus(ctx, u.ID, identity(admin))
	require.NoError(t, err)
	assert.Equal(t, models.AccountInactive, got.Status)

	_, err = f.auth.Login(ctx, "jane@example.com", "password1")
	assert.ErrorIs(t, err, ErrDeactivated)

	got, err = f.users.ToggleStatus(ctx, u.ID, identity(admin))
	require.NoError(t, err)
	assert.Equal(t, models.AccountActive, got.Status)
	assert.True(t, got.Verified, "status and verification are separate")

	_, err = f.users.SetStatus(ctx, u.ID, "frozen", identity(admin))
	requireKind(t, err, KindValidation)

	_, err = f.users.SetStatus(ctx, admin.ID, "inactive", identity(admin))
	requireKind(t, err, KindValidation)

	_, err = f.users.SetStatus(ctx, "missing", "active", identity(admin))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	u := f.verifiedPatient(t, "jane@example.com", "password1")

	requireKind(t, f.users.DeleteUser(ctx, admin.ID, identity(admin)), KindValidation)

	require.NoError(t, f.users.DeleteUser(ctx, u.ID, identity(admin)))
	_, err := f.users.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, f.users.DeleteUser(ctx, u.ID, identity(admin)), ErrUserNotFound)
}

func TestProfile(t *testing.T) {
	f := newFixture(t)
	u := f.verifiedPatient(t, "jane@example.com", "password1")

	got, err := f.users.Profile(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", got.Email)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	patient := f.verifiedPatient(t, "jane@example.com", "password1")
	doc := f.doctor(t, "Asha Rao", "Cardiology")

	name, phone := "  Jane Q. Doe ", "555-0199"
	got, err := f.users.UpdateProfile(ctx, identity(patient), ProfileInput{Name: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Jane Q. Doe", got.Name)
	assert.Equal(t, "555-0199", got.Phone)
	assert.True(t, got.CheckPassword("password1"))

	bio := "Cardiologist"
	_, err = f.users.UpdateProfile(ctx, identity(patient), ProfileInput{Bio: &bio})
	assert.ErrorIs(t, err, ErrForbidden, "patients have no directory entry")

	timing := "Mon-Fri 9-5"
	got, err = f.users.UpdateProfile(ctx, identity(doc), ProfileInput{Bio: &bio, Timing: &timing})
	require.NoError(t, err)
	assert.Equal(t, "Cardiologist", got.Bio)
	assert.Equal(t, "Mon-Fri 9-5", got.Timing)
	assert.Equal(t, "Cardiology", got.Department)

	empty := " "
	_, err = f.users.UpdateProfile(ctx, identity(doc), ProfileInput{Name: &empty})
	requireKind(t, err, KindValidation)
	_, err = f.users.UpdateProfile(ctx, identity(doc), ProfileInput{Department: &empty})
	requireKind(t, err, KindValidation)

	_, err = f.users.UpdateProfile(ctx, models.Identity{UserID: "missing", Role: models.RolePatient}, ProfileInput{Phone: &phone})
	assert.ErrorIs(t, err, ErrUserNotFound)
}
