// Package gormstore implements store.Store on gorm with the MySQL driver.
package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"trueheal-portal/internal/models"
	"trueheal-portal/internal/store"
)

// Store wraps a gorm connection.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to MySQL and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	return New(db)
}

// New migrates the schema on an existing connection.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Appointment{},
		&models.Report{},
		&models.ContactMessage{},
		&models.Department{},
	); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying sql.DB.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func wrapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrDuplicate
	}
	return err
}

// updateUserWhere runs a conditional update and reloads the row by id.
// The reload happens after the write, so a racing writer can only make the
// returned copy newer, never undo the update.
func (s *Store) updateUserWhere(ctx context.Context, cond *gorm.DB, fields map[string]any) (*models.User, error) {
	var target models.User
	if err := cond.Session(&gorm.Session{}).Select("id").First(&target).Error; err != nil {
		return nil, wrapError(err)
	}
	fields["updated_at"] = time.Now()
	res := cond.Session(&gorm.Session{}).Where("id = ?", target.ID).Updates(fields)
	if res.Error != nil {
		return nil, wrapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetUserByID(ctx, target.ID)
}

func (s *Store) users(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.User{})
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = models.NormalizeEmail(u.Email)
	return wrapError(s.db.WithContext(ctx).Create(u).Error)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, wrapError(err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&u).Error; err != nil {
		return nil, wrapError(err)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context, f store.UserFilter) ([]*models.User, error) {
	q := s.db.WithContext(ctx).Order("created_at desc")
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Department != "" {
		q = q.Where("department = ?", f.Department)
	}
	users := []*models.User{}
	if err := q.Find(&users).Error; err != nil {
		return nil, wrapError(err)
	}
	return users, nil
}

// FindDoctor narrows by role in SQL and compares names in Go, since the
// stored name may carry an honorific the request omits.
func (s *Store) FindDoctor(ctx context.Context, name, department string) (*models.User, error) {
	var doctors []*models.User
	err := s.db.WithContext(ctx).
		Where("role = ?", models.RoleDoctor).
		Order("created_at asc").
		Find(&doctors).Error
	if err != nil {
		return nil, wrapError(err)
	}
	for _, u := range doctors {
		if u.MatchesDoctor(name, department) {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) RefreshPendingRegistration(ctx context.Context, p store.PendingRegistration) (*models.User, error) {
	cond := s.users(ctx).Where("email = ? AND verified = ?", models.NormalizeEmail(p.Email), false)
	return s.updateUserWhere(ctx, cond, map[string]any{
		"otp":        p.OTP,
		"otp_expiry": p.OTPExpiry,
	})
}

func (s *Store) ConsumeOTP(ctx context.Context, email, code string, now time.Time) (*models.User, error) {
	cond := s.users(ctx).Where("email = ? AND verified = ? AND otp = ? AND otp_expiry > ?",
		models.NormalizeEmail(email), false, code, now)
	return s.updateUserWhere(ctx, cond, map[string]any{
		"verified":   true,
		"otp":        nil,
		"otp_expiry": nil,
	})
}

func (s *Store) SetResetToken(ctx context.Context, email, token string, expiry time.Time) (*models.User, error) {
	cond := s.users(ctx).Where("email = ?", models.NormalizeEmail(email))
	return s.updateUserWhere(ctx, cond, map[string]any{
		"reset_token":        token,
		"reset_token_expiry": expiry,
	})
}

func (s *Store) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*models.User, error) {
	cond := s.users(ctx).Where("reset_token = ? AND reset_token_expiry > ?", token, now)
	return s.updateUserWhere(ctx, cond, map[string]any{
		"password":           passwordHash,
		"reset_token":        nil,
		"reset_token_expiry": nil,
	})
}

func (s *Store) SetUserStatus(ctx context.Context, id string, status models.AccountStatus) (*models.User, error) {
	cond := s.users(ctx).Where("id = ?", id)
	return s.updateUserWhere(ctx, cond, map[string]any{"status": status})
}

func (s *Store) UpdateProfile(ctx context.Context, id string, upd store.ProfileUpdate) (*models.User, error) {
	cond := s.users(ctx).Where("id = ?", id)
	return s.updateUserWhere(ctx, cond, upd.Fields())
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return wrapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	a.ContactEmail = models.NormalizeEmail(a.ContactEmail)
	return wrapError(s.db.WithContext(ctx).Create(a).Error)
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	var a models.Appointment
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, wrapError(err)
	}
	return &a, nil
}

func (s *Store) ListAppointments(ctx context.Context, f store.AppointmentFilter) ([]*models.Appointment, error) {
	q := s.db.WithContext(ctx).Order("date asc, time asc")
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.DoctorID != "" {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	out := []*models.Appointment{}
	if err := q.Find(&out).Error; err != nil {
		return nil, wrapError(err)
	}
	return out, nil
}

func (s *Store) TransitionAppointment(ctx context.Context, id string, from models.AppointmentStatus, upd store.AppointmentUpdate) (*models.Appointment, error) {
	fields := map[string]any{
		"status":     upd.Status,
		"updated_at": time.Now(),
	}
	if upd.Date != nil {
		fields["date"] = *upd.Date
	}
	if upd.Time != nil {
		fields["time"] = *upd.Time
	}
	res := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return nil, wrapError(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetAppointment(ctx, id); err != nil {
			return nil, err
		}
		return nil, store.ErrConflict
	}
	return s.GetAppointment(ctx, id)
}

func (s *Store) LinkGuestAppointments(ctx context.Context, userID, email string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("contact_email = ? AND owner_id IS NULL", models.NormalizeEmail(email)).
		Updates(map[string]any{"owner_id": userID, "updated_at": time.Now()})
	return res.RowsAffected, wrapError(res.Error)
}

func (s *Store) CreateReport(ctx context.Context, r *models.Report) error {
	if r.Status == "" {
		r.Status = models.ReportPending
	}
	return wrapError(s.db.WithContext(ctx).Create(r).Error)
}

func (s *Store) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var r models.Report
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, wrapError(err)
	}
	return &r, nil
}

func (s *Store) ListReports(ctx context.Context, f store.ReportFilter) ([]*models.Report, error) {
	q := s.db.WithContext(ctx).Order("created_at desc")
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.DoctorID != "" {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	out := []*models.Report{}
	if err := q.Find(&out).Error; err != nil {
		return nil, wrapError(err)
	}
	return out, nil
}

func (s *Store) TransitionReport(ctx context.Context, id string, from, to models.ReportStatus) (*models.Report, error) {
	res := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, wrapError(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetReport(ctx, id); err != nil {
			return nil, err
		}
		return nil, store.ErrConflict
	}
	return s.GetReport(ctx, id)
}

func (s *Store) CreateMessage(ctx context.Context, m *models.ContactMessage) error {
	return wrapError(s.db.WithContext(ctx).Create(m).Error)
}

func (s *Store) ListMessages(ctx context.Context) ([]*models.ContactMessage, error) {
	out := []*models.ContactMessage{}
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&out).Error; err != nil {
		return nil, wrapError(err)
	}
	return out, nil
}

func (s *Store) CreateDepartment(ctx context.Context, d *models.Department) error {
	return wrapError(s.db.WithContext(ctx).Create(d).Error)
}

func (s *Store) ListDepartments(ctx context.Context) ([]*models.Department, error) {
	out := []*models.Department{}
	if err := s.db.WithContext(ctx).Order("name asc").Find(&out).Error; err != nil {
		return nil, wrapError(err)
	}
	return out, nil
}
