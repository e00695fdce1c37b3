// Package memstore is an in-process Store used by tests and local runs
// without a database. One mutex stands in for the per-document atomicity a
// real engine provides.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"trueheal-portal/internal/models"
	"trueheal-portal/internal/store"
)

// Store keeps every record in maps keyed by id.
type Store struct {
	mu           sync.Mutex
	users        map[string]*models.User
	appointments map[string]*models.Appointment
	reports      map[string]*models.Report
	messages     map[string]*models.ContactMessage
	departments  map[string]*models.Department
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:        make(map[string]*models.User),
		appointments: make(map[string]*models.Appointment),
		reports:      make(map[string]*models.Report),
		messages:     make(map[string]*models.ContactMessage),
		departments:  make(map[string]*models.Department),
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.OTP = cloneString(u.OTP)
	c.OTPExpiry = cloneTime(u.OTPExpiry)
	c.ResetToken = cloneString(u.ResetToken)
	c.ResetTokenExpiry = cloneTime(u.ResetTokenExpiry)
	return &c
}

func cloneAppointment(a *models.Appointment) *models.Appointment {
	c := *a
	c.OwnerID = cloneString(a.OwnerID)
	c.DoctorID = cloneString(a.DoctorID)
	return &c
}

// userByEmail must be called with mu held.
func (s *Store) userByEmail(email string) *models.User {
	email = models.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Email = models.NormalizeEmail(u.Email)
	if s.userByEmail(u.Email) != nil {
		return store.ErrDuplicate
	}
	u.EnsureID()
	if _, ok := s.users[u.ID]; ok {
		return store.ErrDuplicate
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByEmail(email)
	if u == nil {
		return nil, store.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) ListUsers(ctx context.Context, f store.UserFilter) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.User{}
	for _, u := range s.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		if f.Department != "" && u.Department != f.Department {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) FindDoctor(ctx context.Context, name, department string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *models.User
	for _, u := range s.users {
		if !u.MatchesDoctor(name, department) {
			continue
		}
		if found == nil || u.CreatedAt.Before(found.CreatedAt) {
			found = u
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	return cloneUser(found), nil
}

func (s *Store) RefreshPendingRegistration(ctx context.Context, p store.PendingRegistration) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByEmail(p.Email)
	if u == nil || u.Verified {
		return nil, store.ErrNotFound
	}
	code, expiry := p.OTP, p.OTPExpiry
	u.OTP = &code
	u.OTPExpiry = &expiry
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

func (s *Store) ConsumeOTP(ctx context.Context, email, code string, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByEmail(email)
	if u == nil || u.Verified || u.OTP == nil || u.OTPExpiry == nil {
		return nil, store.ErrNotFound
	}
	if *u.OTP != code || !now.Before(*u.OTPExpiry) {
		return nil, store.ErrNotFound
	}
	u.Verified = true
	u.OTP = nil
	u.OTPExpiry = nil
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

func (s *Store) SetResetToken(ctx context.Context, email, token string, expiry time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByEmail(email)
	if u == nil {
		return nil, store.ErrNotFound
	}
	u.ResetToken = &token
	u.ResetTokenExpiry = &expiry
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

func (s *Store) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ResetToken == nil || u.ResetTokenExpiry == nil || *u.ResetToken != token {
			continue
		}
		if !now.Before(*u.ResetTokenExpiry) {
			return nil, store.ErrNotFound
		}
		u.Password = passwordHash
		u.ResetToken = nil
		u.ResetTokenExpiry = nil
		u.UpdatedAt = time.Now()
		return cloneUser(u), nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) SetUserStatus(ctx context.Context, id string, status models.AccountStatus) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.Status = status
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, upd store.ProfileUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for _, f := range []struct {
		dst *string
		src *string
	}{
		{&u.Name, upd.Name},
		{&u.Phone, upd.Phone},
		{&u.Specialty, upd.Specialty},
		{&u.Department, upd.Department},
		{&u.Bio, upd.Bio},
		{&u.Timing, upd.Timing},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.EnsureID()
	if _, ok := s.appointments[a.ID]; ok {
		return store.ErrDuplicate
	}
	a.ContactEmail = models.NormalizeEmail(a.ContactEmail)
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	s.appointments[a.ID] = cloneAppointment(a)
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneAppointment(a), nil
}

func (s *Store) ListAppointments(ctx context.Context, f store.AppointmentFilter) ([]*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Appointment{}
	for _, a := range s.appointments {
		if f.OwnerID != "" && !a.IsOwnedBy(f.OwnerID) {
			continue
		}
		if f.DoctorID != "" && !a.IsAssignedTo(f.DoctorID) {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, cloneAppointment(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (s *Store) TransitionAppointment(ctx context.Context, id string, from models.AppointmentStatus, upd store.AppointmentUpdate) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if a.Status != from {
		return nil, store.ErrConflict
	}
	a.Status = upd.Status
	if upd.Date != nil {
		a.Date = *upd.Date
	}
	if upd.Time != nil {
		a.Time = *upd.Time
	}
	a.UpdatedAt = time.Now()
	return cloneAppointment(a), nil
}

func (s *Store) LinkGuestAppointments(ctx context.Context, userID, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = models.NormalizeEmail(email)
	var n int64
	for _, a := range s.appointments {
		if a.OwnerID != nil || a.ContactEmail != email {
			continue
		}
		owner := userID
		a.OwnerID = &owner
		a.UpdatedAt = time.Now()
		n++
	}
	return n, nil
}

func (s *Store) CreateReport(ctx context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.EnsureID()
	if _, ok := s.reports[r.ID]; ok {
		return store.ErrDuplicate
	}
	if r.Status == "" {
		r.Status = models.ReportPending
	}
	now := time.Now()
	r.CreatedAt, r.UpdatedAt = now, now
	c := *r
	s.reports[r.ID] = &c
	return nil
}

func (s *Store) GetReport(ctx context.Context, id string) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (s *Store) ListReports(ctx context.Context, f store.ReportFilter) ([]*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Report{}
	for _, r := range s.reports {
		if f.PatientID != "" && r.PatientID != f.PatientID {
			continue
		}
		if f.DoctorID != "" && r.DoctorID != f.DoctorID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) TransitionReport(ctx context.Context, id string, from, to models.ReportStatus) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if r.Status != from {
		return nil, store.ErrConflict
	}
	r.Status = to
	r.UpdatedAt = time.Now()
	c := *r
	return &c, nil
}

func (s *Store) CreateMessage(ctx context.Context, m *models.ContactMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.EnsureID()
	if _, ok := s.messages[m.ID]; ok {
		return store.ErrDuplicate
	}
	now := time.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	c := *m
	s.messages[m.ID] = &c
	return nil
}

func (s *Store) ListMessages(ctx context.Context) ([]*models.ContactMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.ContactMessage, 0, len(s.messages))
	for _, m := range s.messages {
		c := *m
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateDepartment(ctx context.Context, d *models.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.departments {
		if existing.Name == d.Name {
			return store.ErrDuplicate
		}
	}
	d.EnsureID()
	if _, ok := s.departments[d.ID]; ok {
		return store.ErrDuplicate
	}
	now := time.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	c := *d
	s.departments[d.ID] = &c
	return nil
}

func (s *Store) ListDepartments(ctx context.Context) ([]*models.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Department, 0, len(s.departments))
	for _, d := range s.departments {
		c := *d
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
