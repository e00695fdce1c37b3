// Package mongostore implements store.Store on MongoDB.
//
// Documents use the bson tags of the models package; ids are uuid strings
// stored in _id. Every state-dependent write is a single filtered
// FindOneAndUpdate or UpdateMany.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"trueheal-portal/internal/models"
	"trueheal-portal/internal/store"
)

// Collection names
const (
	ColUsers        = "users"
	ColAppointments = "appointments"
	ColReports      = "reports"
	ColMessages     = "contact_messages"
	ColDepartments  = "departments"
)

// Store holds the client and database handle.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Store = (*Store)(nil)

// NewStore connects, pings and ensures indexes.
func NewStore(uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect failed: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongostore: ping failed: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(ctx); err != nil {
		log.Printf("WARNING: mongostore: ensure indexes failed: %v", err)
	}
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	type idx struct {
		col    string
		keys   bson.D
		unique bool
	}
	indexes := []idx{
		{ColUsers, bson.D{{Key: "email", Value: 1}}, true},
		{ColUsers, bson.D{{Key: "reset_token", Value: 1}}, false},
		{ColUsers, bson.D{{Key: "role", Value: 1}, {Key: "department", Value: 1}}, false},
		{ColAppointments, bson.D{{Key: "contact_email", Value: 1}, {Key: "owner_id", Value: 1}}, false},
		{ColAppointments, bson.D{{Key: "owner_id", Value: 1}}, false},
		{ColAppointments, bson.D{{Key: "doctor_id", Value: 1}}, false},
		{ColReports, bson.D{{Key: "patient_id", Value: 1}, {Key: "created_at", Value: -1}}, false},
		{ColReports, bson.D{{Key: "doctor_id", Value: 1}}, false},
		{ColMessages, bson.D{{Key: "created_at", Value: -1}}, false},
		{ColDepartments, bson.D{{Key: "name", Value: 1}}, true},
	}
	for _, i := range indexes {
		model := mongo.IndexModel{Keys: i.keys}
		if i.unique {
			model.Options = options.Index().SetUnique(true)
		}
		if _, err := s.col(i.col).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("index on %s: %w", i.col, err)
		}
	}
	return nil
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return err
}

func findOne[T any](ctx context.Context, col *mongo.Collection, filter bson.D) (*T, error) {
	var result T
	if err := col.FindOne(ctx, filter).Decode(&result); err != nil {
		return nil, wrapError(err)
	}
	return &result, nil
}

func findMany[T any](ctx context.Context, col *mongo.Collection, filter bson.D, opts ...options.Lister[options.FindOptions]) ([]*T, error) {
	cursor, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, wrapError(err)
	}
	defer cursor.Close(ctx)

	results := []*T{}
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		results = append(results, &item)
	}
	return results, cursor.Err()
}

// findOneAndUpdate applies update to the first document matching filter
// and returns it as it is after the write.
func findOneAndUpdate[T any](ctx context.Context, col *mongo.Collection, filter, update bson.D) (*T, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var result T
	if err := col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&result); err != nil {
		return nil, wrapError(err)
	}
	return &result, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.EnsureID()
	u.Email = models.NormalizeEmail(u.Email)
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := s.col(ColUsers).InsertOne(ctx, u)
	return wrapError(err)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return findOne[models.User](ctx, s.col(ColUsers), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, s.col(ColUsers), bson.D{{Key: "email", Value: models.NormalizeEmail(email)}})
}

func (s *Store) ListUsers(ctx context.Context, f store.UserFilter) ([]*models.User, error) {
	filter := bson.D{}
	if f.Role != "" {
		filter = append(filter, bson.E{Key: "role", Value: f.Role})
	}
	if f.Status != "" {
		filter = append(filter, bson.E{Key: "status", Value: f.Status})
	}
	if f.Department != "" {
		filter = append(filter, bson.E{Key: "department", Value: f.Department})
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[models.User](ctx, s.col(ColUsers), filter, opts)
}

// FindDoctor narrows by role on the server and compares names locally,
// since the stored name may carry an honorific the request omits.
func (s *Store) FindDoctor(ctx context.Context, name, department string) (*models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	doctors, err := findMany[models.User](ctx, s.col(ColUsers), bson.D{{Key: "role", Value: models.RoleDoctor}}, opts)
	if err != nil {
		return nil, err
	}
	for _, u := range doctors {
		if u.MatchesDoctor(name, department) {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) RefreshPendingRegistration(ctx context.Context, p store.PendingRegistration) (*models.User, error) {
	filter := bson.D{
		{Key: "email", Value: models.NormalizeEmail(p.Email)},
		{Key: "verified", Value: false},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "otp", Value: p.OTP},
		{Key: "otp_expiry", Value: p.OTPExpiry},
		{Key: "updated_at", Value: time.Now()},
	}}}
	return findOneAndUpdate[models.User](ctx, s.col(ColUsers), filter, update)
}

func (s *Store) ConsumeOTP(ctx context.Context, email, code string, now time.Time) (*models.User, error) {
	filter := bson.D{
		{Key: "email", Value: models.NormalizeEmail(email)},
		{Key: "verified", Value: false},
		{Key: "otp", Value: code},
		{Key: "otp_expiry", Value: bson.D{{Key: "$gt", Value: now}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "verified", Value: true},
		{Key: "otp", Value: nil},
		{Key: "otp_expiry", Value: nil},
		{Key: "updated_at", Value: time.Now()},
	}}}
	return findOneAndUpdate[models.User](ctx, s.col(ColUsers), filter, update)
}

func (s *Store) SetResetToken(ctx context.Context, email, token string, expiry time.Time) (*models.User, error) {
	filter := bson.D{{Key: "email", Value: models.NormalizeEmail(email)}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "reset_token", Value: token},
		{Key: "reset_token_expiry", Value: expiry},
		{Key: "updated_at", Value: time.Now()},
	}}}
	return findOneAndUpdate[models.User](ctx, s.col(ColUsers), filter, update)
}

func (s *Store) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*models.User, error) {
	filter := bson.D{
		{Key: "reset_token", Value: token},
		{Key: "reset_token_expiry", Value: bson.D{{Key: "$gt", Value: now}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "password", Value: passwordHash},
		{Key: "reset_token", Value: nil},
		{Key: "reset_token_expiry", Value: nil},
		{Key: "updated_at", Value: time.Now()},
	}}}
	return findOneAndUpdate[models.User](ctx, s.col(ColUsers), filter, update)
}

func (s *Store) SetUserStatus(ctx context.Context, id string, status models.AccountStatus) (*models.User, error) {
	filter := bson.D{{Key: "_id", Value: id}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: status},
		{Key: "updated_at", Value: time.Now()},
	}}}
	return findOneAndUpdate[models.User](ctx, s.col(ColUsers), filter, update)
}

func (s *Store) UpdateProfile(ctx context.Context, id string, upd store.ProfileUpdate) (*models.User, error) {
	set := bson.D{{Key: "updated_at", Value: time.Now()}}
	for k, v := range upd.Fields() {
		set = append(set, bson.E{Key: k, Value: v})
	}
	filter := bson.D{{Key: "_id", Value: id}}
	return findOneAndUpdate[models.User](ctx, s.col(ColUsers), filter, bson.D{{Key: "$set", Value: set}})
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.col(ColUsers).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return wrapError(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	a.EnsureID()
	a.ContactEmail = models.NormalizeEmail(a.ContactEmail)
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	_, err := s.col(ColAppointments).InsertOne(ctx, a)
	return wrapError(err)
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	return findOne[models.Appointment](ctx, s.col(ColAppointments), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) ListAppointments(ctx context.Context, f store.AppointmentFilter) ([]*models.Appointment, error) {
	filter := bson.D{}
	if f.OwnerID != "" {
		filter = append(filter, bson.E{Key: "owner_id", Value: f.OwnerID})
	}
	if f.DoctorID != "" {
		filter = append(filter, bson.E{Key: "doctor_id", Value: f.DoctorID})
	}
	if f.Status != "" {
		filter = append(filter, bson.E{Key: "status", Value: f.Status})
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}})
	return findMany[models.Appointment](ctx, s.col(ColAppointments), filter, opts)
}

func (s *Store) TransitionAppointment(ctx context.Context, id string, from models.AppointmentStatus, upd store.AppointmentUpdate) (*models.Appointment, error) {
	set := bson.D{
		{Key: "status", Value: upd.Status},
		{Key: "updated_at", Value: time.Now()},
	}
	if upd.Date != nil {
		set = append(set, bson.E{Key: "date", Value: *upd.Date})
	}
	if upd.Time != nil {
		set = append(set, bson.E{Key: "time", Value: *upd.Time})
	}
	filter := bson.D{{Key: "_id", Value: id}, {Key: "status", Value: from}}
	a, err := findOneAndUpdate[models.Appointment](ctx, s.col(ColAppointments), filter, bson.D{{Key: "$set", Value: set}})
	if errors.Is(err, store.ErrNotFound) {
		if _, getErr := s.GetAppointment(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, store.ErrConflict
	}
	return a, err
}

func (s *Store) LinkGuestAppointments(ctx context.Context, userID, email string) (int64, error) {
	filter := bson.D{
		{Key: "contact_email", Value: models.NormalizeEmail(email)},
		{Key: "owner_id", Value: nil},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "owner_id", Value: userID},
		{Key: "updated_at", Value: time.Now()},
	}}}
	res, err := s.col(ColAppointments).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, wrapError(err)
	}
	return res.ModifiedCount, nil
}

func (s *Store) CreateReport(ctx context.Context, r *models.Report) error {
	r.EnsureID()
	if r.Status == "" {
		r.Status = models.ReportPending
	}
	now := time.Now()
	r.CreatedAt, r.UpdatedAt = now, now
	_, err := s.col(ColReports).InsertOne(ctx, r)
	return wrapError(err)
}

func (s *Store) GetReport(ctx context.Context, id string) (*models.Report, error) {
	return findOne[models.Report](ctx, s.col(ColReports), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) ListReports(ctx context.Context, f store.ReportFilter) ([]*models.Report, error) {
	filter := bson.D{}
	if f.PatientID != "" {
		filter = append(filter, bson.E{Key: "patient_id", Value: f.PatientID})
	}
	if f.DoctorID != "" {
		filter = append(filter, bson.E{Key: "doctor_id", Value: f.DoctorID})
	}
	if f.Status != "" {
		filter = append(filter, bson.E{Key: "status", Value: f.Status})
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[models.Report](ctx, s.col(ColReports), filter, opts)
}

func (s *Store) TransitionReport(ctx context.Context, id string, from, to models.ReportStatus) (*models.Report, error) {
	filter := bson.D{{Key: "_id", Value: id}, {Key: "status", Value: from}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: to},
		{Key: "updated_at", Value: time.Now()},
	}}}
	r, err := findOneAndUpdate[models.Report](ctx, s.col(ColReports), filter, update)
	if errors.Is(err, store.ErrNotFound) {
		if _, getErr := s.GetReport(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, store.ErrConflict
	}
	return r, err
}

func (s *Store) CreateMessage(ctx context.Context, m *models.ContactMessage) error {
	m.EnsureID()
	now := time.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	_, err := s.col(ColMessages).InsertOne(ctx, m)
	return wrapError(err)
}

func (s *Store) ListMessages(ctx context.Context) ([]*models.ContactMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[models.ContactMessage](ctx, s.col(ColMessages), bson.D{}, opts)
}

func (s *Store) CreateDepartment(ctx context.Context, d *models.Department) error {
	d.EnsureID()
	now := time.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	_, err := s.col(ColDepartments).InsertOne(ctx, d)
	return wrapError(err)
}

func (s *Store) ListDepartments(ctx context.Context) ([]*models.Department, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return findMany[models.Department](ctx, s.col(ColDepartments), bson.D{}, opts)
}
