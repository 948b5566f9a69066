package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"faculty-availability-backend/internal/model"
)

var (
	// ErrNotFound is returned when a faculty member or subscription does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when registering an email that is already taken.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrInvalidReference is returned when a status update names an unknown faculty id.
	ErrInvalidReference = errors.New("invalid faculty reference")
	// ErrStorageUnavailable wraps any other failure of the underlying store.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// latestPerFaculty ranks every update of a faculty member by (created_at, id),
// newest first. Rank 1 is the current status; equal timestamps resolve to the
// row inserted last.
const latestPerFaculty = `SELECT id FROM (
	SELECT id, ROW_NUMBER() OVER (PARTITION BY faculty_id ORDER BY created_at DESC, id DESC) AS rn
	FROM status_updates
) ranked WHERE rn = 1`

// Store defines the interface for all database operations.
type Store interface {
	CreateFaculty(ctx context.Context, f *model.Faculty) error
	FacultyByID(ctx context.Context, id int64) (model.Faculty, error)
	FacultyByEmail(ctx context.Context, email string) (model.Faculty, error)

	AppendStatus(ctx context.Context, facultyID int64, code int, customMessage string, estimatedDuration int) (model.StatusUpdate, error)
	CurrentStatus(ctx context.Context, facultyID int64) (Projection, error)
	ListAll(ctx context.Context) ([]Projection, error)
	History(ctx context.Context, facultyID int64, limit int) ([]model.StatusUpdate, error)

	PutSubscription(ctx context.Context, sub model.PushSubscription, facultyIDs []int64) error
	GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForFaculty(ctx context.Context, facultyID int64) ([]model.PushSubscription, error)

	DB() *gorm.DB
}

// Option configures a gormStore.
type Option func(*gormStore)

// WithClock overrides the wall clock used to stamp appended updates.
func WithClock(now func() time.Time) Option {
	return func(s *gormStore) {
		s.now = now
	}
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, opts ...Option) Store {
	s := &gormStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// CreateFaculty inserts a new faculty row. The unique email index is the only
// duplicate check.
func (s *gormStore) CreateFaculty(ctx context.Context, f *model.Faculty) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(f).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("%w: create faculty: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *gormStore) FacultyByID(ctx context.Context, id int64) (model.Faculty, error) {
	var f model.Faculty
	if err := s.db.WithContext(ctx).First(&f, id).Error; err != nil {
		return model.Faculty{}, notFoundOr(err)
	}
	return f, nil
}

func (s *gormStore) FacultyByEmail(ctx context.Context, email string) (model.Faculty, error) {
	var f model.Faculty
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&f).Error; err != nil {
		return model.Faculty{}, notFoundOr(err)
	}
	return f, nil
}

// AppendStatus adds an immutable row stamped with the store's clock. The
// faculty id is not pre-checked; the foreign key rejects unknown ids.
func (s *gormStore) AppendStatus(ctx context.Context, facultyID int64, code int, customMessage string, estimatedDuration int) (model.StatusUpdate, error) {
	update := model.StatusUpdate{
		FacultyID:         facultyID,
		StatusCode:        code,
		CustomMessage:     customMessage,
		EstimatedDuration: estimatedDuration,
		CreatedAt:         s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&update).Error; err != nil {
		if isForeignKeyViolation(err) {
			return model.StatusUpdate{}, fmt.Errorf("%w: faculty %d", ErrInvalidReference, facultyID)
		}
		return model.StatusUpdate{}, fmt.Errorf("%w: append status for faculty %d: %v", ErrStorageUnavailable, facultyID, err)
	}
	return update, nil
}

// CurrentStatus returns the projection for one faculty member.
func (s *gormStore) CurrentStatus(ctx context.Context, facultyID int64) (Projection, error) {
	f, err := s.FacultyByID(ctx, facultyID)
	if err != nil {
		return Projection{}, err
	}

	var latest []model.StatusUpdate
	if err := s.db.WithContext(ctx).
		Where("faculty_id = ?", facultyID).
		Order("created_at DESC").Order("id DESC").
		Limit(1).
		Find(&latest).Error; err != nil {
		return Projection{}, fmt.Errorf("%w: current status for faculty %d: %v", ErrStorageUnavailable, facultyID, err)
	}

	if len(latest) == 0 {
		return Project(f, nil), nil
	}
	return Project(f, &latest[0]), nil
}

// ListAll returns one projection per faculty member ordered for display.
func (s *gormStore) ListAll(ctx context.Context) ([]Projection, error) {
	var faculty []model.Faculty
	if err := s.db.WithContext(ctx).
		Order("department").Order("name").Order("id").
		Find(&faculty).Error; err != nil {
		return nil, fmt.Errorf("%w: list faculty: %v", ErrStorageUnavailable, err)
	}

	var latest []model.StatusUpdate
	if err := s.db.WithContext(ctx).
		Where("id IN (" + latestPerFaculty + ")").
		Find(&latest).Error; err != nil {
		return nil, fmt.Errorf("%w: latest status updates: %v", ErrStorageUnavailable, err)
	}

	latestMap := make(map[int64]*model.StatusUpdate, len(latest))
	for i := range latest {
		latestMap[latest[i].FacultyID] = &latest[i]
	}

	projections := make([]Projection, 0, len(faculty))
	for _, f := range faculty {
		projections = append(projections, Project(f, latestMap[f.ID]))
	}
	return projections, nil
}

// History returns up to limit updates for a faculty member, newest first.
func (s *gormStore) History(ctx context.Context, facultyID int64, limit int) ([]model.StatusUpdate, error) {
	if _, err := s.FacultyByID(ctx, facultyID); err != nil {
		return nil, err
	}

	var updates []model.StatusUpdate
	if err := s.db.WithContext(ctx).
		Where("faculty_id = ?", facultyID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&updates).Error; err != nil {
		return nil, fmt.Errorf("%w: history for faculty %d: %v", ErrStorageUnavailable, facultyID, err)
	}
	return updates, nil
}

// PutSubscription creates or replaces a push subscription and the set of
// faculty members it follows.
func (s *gormStore) PutSubscription(ctx context.Context, sub model.PushSubscription, facultyIDs []int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(&sub).Error; err != nil {
			return err
		}

		var faculty []*model.Faculty
		if len(facultyIDs) > 0 {
			if err := tx.Find(&faculty, facultyIDs).Error; err != nil {
				return err
			}
		}

		return tx.Model(&sub).Association("Faculty").Replace(&faculty)
	})
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Preload("Faculty").First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return model.PushSubscription{}, notFoundOr(err)
	}
	return sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := model.PushSubscription{Endpoint: endpoint}
		if err := tx.Model(&sub).Association("Faculty").Clear(); err != nil {
			return err
		}
		return tx.Delete(&sub).Error
	})
}

// SubscriptionsForFaculty returns every push subscription following a faculty member.
func (s *gormStore) SubscriptionsForFaculty(ctx context.Context, facultyID int64) ([]model.PushSubscription, error) {
	var subscriptions []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_faculty_mapping sfm ON sfm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sfm.faculty_id = ?", facultyID).
		Find(&subscriptions).Error
	return subscriptions, err
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

// isDuplicateKey relies on gorm's error translation and falls back to the
// driver messages for dialects without a translator.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "FOREIGN KEY constraint failed") ||
		strings.Contains(msg, "violates foreign key constraint")
}
