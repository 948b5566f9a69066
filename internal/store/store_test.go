package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"faculty-availability-backend/internal/model"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

// newTestDB opens a private in-memory SQLite database with the schema migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, gormDB.AutoMigrate(&model.Faculty{}, &model.StatusUpdate{}, &model.PushSubscription{}))
	return gormDB
}

// fakeClock hands out explicit timestamps to AppendStatus.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func createFaculty(t *testing.T, s Store, name, email, dept string, createdAt time.Time) model.Faculty {
	t.Helper()
	f := model.Faculty{Name: name, Email: email, Department: dept, PasswordHash: "hash", CreatedAt: createdAt}
	require.NoError(t, s.CreateFaculty(context.Background(), &f))
	return f
}

func TestGormStore_CurrentStatus_DefaultWhenNoUpdates(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	created := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	f := createFaculty(t, s, "Ada Lovelace", "ada@example.edu", "Mathematics", created)

	p, err := s.CurrentStatus(context.Background(), f.ID)
	require.NoError(t, err)

	assert.Equal(t, f.ID, p.ID)
	assert.Equal(t, 0, p.StatusCode)
	assert.Equal(t, "Unavailable", p.StatusMessage)
	assert.Equal(t, "", p.CustomMessage)
	assert.Equal(t, 0, p.EstimatedDuration)
	assert.True(t, created.Equal(p.LastUpdated), "last_updated should be the creation time, got %v", p.LastUpdated)
	assert.Equal(t, fmt.Sprintf("/api/qr/%d", f.ID), p.QRURL)
}

func TestGormStore_CurrentStatus_NotFound(t *testing.T) {
	s := NewGormStore(newTestDB(t))

	_, err := s.CurrentStatus(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_AppendStatus_ReflectedImmediately(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	f := createFaculty(t, s, "Grace Hopper", "grace@example.edu", "Computer Science", time.Now().UTC())

	update, err := s.AppendStatus(context.Background(), f.ID, 3, "In a meeting", 20)
	require.NoError(t, err)
	assert.NotZero(t, update.ID)

	p, err := s.CurrentStatus(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.StatusCode)
	assert.Equal(t, "Currently in a meeting", p.StatusMessage)
	assert.Equal(t, "In a meeting", p.CustomMessage)
	assert.Equal(t, 20, p.EstimatedDuration)
}

func TestGormStore_AppendStatus_UnknownFaculty(t *testing.T) {
	gormDB := newTestDB(t)
	s := NewGormStore(gormDB)

	_, err := s.AppendStatus(context.Background(), 12345, 1, "", 0)
	assert.ErrorIs(t, err, ErrInvalidReference)

	var count int64
	gormDB.Model(&model.StatusUpdate{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestGormStore_LatestWins(t *testing.T) {
	t1 := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(15 * time.Minute)

	t.Run("later timestamp wins regardless of insertion order", func(t *testing.T) {
		clock := &fakeClock{}
		s := NewGormStore(newTestDB(t), WithClock(clock.Now))
		f := createFaculty(t, s, "Alan Turing", "alan@example.edu", "Computer Science", t1.Add(-time.Hour))

		clock.Set(t2)
		_, err := s.AppendStatus(context.Background(), f.ID, 4, "later", 0)
		require.NoError(t, err)
		clock.Set(t1)
		_, err = s.AppendStatus(context.Background(), f.ID, 2, "earlier", 0)
		require.NoError(t, err)

		p, err := s.CurrentStatus(context.Background(), f.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, p.StatusCode)
		assert.Equal(t, "later", p.CustomMessage)
		assert.True(t, t2.Equal(p.LastUpdated))

		list, err := s.ListAll(context.Background())
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, p, list[0], "list and detail must agree on the current status")
	})

	t.Run("equal timestamps resolve to the row inserted last", func(t *testing.T) {
		clock := &fakeClock{now: t1}
		s := NewGormStore(newTestDB(t), WithClock(clock.Now))
		f := createFaculty(t, s, "Barbara Liskov", "barbara@example.edu", "Computer Science", t1.Add(-time.Hour))

		_, err := s.AppendStatus(context.Background(), f.ID, 1, "first", 0)
		require.NoError(t, err)
		_, err = s.AppendStatus(context.Background(), f.ID, 5, "second", 10)
		require.NoError(t, err)

		p, err := s.CurrentStatus(context.Background(), f.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, p.StatusCode)
		assert.Equal(t, "second", p.CustomMessage)

		list, err := s.ListAll(context.Background())
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, 5, list[0].StatusCode)
	})
}

func TestGormStore_ListAll_OrderAndMerge(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	now := time.Now().UTC()
	physics := createFaculty(t, s, "Marie Curie", "marie@example.edu", "Physics", now)
	cs2 := createFaculty(t, s, "Ken Thompson", "ken@example.edu", "Computer Science", now)
	cs1 := createFaculty(t, s, "Dennis Ritchie", "dennis@example.edu", "Computer Science", now)

	_, err := s.AppendStatus(context.Background(), physics.ID, 1, "", 0)
	require.NoError(t, err)
	_, err = s.AppendStatus(context.Background(), cs2.ID, 6, "Zoom only", 45)
	require.NoError(t, err)

	list, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, []int64{cs1.ID, cs2.ID, physics.ID}, []int64{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, 0, list[0].StatusCode)
	assert.Equal(t, "Unavailable", list[0].StatusMessage)
	assert.Equal(t, 6, list[1].StatusCode)
	assert.Equal(t, "Available online only", list[1].StatusMessage)
	assert.Equal(t, 45, list[1].EstimatedDuration)
	assert.Equal(t, 1, list[2].StatusCode)
}

func TestGormStore_CreateFaculty_DuplicateEmail(t *testing.T) {
	gormDB := newTestDB(t)
	s := NewGormStore(gormDB)
	createFaculty(t, s, "First", "dup@example.edu", "History", time.Now().UTC())

	second := model.Faculty{Name: "Second", Email: "dup@example.edu", Department: "History", PasswordHash: "x"}
	err := s.CreateFaculty(context.Background(), &second)
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	var count int64
	gormDB.Model(&model.Faculty{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGormStore_History(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)}
	s := NewGormStore(newTestDB(t), WithClock(clock.Now))
	f := createFaculty(t, s, "Edsger Dijkstra", "edsger@example.edu", "Computer Science", clock.Now())

	for code := 1; code <= 4; code++ {
		clock.Set(clock.Now().Add(time.Minute))
		_, err := s.AppendStatus(context.Background(), f.ID, code, "", 0)
		require.NoError(t, err)
	}

	history, err := s.History(context.Background(), f.ID, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []int{4, 3, 2}, []int{history[0].StatusCode, history[1].StatusCode, history[2].StatusCode})

	_, err = s.History(context.Background(), 999, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_Subscriptions(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()
	a := createFaculty(t, s, "A", "a@example.edu", "X", time.Now().UTC())
	b := createFaculty(t, s, "B", "b@example.edu", "X", time.Now().UTC())

	sub := model.PushSubscription{Endpoint: "https://push.example.com/1", P256DH: "key", Auth: "auth"}
	require.NoError(t, s.PutSubscription(ctx, sub, []int64{a.ID, b.ID}))

	got, err := s.GetSubscription(ctx, sub.Endpoint)
	require.NoError(t, err)
	assert.Len(t, got.Faculty, 2)

	// Replacing narrows the followed set.
	require.NoError(t, s.PutSubscription(ctx, sub, []int64{b.ID}))
	forA, err := s.SubscriptionsForFaculty(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, forA)
	forB, err := s.SubscriptionsForFaculty(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, forB, 1)
	assert.Equal(t, sub.Endpoint, forB[0].Endpoint)

	require.NoError(t, s.DeleteSubscription(ctx, sub.Endpoint))
	_, err = s.GetSubscription(ctx, sub.Endpoint)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_AppendStatus_StorageFailure(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "status_updates"`)).
		WithArgs(7, 2, "", 0, Any{}).
		WillReturnError(errors.New("connection refused"))
	mock.ExpectRollback()

	_, err := s.AppendStatus(context.Background(), 7, 2, "", 0)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ListAll_StorageFailure(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "faculties"`)).
		WillReturnError(errors.New("connection reset"))

	_, err := s.ListAll(context.Background())
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
