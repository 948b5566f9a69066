// Package availability validates, records and propagates faculty status
// changes, and handles faculty registration and login.
package availability

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"faculty-availability-backend/internal/auth"
	"faculty-availability-backend/internal/hub"
	"faculty-availability-backend/internal/model"
	"faculty-availability-backend/internal/parse"
	"faculty-availability-backend/internal/status"
	"faculty-availability-backend/internal/store"
)

var (
	ErrUnauthorized       = errors.New("faculty may only update their own status")
	ErrInvalidStatusCode  = errors.New("invalid status code")
	ErrInvalidDuration    = errors.New("estimated duration must be a non-negative number of minutes")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidEmail       = errors.New("invalid email")
)

// Dispatcher receives persisted status changes for out-of-band delivery
// such as browser push. Dispatch must not block.
type Dispatcher interface {
	Dispatch(ev hub.Event)
}

// Recorder observes the outcome of status updates.
type Recorder interface {
	StatusUpdate(result string)
}

// UpdateRequest is a requested status change. Nil pointers mean the field
// was omitted by the caller.
type UpdateRequest struct {
	Code              *int
	CustomMessage     string
	EstimatedDuration *int
}

// Registration holds the fields needed to create a faculty account.
type Registration struct {
	Name           string
	Email          string
	Department     string
	OfficeLocation string
	Password       string
}

// Session is returned by Register and Login.
type Session struct {
	Token   string
	Faculty model.Faculty
}

// updateStripes bounds the number of per-faculty update locks.
const updateStripes = 64

// Service orchestrates status changes: validate, persist, then propagate.
type Service struct {
	store       store.Store
	creds       *auth.Credentials
	publisher   hub.Publisher
	dispatcher  Dispatcher
	recorder    Recorder
	historySize int

	// Held from append to publish so events for one faculty leave in the
	// order their rows were written.
	updates [updateStripes]sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithDispatcher adds a secondary sink for persisted changes.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

// WithRecorder attaches an outcome recorder, e.g. metrics.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// NewService creates the status update service.
func NewService(st store.Store, creds *auth.Credentials, publisher hub.Publisher, opts ...Option) *Service {
	s := &Service{
		store:       st,
		creds:       creds,
		publisher:   publisher,
		historySize: 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateStatus records a status change made by callerID for targetID and
// broadcasts it. Validation happens before any write; nothing is broadcast
// unless the append succeeded.
func (s *Service) UpdateStatus(ctx context.Context, callerID, targetID int64, req UpdateRequest) (store.Projection, error) {
	p, err := s.updateStatus(ctx, callerID, targetID, req)
	s.record(err)
	return p, err
}

func (s *Service) updateStatus(ctx context.Context, callerID, targetID int64, req UpdateRequest) (store.Projection, error) {
	if callerID != targetID {
		return store.Projection{}, ErrUnauthorized
	}
	if req.Code == nil {
		return store.Projection{}, fmt.Errorf("%w: status_code is required", ErrInvalidStatusCode)
	}
	code, err := status.Parse(*req.Code)
	if err != nil {
		return store.Projection{}, fmt.Errorf("%w: %d", ErrInvalidStatusCode, *req.Code)
	}
	duration := 0
	if req.EstimatedDuration != nil {
		if *req.EstimatedDuration < 0 {
			return store.Projection{}, fmt.Errorf("%w: %d", ErrInvalidDuration, *req.EstimatedDuration)
		}
		duration = *req.EstimatedDuration
	}

	mu := &s.updates[uint64(targetID)%updateStripes]
	mu.Lock()
	defer mu.Unlock()

	update, err := s.store.AppendStatus(ctx, targetID, int(code), req.CustomMessage, duration)
	if err != nil {
		if errors.Is(err, store.ErrInvalidReference) {
			return store.Projection{}, err
		}
		if !errors.Is(err, store.ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %v", store.ErrStorageUnavailable, err)
		}
		return store.Projection{}, err
	}

	projection, err := s.store.CurrentStatus(ctx, targetID)
	if err != nil {
		// The change is durable; describe it from the appended row so the
		// broadcast and the response still reflect it.
		log.Printf("Warning: read-back of faculty %d after status update failed: %v", targetID, err)
		projection = store.Project(model.Faculty{ID: targetID}, &update)
	}

	ev := hub.EventFromProjection(projection)
	if s.publisher != nil {
		s.publisher.Publish(ev)
	}
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ev)
	}
	return projection, nil
}

func (s *Service) record(err error) {
	if s.recorder == nil {
		return
	}
	switch {
	case err == nil:
		s.recorder.StatusUpdate("ok")
	case errors.Is(err, ErrUnauthorized):
		s.recorder.StatusUpdate("unauthorized")
	case errors.Is(err, ErrInvalidStatusCode), errors.Is(err, ErrInvalidDuration):
		s.recorder.StatusUpdate("invalid")
	case errors.Is(err, store.ErrInvalidReference):
		s.recorder.StatusUpdate("invalid_reference")
	default:
		s.recorder.StatusUpdate("storage_error")
	}
}

// Current returns the projection for one faculty member.
func (s *Service) Current(ctx context.Context, facultyID int64) (store.Projection, error) {
	return s.store.CurrentStatus(ctx, facultyID)
}

// List returns every faculty member with their current status.
func (s *Service) List(ctx context.Context) ([]store.Projection, error) {
	return s.store.ListAll(ctx)
}

// History returns the most recent updates for a faculty member. A limit of
// zero or less uses the default page size.
func (s *Service) History(ctx context.Context, facultyID int64, limit int) ([]model.StatusUpdate, error) {
	if limit <= 0 || limit > 100 {
		limit = s.historySize
	}
	return s.store.History(ctx, facultyID, limit)
}

// StatusCodes returns the fixed code table.
func (s *Service) StatusCodes() []status.Info {
	return status.All()
}

// Register creates a faculty account and signs a token for it.
func (s *Service) Register(ctx context.Context, r Registration) (Session, error) {
	r.Name = parse.Text(r.Name)
	r.Department = parse.Text(r.Department)
	if r.Name == "" || strings.TrimSpace(r.Email) == "" || r.Department == "" || r.Password == "" {
		return Session{}, ErrMissingFields
	}
	email, err := parse.Email(r.Email)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}

	hash, err := s.creds.HashPassword(r.Password)
	if err != nil {
		return Session{}, err
	}

	f := model.Faculty{
		Name:         r.Name,
		Email:        email,
		Department:   r.Department,
		PasswordHash: hash,
	}
	if office := parse.Text(r.OfficeLocation); office != "" {
		f.OfficeLocation = &office
	}
	if err := s.store.CreateFaculty(ctx, &f); err != nil {
		return Session{}, err
	}

	token, err := s.creds.Issue(f.ID, f.Email)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, Faculty: f}, nil
}

// Login verifies an email/password pair. Unknown emails and wrong passwords
// are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Session{}, ErrMissingFields
	}
	normalized, err := parse.Email(email)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}

	f, err := s.store.FacultyByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := s.creds.CheckPassword(password, f.PasswordHash); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	token, err := s.creds.Issue(f.ID, f.Email)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, Faculty: f}, nil
}
