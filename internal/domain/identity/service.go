package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/internal/platform/keylock"
	"github.com/medibook/medibook/internal/platform/overlay"
	"github.com/medibook/medibook/internal/platform/validate"
)

// DoctorDirectory is satisfied by doctor.Service.
type DoctorDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type Service struct {
	users   *overlay.Collection[User]
	issuer  *auth.Issuer
	doctors DoctorDirectory
	cost    int
	locks   *keylock.Locker
	now     func() time.Time
}

type Option func(*Service)

// WithDoctorDirectory enables CreateDoctorAccount.
func WithDoctorDirectory(d DoctorDirectory) Option {
	return func(s *Service) { s.doctors = d }
}

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func NewService(store overlay.Store, issuer *auth.Issuer, opts ...Option) *Service {
	s := &Service{
		users:  overlay.NewCollection[User](store, "users"),
		issuer: issuer,
		cost:   bcrypt.DefaultCost,
		locks:  keylock.New(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func (s *Service) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	return s.create(ctx, &User{
		ID:    uuid.NewString(),
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Role:  auth.RolePatient,
	}, req.Password)
}

// CreateDoctorAccount registers a login for an existing doctor profile. A
// profile can back at most one account.
func (s *Service) CreateDoctorAccount(ctx context.Context, req DoctorAccountRequest) (*User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if s.doctors == nil {
		return nil, errors.New("identity: no doctor directory configured")
	}
	ok, err := s.doctors.Exists(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, validate.Field("doctorId", "does not name a doctor")
	}

	unlock := s.locks.Lock("doctor:" + req.DoctorID)
	defer unlock()
	all, err := s.users.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range all {
		if u.DoctorID == req.DoctorID {
			return nil, ErrDoctorLinked
		}
	}
	return s.create(ctx, &User{
		ID:       uuid.NewString(),
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     auth.RoleDoctor,
		DoctorID: req.DoctorID,
	}, req.Password)
}

func (s *Service) create(ctx context.Context, u *User, password string) (*User, error) {
	u.Email = normalizeEmail(u.Email)
	unlock := s.locks.Lock(u.Email)
	defer unlock()

	if _, err := s.byEmail(ctx, u.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	if err := s.users.Put(ctx, u.ID, u); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return u.Public(), nil
}

// Login checks the password and mints an access token. Unknown emails and
// wrong passwords return the same error.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	u, err := s.byEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.issuer.Issue(auth.Subject{
		UserID:   u.ID,
		Name:     u.Name,
		Roles:    []string{u.Role},
		DoctorID: u.DoctorID,
	})
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, User: u.Public()}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.users.Get(ctx, id)
	if errors.Is(err, overlay.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

// PatientExists reports whether id names a registered patient.
func (s *Service) PatientExists(ctx context.Context, id string) (bool, error) {
	u, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Role == auth.RolePatient, nil
}

func (s *Service) byEmail(ctx context.Context, email string) (*User, error) {
	all, err := s.users.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range all {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

// Seed registers the demo accounts that are not present yet.
func (s *Service) Seed(ctx context.Context, users []SeedUser) error {
	for _, su := range users {
		if _, err := s.users.Get(ctx, su.User.ID); err == nil {
			continue
		} else if !errors.Is(err, overlay.ErrNotFound) {
			return err
		}
		u := su.User
		if _, err := s.create(ctx, &u, su.Password); err != nil && !errors.Is(err, ErrEmailTaken) {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	return nil
}
