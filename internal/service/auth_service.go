package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"fieldops/internal/auth"
	apperrors "fieldops/internal/errors"
	"fieldops/internal/geo"
	"fieldops/internal/model"
	"fieldops/internal/phone"
	"fieldops/internal/repository"
)

const bcryptCost = 10

// LoginInput carries credentials and the optional GPS reading of the device.
type LoginInput struct {
	Identifier string // email or phone
	Password   string
	Coords     model.Coordinates
}

// LoginResult is a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
	Entry     *model.RollCallEntry
}

// RegisterInput describes a new user.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     model.Role
	Region   string
}

// AuthService handles authentication operations.
type AuthService interface {
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, claims *auth.Claims, coords model.Coordinates) error
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
}

type authService struct {
	store      repository.Store
	attendance *Attendance
	sessions   *Sessions
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	regions    geo.Regions
	maxMeters  float64
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store repository.Store,
	attendance *Attendance,
	sessions *Sessions,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	regions geo.Regions,
	maxMeters float64,
) AuthService {
	return &authService{
		store:      store,
		attendance: attendance,
		sessions:   sessions,
		jwtService: jwtService,
		tokenStore: tokenStore,
		regions:    regions,
		maxMeters:  maxMeters,
	}
}

// Login verifies the password, checks a technician's position against their
// current job site, then opens a session and records arrival in one
// transaction before issuing a token.
func (s *authService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	identifier := strings.TrimSpace(in.Identifier)
	if phone.Valid(identifier) {
		identifier = phone.Normalize(identifier)
	}

	user, err := s.store.Users().FindByIdentifier(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	if user.Role.TracksAttendance() {
		site, err := s.currentSite(ctx, user)
		if err != nil {
			return nil, err
		}
		if err := s.attendance.ValidateProximity(user, in.Coords, site, s.maxMeters); err != nil {
			return nil, err
		}
	}

	var (
		session *model.Session
		entry   *model.RollCallEntry
	)
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		if session, err = s.sessions.Open(ctx, tx, user.ID, in.Coords); err != nil {
			return err
		}
		entry, err = s.attendance.RecordArrival(ctx, tx, user, in.Coords)
		return err
	})
	if err != nil {
		return nil, err
	}

	token, claims, err := s.jwtService.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	loginAt := session.LoginTime
	user.Online = true
	user.LastLogin = &loginAt

	log.Info().Uint("user_id", user.ID).Str("role", string(user.Role)).Msg("user logged in")
	return &LoginResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
		Entry:     entry,
	}, nil
}

// currentSite resolves the reference point of the technician's current job:
// explicit site coordinates first, then the region table by job location.
// No job, or an unknown location, yields nil.
func (s *authService) currentSite(ctx context.Context, user *model.User) (*geo.Point, error) {
	job, err := s.store.Jobs().FindCurrentForTechnician(ctx, user.ID, s.attendance.StartOfToday())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find current job: %w", err)
	}

	if site, ok := job.Site(); ok {
		p, _ := site.Point()
		return &p, nil
	}
	if p, ok := s.regions.Lookup(job.Location); ok {
		return &p, nil
	}
	return nil, nil
}

// Logout closes the user's sessions, checks them out of today's roll call and
// revokes the presented token for the rest of its lifetime.
func (s *authService) Logout(ctx context.Context, claims *auth.Claims, coords model.Coordinates) error {
	user, err := s.store.Users().FindByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := s.sessions.Close(ctx, tx, user, coords); err != nil {
			return err
		}
		_, err := s.attendance.RecordDeparture(ctx, tx, user, coords)
		return err
	})
	if err != nil {
		return err
	}

	if err := s.tokenStore.Revoke(ctx, claims.ID, s.jwtService.Remaining(claims)); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Register creates a user with a hashed password. Phones are stored in +254 form.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" || in.Phone == "" || in.Password == "" {
		return nil, apperrors.Validation("MISSING_FIELDS", "name, email, phone and password are required")
	}
	if !phone.Valid(in.Phone) {
		return nil, apperrors.ErrInvalidPhone
	}
	normalized := phone.Normalize(in.Phone)

	role := in.Role
	if role == "" {
		role = model.RoleTechnician
	}
	if !role.Valid() {
		return nil, apperrors.Validation("INVALID_ROLE", fmt.Sprintf("unknown role %q", role))
	}

	exists, err := s.store.Users().ExistsByEmailOrPhone(ctx, &email, &normalized)
	if err != nil {
		return nil, fmt.Errorf("check user existence: %w", err)
	}
	if exists {
		return nil, apperrors.ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        &email,
		Phone:        &normalized,
		PasswordHash: string(hashedPassword),
		Role:         role,
		Region:       strings.TrimSpace(in.Region),
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apperrors.ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
