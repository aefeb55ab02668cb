// Package auth signs users up and in against the local gateway and keeps
// the current session in a SecretStore so it survives across runs.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/nhle/taskflow/internal/credential"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
	"github.com/nhle/taskflow/internal/validate"
)

// sessionKey is the SecretStore key holding the serialized session.
const sessionKey = "session"

var (
	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNoSession is returned when nobody is signed in.
	ErrNoSession = errors.New("not signed in")

	// ErrEmailTaken is returned when signing up with a registered email.
	ErrEmailTaken = errors.New("email already registered")
)

// Session identifies the signed-in user.
type Session struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	SignedInAt time.Time `json:"signed_in_at"`
}

// Profiles is the part of the gateway auth needs.
type Profiles interface {
	CreateProfile(ctx context.Context, profile model.Profile) (*model.Profile, error)
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error)
}

// Service implements sign-up, sign-in and sign-out.
type Service struct {
	profiles Profiles
	secrets  credential.SecretStore
	logger   *zap.Logger
	now      func() time.Time
	cost     int
}

// NewService creates an auth service.
func NewService(profiles Profiles, secrets credential.SecretStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		profiles: profiles,
		secrets:  secrets,
		logger:   logger,
		now:      time.Now,
		cost:     bcrypt.DefaultCost,
	}
}

// SignUp registers a new profile and signs it in.
func (s *Service) SignUp(ctx context.Context, in validate.SignUpInput) (*model.Profile, error) {
	if err := validate.SignUp(in); err != nil {
		return nil, err
	}

	if _, err := s.profiles.GetProfileByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	profile, err := s.profiles.CreateProfile(ctx, model.Profile{
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, fmt.Errorf("signing up: %w", err)
	}

	if err := s.saveSession(profile); err != nil {
		return nil, err
	}
	s.logger.Info("signed up", zap.String("user_id", profile.ID))
	return profile, nil
}

// SignIn checks the password and stores a session.
func (s *Service) SignIn(ctx context.Context, in validate.SignInInput) (*model.Profile, error) {
	if err := validate.SignIn(in); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetProfileByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("signing in: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.saveSession(profile); err != nil {
		return nil, err
	}
	s.logger.Info("signed in", zap.String("user_id", profile.ID))
	return profile, nil
}

// SignOut forgets the stored session.
func (s *Service) SignOut() error {
	if err := s.secrets.Delete(sessionKey); err != nil {
		return fmt.Errorf("signing out: %w", err)
	}
	return nil
}

// Session returns the stored session, or ErrNoSession.
func (s *Service) Session() (*Session, error) {
	raw, err := s.secrets.Get(sessionKey)
	if errors.Is(err, credential.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil || sess.UserID == "" {
		s.logger.Warn("discarding unreadable session", zap.Error(err))
		return nil, ErrNoSession
	}
	return &sess, nil
}

// Current resolves the signed-in profile. A session whose profile no
// longer exists counts as signed out.
func (s *Service) Current(ctx context.Context) (*model.Profile, error) {
	sess, err := s.Session()
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetProfile(ctx, sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	return profile, nil
}

func (s *Service) saveSession(profile *model.Profile) error {
	data, err := json.Marshal(Session{
		UserID:     profile.ID,
		Email:      profile.Email,
		SignedInAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.secrets.Set(sessionKey, string(data)); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}
