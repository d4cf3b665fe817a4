package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id int) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// Register creates a regular user account. Password may be empty for accounts
// that originate from an OAuth provider.
func (s *Service) Register(ctx context.Context, user User) (User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if _, err := s.repo.GetByEmail(ctx, user.Email); err == nil {
		return User{}, ErrEmailExists
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	if user.Password != "" && !looksLikeBcrypt(user.Password) {
		hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		user.Password = string(hashed)
	}
	if user.Role == "" {
		user.Role = RoleUser
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	return s.repo.Create(ctx, user)
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return User{}, ErrInvalidCredentials
	}
	if user.Password == "" {
		return User{}, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}

// EnsureAdmin makes sure an admin account exists for email, creating it or
// promoting the existing account.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (User, error) {
	existing, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	switch {
	case err == nil:
		if existing.Role == RoleAdmin {
			return existing, nil
		}
		existing.Role = RoleAdmin
		existing.Password = ""
		existing.UpdatedAt = time.Now().UTC()
		log.Info().Int("user_id", existing.ID).Msg("promoting user to admin")
		return s.repo.Update(ctx, existing.ID, existing)
	case errors.Is(err, ErrNotFound):
		return s.Register(ctx, User{Name: name, Email: email, Password: password, Role: RoleAdmin})
	default:
		return User{}, err
	}
}

func looksLikeBcrypt(value string) bool {
	return len(value) > 4 && value[0:2] == "$2"
}
