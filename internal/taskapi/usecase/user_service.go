package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"taskman/internal/taskapi/domain"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 100
	maxNameLen     = 200
	maxEmailLen    = 256
)

// invalidCredentialsMessage is the single message a failed check carries;
// it never distinguishes unknown users from wrong passwords or inactive
// accounts.
const invalidCredentialsMessage = "invalid username or password"

type UserService struct {
	users  UserRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewUserService(users UserRepository, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{users: users, logger: logger, now: time.Now}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || len(name) > maxNameLen {
		return domain.User{}, domain.ErrInvalidArgument
	}
	if !validEmail(email) {
		return domain.User{}, domain.ErrInvalidArgument
	}
	if len(input.Password) < minPasswordLen || len(input.Password) > maxPasswordLen {
		return domain.User{}, domain.ErrInvalidArgument
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return domain.User{}, domain.ErrConflict
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		RegisteredAt: s.now().UTC(),
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	if id == "" {
		return domain.User{}, domain.ErrInvalidArgument
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

// ValidateCredentials checks an identifier/password pair for the token
// authority. The result is always a well-formed CredentialCheck; rejection
// reasons are logged, not returned.
func (s *UserService) ValidateCredentials(ctx context.Context, identifier, password string) domain.CredentialCheck {
	denied := domain.CredentialCheck{IsValid: false, ErrorMessage: invalidCredentialsMessage}

	email := strings.ToLower(strings.TrimSpace(identifier))
	if email == "" || password == "" {
		return denied
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Error("credential check lookup failed", "err", err)
		return denied
	}
	if user == nil || !user.Active {
		s.logger.Warn("credential check rejected", "reason", "unknown or inactive user")
		return denied
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.logger.Warn("credential check rejected", "reason", "password mismatch", "user_id", user.ID)
		return denied
	}
	s.logger.Info("credential check accepted", "user_id", user.ID)
	return domain.CredentialCheck{
		IsValid: true,
		UserID:  user.ID,
		Name:    user.Name,
		Email:   user.Email,
	}
}

func validEmail(email string) bool {
	if email == "" || len(email) > maxEmailLen {
		return false
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t")
}
