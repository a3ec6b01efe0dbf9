package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidSignup      = errors.New("email and password are required")
)

type Service struct {
	repo   Repository
	tokens *TokenIssuer
}

func NewService(repo Repository, tokens *TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Signup registers a new account. Unknown roles collapse to PATIENT, matching
// the default the public signup form is allowed to create.
func (s *Service) Signup(ctx context.Context, name, email, password string, role Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidSignup
	}

	if !role.Valid() {
		role = RolePatient
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}

	created, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Login verifies the credentials and issues a signed session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u, time.Now())
	if err != nil {
		return "", nil, err
	}

	return token, u, nil
}

// Verify resolves a bearer credential to the caller's principal.
func (s *Service) Verify(token string) (Principal, error) {
	return s.tokens.Verify(token)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*User, error) {
	return s.repo.UpdateProfile(ctx, id, upd)
}
