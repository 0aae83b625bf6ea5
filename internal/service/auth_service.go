package service

import (
	"context"
	"errors"
	"fmt"

	"roomchat/internal/domain"
	"roomchat/internal/security"
)

// AuthService handles registration, login, and logout.
type AuthService struct {
	accounts domain.AccountRepository
	tokens   *security.TokenService
	hash     *security.PasswordHasher
}

func NewAuthService(accounts domain.AccountRepository, tokens *security.TokenService, hash *security.PasswordHasher) *AuthService {
	return &AuthService{
		accounts: accounts,
		tokens:   tokens,
		hash:     hash,
	}
}

type RegisterInput struct {
	Username string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type TokenResponse struct {
	AccessToken string
	TokenType   string
	Account     *domain.Account
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	if in.Username == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// The unique constraint on username decides races between concurrent
	// registrations; Create returns ErrConflict for the loser.
	account := &domain.Account{
		Username:       in.Username,
		HashedPassword: hashed,
		IsOnline:       false,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	account, err := s.accounts.GetByUsername(ctx, in.Username)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	if err := s.hash.Verify(in.Password, account.HashedPassword); err != nil {
		return nil, domain.ErrUnauthorized
	}

	if err := s.accounts.SetOnline(ctx, account.Username, true); err != nil {
		return nil, fmt.Errorf("set online: %w", err)
	}

	token, err := s.tokens.CreateForUser(account.Username)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Account:     account,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, username string) error {
	return s.accounts.SetOnline(ctx, username, false)
}
