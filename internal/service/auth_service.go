package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"votronix-auth/internal/auth"
	"votronix-auth/internal/domain"
	"votronix-auth/internal/notify"
	"votronix-auth/internal/repository"
)

// DefaultStoreTimeout bounds every user store call.
const DefaultStoreTimeout = 5 * time.Second

// AuthService implements signup, login and profile access.
type AuthService interface {
	Signup(ctx context.Context, username, email, password string) (*SignupResult, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	GetProfile(ctx context.Context, token string) (*domain.User, error)
	SetProfileImage(ctx context.Context, token, imageURL string) (*domain.User, error)
}

// TokenIssuer mints and checks session tokens.
type TokenIssuer interface {
	Issue(userID, email, username string) (string, error)
	Verify(token string) (*auth.Claims, error)
}

// Notifier accepts messages for asynchronous delivery.
type Notifier interface {
	Enqueue(msg notify.Message) error
}

type SignupResult struct {
	User *domain.User
	// NotificationErr is set when the welcome email could not be queued.
	// The user is created regardless.
	NotificationErr error
}

type LoginResult struct {
	Token string
	User  *domain.User
}

type authService struct {
	users        repository.UserRepository
	hasher       auth.PasswordHasher
	tokens       TokenIssuer
	notifier     Notifier
	storeTimeout time.Duration
}

// NewAuthService wires the collaborators. notifier may be nil to disable
// welcome emails; storeTimeout <= 0 selects DefaultStoreTimeout.
func NewAuthService(users repository.UserRepository, hasher auth.PasswordHasher, tokens TokenIssuer, notifier Notifier, storeTimeout time.Duration) AuthService {
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	return &authService{
		users:        users,
		hasher:       hasher,
		tokens:       tokens,
		notifier:     notifier,
		storeTimeout: storeTimeout,
	}
}

func (s *authService) Signup(ctx context.Context, username, email, password string) (*SignupResult, error) {
	username = strings.TrimSpace(username)
	email = repository.NormalizeEmail(email)

	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}

	if _, err := s.getByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password must be at most 72 bytes", ErrValidation)
		}
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.users.Create(storeCtx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	result := &SignupResult{User: user.Public()}
	if s.notifier != nil {
		if err := s.notifier.Enqueue(notify.WelcomeMessage(user.Username, user.Email)); err != nil {
			result.NotificationErr = fmt.Errorf("%w: %v", ErrNotificationFailed, err)
		}
	}
	return result, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = repository.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}

	user, err := s.getByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &LoginResult{Token: token, User: user.Public()}, nil
}

func (s *authService) GetProfile(ctx context.Context, token string) (*domain.User, error) {
	user, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (s *authService) SetProfileImage(ctx context.Context, token, imageURL string) (*domain.User, error) {
	imageURL = strings.TrimSpace(imageURL)
	if err := validateImageURL(imageURL); err != nil {
		return nil, err
	}

	user, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.users.UpdateProfileImage(storeCtx, user.ID, imageURL); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update profile image: %w", err)
	}

	user.ProfileImageURL = imageURL
	return user.Public(), nil
}

// authenticate resolves a raw token to the stored user it was issued for.
func (s *authService) authenticate(ctx context.Context, token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthorized
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.UserID() != "" {
		return s.getByID(ctx, claims.UserID())
	}
	return s.getByEmail(ctx, claims.Email)
}

func (s *authService) getByEmail(ctx context.Context, email string) (*domain.User, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.users.GetByEmail(storeCtx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

func (s *authService) getByID(ctx context.Context, id string) (*domain.User, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.users.GetByID(storeCtx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

func validateImageURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: url is required", ErrValidation)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be an absolute http(s) url", ErrValidation)
	}
	return nil
}
