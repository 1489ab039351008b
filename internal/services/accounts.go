package services

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/auth"
	"dotify/internal/media"
	"dotify/internal/models"
	"dotify/internal/repositories"
)

// Session is a user together with a freshly issued bearer token
type Session struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// AccountService registers, authenticates and updates users
type AccountService struct {
	base
	tokens *auth.TokenManager
}

// NewAccountService creates a new account service
func NewAccountService(store *repositories.Store, uploader media.Uploader, tokens *auth.TokenManager) *AccountService {
	return &AccountService{
		base:   newBase(store, uploader, nil),
		tokens: tokens,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return badRequest("Email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return badRequest("Email is invalid")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < auth.MinPasswordLength {
		return badRequest("Password must be at least %d characters", auth.MinPasswordLength)
	}
	return nil
}

// Register creates a non-admin user and signs them in
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" {
		return nil, badRequest("Name is required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	existing, err := s.store.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, storeError(err, "User")
	}
	if existing != nil {
		return nil, conflict("User already exists")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, storeError(err, "User")
	}

	user := models.NewUser(name, email, hash)
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, storeError(err, "User")
	}

	slog.Info("User registered", "user_id", user.ID.Hex())
	return s.session(user)
}

// Login checks credentials and issues a token
func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.Users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, storeError(err, "User")
	}

	hash := ""
	if user != nil {
		hash = user.PasswordHash
	}
	if !auth.CheckPassword(hash, password) {
		return nil, unauthorized("Invalid email or password")
	}

	return s.session(user)
}

func (s *AccountService) session(user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, storeError(err, "Token")
	}
	return &Session{User: user, Token: token}, nil
}

// Authenticate resolves a bearer token to its user
func (s *AccountService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, unauthorized("Not authorized, no token")
	}
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, unauthorized("Not authorized, token failed")
	}

	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "User")
	}
	if user == nil {
		return nil, unauthorized("Not authorized, user not found")
	}
	return user, nil
}

// Profile returns a user by id
func (s *AccountService) Profile(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.store.Users.FindByID(ctx, id)
	return requireFound(user, err, "User")
}

// UpdateProfile changes the caller's own account fields
func (s *AccountService) UpdateProfile(ctx context.Context, id primitive.ObjectID, in ProfileUpdate) (*models.User, error) {
	user, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, badRequest("Name cannot be empty")
		}
		user.Name = name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		if email != user.Email {
			other, err := s.store.Users.FindByEmail(ctx, email)
			if err != nil {
				return nil, storeError(err, "User")
			}
			if other != nil {
				return nil, conflict("Email is already in use")
			}
		}
		user.Email = email
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, storeError(err, "User")
		}
		user.PasswordHash = hash
	}

	if url, err := s.upload(ctx, in.PicturePath, media.FolderUsers); err != nil {
		return nil, err
	} else if url != "" {
		user.ProfilePicture = url
	}

	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, storeError(err, "User")
	}
	return user, nil
}

// SetAdmin grants or revokes the admin role by email
func (s *AccountService) SetAdmin(ctx context.Context, email string, admin bool) (*models.User, error) {
	user, err := s.store.Users.FindByEmail(ctx, normalizeEmail(email))
	if user, err = requireFound(user, err, "User"); err != nil {
		return nil, err
	}
	if err := s.store.Users.SetAdmin(ctx, user.ID, admin); err != nil {
		return nil, storeError(err, "User")
	}
	user.IsAdmin = admin

	slog.Info("User role changed", "user_id", user.ID.Hex(), "admin", admin)
	return user, nil
}
