package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/table-reservation/internal/apperr"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// RegistrationMessage is returned on successful registration.
const RegistrationMessage = "Registration successful. Please login."

const (
	invalidLogin    = "Invalid email or password"
	passwordTooLong = "Password must be at most 72 bytes"
)

type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	FullName    string
	PhoneNumber string
}

// LoginResult is a signed token plus the account it belongs to.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// AdminSeed describes the bootstrap administrator.
type AdminSeed struct {
	Username    string
	Email       string
	Password    string
	FullName    string
	PhoneNumber string
}

type AuthService struct {
	users      UserStore
	tokens     utils.TokenOptions
	bcryptCost int
	log        *logrus.Logger
}

func NewAuthService(users UserStore, tokens utils.TokenOptions, bcryptCost int, log *logrus.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, bcryptCost: bcryptCost, log: log}
}

// Register creates a customer account.  A taken username or email is a
// conflict naming the field.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	u := &model.User{
		Username:    strings.TrimSpace(in.Username),
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		FullName:    strings.TrimSpace(in.FullName),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Role:        model.RoleCustomer,
	}
	if len(in.Password) > utils.MaxPasswordBytes {
		return nil, apperr.New(apperr.InvalidInput, passwordTooLong)
	}
	if err := s.ensureUnique(ctx, u.Username, u.Email); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, apperr.New(apperr.InvalidInput, passwordTooLong)
		}
		return nil, apperr.InternalErr(err)
	}
	u.PasswordHash = hash
	if err := s.users.Create(ctx, u); err != nil {
		return nil, mapUserConflict(err)
	}
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username}).Info("user registered")
	return u, nil
}

func (s *AuthService) ensureUnique(ctx context.Context, username, email string) error {
	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return apperr.InternalErr(err)
	}
	if taken {
		return mapUserConflict(repository.ErrUsernameExists)
	}
	if taken, err = s.users.ExistsByEmail(ctx, email); err != nil {
		return apperr.InternalErr(err)
	}
	if taken {
		return mapUserConflict(repository.ErrEmailExists)
	}
	return nil
}

func mapUserConflict(err error) error {
	switch {
	case errors.Is(err, repository.ErrUsernameExists):
		return apperr.New(apperr.Conflict, "Username already exists")
	case errors.Is(err, repository.ErrEmailExists):
		return apperr.New(apperr.Conflict, "Email already exists")
	}
	return apperr.InternalErr(err)
}

// Login checks credentials and issues an access token.  Unknown email and
// wrong password produce the same error and cost the same time.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			utils.BurnVerify(password)
			return nil, apperr.New(apperr.InvalidInput, invalidLogin)
		}
		return nil, apperr.InternalErr(err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, apperr.New(apperr.InvalidInput, invalidLogin)
	}
	tok, err := utils.NewAccessToken(s.tokens, u)
	if err != nil {
		return nil, apperr.InternalErr(err)
	}
	return &LoginResult{Token: tok.Token, ExpiresAt: tok.Exp, User: u}, nil
}

// SeedAdmin creates the bootstrap admin when no admin exists yet.  It
// reports whether an account was created.
func (s *AuthService) SeedAdmin(ctx context.Context, seed AdminSeed) (bool, error) {
	if seed.Password == "" {
		return false, nil
	}
	n, err := s.users.CountByRole(ctx, model.RoleAdmin)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	hash, err := utils.HashPassword(seed.Password, s.bcryptCost)
	if err != nil {
		return false, err
	}
	u := &model.User{
		Username:     seed.Username,
		Email:        strings.ToLower(strings.TrimSpace(seed.Email)),
		PasswordHash: hash,
		FullName:     seed.FullName,
		PhoneNumber:  seed.PhoneNumber,
		Role:         model.RoleAdmin,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return false, err
	}
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("admin account seeded")
	return true, nil
}
