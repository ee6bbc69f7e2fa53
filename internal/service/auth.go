package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hfenton/property_search/internal/hash"
	"github.com/hfenton/property_search/internal/invite"
	"github.com/hfenton/property_search/internal/logging"
	"github.com/hfenton/property_search/internal/models"
	"github.com/hfenton/property_search/internal/tokens"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrBadPassword   = errors.New("invalid password")
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already exists")
)

type AuthService struct {
	DB      *gorm.DB
	Tokens  *tokens.Service
	Invites *invite.Registry
}

type LoginResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
}

type RegisterInput struct {
	Username        string
	Email           string
	Name            string
	Password        string
	InvitationToken string
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "email", email)

	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login failed", "reason", "user not found")
			return nil, ErrUserNotFound
		}
		l.Error("login failed", "error", err)
		return nil, err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login failed", "reason", "bad password")
		return nil, ErrBadPassword
	}

	identity := tokens.Identity{ID: user.ID, Role: user.Role}
	accessToken, err := s.Tokens.MintAccess(identity)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.Tokens.MintRefresh(identity)
	if err != nil {
		return nil, err
	}

	l.Info("login successful", "user_id", user.ID)
	return &LoginResult{
		User:         &user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Register spends the invitation token and inserts the user in a single
// transaction: a duplicate username or email rolls the consumption back, so
// a failed attempt never burns somebody else's invite.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register", "username", in.Username)

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("register failed", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := models.User{
		Username:     in.Username,
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: pwHash,
		Role:         "user",
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := invite.ConsumeTx(tx, in.InvitationToken); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUsernameTaken
		}
		if err := tx.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}

		return tx.Create(&user).Error
	})
	if err != nil {
		l.Warn("register failed", "error", err)
		return nil, err
	}

	l.Info("register successful", "user_id", user.ID)
	return &user, nil
}

// Refresh is pure mint-on-verify: possession of a valid refresh token is
// the whole credential.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	identity, err := s.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", err
	}
	return s.Tokens.MintAccess(identity)
}

// ProvisionOAuthUser matches an identity-provider sign-in to a local user by
// email, creating one on first sign-in. The generated local password is
// random and never presented; the account only re-enters via the provider.
func (s *AuthService) ProvisionOAuthUser(ctx context.Context, email, name string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.oauth_provision", "email", email)

	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	pwHash, err := hash.HashPassword(uuid.NewString())
	if err != nil {
		return nil, err
	}

	user = models.User{
		Username:     derivedUsername(email),
		Email:        email,
		Name:         name,
		PasswordHash: pwHash,
		Role:         "user",
	}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		l.Error("provisioning failed", "error", err)
		return nil, err
	}

	l.Info("provisioned new user", "user_id", user.ID)
	return &user, nil
}

func derivedUsername(email string) string {
	local, _, _ := strings.Cut(email, "@")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return local + "_" + suffix
}
