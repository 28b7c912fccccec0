package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"placeprep_backend/internal/config"
	"placeprep_backend/internal/model"
	"placeprep_backend/internal/util"
	"placeprep_backend/pkg/logger"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	verificationTTL = 24 * time.Hour
	resetTTL        = time.Hour
	minPasswordLen  = 6
)

type SignupRequest struct {
	FullName string `json:"fullName" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// GoogleIdentity is the verified subject of a Google ID token.
type GoogleIdentity struct {
	Sub   string
	Email string
	Name  string
}

type GoogleVerifier interface {
	Verify(idToken string) (*GoogleIdentity, error)
}

type googleIDTokenVerifier struct {
	clientID string
}

func NewGoogleVerifier(clientID string) GoogleVerifier {
	return &googleIDTokenVerifier{clientID: clientID}
}

func (v *googleIDTokenVerifier) Verify(idToken string) (*GoogleIdentity, error) {
	if v.clientID == "" {
		return nil, errors.New("google sign-in is not configured")
	}
	verifier := googleAuthIDTokenVerifier.Verifier{}
	if err := verifier.VerifyIDToken(idToken, []string{v.clientID}); err != nil {
		return nil, err
	}
	claims, err := googleAuthIDTokenVerifier.Decode(idToken)
	if err != nil {
		return nil, err
	}
	return &GoogleIdentity{Sub: claims.Sub, Email: claims.Email, Name: claims.Name}, nil
}

type AuthService struct {
	Users  UserStore
	Mailer Mailer
	Google GoogleVerifier
	Cfg    *config.Config
	Now    func() time.Time
	async  func(func())
}

func NewAuthService(users UserStore, mailer Mailer, google GoogleVerifier, cfg *config.Config) *AuthService {
	return &AuthService{
		Users:  users,
		Mailer: mailer,
		Google: google,
		Cfg:    cfg,
		Now:    time.Now,
		async:  func(f func()) { go f() },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", fmt.Errorf("%w: password must be at least %d characters", util.ErrValidation, minPasswordLen)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (s *AuthService) sendMail(kind string, send func() error) {
	if s.Mailer == nil {
		return
	}
	s.async(func() {
		if err := send(); err != nil {
			logger.Log.Warn("Auth email failed", zap.Error(err), zap.String("kind", kind))
		}
	})
}

func (s *AuthService) issueVerification(u *model.User) {
	expiry := s.Now().Add(verificationTTL)
	u.VerificationToken = model.GenerateToken()
	u.VerificationExpiry = &expiry
}

// Signup registers an unverified user and emails a verification link.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*model.User, error) {
	email := normalizeEmail(req.Email)
	if _, err := s.Users.FindByEmail(ctx, email); err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		FullName: strings.TrimSpace(req.FullName),
		Email:    email,
		Password: hashed,
		Role:     model.RoleUser,
	}
	s.issueVerification(user)
	if err := s.Users.Create(ctx, user); err != nil {
		return nil, err
	}

	recipient := *user
	s.sendMail("verification", func() error { return s.Mailer.SendVerification(&recipient) })
	return user, nil
}

func (s *AuthService) issueToken(ctx context.Context, user *model.User) (*AuthResult, error) {
	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	if err := s.Users.TouchLastLogin(ctx, user.ID, now); err != nil {
		logger.Log.Warn("Updating last login failed", zap.Error(err), zap.Uint("userId", user.ID))
	}
	user.LastLogin = &now
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	user, err := s.Users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.IsOAuthOnly() {
		return nil, util.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}
	if !user.IsVerified {
		return nil, util.ErrEmailNotVerified
	}
	return s.issueToken(ctx, user)
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return util.ErrInvalidToken
	}
	user, err := s.Users.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrInvalidToken
		}
		return err
	}
	if user.VerificationExpiry == nil || s.Now().After(*user.VerificationExpiry) {
		return util.ErrInvalidToken
	}
	user.IsVerified = true
	user.VerificationToken = ""
	user.VerificationExpiry = nil
	return s.Users.Update(ctx, user)
}

// ResendVerification is silent for unknown or already verified addresses.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.Users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if user.IsVerified {
		return nil
	}
	s.issueVerification(user)
	if err := s.Users.Update(ctx, user); err != nil {
		return err
	}
	recipient := *user
	s.sendMail("verification", func() error { return s.Mailer.SendVerification(&recipient) })
	return nil
}

// ForgotPassword never reveals whether the address is registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.Users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if user.IsOAuthOnly() {
		return nil
	}
	expiry := s.Now().Add(resetTTL)
	user.ResetToken = model.GenerateToken()
	user.ResetExpiry = &expiry
	if err := s.Users.Update(ctx, user); err != nil {
		return err
	}
	recipient := *user
	s.sendMail("password_reset", func() error { return s.Mailer.SendPasswordReset(&recipient) })
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if strings.TrimSpace(token) == "" {
		return util.ErrInvalidToken
	}
	user, err := s.Users.FindByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrInvalidToken
		}
		return err
	}
	if user.ResetExpiry == nil || s.Now().After(*user.ResetExpiry) {
		return util.ErrInvalidToken
	}
	hashed, err := hashPassword(password)
	if err != nil {
		return err
	}
	user.Password = hashed
	user.ResetToken = ""
	user.ResetExpiry = nil
	return s.Users.Update(ctx, user)
}

// GoogleAuth signs in with a Google ID token, linking or creating the account as needed.
func (s *AuthService) GoogleAuth(ctx context.Context, idToken string) (*AuthResult, error) {
	if s.Google == nil {
		return nil, util.ErrInvalidCredentials
	}
	identity, err := s.Google.Verify(idToken)
	if err != nil {
		logger.Log.Info("Google token rejected", zap.Error(err))
		return nil, util.ErrInvalidCredentials
	}
	email := normalizeEmail(identity.Email)
	if email == "" || identity.Sub == "" {
		return nil, util.ErrInvalidCredentials
	}

	user, err := s.Users.FindByGoogleID(ctx, identity.Sub)
	if err == nil {
		return s.issueToken(ctx, user)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub := identity.Sub
	user, err = s.Users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		user.GoogleID = &sub
		user.IsVerified = true
		user.VerificationToken = ""
		user.VerificationExpiry = nil
		if err := s.Users.Update(ctx, user); err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		name := strings.TrimSpace(identity.Name)
		if name == "" {
			name = strings.Split(email, "@")[0]
		}
		user = &model.User{
			FullName:   name,
			Email:      email,
			Password:   model.OAuthPassword,
			Role:       model.RoleUser,
			GoogleID:   &sub,
			IsVerified: true,
		}
		if err := s.Users.Create(ctx, user); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return s.issueToken(ctx, user)
}

// CreateModerator registers a pre-verified moderator account.
func (s *AuthService) CreateModerator(ctx context.Context, req SignupRequest) (*model.User, error) {
	email := normalizeEmail(req.Email)
	if _, err := s.Users.FindByEmail(ctx, email); err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		FullName:   strings.TrimSpace(req.FullName),
		Email:      email,
		Password:   hashed,
		Role:       model.RoleModerator,
		IsVerified: true,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Me(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}
