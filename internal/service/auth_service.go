package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/peer-tutoring-api/internal/models"
	"github.com/noah-isme/peer-tutoring-api/pkg/config"
	appErrors "github.com/noah-isme/peer-tutoring-api/pkg/errors"
)

// TutorAccountStore is the tutor persistence auth depends on.
type TutorAccountStore interface {
	FindByPhone(ctx context.Context, phone string) (*models.Tutor, error)
	Create(ctx context.Context, tutor *models.Tutor, subjectIDs []string) error
}

// AuthService issues and validates bearer tokens for tutors and the admin.
// Tutors authenticate with phone + PIN; the admin with a single shared
// password whose bcrypt hash lives in configuration.
type AuthService struct {
	tutors   TutorAccountStore
	jwtCfg   config.JWTConfig
	adminCfg config.AdminConfig
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAuthService constructs the service.
func NewAuthService(tutors TutorAccountStore, jwtCfg config.JWTConfig, adminCfg config.AdminConfig, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		tutors:   tutors,
		jwtCfg:   jwtCfg,
		adminCfg: adminCfg,
		validate: validate,
		logger:   logger,
	}
}

// SignupTutor registers a tutor account and returns a fresh session token.
func (s *AuthService) SignupTutor(ctx context.Context, req models.TutorSignupRequest) (*models.LoginResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signup request")
	}

	phone := normalizePhone(req.Phone)
	if len(phone) < 10 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "phone number must have at least 10 digits")
	}

	if _, err := s.tutors.FindByPhone(ctx, phone); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "phone number is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check phone")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash pin")
	}

	tutor := &models.Tutor{
		Name:    req.Name,
		Phone:   phone,
		PINHash: string(hash),
		Active:  true,
	}
	if err := s.tutors.Create(ctx, tutor, req.SubjectIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tutor")
	}

	s.logger.Info("tutor registered", zap.String("tutor_id", tutor.ID))
	return s.issueToken(tutor.ID, models.RoleTutor, tutor.Name)
}

// LoginTutor authenticates a tutor by phone and PIN.
func (s *AuthService) LoginTutor(ctx context.Context, req models.TutorLoginRequest) (*models.LoginResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login request")
	}

	tutor, err := s.tutors.FindByPhone(ctx, normalizePhone(req.Phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(tutor.PINHash), []byte(req.PIN)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	if !tutor.Active {
		return nil, appErrors.ErrInactiveAccount
	}

	return s.issueToken(tutor.ID, models.RoleTutor, tutor.Name)
}

// LoginAdmin authenticates the admin role. With no configured password hash
// the admin portal is disabled entirely.
func (s *AuthService) LoginAdmin(_ context.Context, req models.AdminLoginRequest) (*models.LoginResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login request")
	}
	if s.adminCfg.PasswordHash == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admin login is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminCfg.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	return s.issueToken("", models.RoleAdmin, "Administrator")
}

// ValidateToken parses and verifies a bearer token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.jwtCfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.ErrUnauthorized
	}
	return claims, nil
}

func (s *AuthService) issueToken(actorID string, role models.Role, name string) (*models.LoginResponse, error) {
	now := time.Now().UTC()
	claims := models.JWTClaims{
		ActorID: actorID,
		Role:    role,
		Name:    name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtCfg.Expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	return &models.LoginResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.jwtCfg.Expiration.Seconds()),
		Role:        role,
		ActorID:     actorID,
		Name:        name,
		IssuedAt:    now,
	}, nil
}
