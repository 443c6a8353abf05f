package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mihaigidu/FitGenius/internal/config"
	"github.com/mihaigidu/FitGenius/internal/storage"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrInvalidEmail   = errors.New("invalid email")
	ErrNameRequired   = errors.New("name is required")
	ErrEmailTaken     = errors.New("email already registered")
	ErrUnknownAccount = errors.New("account not found")
)

// Service registers accounts and issues access tokens. Accounts are identified by email only.
type Service struct {
	config  *config.Config
	storage storage.Storage
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(cfg *config.Config, st storage.Storage, logger zerolog.Logger) *Service {
	return &Service{
		config:  cfg,
		storage: st,
		logger:  logger.With().Str("component", "auth").Logger(),
		now:     time.Now,
	}
}

// NormalizeEmail lowercases and validates an address.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// UserIDForProfile is the owner ID of a registered account. It is derived from the
// profile ID so it survives email changes.
func UserIDForProfile(id uuid.UUID) string {
	return "user:" + id.String()
}

// Register creates the account profile and returns a token for it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	id := uuid.New()
	profile := &storage.Profile{
		ID:          id,
		OwnerUserID: UserIDForProfile(id),
		Name:        name,
		Email:       email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.storage.CreateProfile(ctx, profile); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	s.logger.Info().Str("user_id", profile.OwnerUserID).Msg("account registered")
	return s.tokenFor(profile)
}

// Login issues a token for an existing account.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	profile, err := s.storage.GetProfileByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnknownAccount
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return s.tokenFor(profile)
}

func (s *Service) tokenFor(profile *storage.Profile) (*TokenResponse, error) {
	ttl := time.Duration(s.config.JWTTTLMinutes) * time.Minute
	token, err := s.IssueToken(profile.OwnerUserID, profile.Email, ttl)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
		UserID:      profile.OwnerUserID,
		ProfileID:   profile.ID,
		Name:        profile.Name,
		Email:       profile.Email,
	}, nil
}

// IssueToken signs an HS256 access token for userID.
func (s *Service) IssueToken(userID, email string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.config.JWTIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyJWT checks signature, issuer and expiry and returns the subject.
func (s *Service) VerifyJWT(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.JWTIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
