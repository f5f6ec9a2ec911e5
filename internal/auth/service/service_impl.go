package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pktdms/docgate/internal/auth/domain"
	"github.com/pktdms/docgate/internal/auth/password"
	"github.com/pktdms/docgate/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
	Cfg config.Config
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	secret []byte
	ttl    time.Duration
}

func New(p Params) domain.Service {
	secret := p.Cfg.AuthJWTSecret
	if secret == "" {
		// Development fallback; production deployments set AUTH_JWT_SECRET.
		secret = "docgate-dev-secret"
	}
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("auth.service"),
		secret: []byte(secret),
		ttl:    p.Cfg.TokenTTL,
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResult, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return domain.LoginResult{}, domain.ErrInvalidCredentials
	}

	var user domain.User
	err := s.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.LoginResult{}, domain.ErrInvalidCredentials
		}
		return domain.LoginResult{}, err
	}

	if !password.Verify(req.Password, user.PasswordHash) {
		s.log.Warn("login rejected", zap.String("username", username))
		return domain.LoginResult{}, domain.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"username": user.Username,
		"role":     user.Role,
		"iat":      now.Unix(),
		"exp":      now.Add(s.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return domain.LoginResult{}, err
	}

	return domain.LoginResult{Token: token, User: user}, nil
}

func (s *Service) Authenticate(_ context.Context, rawToken string) (domain.Identity, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.Identity{}, domain.ErrInvalidToken
	}

	parsed, err := jwt.Parse(rawToken, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return domain.Identity{}, domain.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Identity{}, domain.ErrInvalidToken
	}

	identity := domain.Identity{}
	if sub, ok := claims["sub"].(string); ok {
		identity.UserID = sub
	}
	if username, ok := claims["username"].(string); ok {
		identity.Username = username
	}
	if role, ok := claims["role"].(string); ok {
		identity.Role = role
	}
	if identity.Username == "" {
		return domain.Identity{}, domain.ErrInvalidToken
	}

	return identity, nil
}
