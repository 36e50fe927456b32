package server

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xela07ax/agisfl-core/internal/domain"
	"github.com/xela07ax/agisfl-core/internal/infra"
	"github.com/xela07ax/agisfl-core/internal/infra/auth"
	"golang.org/x/crypto/bcrypt"
)

// AuthService выдает и проверяет HS256 токены операторской консоли.
// Пароль демо-учетки хэшируется один раз при старте, в памяти
// открытый пароль не хранится.
type AuthService struct {
	*auth.BaseValidator

	cfg      infra.AuthConfig
	passHash []byte
}

func NewAuthService(cfg infra.AuthConfig) (*AuthService, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPass), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return &AuthService{
		BaseValidator: auth.NewBaseValidator([]byte(cfg.JWTSecret)),
		cfg:           cfg,
		passHash:      hash,
	}, nil
}

// Authenticate сверяет учетные данные с демо-учеткой.
func (s *AuthService) Authenticate(username, password string) error {
	if username != s.cfg.AdminUser {
		return fmt.Errorf("unknown user")
	}
	if err := bcrypt.CompareHashAndPassword(s.passHash, []byte(password)); err != nil {
		return fmt.Errorf("invalid password")
	}
	return nil
}

// GenerateToken выпускает токен с ролью operator и TTL из конфигурации.
func (s *AuthService) GenerateToken(username string) (domain.TokenResponse, error) {
	now := time.Now()
	claims := domain.CustomClaims{
		Username: username,
		Role:     "operator",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "agisfl-core",
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return domain.TokenResponse{}, fmt.Errorf("sign token: %w", err)
	}

	return domain.TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.cfg.TokenTTL.Seconds()),
	}, nil
}
