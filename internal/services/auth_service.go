package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"siraqemir/internal/models"
)

const refreshTokenBytes = 32 // 256 бит

var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims are carried by access tokens. Subject is the user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type AuthService interface {
	HashPassword(password string) (string, error)
	CheckPassword(hash, password string) bool
	IssueTokens(user *models.User) (models.TokenPair, time.Time, error)
	ParseAccessToken(token string) (*Claims, error)
}

type authService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewAuthService(secret string, accessTTL, refreshTTL time.Duration) AuthService {
	return &authService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (s *authService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *authService) CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueTokens signs a new access token and generates an opaque refresh
// token. The second return value is the refresh token's expiry, which the
// caller persists.
func (s *authService) IssueTokens(user *models.User) (models.TokenPair, time.Time, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := &Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return models.TokenPair{}, time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := newRefreshToken()
	if err != nil {
		return models.TokenPair{}, time.Time{}, fmt.Errorf("new refresh token: %w", err)
	}
	return models.TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, now.Add(s.refreshTTL), nil
}

func (s *authService) ParseAccessToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		// только HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithLeeway(2*time.Minute), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// newRefreshToken returns an opaque hex token; only the service database knows what it maps to.
func newRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
