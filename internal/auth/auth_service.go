package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	// ErrInvalidToken 表示令牌无法解析、签名不符、已过期或类型不符。
	ErrInvalidToken = errors.New("token is invalid or expired")
	// ErrTokenRevoked 表示刷新令牌已被加入黑名单。
	ErrTokenRevoked = errors.New("token is blacklisted")
)

// Service 负责签发、刷新与吊销 JWT。所有依赖在构造时注入，不持有全局状态。
type Service struct {
	privateKey      *rsa.PrivateKey
	publicKey       *rsa.PublicKey
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	denylist        Denylist
}

// TokenPair 封装访问令牌与刷新令牌。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenClaims 表示 JWT 中的业务字段，便于中间件读取用户信息。
type TokenClaims struct {
	UserID    uint   `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// NewService 解析 PEM 密钥并构造服务实例。
func NewService(privateKeyPEM, publicKeyPEM []byte, accessTTL, refreshTTL time.Duration, denylist Denylist) (*Service, error) {
	if len(privateKeyPEM) == 0 {
		return nil, errors.New("private key pem is required")
	}
	if len(publicKeyPEM) == 0 {
		return nil, errors.New("public key pem is required")
	}
	if denylist == nil {
		return nil, errors.New("refresh token denylist is required")
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa private key: %w", err)
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa public key: %w", err)
	}

	return &Service{
		privateKey:      privateKey,
		publicKey:       publicKey,
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
		denylist:        denylist,
	}, nil
}

// IssuePair 创建访问令牌与刷新令牌。
func (s *Service) IssuePair(userID uint) (TokenPair, error) {
	now := time.Now()

	accessToken, err := s.signClaims(s.newClaims(userID, TokenTypeAccess, now, s.accessTokenTTL))
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := s.signClaims(s.newClaims(userID, TokenTypeRefresh, now, s.refreshTokenTTL))
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// ValidateAccess 校验访问令牌。
func (s *Service) ValidateAccess(tokenString string) (*TokenClaims, error) {
	return s.validateType(tokenString, TokenTypeAccess)
}

// ValidateRefresh 校验刷新令牌的签名、有效期、类型与黑名单状态。
func (s *Service) ValidateRefresh(ctx context.Context, tokenString string) (*TokenClaims, error) {
	claims, err := s.validateType(tokenString, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrInvalidToken)
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Refresh 用有效的刷新令牌换取新的访问令牌。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, *TokenClaims, error) {
	claims, err := s.ValidateRefresh(ctx, refreshToken)
	if err != nil {
		return "", nil, err
	}

	access, err := s.signClaims(s.newClaims(claims.UserID, TokenTypeAccess, time.Now(), s.accessTokenTTL))
	if err != nil {
		return "", nil, err
	}
	return access, claims, nil
}

// Revoke 将刷新令牌加入黑名单，之后它无法再换取访问令牌。
func (s *Service) Revoke(ctx context.Context, refreshToken string) (*TokenClaims, error) {
	claims, err := s.ValidateRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	ttl := s.refreshTokenTTL
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if err := s.denylist.Revoke(ctx, claims.ID, ttl); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Service) validateType(tokenString, tokenType string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, tokenType, claims.TokenType)
	}
	return claims, nil
}

func (s *Service) newClaims(userID uint, tokenType string, now time.Time, ttl time.Duration) TokenClaims {
	return TokenClaims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (s *Service) signClaims(claims TokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// AccessTokenTTL 暴露访问令牌有效期。
func (s *Service) AccessTokenTTL() time.Duration {
	return s.accessTokenTTL
}

// RefreshTokenTTL 暴露刷新令牌有效期。
func (s *Service) RefreshTokenTTL() time.Duration {
	return s.refreshTokenTTL
}
