// Package auth 从请求中解析当前用户：Bearer JWT，或开发环境下受信任的请求头。
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/nerdneilsfield/evaltrans/internal/config"
)

// 受信任的请求头
const (
	HeaderUserID   = "X-User-ID"
	HeaderTenantID = "X-Tenant-ID"
	HeaderEmail    = "X-User-Email"
)

var (
	// ErrMissingToken 请求未携带凭证
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken 凭证无效或已过期
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingTenant 凭证中没有租户
	ErrMissingTenant = errors.New("token has no tenant")
	// ErrNoSecret 未配置签名密钥
	ErrNoSecret = errors.New("auth.jwt_secret is required unless auth.trust_headers is enabled")
)

// Identity 当前用户
type Identity struct {
	UserID   string `json:"uid"`
	Email    string `json:"email,omitempty"`
	TenantID string `json:"tenant_id"`
}

// Claims JWT 声明
type Claims struct {
	UID      string `json:"uid"`
	Email    string `json:"email,omitempty"`
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// Authenticator 签发和校验令牌
type Authenticator struct {
	secret       []byte
	issuer       string
	trustHeaders bool
	now          func() time.Time
}

// New 创建认证器。未开启 trust_headers 时必须配置密钥
func New(cfg config.AuthConfig) (*Authenticator, error) {
	if cfg.JWTSecret == "" && !cfg.TrustHeaders {
		return nil, ErrNoSecret
	}
	return &Authenticator{
		secret:       []byte(cfg.JWTSecret),
		issuer:       cfg.Issuer,
		trustHeaders: cfg.TrustHeaders,
		now:          time.Now,
	}, nil
}

// IssueToken 签发令牌
func (a *Authenticator) IssueToken(id Identity, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", ErrNoSecret
	}
	if id.UserID == "" || id.TenantID == "" {
		return "", fmt.Errorf("uid and tenant_id are required")
	}

	now := a.now()
	claims := Claims{
		UID:      id.UserID,
		Email:    id.Email,
		TenantID: id.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse 校验令牌并返回用户
func (a *Authenticator) Parse(raw string) (*Identity, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		return nil, ErrMissingToken
	}
	if len(a.secret) == 0 {
		return nil, ErrNoSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	uid := claims.UID
	if uid == "" {
		uid = claims.Subject
	}
	if uid == "" {
		return nil, fmt.Errorf("%w: no uid claim", ErrInvalidToken)
	}
	if claims.TenantID == "" {
		return nil, ErrMissingTenant
	}
	return &Identity{UserID: uid, Email: claims.Email, TenantID: claims.TenantID}, nil
}

// Authenticate 从 HTTP 请求解析用户
func (a *Authenticator) Authenticate(r *http.Request) (*Identity, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return a.Parse(header)
	}
	if a.trustHeaders {
		uid := strings.TrimSpace(r.Header.Get(HeaderUserID))
		tenant := strings.TrimSpace(r.Header.Get(HeaderTenantID))
		if uid != "" && tenant != "" {
			return &Identity{UserID: uid, Email: r.Header.Get(HeaderEmail), TenantID: tenant}, nil
		}
		if uid != "" {
			return nil, ErrMissingTenant
		}
	}
	return nil, ErrMissingToken
}

const identityKey = "auth.identity"

// Middleware gin 认证中间件，失败时返回 401
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := a.Authenticate(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// FromGin 读取中间件写入的用户
func FromGin(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*Identity)
	return id, ok
}

type contextKey struct{}

// WithIdentity 把用户放入 context
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext 从 context 读取用户
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok
}
