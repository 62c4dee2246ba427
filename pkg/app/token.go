package app

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// 默认 Token 签发者
const DefaultTokenIssuer = "fast-note-image-uploader"

// contextKey gin context key holding the parsed client
const contextKey = "client_token"

// TokenConfig 定义 Token 管理器的配置
type TokenConfig struct {
	SecretKey string        // JWT 签名密钥
	Expiry    time.Duration // Token 过期时间，默认 365 天
	Issuer    string        // Token 签发者
}

// TokenManager 定义 Token 管理接口
type TokenManager interface {
	Generate(client, ip string) (string, error)
	Parse(token string) (*ClientEntity, error)
	Validate(token string) error
	Enabled() bool
}

type tokenManager struct {
	config TokenConfig
}

// NewTokenManager 创建 TokenManager，SecretKey 为空时鉴权关闭
func NewTokenManager(cfg TokenConfig) TokenManager {
	if cfg.Expiry == 0 {
		cfg.Expiry = 365 * 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultTokenIssuer
	}
	return &tokenManager{config: cfg}
}

// ClientEntity claims of an editor client allowed to call the API
// ClientEntity 允许调用 API 的编辑器客户端信息
type ClientEntity struct {
	Client string `json:"client"`
	IP     string `json:"ip"`
	jwt.RegisteredClaims
}

// Generate 生成一个新的 JWT Token
func (t *tokenManager) Generate(client, ip string) (string, error) {
	if !t.Enabled() {
		return "", fmt.Errorf("token secret key is empty")
	}
	now := time.Now()
	claims := &ClientEntity{
		Client: client,
		IP:     ip,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.config.Expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    t.config.Issuer,
			Subject:   "client-token",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(t.config.SecretKey))
}

// Parse 解析 JWT Token 并返回客户端信息
func (t *tokenManager) Parse(token string) (*ClientEntity, error) {
	return ParseTokenWithKey(token, t.config.SecretKey)
}

// Validate 验证 Token 是否有效
func (t *tokenManager) Validate(token string) error {
	_, err := t.Parse(token)
	return err
}

func (t *tokenManager) Enabled() bool {
	return t.config.SecretKey != ""
}

// ParseTokenWithKey 使用指定密钥解析 Token
func ParseTokenWithKey(tokenString string, secretKey string) (*ClientEntity, error) {
	claims := &ClientEntity{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// SetClientToContext 将解析后的客户端信息写入 Context
func SetClientToContext(ctx *gin.Context, client *ClientEntity) {
	ctx.Set(contextKey, client)
}

// GetClient 从 Context 获取客户端名称
func GetClient(ctx *gin.Context) (out string) {
	if v, ok := ctx.Get(contextKey); ok {
		if c, ok := v.(*ClientEntity); ok {
			out = c.Client
		}
	}
	return
}
