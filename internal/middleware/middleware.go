package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 上下文键
const (
	KeyRequestID   = "request_id"
	KeyUserID      = "user_id"
	KeySupplierID  = "supplier_id"
	KeyPermissions = "permissions"
	KeyClaims      = "claims"
)

// PermAll 通配权限
const PermAll = "*"

func abort(c *gin.Context, status, code int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"code": code, "message": message})
}

// Logger 访问日志，按状态码分级，带上调用方供应商
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String(KeyRequestID, c.GetString(KeyRequestID)),
		}
		if route := c.FullPath(); route != "" {
			fields = append(fields, zap.String("route", route))
		}
		if supplierID := c.GetString(KeySupplierID); supplierID != "" {
			fields = append(fields,
				zap.String(KeySupplierID, supplierID),
				zap.String(KeyUserID, c.GetString(KeyUserID)),
			)
		}

		switch {
		case status >= 500:
			logger.Error("Server error", fields...)
		case status >= 400:
			logger.Warn("Client error", fields...)
		default:
			logger.Info("Request", fields...)
		}
	}
}

// CORS 跨域中间件
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, X-Requested-With, X-Request-ID")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestID 沿用调用方的 X-Request-ID，没有则生成
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(KeyRequestID, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// JWTClaims 令牌声明，supplier_id 是调用方所属的供应商（租户）
type JWTClaims struct {
	UserID      string   `json:"uid"`
	SupplierID  string   `json:"supplier_id"`
	Permissions []string `json:"perms"`
	jwt.RegisteredClaims
}

// HasPermission 判断是否持有权限，"*" 匹配全部
func (c *JWTClaims) HasPermission(permission string) bool {
	return hasPermission(c.Permissions, permission)
}

func hasPermission(perms []string, permission string) bool {
	for _, p := range perms {
		if p == permission || p == PermAll {
			return true
		}
	}
	return false
}

// ParseToken 校验 HS256 签名与有效期
func ParseToken(secret, tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}

// bearerToken 先取 Authorization 头，SSE 连接无法设置请求头时回退到 ?token=
func bearerToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		if scheme, token, ok := strings.Cut(auth, " "); ok && scheme == "Bearer" {
			return strings.TrimSpace(token)
		}
	}
	return c.Query("token")
}

// JWTAuth 认证调用方，把用户、供应商与权限写入上下文
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			abort(c, http.StatusUnauthorized, 40100, "Authorization is required")
			return
		}

		claims, err := ParseToken(secret, tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, 40102, "Invalid or expired token")
			return
		}

		c.Set(KeyUserID, claims.UserID)
		c.Set(KeySupplierID, claims.SupplierID)
		c.Set(KeyPermissions, claims.Permissions)
		c.Set(KeyClaims, claims)
		c.Next()
	}
}

// RequireSupplier 碳足迹数据按供应商隔离，未绑定供应商的令牌一律拒绝
func RequireSupplier() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(KeySupplierID) == "" {
			abort(c, http.StatusForbidden, 40304, "Token is not bound to a supplier")
			return
		}
		c.Next()
	}
}

// RequirePermission 权限检查中间件
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(KeyPermissions)
		if !exists {
			abort(c, http.StatusForbidden, 40300, "No permissions found")
			return
		}
		perms, ok := value.([]string)
		if !ok {
			abort(c, http.StatusForbidden, 40301, "Invalid permissions format")
			return
		}
		if !hasPermission(perms, permission) {
			abort(c, http.StatusForbidden, 40302, "Permission denied: "+permission)
			return
		}
		c.Next()
	}
}
