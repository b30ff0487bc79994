package jwt

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// AccessClaims are the claims the identity service puts in an access token.
type AccessClaims struct {
	UserID      string
	EmployeeID  *string
	CompanyID   string
	Role        user.Role
	Permissions []user.Permission
}

type Service interface {
	GenerateAccessToken(claims AccessClaims) (token string, expiresAt int64, err error)
	GenerateSSEToken(userID string) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (userID string, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenTTL time.Duration
	tokenAuth      *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenTTL time.Duration) Service {
	return &JWTService{
		accessTokenTTL: accessTokenTTL,
		tokenAuth:      jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

// GenerateAccessToken signs an access token. Production tokens come from the
// identity service; this is used by tooling and tests sharing the secret.
func (j *JWTService) GenerateAccessToken(c AccessClaims) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(j.accessTokenTTL).Unix()

	permissions := make([]string, 0, len(c.Permissions))
	for _, p := range c.Permissions {
		permissions = append(permissions, string(p))
	}

	claims := map[string]interface{}{
		"user_id":     c.UserID,
		"employee_id": returnValueOrNil(c.EmployeeID),
		"company_id":  c.CompanyID,
		"role":        string(c.Role),
		"permissions": permissions,
		"type":        "access",
		"exp":         expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

func returnValueOrNil(value *string) interface{} {
	if value == nil {
		return nil
	}
	return *value
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *JWTService) GenerateSSEToken(userID string) (token string, expiresIn int, err error) {
	expiresIn = 300
	expiresAt := time.Now().Add(5 * time.Minute).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id": userID,
		"type":    "sse",
		"exp":     expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresIn, nil
}

// ValidateSSEToken validates an SSE token and returns the user ID
func (j *JWTService) ValidateSSEToken(tokenString string) (userID string, err error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != "sse" {
		return "", jwt.ErrInvalidJWT()
	}

	userIDVal, ok := token.Get("user_id")
	if !ok {
		return "", jwt.ErrInvalidJWT()
	}

	userID, ok = userIDVal.(string)
	if !ok || userID == "" {
		return "", jwt.ErrInvalidJWT()
	}

	return userID, nil
}

// ViewerFromClaims builds the request principal from access token claims.
func ViewerFromClaims(claims map[string]interface{}) (user.Viewer, error) {
	if tokenType, _ := claims["type"].(string); tokenType != "access" {
		return user.Viewer{}, fmt.Errorf("unexpected token type %q", claims["type"])
	}

	var v user.Viewer
	v.UserID, _ = claims["user_id"].(string)
	v.CompanyID, _ = claims["company_id"].(string)
	if role, ok := claims["role"].(string); ok {
		v.Role = user.Role(role)
	}
	if employeeID, ok := claims["employee_id"].(string); ok && employeeID != "" {
		v.EmployeeID = &employeeID
	}

	switch raw := claims["permissions"].(type) {
	case []interface{}:
		for _, p := range raw {
			if s, ok := p.(string); ok {
				v.Permissions = append(v.Permissions, user.Permission(s))
			}
		}
	case []string:
		for _, s := range raw {
			v.Permissions = append(v.Permissions, user.Permission(s))
		}
	}

	if v.UserID == "" {
		return user.Viewer{}, user.ErrUserIDRequired
	}
	return v, nil
}
