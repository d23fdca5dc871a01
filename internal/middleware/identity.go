package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/nfrund/gymhub/internal/domain"
)

// UserContextKey is the echo context key holding the caller's domain.Identity.
const UserContextKey = "user"

// SessionName is the cookie session the identity is read from.
const SessionName = "gymhub"

const (
	sessionUserID = "user_id"
	sessionRole   = "role"
	sessionName   = "name"
)

var errNoCredentials = errors.New("no credentials")

// Claims is the bearer token payload issued by the external auth service.
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// IdentityConfig configures the Identity middleware.
type IdentityConfig struct {
	// JWTSecret verifies HS256 bearer tokens. Bearer auth is disabled when empty.
	JWTSecret string
	// AllowQueryToken also accepts the token from the "token" query parameter.
	// Browsers cannot set headers on websocket upgrades.
	AllowQueryToken bool
}

// Identity establishes the caller from a bearer token or, failing that, the
// cookie session. Requests with neither get 401. The session middleware must
// run first for cookie auth to work.
func Identity(cfg IdentityConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := fromBearer(c, cfg)
			if errors.Is(err, errNoCredentials) {
				id, err = fromSession(c)
			}
			if err != nil {
				FromContext(c.Request().Context()).Debug("Rejected unauthenticated request",
					"path", c.Path(), "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			c.Set(UserContextKey, id)
			return next(c)
		}
	}
}

// IdentityFrom returns the identity set by the Identity middleware.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get(UserContextKey).(domain.Identity)
	return id, ok && id.UserID != ""
}

// SaveIdentity writes id into the cookie session.
func SaveIdentity(c echo.Context, id domain.Identity) error {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return err
	}
	sess.Options = &sessions.Options{Path: "/", MaxAge: 86400 * 7, HttpOnly: true, SameSite: http.SameSiteLaxMode}
	sess.Values[sessionUserID] = id.UserID
	sess.Values[sessionRole] = string(id.Role)
	sess.Values[sessionName] = id.Name
	return sess.Save(c.Request(), c.Response())
}

func fromBearer(c echo.Context, cfg IdentityConfig) (domain.Identity, error) {
	if cfg.JWTSecret == "" {
		return domain.Identity{}, errNoCredentials
	}
	raw := ""
	if h := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		raw = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	} else if cfg.AllowQueryToken {
		raw = c.QueryParam("token")
	}
	if raw == "" {
		return domain.Identity{}, errNoCredentials
	}
	return ParseToken(cfg.JWTSecret, raw)
}

// ParseToken verifies an HS256 token and returns the identity it carries.
func ParseToken(secret, raw string) (domain.Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("invalid token: %w", err)
	}
	return identityOf(claims.Subject, claims.Role, claims.Name)
}

func fromSession(c echo.Context) (domain.Identity, error) {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return domain.Identity{}, err
	}
	userID, _ := sess.Values[sessionUserID].(string)
	role, _ := sess.Values[sessionRole].(string)
	name, _ := sess.Values[sessionName].(string)
	if userID == "" {
		return domain.Identity{}, errNoCredentials
	}
	return identityOf(userID, role, name)
}

func identityOf(userID, role, name string) (domain.Identity, error) {
	if userID == "" {
		return domain.Identity{}, errors.New("identity has no subject")
	}
	r, err := domain.ParseRole(role)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{UserID: userID, Role: r, Name: name}, nil
}
