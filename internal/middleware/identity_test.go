package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/gymhub/internal/domain"
)

const testSecret = "test-jwt-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func claimsFor(sub, role, name string, ttl time.Duration) Claims {
	return Claims{
		Role: role,
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
}

func newIdentityServer(cfg IdentityConfig) *echo.Echo {
	e := echo.New()
	e.Use(session.Middleware(sessions.NewCookieStore([]byte("session-secret"))))
	e.POST("/login", func(c echo.Context) error {
		if err := SaveIdentity(c, domain.Identity{UserID: "trainer-1", Role: domain.RoleTrainer, Name: "Sam"}); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/me", func(c echo.Context) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, id)
	}, Identity(cfg))
	return e
}

func TestIdentity_Bearer(t *testing.T) {
	e := newIdentityServer(IdentityConfig{JWTSecret: testSecret})

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{
			name:     "valid token",
			header:   "Bearer " + signToken(t, testSecret, claimsFor("member-1", "Member", "Ana", time.Hour)),
			wantCode: http.StatusOK,
			wantBody: `{"userId":"member-1","role":"member","name":"Ana"}`,
		},
		{
			name:     "wrong secret",
			header:   "Bearer " + signToken(t, "other", claimsFor("member-1", "member", "", time.Hour)),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "expired",
			header:   "Bearer " + signToken(t, testSecret, claimsFor("member-1", "member", "", -time.Minute)),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "unknown role",
			header:   "Bearer " + signToken(t, testSecret, claimsFor("member-1", "coach", "", time.Hour)),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "missing subject",
			header:   "Bearer " + signToken(t, testSecret, claimsFor("", "gym", "", time.Hour)),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "no credentials",
			wantCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestIdentity_RejectsOtherSigningMethods(t *testing.T) {
	e := newIdentityServer(IdentityConfig{JWTSecret: testSecret})
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claimsFor("gym-1", "gym", "", time.Hour)).
		SignedString([]byte(testSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIdentity_QueryToken(t *testing.T) {
	tok := signToken(t, testSecret, claimsFor("gym-1", "gym", "Iron Temple", time.Hour))

	t.Run("accepted when enabled", func(t *testing.T) {
		e := newIdentityServer(IdentityConfig{JWTSecret: testSecret, AllowQueryToken: true})
		req := httptest.NewRequest(http.MethodGet, "/me?token="+tok, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("ignored otherwise", func(t *testing.T) {
		e := newIdentityServer(IdentityConfig{JWTSecret: testSecret})
		req := httptest.NewRequest(http.MethodGet, "/me?token="+tok, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestIdentity_Session(t *testing.T) {
	e := newIdentityServer(IdentityConfig{})

	login := httptest.NewRecorder()
	e.ServeHTTP(login, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusNoContent, login.Code)
	cookies := login.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":"trainer-1","role":"trainer","name":"Sam"}`, rec.Body.String())
}

func TestIdentityFrom_Missing(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, ok := IdentityFrom(c)
	assert.False(t, ok)

	c.Set(UserContextKey, "not an identity")
	_, ok = IdentityFrom(c)
	assert.False(t, ok)
}

func TestLogger_InjectsRequestLogger(t *testing.T) {
	e := echo.New()
	var got *slog.Logger
	e.GET("/", func(c echo.Context) error {
		got = FromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	}, Logger)

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, got)
	assert.NotSame(t, slog.Default(), got)
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}
