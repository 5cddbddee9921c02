package jwtgin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwtmiddleware "github.com/vmdemo/entra-jwt-middleware"
	"github.com/vmdemo/entra-jwt-middleware/core"
	"github.com/vmdemo/entra-jwt-middleware/validator"
)

type validatorFunc func(ctx context.Context, token string) (any, error)

func (f validatorFunc) ValidateToken(ctx context.Context, token string) (any, error) {
	return f(ctx, token)
}

func newCore(t *testing.T) *core.Core {
	t.Helper()
	c, err := core.New(core.WithValidator(validatorFunc(func(_ context.Context, token string) (any, error) {
		if token == "good" {
			return &validator.ValidatedClaims{RegisteredClaims: validator.RegisteredClaims{Subject: "user-123"}}, nil
		}
		return nil, core.NewValidationError(core.KindExpired, "token is expired", nil)
	})))
	require.NoError(t, err)
	return c
}

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	handler := func(c *gin.Context) {
		claims, err := GetClaims(c, "")
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"authDisabled": jwtmiddleware.AuthDisabled(c.Request.Context())})
			return
		}
		fromRequest, err := jwtmiddleware.GetClaims[*validator.ValidatedClaims](c.Request.Context())
		if err != nil || fromRequest != claims {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sub": claims.Subject})
	}
	r.GET("/api/hello", handler)
	r.OPTIONS("/api/hello", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func serve(r http.Handler, method, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/hello", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestNewGinMiddleware(t *testing.T) {
	r := newRouter(NewGinMiddleware(newCore(t)))

	t.Run("authenticated", func(t *testing.T) {
		rec := serve(r, http.MethodGet, "Bearer good")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"sub":"user-123"}`, rec.Body.String())
	})

	t.Run("rejected", func(t *testing.T) {
		rec := serve(r, http.MethodGet, "Bearer bad")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
		assert.JSONEq(t,
			`{"success":false,"error":"Unauthorized","message":"Token validation failed: token is expired","kind":"expired"}`,
			rec.Body.String())
	})

	t.Run("missing header", func(t *testing.T) {
		rec := serve(r, http.MethodGet, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, `Bearer realm="Entra ID"`, rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("options validated by default", func(t *testing.T) {
		rec := serve(r, http.MethodOptions, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestNewGinMiddleware_Options(t *testing.T) {
	var handled error
	r := newRouter(NewGinMiddleware(newCore(t),
		WithValidateOnOptions(false),
		WithErrorHandler(func(c *gin.Context, err error) {
			handled = err
			c.JSON(http.StatusForbidden, gin.H{"error": "nope"})
		}),
		WithTokenExtractor(jwtmiddleware.HeaderTokenExtractor("X-Auth")),
	))

	rec := serve(r, http.MethodOptions, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(r, http.MethodGet, "Bearer good")
	assert.Equal(t, http.StatusForbidden, rec.Code, "Authorization is ignored when another header is configured")
	assert.True(t, errors.Is(handled, core.ErrJWTMissing))

	req := httptest.NewRequest(http.MethodGet, "/api/hello", nil)
	req.Header.Set("X-Auth", "Bearer good")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewGinMiddleware_Disabled(t *testing.T) {
	c, err := core.New(core.WithDisabled(true))
	require.NoError(t, err)
	r := newRouter(NewGinMiddleware(c))

	rec := serve(r, http.MethodGet, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["authDisabled"])
}

func TestGetClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := GetClaims(c, "")
	assert.ErrorIs(t, err, ErrMissingClaims)

	c.Set("custom", "not claims")
	_, err = GetClaims(c, "custom")
	assert.ErrorIs(t, err, ErrInvalidClaims)

	want := &validator.ValidatedClaims{}
	c.Set(DefaultClaimsKey, want)
	got, err := GetClaims(c, "")
	require.NoError(t, err)
	assert.Same(t, want, got)
}
