package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/idempotency"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeResolver struct {
	identities []services.Identity
	err        error
}

func (r *fakeResolver) EnsureUser(ctx context.Context, identity services.Identity) (*models.User, error) {
	r.identities = append(r.identities, identity)
	if r.err != nil {
		return nil, r.err
	}
	user := &models.User{Subject: identity.Subject, Email: identity.Email, Role: identity.Role}
	user.ID = uuid.New()
	return user, nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) utils.APIError {
	t.Helper()
	var body utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return *body.Error
}

func authRouter(resolver UserResolver, authCfg config.AuthConfig) *gin.Engine {
	r := gin.New()
	r.Use(I18nMiddleware())
	r.GET("/me", AuthRequired(resolver, authCfg), func(c *gin.Context) {
		principal, _ := utils.GetPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"role": principal.Role, "email": principal.Email})
	})
	r.GET("/admin", AuthRequired(resolver, authCfg), AdminRequired(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func bearer(t *testing.T, subject string, claims utils.IdentityClaims, ttl time.Duration) string {
	t.Helper()
	token, err := utils.GenerateJWT(subject, claims, ttl)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthRequired(t *testing.T) {
	utils.SetJWTSecret("middleware-secret", "")
	t.Cleanup(func() { utils.SetJWTSecret("your-secret-key-change-in-production", "") })

	resolver := &fakeResolver{}
	r := authRouter(resolver, config.AuthConfig{AdminEmails: []string{"boss@example.com"}})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantRole   models.Role
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not.a.jwt", wantStatus: http.StatusUnauthorized},
		{name: "expired", header: bearer(t, "idp|1", utils.IdentityClaims{Email: "a@example.com"}, -time.Minute), wantStatus: http.StatusUnauthorized},
		{name: "customer", header: bearer(t, "idp|1", utils.IdentityClaims{Email: "a@example.com"}, time.Hour), wantStatus: http.StatusOK, wantRole: models.RoleCustomer},
		{name: "admin claim", header: bearer(t, "idp|2", utils.IdentityClaims{Email: "b@example.com", Role: "admin"}, time.Hour), wantStatus: http.StatusOK, wantRole: models.RoleAdmin},
		{name: "admin email", header: bearer(t, "idp|3", utils.IdentityClaims{Email: "Boss@example.com"}, time.Hour), wantStatus: http.StatusOK, wantRole: models.RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, string(tt.wantRole), body["role"])
			} else {
				assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)
			}
		})
	}
}

func TestAuthRequiredResolverFailure(t *testing.T) {
	utils.SetJWTSecret("middleware-secret", "")
	t.Cleanup(func() { utils.SetJWTSecret("your-secret-key-change-in-production", "") })

	r := authRouter(&fakeResolver{err: errors.New("db down")}, config.AuthConfig{})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", bearer(t, "idp|1", utils.IdentityClaims{}, time.Hour))
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}

func TestAdminRequired(t *testing.T) {
	utils.SetJWTSecret("middleware-secret", "")
	t.Cleanup(func() { utils.SetJWTSecret("your-secret-key-change-in-production", "") })

	r := authRouter(&fakeResolver{}, config.AuthConfig{})

	customer := httptest.NewRequest(http.MethodGet, "/admin", nil)
	customer.Header.Set("Authorization", bearer(t, "idp|1", utils.IdentityClaims{}, time.Hour))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, customer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, rec).Code)

	admin := httptest.NewRequest(http.MethodGet, "/admin", nil)
	admin.Header.Set("Authorization", bearer(t, "idp|2", utils.IdentityClaims{Role: "admin"}, time.Hour))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, "en", parseLanguage(""))
	assert.Equal(t, "fr", parseLanguage("fr-CA,fr;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", parseLanguage("en-GB"))
	assert.Equal(t, "fr", parseLanguage("de-DE,fr;q=0.5"))
	assert.Equal(t, "en", parseLanguage("ja"))
}

func TestRequestIDIsPropagatedOrAssigned(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RequestLogger())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(utils.ContextKeyRequestID))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Body.String())
	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
	assert.NoError(t, err)
}

func TestRateLimiter(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	limiter := NewRateLimiter(ctx, rate.Limit(1), 2)

	r := gin.New()
	r.Use(limiter.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	var codes []int
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	cancel()
	<-limiter.Done()
}

func idempotentRouter(t *testing.T, store idempotency.Store, status int) (*gin.Engine, *int) {
	t.Helper()
	calls := 0
	r := gin.New()
	r.POST("/orders", Idempotency(store), func(c *gin.Context) {
		calls++
		c.JSON(status, gin.H{"call": calls})
	})
	return r, &calls
}

func newIdempotencyStore(t *testing.T) *idempotency.RedisStore {
	t.Helper()
	server := miniredis.RunT(t)
	store, err := idempotency.NewRedisStore("redis://"+server.Addr(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func postOrder(r *gin.Engine, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyReplaysCompletedRequest(t *testing.T) {
	r, calls := idempotentRouter(t, newIdempotencyStore(t), http.StatusCreated)

	first := postOrder(r, "key-1", `{"items":[1]}`)
	second := postOrder(r, "key-1", `{"items":[1]}`)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(idempotentReplayHeader))
	assert.Equal(t, 1, *calls)

	postOrder(r, "", `{"items":[1]}`)
	postOrder(r, "", `{"items":[1]}`)
	assert.Equal(t, 3, *calls)
}

func TestIdempotencyRejectsReusedKeyWithDifferentBody(t *testing.T) {
	r, calls := idempotentRouter(t, newIdempotencyStore(t), http.StatusCreated)

	postOrder(r, "key-1", `{"items":[1]}`)
	rec := postOrder(r, "key-1", `{"items":[2]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "IDEMPOTENCY_KEY_REUSED", decodeError(t, rec).Code)
	assert.Equal(t, 1, *calls)
}

func TestIdempotencyInProgress(t *testing.T) {
	store := newIdempotencyStore(t)
	r, calls := idempotentRouter(t, store, http.StatusCreated)

	body := `{"items":[1]}`
	fingerprint := utils.HashString(http.MethodPost + " /orders\n" + utils.HashBytes([]byte(body)))
	_, acquired, err := store.Begin(context.Background(), "key-1", fingerprint)
	require.NoError(t, err)
	require.True(t, acquired)

	rec := postOrder(r, "key-1", body)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "REQUEST_IN_PROGRESS", decodeError(t, rec).Code)
	assert.Equal(t, 0, *calls)
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	r, calls := idempotentRouter(t, newIdempotencyStore(t), http.StatusInternalServerError)

	postOrder(r, "key-1", `{}`)
	rec := postOrder(r, "key-1", `{}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get(idempotentReplayHeader))
	assert.Equal(t, 2, *calls)
}
