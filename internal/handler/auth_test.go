package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/movie-ticket-booking/internal/config"
	"github.com/iliyamo/movie-ticket-booking/internal/middleware"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

const jwtSecret = "handler-secret"

type fakeUsers struct{ users []model.User }

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

type fakeTokens struct {
	mu     sync.Mutex
	tokens map[string]uint64
}

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[hash] = userID
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tokens[hash]
	if !ok {
		return 0, repository.ErrRefreshInvalid
	}
	return id, nil
}

func (f *fakeTokens) Rotate(_ context.Context, userID uint64, oldHash, newHash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokens[oldHash] != userID {
		return repository.ErrRefreshInvalid
	}
	delete(f.tokens, oldHash)
	f.tokens[newHash] = userID
	return nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, hash)
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, id := range f.tokens {
		if id == userID {
			delete(f.tokens, h)
		}
	}
	return nil
}

func newAuth(t *testing.T) (*echo.Echo, *fakeTokens) {
	t.Helper()
	raw, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	hash := string(raw)
	users := &fakeUsers{users: []model.User{
		{ID: 1, Email: "one@example.com", Name: "One", PasswordHash: hash, Role: model.RoleCustomer, IsActive: true},
		{ID: 2, Email: "off@example.com", Name: "Off", PasswordHash: hash, Role: model.RoleCustomer},
	}}
	tokens := &fakeTokens{tokens: map[string]uint64{}}
	a := NewAuthHandler(config.JWTConfig{Secret: jwtSecret, AccessTTL: time.Minute, RefreshTTL: time.Hour}, users, tokens, zap.NewNop())

	e := echo.New()
	e.POST("/login", a.Login)
	e.POST("/refresh", a.Refresh)
	e.POST("/logout", a.Logout)
	e.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
	return e, tokens
}

func post(e *echo.Echo, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, e *echo.Echo) authResp {
	t.Helper()
	rec := post(e, "/login", `{"email":" One@Example.com ","password":"s3cret-pass"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestLogin(t *testing.T) {
	e, tokens := newAuth(t)

	out := login(t, e)
	assert.Equal(t, uint64(1), out.User.ID)
	assert.Equal(t, model.RoleCustomer, out.User.Role)
	assert.NotEmpty(t, out.Access.Token)
	assert.Len(t, tokens.tokens, 1)

	assert.Equal(t, http.StatusUnauthorized, post(e, "/login", `{"email":"one@example.com","password":"nope"}`, "").Code)
	assert.Equal(t, http.StatusUnauthorized, post(e, "/login", `{"email":"ghost@example.com","password":"s3cret-pass"}`, "").Code)
	assert.Equal(t, http.StatusForbidden, post(e, "/login", `{"email":"off@example.com","password":"s3cret-pass"}`, "").Code)
	assert.Equal(t, http.StatusBadRequest, post(e, "/login", `{"email":"not-an-email"}`, "").Code)
}

func TestRefreshRotates(t *testing.T) {
	e, tokens := newAuth(t)
	first := login(t, e)

	body := `{"refresh_token":"` + first.Refresh.Token + `"}`
	rec := post(e, "/refresh", body, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var second authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.NotEqual(t, first.Refresh.Token, second.Refresh.Token)
	assert.Len(t, tokens.tokens, 1)

	// the old token was revoked by the rotation
	assert.Equal(t, http.StatusUnauthorized, post(e, "/refresh", body, "").Code)
}

func TestLogoutAndMe(t *testing.T) {
	e, tokens := newAuth(t)
	out := login(t, e)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+out.Access.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"one@example.com"`)

	assert.Equal(t, http.StatusBadRequest, post(e, "/logout", `{}`, "").Code)
	assert.Equal(t, http.StatusNoContent, post(e, "/logout", `{"refresh_token":"`+out.Refresh.Token+`"}`, "").Code)
	assert.Empty(t, tokens.tokens)

	login(t, e)
	login(t, e)
	assert.Len(t, tokens.tokens, 2)
	assert.Equal(t, http.StatusNoContent, post(e, "/logout", `{}`, out.Access.Token).Code)
	assert.Empty(t, tokens.tokens)
}
