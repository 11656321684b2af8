package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gymslot-api/internal/models"
	appErrors "github.com/noah-isme/gymslot-api/pkg/errors"
)

type fakeAuthService struct {
	signedOut   []string
	lastLoginIP string
}

func (f *fakeAuthService) SignUp(ctx context.Context, req models.SignUpRequest, ip, userAgent string) (*models.UserInfo, error) {
	if req.Email == "taken@gym.test" {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}
	return &models.UserInfo{ID: "user-1", Email: req.Email, Name: req.Name}, nil
}

func (f *fakeAuthService) SignIn(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.lastLoginIP = req.IP
	if req.Password != "secret" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh", User: models.UserInfo{ID: "user-1", Email: req.Email}}, nil
}

func (f *fakeAuthService) SignInAdmin(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	return nil, appErrors.Clone(appErrors.ErrForbidden, "admin access required")
}

func (f *fakeAuthService) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	if req.RefreshToken != "refresh" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token expired")
	}
	return &models.RefreshTokenResponse{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (f *fakeAuthService) SignOut(ctx context.Context, refreshToken, userID, ip, userAgent string) error {
	f.signedOut = append(f.signedOut, userID+":"+refreshToken)
	return nil
}

func (f *fakeAuthService) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID, Email: "member@gym.test"}, nil
}

func authEngine(claims *models.JWTClaims, svc *fakeAuthService) http.Handler {
	h := NewAuthHandler(svc)
	r := newTestEngine(claims)
	r.POST("/auth/signup", h.SignUp)
	r.POST("/auth/signin", h.SignIn)
	r.POST("/auth/admin/signin", h.AdminSignIn)
	r.POST("/auth/refresh", h.Refresh)
	r.POST("/auth/signout", h.SignOut)
	r.GET("/auth/me", h.Me)
	return r
}

func TestAuthSignUp(t *testing.T) {
	r := authEngine(nil, &fakeAuthService{})

	w := performRequest(r, jsonRequest(http.MethodPost, "/auth/signup", `{"email":"new@gym.test","password":"secret1","name":"New"}`))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = performRequest(r, jsonRequest(http.MethodPost, "/auth/signup", `{"email":"taken@gym.test","password":"secret1","name":"Dup"}`))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, w))
}

func TestAuthSignIn(t *testing.T) {
	svc := &fakeAuthService{}
	r := authEngine(nil, svc)

	req := jsonRequest(http.MethodPost, "/auth/signin", `{"email":"member@gym.test","password":"secret"}`)
	req.RemoteAddr = "10.0.0.7:5555"
	w := performRequest(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access_token":"access"`)
	assert.Equal(t, "10.0.0.7", svc.lastLoginIP)

	w = performRequest(r, jsonRequest(http.MethodPost, "/auth/signin", `{"email":"member@gym.test","password":"nope"}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))

	w = performRequest(r, jsonRequest(http.MethodPost, "/auth/admin/signin", `{"email":"member@gym.test","password":"secret"}`))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthRefresh(t *testing.T) {
	r := authEngine(nil, &fakeAuthService{})

	w := performRequest(r, jsonRequest(http.MethodPost, "/auth/refresh", `{"refresh_token":"refresh"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"refresh_token":"refresh-2"`)

	w = performRequest(r, jsonRequest(http.MethodPost, "/auth/refresh", `{"refresh_token":"stale"}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthSessionEndpoints(t *testing.T) {
	svc := &fakeAuthService{}
	r := authEngine(memberClaims, svc)

	w := performRequest(r, jsonRequest(http.MethodPost, "/auth/signout", `{"refresh_token":"refresh"}`))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"user-1:refresh"}, svc.signedOut)

	w = performRequest(r, jsonRequest(http.MethodGet, "/auth/me", ""))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"user-1"`)

	w = performRequest(authEngine(nil, svc), jsonRequest(http.MethodGet, "/auth/me", ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
