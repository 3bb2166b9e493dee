package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/accounts/internal/avatars"
	"github.com/thereayou/accounts/internal/logging"
	"github.com/thereayou/accounts/internal/middleware"
	"github.com/thereayou/accounts/internal/models"
	"github.com/thereayou/accounts/internal/services"
)

var testUserID = uuid.MustParse("6f1c2b1e-8f0a-4a55-9a51-0c1f8b7f2d10")

// stubService records calls and returns canned results.
type stubService struct {
	signupUser *models.User
	token      string
	current    services.CurrentUser
	avatarURL  string
	err        error

	calls      []string
	lastEmail  string
	lastTier   string
	lastUpload []byte
	lastName   string
}

func (s *stubService) Signup(ctx context.Context, email, password string) (*models.User, error) {
	s.calls = append(s.calls, "signup")
	s.lastEmail = email
	return s.signupUser, s.err
}

func (s *stubService) VerifyConsume(ctx context.Context, token string) error {
	s.calls = append(s.calls, "verify:"+token)
	return s.err
}

func (s *stubService) VerifyResend(ctx context.Context, email string) error {
	s.calls = append(s.calls, "resend")
	s.lastEmail = email
	if email == "" {
		return fmt.Errorf("%w email", services.ErrMissingField)
	}
	return s.err
}

func (s *stubService) Login(ctx context.Context, email, password string) (string, error) {
	s.calls = append(s.calls, "login")
	return s.token, s.err
}

func (s *stubService) Logout(ctx context.Context, ac services.AuthContext) error {
	s.calls = append(s.calls, "logout")
	return s.err
}

func (s *stubService) Current(ctx context.Context, ac services.AuthContext) (services.CurrentUser, error) {
	s.calls = append(s.calls, "current")
	return s.current, s.err
}

func (s *stubService) UpdateAvatar(ctx context.Context, ac services.AuthContext, upload avatars.Upload) (string, error) {
	s.calls = append(s.calls, "avatar")
	s.lastName = upload.Filename
	if upload.Open == nil {
		return "", services.ErrNoFile
	}
	rc, err := upload.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	s.lastUpload, _ = io.ReadAll(rc)
	return s.avatarURL, s.err
}

func (s *stubService) UpdateSubscription(ctx context.Context, ac services.AuthContext, tier string) (services.CurrentUser, error) {
	s.calls = append(s.calls, "subscription")
	s.lastTier = tier
	return services.CurrentUser{Email: "a@x.com", Subscription: tier}, s.err
}

func (s *stubService) Authenticate(ctx context.Context, token string) (services.AuthContext, error) {
	if token != "good" {
		return services.AuthContext{}, services.ErrInvalidToken
	}
	return services.AuthContext{UserID: testUserID, Token: token}, nil
}

func newRouter(svc *stubService, maxAvatarBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	log := logging.Discard()

	authH := NewAuthHandler(svc, log)
	userH := NewUserHandler(svc, log, maxAvatarBytes)
	requireAuth := middleware.AuthMiddleware(svc, log)

	users := r.Group("/users")
	users.POST("/signup", authH.Signup)
	users.POST("/login", authH.Login)
	users.POST("/verify", authH.VerifyResend)
	users.GET("/verify/:verificationToken", authH.VerifyConsume)
	users.GET("/logout", requireAuth, authH.Logout)
	users.GET("/current", requireAuth, userH.Current)
	users.PATCH("", requireAuth, userH.UpdateSubscription)
	users.PATCH("/avatars", requireAuth, userH.UpdateAvatar)
	return r
}

func do(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestSignup_Created(t *testing.T) {
	svc := &stubService{signupUser: &models.User{Email: "a@x.com", Subscription: "starter"}}
	w := do(newRouter(svc, 0), http.MethodPost, "/users/signup", `{"email":" a@x.com ","password":"pw123"}`, "")

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{
		"status": "success",
		"code": 201,
		"data": {
			"message": "Signup complete",
			"user": {"email": "a@x.com", "subscription": "starter"},
			"avatarURL": ""
		}
	}`, w.Body.String())
	assert.Equal(t, "a@x.com", svc.lastEmail)
}

func TestSignup_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"duplicate", `{"email":"a@x.com","password":"pw"}`, services.ErrDuplicateEmail, http.StatusConflict},
		{"missing email", `{"password":"pw"}`, nil, http.StatusBadRequest},
		{"malformed email", `{"email":"nope","password":"pw"}`, nil, http.StatusBadRequest},
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"store down", `{"email":"a@x.com","password":"pw"}`, errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{err: tt.err}
			w := do(newRouter(svc, 0), http.MethodPost, "/users/signup", tt.body, "")

			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, "error", body["status"])
			assert.EqualValues(t, tt.status, body["code"])
		})
	}
}

func TestSignup_PasswordTooLong(t *testing.T) {
	svc := &stubService{err: services.ErrPasswordTooLong}
	body := `{"email":"a@x.com","password":"` + strings.Repeat("p", 73) + `"}`
	w := do(newRouter(svc, 0), http.MethodPost, "/users/signup", body, "")

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "password must be at most 72 bytes", decode(t, w)["message"])
	assert.Equal(t, []string{"signup"}, svc.calls)
}

func TestSignup_InternalErrorHidden(t *testing.T) {
	svc := &stubService{err: errors.New("pq: password authentication failed")}
	w := do(newRouter(svc, 0), http.MethodPost, "/users/signup", `{"email":"a@x.com","password":"pw"}`, "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestLogin(t *testing.T) {
	svc := &stubService{token: "jwt"}
	w := do(newRouter(svc, 0), http.MethodPost, "/users/login", `{"email":"a@x.com","password":"pw"}`, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","code":200,"data":{"token":"jwt"}}`, w.Body.String())
}

func TestLogin_Errors(t *testing.T) {
	for _, err := range []error{services.ErrNotVerified, services.ErrBadCredentials} {
		svc := &stubService{err: err}
		w := do(newRouter(svc, 0), http.MethodPost, "/users/login", `{"email":"a@x.com","password":"pw"}`, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, err.Error(), decode(t, w)["message"])
	}
}

func TestVerifyConsume(t *testing.T) {
	svc := &stubService{}
	w := do(newRouter(svc, 0), http.MethodGet, "/users/verify/abc", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"verify:abc"}, svc.calls)

	svc = &stubService{err: services.ErrTokenNotFound}
	w = do(newRouter(svc, 0), http.MethodGet, "/users/verify/abc", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyResend(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		err     error
		status  int
		message string
	}{
		{"sent", `{"email":"a@x.com"}`, nil, http.StatusOK, "Verification email sent"},
		{"missing email", `{}`, nil, http.StatusBadRequest, "missing required field email"},
		{"unknown", `{"email":"a@x.com"}`, services.ErrUserNotFound, http.StatusNotFound, "User not found"},
		{"already verified", `{"email":"a@x.com"}`, services.ErrAlreadyVerified, http.StatusBadRequest, "Verification has already been passed"},
		{"throttled", `{"email":"a@x.com"}`, services.ErrResendThrottled, http.StatusTooManyRequests, services.ErrResendThrottled.Message},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{err: tt.err}
			w := do(newRouter(svc, 0), http.MethodPost, "/users/verify", tt.body, "")

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, decode(t, w)["message"])
		})
	}
}

func TestCurrent(t *testing.T) {
	svc := &stubService{current: services.CurrentUser{Email: "a@x.com", Subscription: "pro"}}
	r := newRouter(svc, 0)

	w := do(r, http.MethodGet, "/users/current", "", "good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"a@x.com","subscription":"pro"}`, w.Body.String())

	w = do(r, http.MethodGet, "/users/current", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/users/current", "", "bad")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, []string{"current"}, svc.calls)
}

func TestCurrent_UserGone(t *testing.T) {
	svc := &stubService{err: services.ErrUnauthorized}
	w := do(newRouter(svc, 0), http.MethodGet, "/users/current", "", "good")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Not authorized", decode(t, w)["message"])
}

func TestLogout(t *testing.T) {
	svc := &stubService{}
	w := do(newRouter(svc, 0), http.MethodGet, "/users/logout", "", "good")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, []string{"logout"}, svc.calls)
}

func TestUpdateSubscription(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc, 0)

	w := do(r, http.MethodPatch, "/users", `{"subscription":"Business"}`, "good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"a@x.com","subscription":"business"}`, w.Body.String())

	w = do(r, http.MethodPatch, "/users", `{"subscription":"platinum"}`, "good")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"subscription"}, svc.calls)
}

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file here"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPatch, "/users/avatars", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer good")
	return req
}

func TestUpdateAvatar(t *testing.T) {
	svc := &stubService{avatarURL: "/avatars/abc-me.png"}
	r := newRouter(svc, 1<<20)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, "avatar", "me.png", []byte("image-bytes")))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"avatar":"/avatars/abc-me.png"}`, w.Body.String())
	assert.Equal(t, "me.png", svc.lastName)
	assert.Equal(t, []byte("image-bytes"), svc.lastUpload)
}

func TestUpdateAvatar_NoFile(t *testing.T) {
	svc := &stubService{}
	w := httptest.NewRecorder()
	newRouter(svc, 1<<20).ServeHTTP(w, multipartRequest(t, "", "", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "File not found", decode(t, w)["message"])
}

func TestUpdateAvatar_TooLarge(t *testing.T) {
	svc := &stubService{}
	w := httptest.NewRecorder()
	newRouter(svc, 1024).ServeHTTP(w, multipartRequest(t, "avatar", "big.png", bytes.Repeat([]byte("x"), 200<<10)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "File is too large", decode(t, w)["message"])
	assert.Empty(t, svc.calls)
}

func TestUpdateAvatar_ProcessingFailure(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("%w: %w", services.ErrUnsupportedImage, avatars.ErrUnsupportedImage)}
	w := httptest.NewRecorder()
	newRouter(svc, 1<<20).ServeHTTP(w, multipartRequest(t, "avatar", "me.txt", []byte("text")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "unsupported image", decode(t, w)["message"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(services.KindValidation))
	assert.Equal(t, http.StatusBadRequest, statusFor(services.KindAuth))
	assert.Equal(t, http.StatusConflict, statusFor(services.KindConflict))
	assert.Equal(t, http.StatusUnauthorized, statusFor(services.KindUnauthorized))
	assert.Equal(t, http.StatusNotFound, statusFor(services.KindNotFound))
	assert.Equal(t, http.StatusTooManyRequests, statusFor(services.KindThrottled))
	assert.Equal(t, http.StatusInternalServerError, statusFor(services.KindProcessing))
	assert.Equal(t, http.StatusInternalServerError, statusFor(services.KindDependency))
	assert.Equal(t, http.StatusInternalServerError, statusFor(services.KindUnknown))
}
