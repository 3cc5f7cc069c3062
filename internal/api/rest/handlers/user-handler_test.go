package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/database"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/domain"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/dto"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/helper"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/logging"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/repository"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []dto.MailMessage
}

func (m *captureMailer) Send(_ context.Context, msg dto.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

var mailToken = regexp.MustCompile(`/(?:verify-email|reset-password)/([0-9a-f]{40})`)

func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	match := mailToken.FindStringSubmatch(m.sent[len(m.sent)-1].HTML)
	require.NotNil(t, match)
	return match[1]
}

type stubUploader struct{}

func (stubUploader) UploadBytes(_ context.Context, folder, filename string, _ []byte) (string, error) {
	return "https://cdn.example.com/" + folder + "/" + filename + ".jpg", nil
}

type testServer struct {
	app    *fiber.App
	mailer *captureMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := database.OpenInMemory(t)
	users := repository.NewUserRepository(db)
	auth := helper.SetupAuth("handler-secret", time.Hour)
	mailer := &captureMailer{}

	svc := services.NewUserService(services.UserServiceDeps{
		Users:         users,
		Audit:         repository.NewAuditLogRepository(db),
		Auth:          auth,
		Hasher:        helper.NewHasher(bcrypt.MinCost),
		Tokens:        services.NewTokenManager(users, 24*time.Hour, time.Hour, nil),
		Notifications: services.NewNotificationService(repository.NewNotificationRepository(db), mailer, logging.Nop(), "https://warga.example.com"),
		Uploader:      stubUploader{},
	})

	app := fiber.New()
	NewUserHandler(svc, auth, logging.Nop()).SetupRoutes(app)
	return &testServer{app: app, mailer: mailer}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func (s *testServer) register(t *testing.T, body map[string]any) dto.APIAuth {
	t.Helper()
	status, raw := s.do(t, http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusCreated, status, string(raw))
	return decode[dto.APIAuth](t, raw)
}

func TestRegisterEndpoint(t *testing.T) {
	s := newTestServer(t)

	res := s.register(t, map[string]any{"nama": "Budi", "email": "budi@x.com", "password": "secret1", "role": "warga"})
	assert.True(t, res.Success)
	assert.Equal(t, MsgRegistered, res.Message)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, domain.RoleResident, res.User.Role)
	assert.False(t, res.User.IsVerified)

	status, raw := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{"nama": "Budi", "email": "budi@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, status)
	e := decode[dto.APIError](t, raw)
	assert.False(t, e.Success)
	assert.Equal(t, "Email sudah terdaftar", e.Message)
}

func TestRegisterEndpoint_BadInput(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	status, raw := s.send(t, req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, MsgInvalidBody, decode[dto.APIError](t, raw).Message)

	status, raw = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{"nama": "Budi", "email": "budi@x.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Password minimal 6 karakter", decode[dto.APIError](t, raw).Message)

	status, raw = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{"nama": "Budi", "email": "budi@x.com", "password": "secret1", "kode_referensi": "REF-NONE-0000"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Kode referensi tidak valid", decode[dto.APIError](t, raw).Message)
}

func TestLoginEndpoint_IdenticalFailures(t *testing.T) {
	s := newTestServer(t)
	s.register(t, map[string]any{"nama": "Budi", "email": "budi@x.com", "password": "secret1"})

	s1, wrongPass := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "budi@x.com", "password": "nope-nope"})
	s2, unknown := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "ghost@x.com", "password": "nope-nope"})

	assert.Equal(t, http.StatusUnauthorized, s1)
	assert.Equal(t, s1, s2)
	assert.Equal(t, wrongPass, unknown)

	status, raw := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "budi@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, status)
	res := decode[dto.APIAuth](t, raw)
	assert.Equal(t, MsgLoggedIn, res.Message)
	assert.NotEmpty(t, res.Token)
}

func TestVerifyEmailEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.register(t, map[string]any{"nama": "Budi", "email": "budi@x.com", "password": "secret1"})
	token := s.mailer.lastToken(t)

	status, raw := s.do(t, http.MethodGet, "/api/auth/verify-email/"+token, "", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, MsgVerified, decode[dto.APIMessage](t, raw).Message)

	status, raw = s.do(t, http.MethodGet, "/api/auth/verify-email/"+token, "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, services.MsgVerifyTokenInvalid, decode[dto.APIError](t, raw).Message)

	status, _ = s.do(t, http.MethodPost, "/api/auth/resend-verification", "", map[string]any{"email": "budi@x.com"})
	assert.Equal(t, http.StatusConflict, status)
}

func TestResendAndForgotUnknownEmail(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/auth/resend-verification", "/api/auth/forgot-password"} {
		status, raw := s.do(t, http.MethodPost, path, "", map[string]any{"email": "ghost@x.com"})
		assert.Equal(t, http.StatusNotFound, status, path)
		assert.Equal(t, "Email tidak terdaftar", decode[dto.APIError](t, raw).Message)
	}
}

func TestPasswordResetEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.register(t, map[string]any{"nama": "Budi", "email": "budi@x.com", "password": "secret1"})

	status, raw := s.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]any{"email": "budi@x.com"})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, MsgResetSent, decode[dto.APIMessage](t, raw).Message)
	token := s.mailer.lastToken(t)

	status, raw = s.do(t, http.MethodPost, "/api/auth/reset-password/"+token, "", map[string]any{"password": "baru1234"})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "Password berhasil diubah", decode[dto.APIMessage](t, raw).Message)

	status, raw = s.do(t, http.MethodPost, "/api/auth/reset-password/"+token, "", map[string]any{"password": "lagi1234"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, services.MsgResetTokenInvalid, decode[dto.APIError](t, raw).Message)

	status, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "budi@x.com", "password": "baru1234"})
	assert.Equal(t, http.StatusOK, status)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	status, raw := s.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, decode[dto.APIError](t, raw).Success)

	status, _ = s.do(t, http.MethodGet, "/api/auth/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProfileEndpoints(t *testing.T) {
	s := newTestServer(t)
	reg := s.register(t, map[string]any{"nama": "Budi", "email": "budi@x.com", "password": "secret1", "no_hp": "0812"})

	status, raw := s.do(t, http.MethodGet, "/api/auth/me", reg.Token, nil)
	require.Equal(t, http.StatusOK, status)
	p := decode[dto.APIProfile](t, raw)
	assert.Equal(t, "Budi", p.Data.Name)
	assert.Equal(t, "0812", *p.Data.Phone)

	// cookie works as well
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: reg.Token})
	status, _ = s.send(t, req)
	assert.Equal(t, http.StatusOK, status)

	status, raw = s.do(t, http.MethodPut, "/api/auth/update-profile", reg.Token, map[string]any{"alamat": "Jl. Mawar 3"})
	require.Equal(t, http.StatusOK, status)
	p = decode[dto.APIProfile](t, raw)
	assert.Equal(t, MsgProfileUpdated, p.Message)
	assert.Equal(t, "Budi", p.Data.Name)
	assert.Equal(t, "Jl. Mawar 3", *p.Data.Address)

	status, raw = s.do(t, http.MethodPut, "/api/auth/change-password", reg.Token, map[string]any{"currentPassword": "wrong", "newPassword": "baru1234"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, services.MsgWrongPassword, decode[dto.APIError](t, raw).Message)

	status, _ = s.do(t, http.MethodPut, "/api/auth/change-password", reg.Token, map[string]any{"currentPassword": "secret1", "newPassword": "baru1234"})
	assert.Equal(t, http.StatusOK, status)
}

func TestReferralEndpoints(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, map[string]any{"nama": "Pak RT", "email": "rt@x.com", "password": "secret1", "role": "admin"})
	resident := s.register(t, map[string]any{"nama": "Warga", "email": "w@x.com", "password": "secret1"})

	status, raw := s.do(t, http.MethodGet, "/api/auth/reference-code", admin.Token, nil)
	require.Equal(t, http.StatusOK, status)
	code := decode[dto.APIReferralCode](t, raw).ReferralCode
	assert.Regexp(t, `^REF-[A-Z0-9]{4}-[A-Z0-9]{4}$`, code)

	status, _ = s.do(t, http.MethodGet, "/api/auth/reference-code", resident.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(t, http.MethodGet, "/api/auth/warga", resident.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	s.register(t, map[string]any{"nama": "Warga Baru", "email": "baru@x.com", "password": "secret1", "kode_referensi": code})

	status, raw = s.do(t, http.MethodGet, "/api/auth/warga", admin.Token, nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[dto.APIResidents](t, raw)
	assert.Equal(t, 1, list.Count)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "baru@x.com", list.Data[0].Email)
}

func multipartAvatar(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("avatar", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestAvatarEndpoint(t *testing.T) {
	s := newTestServer(t)
	reg := s.register(t, map[string]any{"nama": "Budi", "email": "budi@x.com", "password": "secret1"})

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 64, 64))))

	body, ct := multipartAvatar(t, "me.png", img.Bytes())
	req := httptest.NewRequest(http.MethodPut, "/api/auth/avatar", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+reg.Token)
	status, raw := s.send(t, req)
	require.Equal(t, http.StatusOK, status, string(raw))
	p := decode[dto.APIProfile](t, raw)
	require.NotNil(t, p.Data.AvatarURL)
	assert.Contains(t, *p.Data.AvatarURL, "https://cdn.example.com/")

	body, ct = multipartAvatar(t, "me.gif", img.Bytes())
	req = httptest.NewRequest(http.MethodPut, "/api/auth/avatar", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+reg.Token)
	status, raw = s.send(t, req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, MsgAvatarType, decode[dto.APIError](t, raw).Message)

	body, ct = multipartAvatar(t, "me.jpg", []byte("definitely not a jpeg"))
	req = httptest.NewRequest(http.MethodPut, "/api/auth/avatar", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+reg.Token)
	status, raw = s.send(t, req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, services.MsgInvalidImage, decode[dto.APIError](t, raw).Message)
}

func TestStatusFor(t *testing.T) {
	tests := map[domain.ErrorKind]int{
		domain.KindValidation:       400,
		domain.KindInvalidOrExpired: 400,
		domain.KindConflict:         409,
		domain.KindUnauthorized:     401,
		domain.KindForbidden:        403,
		domain.KindNotFound:         404,
		domain.KindInternal:         500,
	}
	for kind, want := range tests {
		assert.Equal(t, want, StatusFor(kind), string(kind))
	}
}
