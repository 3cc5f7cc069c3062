package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/database"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/dto"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/helper"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/logging"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []dto.MailMessage
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg dto.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) last() dto.MailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return dto.MailMessage{}
	}
	return m.sent[len(m.sent)-1]
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

var linkToken = regexp.MustCompile(`/(?:verify-email|reset-password)/([0-9a-f]{40})`)

// tokenFrom pulls the plain token out of a rendered email.
func tokenFrom(t *testing.T, msg dto.MailMessage) string {
	t.Helper()
	m := linkToken.FindStringSubmatch(msg.HTML)
	if m == nil {
		t.Fatalf("no token link in mail %q", msg.Subject)
	}
	return m[1]
}

type hubEvent struct {
	userID uint
	role   string
	event  string
	data   any
}

type fakeHub struct {
	mu     sync.Mutex
	events []hubEvent
}

func (h *fakeHub) NotifyUser(userID uint, event string, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, hubEvent{userID: userID, event: event, data: data})
}

func (h *fakeHub) NotifyRole(role, event string, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, hubEvent{role: role, event: event, data: data})
}

func (h *fakeHub) Broadcast(event string, data any) {
	h.NotifyRole("", event, data)
}

type fakeUploader struct {
	folder, name string
	size         int
	err          error
}

func (f *fakeUploader) UploadBytes(_ context.Context, folder, filename string, b []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.folder, f.name, f.size = folder, filename, len(b)
	return "https://res.cloudinary.com/demo/" + folder + "/" + filename + ".jpg", nil
}

type env struct {
	db       *gorm.DB
	users    repository.UserRepository
	notifs   repository.NotificationRepository
	audit    repository.AuditLogRepository
	auth     helper.Auth
	mailer   *fakeMailer
	hub      *fakeHub
	uploader *fakeUploader
	clock    *clock
	svc      UserService
}

type envOption func(*UserServiceDeps)

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()

	db := database.OpenInMemory(t)
	e := &env{
		db:       db,
		users:    repository.NewUserRepository(db),
		notifs:   repository.NewNotificationRepository(db),
		audit:    repository.NewAuditLogRepository(db),
		mailer:   &fakeMailer{},
		hub:      &fakeHub{},
		uploader: &fakeUploader{},
		clock:    &clock{now: time.Date(2025, 6, 30, 8, 0, 0, 0, time.UTC)},
	}
	e.auth = helper.SetupAuth("test-secret", 7*24*time.Hour).WithClock(e.clock.Now)

	log := logging.Nop()
	deps := UserServiceDeps{
		Users:         e.users,
		Audit:         e.audit,
		Auth:          e.auth,
		Hasher:        helper.NewHasher(bcrypt.MinCost),
		Tokens:        NewTokenManager(e.users, 24*time.Hour, time.Hour, e.clock.Now),
		Notifications: NewNotificationService(e.notifs, e.mailer, log, "https://warga.example.com"),
		Broadcaster:   e.hub,
		Uploader:      e.uploader,
		Log:           log,
	}
	for _, o := range opts {
		o(&deps)
	}
	e.svc = NewUserService(deps)
	return e
}

func (e *env) register(t *testing.T, req dto.RegisterRequest) *dto.AuthResult {
	t.Helper()
	res, err := e.svc.Register(context.Background(), req)
	if err != nil {
		t.Fatalf("register %s: %v", req.Email, err)
	}
	return res
}

// registerAdmin creates an admin and returns its id and referral code.
func (e *env) registerAdmin(t *testing.T, email string) (uint, string) {
	t.Helper()
	res := e.register(t, dto.RegisterRequest{Name: "Admin RT", Email: email, Password: "admin123", Role: "admin"})
	code, err := e.svc.GetReferralCode(context.Background(), res.User.ID)
	if err != nil {
		t.Fatalf("referral code: %v", err)
	}
	return res.User.ID, code
}

var errSMTPDown = errors.New("smtp: 421 service not available")
