package storefront

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/storefront/password"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "Abc12345!"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]Identity
	err    error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[int64]Identity{}}
}

func (s *fakeUserStore) Create(_ context.Context, identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, u := range s.users {
		if u.Email == identity.Email {
			return ErrDuplicateEmail
		}
	}
	s.nextID++
	identity.ID = s.nextID
	s.users[identity.ID] = *identity
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id int64) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Identity{}, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return Identity{}, ErrRecordNotFound
	}
	return u, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Identity{}, s.err
	}
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return Identity{}, ErrRecordNotFound
}

func (s *fakeUserStore) Update(_ context.Context, identity Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[identity.ID]; !ok {
		return ErrRecordNotFound
	}
	s.users[identity.ID] = identity
	return nil
}

func (s *fakeUserStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrRecordNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *fakeUserStore) List(context.Context) ([]Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Identity, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type otpKey struct {
	userID  int64
	purpose OtpPurpose
}

type fakeOtpStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[otpKey]OtpRecord
}

func newFakeOtpStore() *fakeOtpStore {
	return &fakeOtpStore{records: map[otpKey]OtpRecord{}}
}

func (s *fakeOtpStore) Upsert(_ context.Context, record OtpRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	record.ID = s.nextID
	s.records[otpKey{record.UserID, record.Purpose}] = record
	return nil
}

func (s *fakeOtpStore) Get(_ context.Context, userID int64, purpose OtpPurpose) (OtpRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[otpKey{userID, purpose}]
	if !ok {
		return OtpRecord{}, ErrRecordNotFound
	}
	return r, nil
}

func (s *fakeOtpStore) Delete(_ context.Context, userID int64, purpose OtpPurpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, otpKey{userID, purpose})
	return nil
}

func (s *fakeOtpStore) DeleteAllForUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.records {
		if k.userID == userID {
			delete(s.records, k)
		}
	}
	return nil
}

func (s *fakeOtpStore) count(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.records {
		if k.userID == userID {
			n++
		}
	}
	return n
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, note Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, note)
	return nil
}

func (n *recordingNotifier) last(t testing.TB) Notification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("expected a notification to be sent")
	}
	return n.sent[len(n.sent)-1]
}

type testEnv struct {
	engine   *Engine
	users    *fakeUserStore
	otps     *fakeOtpStore
	notifier *recordingNotifier
	clock    *fakeClock
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = bytes.Repeat([]byte{0x11}, 32)
	cfg.JWT.RefreshSecret = bytes.Repeat([]byte{0x22}, 32)
	cfg.Password.Algorithm = HashBcrypt
	cfg.Password.BcryptCost = 4
	return cfg
}

func newTestEnv(t testing.TB, configure ...func(*Builder)) *testEnv {
	t.Helper()

	env := &testEnv{
		users:    newFakeUserStore(),
		otps:     newFakeOtpStore(),
		notifier: &recordingNotifier{},
		clock:    newFakeClock(),
	}

	b := New().
		WithConfig(testConfig()).
		WithUserStore(env.users).
		WithOtpStore(env.otps).
		WithNotifier(env.notifier).
		WithClock(env.clock.Now)
	for _, fn := range configure {
		fn(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

func (env *testEnv) register(t testing.TB, email string) Identity {
	t.Helper()
	identity, err := env.engine.Register(context.Background(), RegisterRequest{
		FirstName:       "Alice",
		LastName:        "Liddell",
		Email:           email,
		Password:        testPassword,
		ConfirmPassword: testPassword,
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return identity
}

func (env *testEnv) registerVerified(t testing.TB, email string) Identity {
	t.Helper()
	identity := env.register(t, email)
	code := env.notifier.last(t).Params[ParamOtp]
	if err := env.engine.VerifyEmail(context.Background(), email, code); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	identity.EmailVerified = true
	return identity
}

func (env *testEnv) seedAdmin(t testing.TB) Identity {
	t.Helper()
	admin, _, err := env.engine.EnsureAdmin(context.Background(), "root@example.com", "Root1234!")
	if err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	return admin
}

func (env *testEnv) login(t testing.TB, email, pw string) (*httptest.ResponseRecorder, Principal, error) {
	t.Helper()
	rec := httptest.NewRecorder()
	p, err := env.engine.Login(context.Background(), rec, LoginRequest{Email: email, Password: pw})
	return rec, p, err
}

func cookieByName(t testing.TB, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func requireKind(t testing.TB, err error, kind Kind, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error %q, got nil", kind, msg)
	}
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected domain error, got %T: %v", err, err)
	}
	if domainErr.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, domainErr.Kind, err)
	}
	if msg != "" && domainErr.Message != msg {
		t.Fatalf("expected message %q, got %q", msg, domainErr.Message)
	}
}

func mustHash(t testing.TB, plain string) string {
	t.Helper()
	h, err := password.NewBcrypt(4)
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}
	hash, err := h.Hash(plain)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	return hash
}
