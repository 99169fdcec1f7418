package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	env := newTestEnv(t, func(b *Builder) {
		b.WithAuditSink(sink)
	})
	env.registerVerified(t, testEmail)
	if _, _, err := env.login(t, testEmail, testPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	env.engine.Close()

	if got := sink.count.Load(); got != 0 {
		t.Fatalf("expected no sink calls while audit is disabled, got %d", got)
	}
}

func TestAuditEventsCarryNoSecrets(t *testing.T) {
	out := &syncBuffer{}
	env := newTestEnv(t, func(b *Builder) {
		cfg := testConfig()
		cfg.Audit.Enabled = true
		cfg.Audit.DropIfFull = false
		b.WithConfig(cfg).WithAuditSink(NewJSONWriterSink(out))
	})

	env.register(t, testEmail)
	code := env.notifier.last(t).Params[ParamOtp]
	_ = env.engine.VerifyEmail(context.Background(), testEmail, "XX0000")
	if err := env.engine.VerifyEmail(context.Background(), testEmail, code); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	rec, _, err := env.login(t, testEmail, testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	env.engine.Close()

	logged := out.String()
	for _, secret := range []string{testPassword, code, rec.Result().Cookies()[0].Value} {
		if strings.Contains(logged, secret) {
			t.Fatalf("audit log leaked %q", secret)
		}
	}

	var types []string
	for _, line := range strings.Split(strings.TrimSpace(logged), "\n") {
		var ev AuditEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("bad audit line %q: %v", line, err)
		}
		if ev.ID == "" || ev.Timestamp.IsZero() {
			t.Fatalf("incomplete event %+v", ev)
		}
		types = append(types, ev.EventType)
	}
	want := []string{
		auditEventRegisterSuccess,
		auditEventOtpRequest,
		auditEventEmailVerificationVerify,
		auditEventEmailVerificationVerify,
		auditEventLoginSuccess,
	}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Fatalf("event sequence = %v, want %v", types, want)
	}
}

func TestAuditErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{Unauthorized(MsgInvalidCredentials), auditErrInvalidCredentials},
		{Forbidden(MsgEmailNotVerified), auditErrUnverified},
		{Forbidden(MsgInvalidRefreshToken), auditErrInvalidToken},
		{BadRequest(MsgOtpCooldown), auditErrRateLimited},
		{Conflict(MsgEmailTaken), auditErrDuplicate},
		{BadRequest(MsgOtpExpired), auditErrBadRequest},
		{Forbidden(MsgAccessDenied), auditErrForbidden},
		{errRefreshReuse, auditErrRefreshReuse},
		{context.DeadlineExceeded, auditErrInternal},
	}
	for _, tc := range cases {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestAuditDroppedUnderBackpressure(t *testing.T) {
	gate := make(chan struct{})
	env := newTestEnv(t, func(b *Builder) {
		cfg := testConfig()
		cfg.Audit.Enabled = true
		cfg.Audit.BufferSize = 1
		cfg.Audit.DropIfFull = true
		b.WithConfig(cfg).WithAuditSink(blockingSink(gate))
	})
	defer close(gate)

	for i := 0; i < 5; i++ {
		env.engine.Logout(context.Background(), httptest.NewRecorder())
	}

	deadline := time.Now().Add(time.Second)
	for env.engine.AuditDropped() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if env.engine.AuditDropped() == 0 {
		t.Fatal("expected dropped audit events")
	}
}

type blockingSink chan struct{}

func (s blockingSink) Emit(context.Context, AuditEvent) {
	<-s
}
