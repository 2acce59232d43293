package mail

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/config"
)

func TestRenderEveryKind(t *testing.T) {
	t.Parallel()

	for _, kind := range []Kind{KindVerification, KindPasswordReset, KindPasswordChangeConfirm} {
		r, err := Render(Message{To: "a@lpu.in", Kind: kind, Code: "042917", TTL: 10 * time.Minute})
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if r.Subject == "" {
			t.Errorf("%s: empty subject", kind)
		}
		if !strings.Contains(r.HTML, "042917") {
			t.Errorf("%s: code missing from body", kind)
		}
		if !strings.Contains(r.HTML, "10 minutes") {
			t.Errorf("%s: expiry missing from body", kind)
		}
	}

	r, err := Render(Message{To: "a@lpu.in", Kind: KindPasswordChanged})
	if err != nil {
		t.Fatalf("changed: %v", err)
	}
	if !strings.Contains(r.Subject, "Changed") {
		t.Errorf("unexpected subject %q", r.Subject)
	}

	if _, err := Render(Message{Kind: "bogus"}); err == nil {
		t.Fatal("expected an error for an unknown kind")
	}
}

func TestRenderEscapesCode(t *testing.T) {
	t.Parallel()

	r, err := Render(Message{Kind: KindVerification, Code: "<script>"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(r.HTML, "<script>") {
		t.Fatal("expected the code to be escaped")
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	payload, _ := json.Marshal(Message{To: "a@lpu.in", Kind: KindPasswordReset, Code: "123456"})
	msg, err := Decode(map[string]any{"id": "x", "payload": string(payload)})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if msg.To != "a@lpu.in" || msg.Kind != KindPasswordReset || msg.Code != "123456" {
		t.Fatalf("unexpected message %+v", msg)
	}

	bad := []map[string]any{
		{},
		{"payload": 12},
		{"payload": "{"},
		{"payload": `{"kind":"verification"}`},
	}
	for _, values := range bad {
		if _, err := Decode(values); err == nil {
			t.Errorf("expected an error for %v", values)
		}
	}
}

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("send without deadline")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func TestDispatcherSendsInBackground(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{err: errors.New("provider down")}
	d := NewDispatcher(sender, time.Second, zerolog.Nop())

	d.Dispatch(Message{To: "a@lpu.in", Kind: KindVerification, Code: "1"})
	d.Dispatch(Message{To: "b@lpu.in", Kind: KindPasswordChanged})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d.Wait(ctx)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 sends despite failures, got %d", len(sender.sent))
	}
}

func TestDelivererHandlesStreamEntry(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	payload, _ := json.Marshal(Message{To: "a@lpu.in", Kind: KindVerification, Code: "654321"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := NewDeliverer(sender).Handle(ctx, redis.XMessage{ID: "1-0", Values: map[string]any{"payload": string(payload)}})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].Code != "654321" {
		t.Fatalf("unexpected deliveries %+v", sender.sent)
	}
}

func TestNewProviderSender(t *testing.T) {
	t.Parallel()

	s, err := NewProviderSender(config.MailConfig{Provider: "log"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("log provider: %v", err)
	}
	if _, ok := s.(*LogSender); !ok {
		t.Fatalf("expected *LogSender, got %T", s)
	}

	if _, err := NewProviderSender(config.MailConfig{Provider: "resend"}, zerolog.Nop()); err == nil {
		t.Fatal("expected resend without api key to fail")
	}
	s, err = NewProviderSender(config.MailConfig{Provider: "resend", APIKey: "re_test", From: "a@b.c"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("resend provider: %v", err)
	}
	if _, ok := s.(*ResendSender); !ok {
		t.Fatalf("expected *ResendSender, got %T", s)
	}

	if _, err := NewProviderSender(config.MailConfig{Provider: "carrier-pigeon"}, zerolog.Nop()); err == nil {
		t.Fatal("expected unknown provider to fail")
	}
}
