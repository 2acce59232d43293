package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/mail"
)

type flakySender struct {
	mu       sync.Mutex
	failures int
	attempts int
	sent     []mail.Message
}

func (s *flakySender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failures > 0 {
		s.failures--
		return errors.New("provider unavailable")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *flakySender) counts() (attempts, sent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts, len(s.sent)
}

func newTestConsumer(t *testing.T, handler MessageHandler) *Consumer {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewConsumer(client, "mail:outbox", "mailers", "worker-1", 10*time.Millisecond, zerolog.Nop(), handler)
	if err := c.EnsureGroup(context.Background()); err != nil {
		t.Fatalf("EnsureGroup: %v", err)
	}
	return c
}

func enqueue(t *testing.T, c *Consumer, to string) {
	t.Helper()
	outbox := mail.NewOutbox(c.client, c.stream)
	if err := outbox.Send(context.Background(), mail.Message{To: to, Kind: mail.KindVerification, Code: "123456"}); err != nil {
		t.Fatalf("outbox Send: %v", err)
	}
}

func pendingIDs(t *testing.T, c *Consumer) []string {
	t.Helper()
	entries, err := c.client.XPendingExt(context.Background(), &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  c.group,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()
	if err != nil {
		t.Fatalf("XPendingExt: %v", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestEnsureGroupIsIdempotent(t *testing.T) {
	c := newTestConsumer(t, mail.NewDeliverer(&flakySender{}))
	if err := c.EnsureGroup(context.Background()); err != nil {
		t.Fatalf("second EnsureGroup: %v", err)
	}
}

func TestDeliveredEntryIsAcked(t *testing.T) {
	sender := &flakySender{}
	c := newTestConsumer(t, mail.NewDeliverer(sender))
	ctx := context.Background()

	enqueue(t, c, "amy@lpu.in")
	if err := c.read(ctx); err != nil {
		t.Fatalf("read: %v", err)
	}

	if attempts, sent := sender.counts(); attempts != 1 || sent != 1 {
		t.Fatalf("expected one delivery, got %d attempts and %d sent", attempts, sent)
	}
	if sender.sent[0].To != "amy@lpu.in" || sender.sent[0].Code != "123456" {
		t.Fatalf("unexpected message %+v", sender.sent[0])
	}
	if ids := pendingIDs(t, c); len(ids) != 0 {
		t.Fatalf("delivered entry must be acked, still pending %v", ids)
	}
}

func TestFailedEntryIsReclaimedAndAcked(t *testing.T) {
	sender := &flakySender{failures: 1}
	c := newTestConsumer(t, mail.NewDeliverer(sender))
	ctx := context.Background()

	enqueue(t, c, "amy@lpu.in")
	if err := c.read(ctx); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ids := pendingIDs(t, c); len(ids) != 1 {
		t.Fatalf("failed entry must stay pending, got %v", ids)
	}

	// Entries younger than the claim interval are left alone.
	if err := c.claimStalled(ctx); err != nil {
		t.Fatalf("claimStalled: %v", err)
	}
	if attempts, _ := sender.counts(); attempts != 1 {
		t.Fatalf("fresh entry reclaimed early, %d attempts", attempts)
	}

	time.Sleep(3 * c.claimInterval)
	if err := c.claimStalled(ctx); err != nil {
		t.Fatalf("claimStalled: %v", err)
	}
	if attempts, sent := sender.counts(); attempts != 2 || sent != 1 {
		t.Fatalf("expected a successful retry, got %d attempts and %d sent", attempts, sent)
	}
	if ids := pendingIDs(t, c); len(ids) != 0 {
		t.Fatalf("retried entry must be acked, still pending %v", ids)
	}
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	sender := &flakySender{failures: 100}
	c := newTestConsumer(t, mail.NewDeliverer(sender))
	c.maxAttempts = 1
	ctx := context.Background()

	enqueue(t, c, "amy@lpu.in")
	if err := c.read(ctx); err != nil {
		t.Fatalf("read: %v", err)
	}
	time.Sleep(3 * c.claimInterval)
	if err := c.claimStalled(ctx); err != nil {
		t.Fatalf("claimStalled: %v", err)
	}

	if attempts, _ := sender.counts(); attempts != 1 {
		t.Fatalf("exhausted entry must not be retried, got %d attempts", attempts)
	}
	if ids := pendingIDs(t, c); len(ids) != 0 {
		t.Fatalf("exhausted entry must be dropped, still pending %v", ids)
	}
}

func TestMalformedEntryStaysPending(t *testing.T) {
	sender := &flakySender{}
	c := newTestConsumer(t, mail.NewDeliverer(sender))
	ctx := context.Background()

	if err := c.client.XAdd(ctx, &redis.XAddArgs{Stream: c.stream, Values: map[string]any{"junk": "1"}}).Err(); err != nil {
		t.Fatalf("XAdd: %v", err)
	}
	if err := c.read(ctx); err != nil {
		t.Fatalf("read: %v", err)
	}
	if attempts, _ := sender.counts(); attempts != 0 {
		t.Fatalf("malformed entry must not reach the sender, got %d attempts", attempts)
	}
	if ids := pendingIDs(t, c); len(ids) != 1 {
		t.Fatalf("malformed entry must stay pending, got %v", ids)
	}
}
