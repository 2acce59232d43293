package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
)

const testChannel = "lostfound:realtime:test"

func testRedis(t *testing.T, addr string) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: addr, Protocol: 2, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func waitForSubscribers(t *testing.T, mr *miniredis.Miniredis, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for mr.PubSubNumSub(testChannel)[testChannel] != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers on %s", n, testChannel)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.send:
		var e Event
		if err := json.Unmarshal(data, &e); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("no event delivered")
	}
	return Event{}
}

func TestBridgeRelaysAcrossReplicas(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	origin := NewRedisBridge(testHub(8), testRedis(t, mr.Addr()), testChannel, zerolog.Nop())
	replicaHub := testHub(8)
	replica := NewRedisBridge(replicaHub, testRedis(t, mr.Addr()), testChannel, zerolog.Nop())
	go origin.Run(ctx)
	go replica.Run(ctx)
	waitForSubscribers(t, mr, 2)

	url := wsServer(t, replicaHub)
	alice, _, err := websocket.DefaultDialer.Dial(url+"?token=alice", nil)
	if err != nil {
		t.Fatalf("dial alice: %v", err)
	}
	defer alice.Close()
	admin, _, err := websocket.DefaultDialer.Dial(url+"?token=admin", nil)
	if err != nil {
		t.Fatalf("dial admin: %v", err)
	}
	defer admin.Close()
	waitForClients(t, replicaHub, 2)

	origin.BroadcastToAdmins(Event{Type: EventNewPendingReport, Payload: map[string]int{"id": 7}})
	origin.SendToUser("ALICE@lpu.in", Event{Type: EventYourReportStatusUpdate, Payload: map[string]string{"status": "approved"}})

	var got Event
	_ = admin.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := admin.ReadJSON(&got); err != nil {
		t.Fatalf("admin read: %v", err)
	}
	if got.Type != EventNewPendingReport {
		t.Fatalf("admin expected %s, got %s", EventNewPendingReport, got.Type)
	}

	_ = alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := alice.ReadJSON(&got); err != nil {
		t.Fatalf("alice read: %v", err)
	}
	if got.Type != EventYourReportStatusUpdate {
		t.Fatalf("alice expected %s, got %s", EventYourReportStatusUpdate, got.Type)
	}
}

func TestBridgeDeliversLocallyWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := testRedis(t, mr.Addr())
	mr.Close()

	h := testHub(8)
	c := fakeClient(t, h, "a@lpu.in", models.UserRoleUser)
	b := NewRedisBridge(h, client, testChannel, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	errc := make(chan error, 1)
	go func() { errc <- b.Run(ctx) }()

	b.SendToUser("a@lpu.in", Event{Type: EventYourReportStatusUpdate})
	if got := receive(t, c); got.Type != EventYourReportStatusUpdate {
		t.Fatalf("expected %s, got %s", EventYourReportStatusUpdate, got.Type)
	}

	select {
	case err := <-errc:
		if err == nil {
			t.Fatal("expected the subscription to fail")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not report the failed subscription")
	}
}

func TestBridgePublishNeverBlocks(t *testing.T) {
	h := testHub(8)
	c := fakeClient(t, h, "desk@lpu.co.in", models.UserRoleAdmin)

	// Nothing drains the queue, so the event falls back to local delivery.
	b := NewRedisBridge(h, nil, testChannel, zerolog.Nop())
	b.outbound = make(chan envelope)

	done := make(chan struct{})
	go func() {
		b.BroadcastToAdmins(Event{Type: EventNewPendingReport})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked without a running bridge")
	}
	if got := receive(t, c); got.Type != EventNewPendingReport {
		t.Fatalf("expected %s, got %s", EventNewPendingReport, got.Type)
	}
}
