package netsync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lawnchairsociety/minedepths/internal/config"
	"github.com/lawnchairsociety/minedepths/internal/events"
	"github.com/lawnchairsociety/minedepths/internal/gametime"
	"github.com/lawnchairsociety/minedepths/internal/mine"
	"github.com/lawnchairsociety/minedepths/internal/seed"
)

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		PollIntervalMS: 5,
		AllowedOrigins: []string{"*"},
		MaxMessageSize: 4096,
	}
}

func startRelay(t *testing.T, relay *Relay) string {
	t.Helper()
	srv := httptest.NewServer(relay)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type recordingHandler struct {
	mu      sync.Mutex
	actions []Action
}

func (h *recordingHandler) HandleAction(a Action) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actions = append(h.actions, a)
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.actions)
}

func TestRelayWelcomesAndStreamsEvents(t *testing.T) {
	hostQueue := events.NewQueue()
	relay := NewRelay(hostQueue, testSyncConfig(), func() Welcome {
		return Welcome{Seed: 4242, Day: 9}
	}, nil)
	url := startRelay(t, relay)

	guestQueue := events.NewQueue()
	guestQueue.Join("local")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client, err := Dial(ctx, url, guestQueue)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	if client.Welcome.Seed != 4242 || client.Welcome.Day != 9 {
		t.Errorf("Welcome = %+v, want seed 4242 day 9", client.Welcome)
	}
	if !strings.HasPrefix(client.Welcome.Participant, "peer-") {
		t.Errorf("participant = %q, want a peer- name", client.Welcome.Participant)
	}
	go client.Run(ctx)

	waitFor(t, "participant to join", func() bool { return relay.Participants() == 1 })

	fired := []events.Event{
		hostQueue.Fire(events.Event{Level: 12, Kind: events.KindStoneBroken, X: 3, Y: 4}),
		hostQueue.Fire(events.Event{Level: 12, Kind: events.KindLadder, X: 5, Y: 6}),
	}
	waitFor(t, "events to arrive", func() bool { return guestQueue.Pending("local") == 2 })

	var got []events.Event
	guestQueue.Poll("local", func(e events.Event) { got = append(got, e) })
	for i := range fired {
		if got[i].ID != fired[i].ID || got[i].Seq != fired[i].Seq || got[i].Kind != fired[i].Kind {
			t.Errorf("event %d = %+v, want %+v", i, got[i], fired[i])
		}
	}
}

func TestRelayForwardsActions(t *testing.T) {
	handler := &recordingHandler{}
	relay := NewRelay(events.NewQueue(), testSyncConfig(), nil, handler)
	url := startRelay(t, relay)

	client, err := Dial(context.Background(), url, events.NewQueue())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	if err := client.Send(Action{Kind: ActionStoneBroken, Player: "abigail", Level: 7, X: 2, Y: 3}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	waitFor(t, "action to be handled", func() bool { return handler.count() == 1 })

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if a := handler.actions[0]; a.Player != "abigail" || a.Level != 7 || a.X != 2 || a.Y != 3 {
		t.Errorf("handled %+v", a)
	}
}

func TestRelayThrottlesActions(t *testing.T) {
	cfg := testSyncConfig()
	cfg.MaxActions = 1
	cfg.ActionWindowMS = 60000
	cfg.RepeatCooldownMS = 60000
	handler := &recordingHandler{}
	url := startRelay(t, NewRelay(events.NewQueue(), cfg, nil, handler))

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var welcome Message
	if err := conn.ReadJSON(&welcome); err != nil || welcome.Type != TypeWelcome {
		t.Fatalf("welcome = %+v, %v", welcome, err)
	}

	for _, a := range []Action{
		{Kind: ActionStoneBroken, Player: "abigail", Level: 7, X: 1, Y: 1},
		{Kind: ActionStoneBroken, Player: "abigail", Level: 7, X: 2, Y: 1},
	} {
		if err := conn.WriteJSON(a); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var reply Message
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Type != TypeError || !strings.Contains(reply.Error, "too many actions") {
		t.Errorf("reply = %+v, want a throttle error", reply)
	}
	if got := handler.count(); got != 1 {
		t.Errorf("handled %d actions, want 1", got)
	}
}

func TestRelayLeavesQueueOnDisconnect(t *testing.T) {
	hostQueue := events.NewQueue()
	relay := NewRelay(hostQueue, testSyncConfig(), nil, nil)
	url := startRelay(t, relay)

	client, err := Dial(context.Background(), url, events.NewQueue())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	waitFor(t, "participant to join", func() bool { return relay.Participants() == 1 })

	client.Close()
	waitFor(t, "participant to leave", func() bool { return relay.Participants() == 0 })

	// Nobody is left to need the event, so it is not retained.
	hostQueue.Fire(events.Event{Level: 1, Kind: events.KindLadder})
	hostQueue.Join("watcher")
	hostQueue.Leave("watcher")
	if got := hostQueue.Len(); got != 0 {
		t.Errorf("queue retained %d events after the participant left", got)
	}
}

func TestRelayDropsPlayersOnDisconnect(t *testing.T) {
	tests := []struct {
		name      string
		sent      []Action
		wantLeave []Action
	}{
		{
			name:      "entered player leaves",
			sent:      []Action{{Kind: ActionEnterLevel, Player: "abigail", Level: 7}},
			wantLeave: []Action{{Kind: ActionLeave, Player: "abigail", Level: 7}},
		},
		{
			name: "last level is used",
			sent: []Action{
				{Kind: ActionEnterLevel, Player: "abigail", Level: 7},
				{Kind: ActionEnterLevel, Player: "abigail", Level: 8},
			},
			wantLeave: []Action{{Kind: ActionLeave, Player: "abigail", Level: 8}},
		},
		{
			name: "explicit leave is not repeated",
			sent: []Action{
				{Kind: ActionEnterLevel, Player: "abigail", Level: 7},
				{Kind: ActionLeave, Player: "abigail", Level: 7},
			},
		},
		{
			name: "no entry no leave",
			sent: []Action{{Kind: ActionStoneBroken, Player: "abigail", Level: 7, X: 1, Y: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &recordingHandler{}
			relay := NewRelay(events.NewQueue(), testSyncConfig(), nil, handler)
			url := startRelay(t, relay)

			client, err := Dial(context.Background(), url, events.NewQueue())
			if err != nil {
				t.Fatalf("Dial: %v", err)
			}
			for _, a := range tt.sent {
				if err := client.Send(a); err != nil {
					t.Fatalf("Send: %v", err)
				}
			}
			waitFor(t, "actions to be handled", func() bool { return handler.count() == len(tt.sent) })

			client.Close()
			waitFor(t, "participant to leave", func() bool { return relay.Participants() == 0 })

			handler.mu.Lock()
			defer handler.mu.Unlock()
			extra := handler.actions[len(tt.sent):]
			if len(extra) != len(tt.wantLeave) {
				t.Fatalf("after disconnect handled %+v, want %+v", extra, tt.wantLeave)
			}
			for i, want := range tt.wantLeave {
				if extra[i] != want {
					t.Errorf("after disconnect handled %+v, want %+v", extra[i], want)
				}
			}
		})
	}
}

func TestDroppedGuestLeavesHostRoster(t *testing.T) {
	hostSession := mine.NewLocalSession(gametime.NewCalendar(4), true)
	host := mine.NewRegistry(mine.Options{Seeds: seed.NewProvider(77), Session: hostSession, Queue: events.NewQueue()})
	relay := NewRelay(events.NewQueue(), testSyncConfig(), nil, NewHostActions(host, hostSession))
	url := startRelay(t, relay)

	client, err := Dial(context.Background(), url, events.NewQueue())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if err := client.Send(Action{Kind: ActionEnterLevel, Player: "abigail", Level: 12}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	waitFor(t, "guest to enter", func() bool { return len(hostSession.Players()) == 1 })

	client.Close()
	waitFor(t, "guest to be dropped", func() bool { return len(hostSession.Players()) == 0 })
	waitFor(t, "participant to leave", func() bool { return relay.Participants() == 0 })

	// The disconnect record keeps the level the guest dropped on.
	if pruned := host.PruneInactive(); len(pruned) != 0 {
		t.Errorf("pruned %v after the guest dropped", pruned)
	}
	if _, ok := host.Level(12); !ok {
		t.Error("level 12 is gone after the guest dropped")
	}
}

func TestRelayRejectsDisallowedOrigin(t *testing.T) {
	cfg := testSyncConfig()
	cfg.AllowedOrigins = []string{"https://example.com"}
	url := startRelay(t, NewRelay(events.NewQueue(), cfg, nil, nil))

	header := http.Header{"Origin": []string{"http://evil.com"}}
	if conn, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		conn.Close()
		t.Error("dial with a disallowed origin succeeded")
	}

	header = http.Header{"Origin": []string{"https://example.com"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial with an allowed origin failed: %v", err)
	}
	conn.Close()
}

func TestRelayParticipantLimit(t *testing.T) {
	cfg := testSyncConfig()
	cfg.MaxParticipants = 1
	url := startRelay(t, NewRelay(events.NewQueue(), cfg, nil, nil))

	first, err := Dial(context.Background(), url, events.NewQueue())
	if err != nil {
		t.Fatalf("first Dial: %v", err)
	}
	defer first.Close()

	if second, err := Dial(context.Background(), url, events.NewQueue()); err == nil {
		second.Close()
		t.Error("second Dial succeeded past the participant limit")
	}
}

// enterStonyLevel enters the first level from 31 up with stones and no
// must-kill rule.
func enterStonyLevel(t *testing.T, r *mine.Registry) *mine.Level {
	t.Helper()
	for n := 31; n < 40; n++ {
		if n%5 == 0 {
			continue
		}
		if l := r.EnterLevel(n); !l.MonsterArea && l.StonesRemaining > 0 {
			return l
		}
	}
	t.Fatal("no stony level between 31 and 39")
	return nil
}

func firstStone(l *mine.Level) (mine.Coord, bool) {
	w, h := l.Grid().Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := mine.Coord{X: x, Y: y}
			if o := l.Objects[c]; o != nil && o.Kind == mine.ObjectStone {
				return c, true
			}
		}
	}
	return mine.Coord{}, false
}

func TestGuestStoneBreakReachesBothRegistries(t *testing.T) {
	seeds := seed.NewProvider(2024)

	hostSession := mine.NewLocalSession(gametime.NewCalendar(4), true)
	hostSession.SetPlayer(mine.PlayerState{Name: "sam", Level: 31})
	hostQueue := events.NewQueue()
	host := mine.NewRegistry(mine.Options{Seeds: seeds, Session: hostSession, Queue: hostQueue})

	relay := NewRelay(hostQueue, testSyncConfig(), func() Welcome {
		return Welcome{Seed: 2024, Day: hostSession.Day()}
	}, NewHostActions(host, hostSession))
	url := startRelay(t, relay)

	guestQueue := events.NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client, err := Dial(ctx, url, guestQueue)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()
	go client.Run(ctx)

	guestSession := mine.NewLocalSession(gametime.NewCalendar(client.Welcome.Day), false)
	guest := mine.NewRegistry(mine.Options{
		Seeds:       seed.NewProvider(client.Welcome.Seed),
		Session:     guestSession,
		Queue:       guestQueue,
		Participant: "local",
	})

	hl := enterStonyLevel(t, host)
	gl := guest.EnterLevel(hl.Number)
	if gl.StonesRemaining != hl.StonesRemaining {
		t.Fatalf("guest generated %d stones, host %d", gl.StonesRemaining, hl.StonesRemaining)
	}
	stone, ok := firstStone(hl)
	if !ok {
		t.Fatal("no stone found")
	}
	start := hl.StonesRemaining

	if err := client.Send(Action{Kind: ActionEnterLevel, Player: "abigail", Level: hl.Number}); err != nil {
		t.Fatal(err)
	}
	if err := client.Send(Action{Kind: ActionStoneBroken, Player: "abigail", Level: hl.Number, X: stone.X, Y: stone.Y}); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "guest to apply the break", func() bool {
		guest.Update(0)
		return gl.StonesRemaining == start-1
	})
	host.Update(0)
	if hl.StonesRemaining != start-1 {
		t.Errorf("host stones = %d, want %d", hl.StonesRemaining, start-1)
	}
}
