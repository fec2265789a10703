package netsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lawnchairsociety/minedepths/internal/config"
	"github.com/lawnchairsociety/minedepths/internal/events"
	"github.com/lawnchairsociety/minedepths/internal/logger"
)

const writeWait = 5 * time.Second

// Relay streams the host queue to websocket participants. Each connection
// joins the queue as its own participant and receives every event fired
// after it joined, in order.
type Relay struct {
	queue   *events.Queue
	cfg     config.SyncConfig
	welcome func() Welcome
	actions ActionHandler
	limiter *ConnLimiter

	ctx context.Context
	wg  sync.WaitGroup
}

// NewRelay creates a relay over queue. welcome supplies the seed and day
// sent to each new participant; actions may be nil for a read-only relay.
func NewRelay(queue *events.Queue, cfg config.SyncConfig, welcome func() Welcome, actions ActionHandler) *Relay {
	return &Relay{
		queue:   queue,
		cfg:     cfg,
		welcome: welcome,
		actions: actions,
		limiter: NewConnLimiter(0, cfg.MaxParticipants),
		ctx:     context.Background(),
	}
}

// Participants returns the number of connected participants.
func (r *Relay) Participants() int {
	return r.limiter.Count()
}

// Run serves the relay on addr until ctx is cancelled.
func (r *Relay) Run(ctx context.Context, addr string) error {
	r.ctx = ctx
	mux := http.NewServeMux()
	mux.Handle("/sync", r)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	logger.Info("sync relay listening", "addr", addr)
	err := srv.ListenAndServe()
	r.wg.Wait()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeHTTP upgrades the request and serves one participant.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	clientIP := realIP(req)
	if !r.limiter.TryAcquire(clientIP) {
		logger.Warning("sync connection rejected - limit exceeded", "client_ip", clientIP)
		http.Error(w, "Too many participants.", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(req *http.Request) bool {
			origin := req.Header.Get("Origin")
			allowed := r.cfg.IsOriginAllowed(origin, req.Host)
			if !allowed {
				logger.Warning("sync connection rejected - origin not allowed",
					"origin", origin,
					"host", req.Host)
			}
			return allowed
		},
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		logger.Error("sync upgrade failed", "error", err)
		r.limiter.Release(clientIP)
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.limiter.Release(clientIP)
		r.serve(conn)
	}()
}

func (r *Relay) serve(conn *websocket.Conn) {
	defer conn.Close()

	participant := "peer-" + uuid.NewString()
	r.queue.Join(participant)
	defer r.queue.Leave(participant)

	welcome := Welcome{}
	if r.welcome != nil {
		welcome = r.welcome()
	}
	welcome.Participant = participant
	if err := writeMessage(conn, Message{Type: TypeWelcome, Welcome: &welcome}); err != nil {
		logger.Debug("sync welcome failed", "participant", participant, "error", err)
		return
	}
	logger.Info("sync participant joined", "participant", participant, "remote_addr", conn.RemoteAddr().String())

	ctx, cancel := context.WithCancel(r.ctx)
	defer cancel()

	// Writes come from the pump and the reader's error replies.
	var writeMu sync.Mutex
	send := func(m Message) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return writeMessage(conn, m)
	}

	go func() {
		defer cancel()
		r.readActions(conn, participant, r.newThrottle(), send)
	}()

	ticker := time.NewTicker(r.cfg.PollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("sync participant left", "participant", participant)
			return
		case <-ticker.C:
			var batch []events.Event
			if _, err := r.queue.Poll(participant, func(e events.Event) {
				batch = append(batch, e)
			}); err != nil {
				logger.Error("sync poll failed", "participant", participant, "error", err)
				return
			}
			if len(batch) == 0 {
				continue
			}
			if err := send(Message{Type: TypeEvents, Events: batch}); err != nil {
				logger.Debug("sync write failed", "participant", participant, "error", err)
				return
			}
		}
	}
}

func (r *Relay) newThrottle() *ActionThrottle {
	return NewActionThrottle(ThrottleConfig{
		MaxActions:     r.cfg.MaxActions,
		Window:         r.cfg.ActionWindow(),
		RepeatCooldown: r.cfg.RepeatCooldown(),
	})
}

// readActions applies the participant's actions until the connection
// drops. Players it entered and never took out leave the host afterwards.
func (r *Relay) readActions(conn *websocket.Conn, participant string, throttle *ActionThrottle, send func(Message) error) {
	if r.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(r.cfg.MaxMessageSize)
	}
	present := make(map[string]int) // player -> last entered level
	defer r.dropPlayers(participant, present)
	for {
		var a Action
		if err := conn.ReadJSON(&a); err != nil {
			return
		}
		if r.actions == nil {
			continue
		}
		if res := throttle.Check(a); !res.Allowed {
			if res.Repeat {
				logger.Debug("sync repeat action dropped", "participant", participant, "kind", a.Kind)
				continue
			}
			logger.Warning("sync participant throttled", "participant", participant, "kind", a.Kind, "wait", res.Wait)
			if err := send(Message{Type: TypeError, Error: fmt.Sprintf("%s: too many actions, retry in %v", a.Kind, res.Wait.Round(time.Millisecond))}); err != nil {
				return
			}
			continue
		}
		if err := r.actions.HandleAction(a); err != nil {
			logger.Warning("sync action rejected",
				"participant", participant,
				"kind", a.Kind,
				"mine_level", a.Level,
				"error", err)
			if err := send(Message{Type: TypeError, Error: fmt.Sprintf("%s: %v", a.Kind, err)}); err != nil {
				return
			}
			continue
		}
		switch a.Kind {
		case ActionEnterLevel:
			present[a.Player] = a.Level
		case ActionLeave:
			delete(present, a.Player)
		}
	}
}

// dropPlayers sends a leave for every player still present when a
// connection ends without one.
func (r *Relay) dropPlayers(participant string, present map[string]int) {
	if r.actions == nil {
		return
	}
	for player, level := range present {
		logger.Info("sync player dropped", "participant", participant, "player", player, "mine_level", level)
		if err := r.actions.HandleAction(Action{Kind: ActionLeave, Player: player, Level: level}); err != nil {
			logger.Warning("sync drop failed", "participant", participant, "player", player, "error", err)
		}
	}
}

func writeMessage(conn *websocket.Conn, m Message) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(m)
}
