package mine

import (
	"sort"
	"sync"

	"github.com/lawnchairsociety/minedepths/internal/gametime"
)

// LocalSession is a Session backed by a calendar and a player table.
type LocalSession struct {
	calendar *gametime.Calendar
	host     bool
	players  map[string]PlayerState
	mu       sync.RWMutex
}

// NewLocalSession creates a session on the given calendar.
func NewLocalSession(calendar *gametime.Calendar, host bool) *LocalSession {
	return &LocalSession{
		calendar: calendar,
		host:     host,
		players:  make(map[string]PlayerState),
	}
}

func (s *LocalSession) Day() int {
	return s.calendar.DaysPlayed()
}

func (s *LocalSession) IsHost() bool {
	return s.host
}

// Players returns the players sorted by name.
func (s *LocalSession) Players() []PlayerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PlayerState, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetPlayer adds or replaces a player.
func (s *LocalSession) SetPlayer(p PlayerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.Name] = p
}

// MovePlayer changes the level a player stands on.
func (s *LocalSession) MovePlayer(name string, level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[name]
	if !ok {
		p = PlayerState{Name: name}
	}
	p.Level = level
	s.players[name] = p
}

// RemovePlayer drops a player from the session.
func (s *LocalSession) RemovePlayer(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, name)
}
