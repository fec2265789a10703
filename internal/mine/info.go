package mine

import (
	"sort"
	"sync"
)

// Info is the per-level state that survives regeneration within a year.
type Info struct {
	Level                  int  `yaml:"level" json:"level"`
	PlatformContainersLeft int  `yaml:"platform_containers_left" json:"platform_containers_left"`
	ChestsLeft             int  `yaml:"chests_left" json:"chests_left"`
	CoalCartsLeft          int  `yaml:"coal_carts_left" json:"coal_carts_left"`
	ElevatorPlaced         bool `yaml:"elevator_placed" json:"elevator_placed"`
	Year                   int  `yaml:"year" json:"year"`
}

// ContainersUnset marks a container quota the next populate derives from
// the barrels it places, as on a first visit.
const ContainersUnset = -1

// NewInfo returns the quotas a level starts a year with.
func NewInfo(level, year int, rules *Rules) Info {
	info := Info{Level: level, Year: year}
	info.resetQuotas(rules)
	return info
}

func (i *Info) resetQuotas(rules *Rules) {
	i.PlatformContainersLeft = ContainersUnset
	i.ChestsLeft = 0
	if i.Level%10 == 0 && i.Level > 0 && !IsDesert(i.Level) {
		i.ChestsLeft = rules.DefaultChests
	}
	i.CoalCartsLeft = rules.DefaultCoalCarts
}

// InfoStore persists Info records and the deepest level ever reached.
// A missing record is reported with ok=false, never as an error.
type InfoStore interface {
	GetInfo(level int) (info Info, ok bool, err error)
	PutInfo(info Info) error
	AllInfo() ([]Info, error)
	DeepestLevel() (int, error)
	SetDeepestLevel(level int) error
}

// MemoryStore is an in-process InfoStore.
type MemoryStore struct {
	infos   map[int]Info
	deepest int
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{infos: make(map[int]Info)}
}

func (s *MemoryStore) GetInfo(level int) (Info, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.infos[level]
	return info, ok, nil
}

func (s *MemoryStore) PutInfo(info Info) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infos[info.Level] = info
	return nil
}

// AllInfo returns every record ordered by level.
func (s *MemoryStore) AllInfo() ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Info, 0, len(s.infos))
	for _, info := range s.infos {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

func (s *MemoryStore) DeepestLevel() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deepest, nil
}

func (s *MemoryStore) SetDeepestLevel(level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if level > s.deepest {
		s.deepest = level
	}
	return nil
}
