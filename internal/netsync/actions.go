package netsync

import (
	"fmt"

	"github.com/lawnchairsociety/minedepths/internal/mine"
)

// ActionHandler applies participant actions on the host.
type ActionHandler interface {
	HandleAction(a Action) error
}

// Host is the part of the mine registry remote actions drive.
type Host interface {
	EnterLevel(level int) *mine.Level
	OnStoneBroken(level int, c mine.Coord, player string) ([]mine.Item, error)
	OnMonsterKilled(level, monsterID int, killer string) error
	RecordDisconnect(player string, level int)
}

// Roster tracks where remote players stand.
type Roster interface {
	MovePlayer(name string, level int)
	RemovePlayer(name string)
}

// HostActions feeds relayed actions into the host registry.
type HostActions struct {
	Registry Host
	Roster   Roster
}

// NewHostActions creates a handler for the given registry and roster.
func NewHostActions(registry Host, roster Roster) *HostActions {
	return &HostActions{Registry: registry, Roster: roster}
}

// HandleAction applies one action. It may be called from several relay
// connections at once.
func (h *HostActions) HandleAction(a Action) error {
	switch a.Kind {
	case ActionEnterLevel:
		h.Roster.MovePlayer(a.Player, a.Level)
		h.Registry.EnterLevel(a.Level)
		return nil
	case ActionLeave:
		h.Roster.RemovePlayer(a.Player)
		h.Registry.RecordDisconnect(a.Player, a.Level)
		return nil
	case ActionStoneBroken:
		_, err := h.Registry.OnStoneBroken(a.Level, mine.Coord{X: a.X, Y: a.Y}, a.Player)
		return err
	case ActionMonsterKilled:
		return h.Registry.OnMonsterKilled(a.Level, a.Ref, a.Player)
	default:
		return fmt.Errorf("unknown action %q", a.Kind)
	}
}
