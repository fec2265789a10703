// Package netsync relays the host's event queue to remote participants
// over websockets and carries their actions back to the host.
package netsync

import (
	"github.com/lawnchairsociety/minedepths/internal/events"
)

// Message types sent by the host.
const (
	TypeWelcome = "welcome"
	TypeEvents  = "events"
	TypeError   = "error"
)

// Message is a host-to-participant frame.
type Message struct {
	Type    string         `json:"type"`
	Welcome *Welcome       `json:"welcome,omitempty"`
	Events  []events.Event `json:"events,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Welcome tells a new participant what it needs to generate levels
// identically to the host.
type Welcome struct {
	Participant string `json:"participant"`
	Seed        int64  `json:"seed"`
	Day         int    `json:"day"`
}

// Action kinds a participant may send.
const (
	ActionStoneBroken   = "stone_broken"
	ActionMonsterKilled = "monster_killed"
	ActionEnterLevel    = "enter_level"
	ActionLeave         = "leave"
)

// Action is a participant-to-host frame describing something a player did.
type Action struct {
	Kind   string `json:"kind"`
	Player string `json:"player"`
	Level  int    `json:"level"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Ref    int    `json:"ref,omitempty"` // monster id
}
