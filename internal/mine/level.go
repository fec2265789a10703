package mine

import (
	"fmt"
	"time"
)

// Coord is a tile position.
type Coord struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Offset returns c moved by (dx, dy).
func (c Coord) Offset(dx, dy int) Coord {
	return Coord{X: c.X + dx, Y: c.Y + dy}
}

// Distance is the chessboard distance between two tiles.
func (c Coord) Distance(o Coord) int {
	dx, dy := c.X-o.X, c.Y-o.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return max(dx, dy)
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// RGB is a lighting or tint color.
type RGB struct {
	R uint8 `yaml:"r" json:"r"`
	G uint8 `yaml:"g" json:"g"`
	B uint8 `yaml:"b" json:"b"`
}

// ObjectKind classifies placeables.
type ObjectKind string

const (
	ObjectStone      ObjectKind = "stone"
	ObjectItem       ObjectKind = "item"
	ObjectGem        ObjectKind = "gem"
	ObjectClump      ObjectKind = "clump"
	ObjectDecoration ObjectKind = "decoration"
	ObjectBarrel     ObjectKind = "barrel"
	ObjectChest      ObjectKind = "chest"
	ObjectCoalCart   ObjectKind = "coal_cart"
)

// Placeable is anything occupying a tile that is not a monster or an exit.
type Placeable struct {
	Kind ObjectKind `json:"kind" yaml:"kind"`
	Name string     `json:"name" yaml:"name"`
	Pos  Coord      `json:"pos" yaml:"pos"`
	Ore  string     `json:"ore,omitempty" yaml:"ore,omitempty"`
	Item *Item      `json:"item,omitempty" yaml:"item,omitempty"`
}

// Stats are a monster's combat numbers.
type Stats struct {
	Health     int `json:"health" yaml:"health"`
	Damage     int `json:"damage" yaml:"damage"`
	Experience int `json:"experience" yaml:"experience"`
}

// Monster is a spawned enemy.
type Monster struct {
	ID             int    `json:"id" yaml:"id"`
	Kind           string `json:"kind" yaml:"kind"`
	Pos            Coord  `json:"pos" yaml:"pos"`
	Sprite         string `json:"sprite" yaml:"sprite"`
	Base           Stats  `json:"base" yaml:"base"`
	Stats          Stats  `json:"stats" yaml:"stats"`
	BaseDifficulty int    `json:"base_difficulty" yaml:"base_difficulty"`
	Slime          bool   `json:"slime,omitempty" yaml:"slime,omitempty"`
	Color          RGB    `json:"color" yaml:"color"`
}

// ExitKind distinguishes ladders from shafts.
type ExitKind int

const (
	ExitLadder ExitKind = iota
	ExitShaft
)

func (k ExitKind) String() string {
	if k == ExitShaft {
		return "shaft"
	}
	return "ladder"
}

// Exit is a way down out of a level.
type Exit struct {
	Kind ExitKind `json:"kind" yaml:"kind"`
	Pos  Coord    `json:"pos" yaml:"pos"`
}

// LadderState tracks the ladder-down gate.
type LadderState int

const (
	NoExit LadderState = iota
	LadderPending
	LadderPlaced
)

func (s LadderState) String() string {
	switch s {
	case LadderPending:
		return "pending"
	case LadderPlaced:
		return "placed"
	default:
		return "none"
	}
}

// ElevatorState tracks the elevator gate.
type ElevatorState int

const (
	NoElevator ElevatorState = iota
	ElevatorPending
	ElevatorLit
)

func (s ElevatorState) String() string {
	switch s {
	case ElevatorPending:
		return "pending"
	case ElevatorLit:
		return "lit"
	default:
		return "none"
	}
}

// FogState is the level's fog overlay; Remaining counts down in seconds.
type FogState struct {
	Active    bool    `json:"active" yaml:"active"`
	Color     RGB     `json:"color" yaml:"color"`
	Remaining float64 `json:"remaining" yaml:"remaining"`
}

// Level is one live mine level instance.
type Level struct {
	Number    int
	Day       int
	Area      AreaID
	Overrides Overrides
	MapAsset  string
	Template  int

	Dark        bool
	MonsterArea bool // must kill every monster to open the ladder
	SlimeArea   bool
	DinoArea    bool
	Rainbow     bool

	Lighting RGB
	Fog      FogState
	Music    string

	LadderUp    Coord
	Ladder      *Exit
	LadderState LadderState

	Elevator       *Coord
	ElevatorState  ElevatorState
	ElevatorDinged bool // lit by the timer this session rather than already lit on entry

	StonesRemaining int
	Objects         map[Coord]*Placeable
	Monsters        []*Monster

	grid          Grid
	pendingExit   *Exit
	elevatorTimer time.Duration
	elevatorFired bool
	nextMonsterID int
}

func newLevel(number, day int, grid Grid) *Level {
	return &Level{
		Number:   number,
		Day:      day,
		LadderUp: Coord{X: -1, Y: -1},
		Objects:  make(map[Coord]*Placeable),
		grid:     grid,
	}
}

// Grid returns the tile map the level was built from.
func (l *Level) Grid() Grid {
	return l.grid
}

// InBounds reports whether c lies on the map.
func (l *Level) InBounds(c Coord) bool {
	if l.grid == nil {
		return false
	}
	w, h := l.grid.Size()
	return c.X >= 0 && c.Y >= 0 && c.X < w && c.Y < h
}

// IsFloor reports whether c is walkable ground with no wall or template fixture.
func (l *Level) IsFloor(c Coord) bool {
	if !l.InBounds(c) {
		return false
	}
	if _, ok := l.grid.TileProperty(c, LayerBack, PropType); !ok {
		return false
	}
	if v, ok := l.grid.TileProperty(c, LayerBuildings, PropSolid); ok && v == "T" {
		return false
	}
	if _, ok := l.grid.TileProperty(c, LayerBuildings, PropAction); ok {
		return false
	}
	return true
}

// IsExitTile reports whether c holds the entry ladder, the exit or the elevator.
func (l *Level) IsExitTile(c Coord) bool {
	if c == l.LadderUp {
		return true
	}
	if l.Ladder != nil && l.Ladder.Pos == c {
		return true
	}
	if l.pendingExit != nil && l.pendingExit.Pos == c {
		return true
	}
	return l.Elevator != nil && *l.Elevator == c
}

// Occupied reports whether a placeable or an exit already sits on c.
func (l *Level) Occupied(c Coord) bool {
	if _, ok := l.Objects[c]; ok {
		return true
	}
	return l.IsExitTile(c)
}

// IsClear reports whether c is floor with nothing on it.
func (l *Level) IsClear(c Coord) bool {
	return l.IsFloor(c) && !l.Occupied(c)
}

// Place puts p on its tile. It refuses occupied or non-floor tiles.
func (l *Level) Place(p *Placeable) bool {
	if !l.IsClear(p.Pos) {
		return false
	}
	l.Objects[p.Pos] = p
	return true
}

// placeFixture puts p on a template fixture tile, which IsClear rejects.
func (l *Level) placeFixture(p *Placeable) bool {
	if !l.InBounds(p.Pos) || l.Occupied(p.Pos) {
		return false
	}
	l.Objects[p.Pos] = p
	return true
}

// CountObjects counts placeables of one kind.
func (l *Level) CountObjects(kind ObjectKind) int {
	n := 0
	for _, p := range l.Objects {
		if p.Kind == kind {
			n++
		}
	}
	return n
}

// AddMonster assigns the monster an ID and adds it to the level.
func (l *Level) AddMonster(m *Monster) {
	l.nextMonsterID++
	m.ID = l.nextMonsterID
	l.Monsters = append(l.Monsters, m)
}

// RemoveMonster drops the monster with the given ID.
func (l *Level) RemoveMonster(id int) (*Monster, bool) {
	for i, m := range l.Monsters {
		if m.ID == id {
			l.Monsters = append(l.Monsters[:i], l.Monsters[i+1:]...)
			return m, true
		}
	}
	return nil, false
}

// MonsterCount returns the number of live monsters.
func (l *Level) MonsterCount() int {
	return len(l.Monsters)
}

// Context returns the factory view of the level.
func (l *Level) Context(difficulty int) LevelContext {
	return LevelContext{Level: l.Number, Area: l.Area, Dark: l.Dark, Difficulty: difficulty}
}

// templateTiles returns the tiles whose Buildings action equals action, in row-major order.
func (l *Level) templateTiles(action string) []Coord {
	if l.grid == nil {
		return nil
	}
	var out []Coord
	w, h := l.grid.Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := Coord{X: x, Y: y}
			if v, ok := l.grid.TileProperty(c, LayerBuildings, PropAction); ok && v == action {
				out = append(out, c)
			}
		}
	}
	return out
}
