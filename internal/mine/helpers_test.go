package mine

import (
	"fmt"
	"strings"

	"github.com/lawnchairsociety/minedepths/internal/gametime"
)

// charGrid is a test map drawn with characters:
// '#' wall, '.' stone floor, ',' dirt floor, 'U' entry ladder, 'D' ladder
// down, 'E' elevator, 'C' chest spot, 'M' coal cart, ' ' void.
type charGrid struct {
	rows []string
}

func newCharGrid(rows ...string) *charGrid {
	return &charGrid{rows: rows}
}

// roomGrid returns a walled room with the entry ladder at the top centre.
func roomGrid(w, h int) *charGrid {
	rows := make([]string, h)
	for y := 0; y < h; y++ {
		var b strings.Builder
		for x := 0; x < w; x++ {
			switch {
			case x == 0 || y == 0 || x == w-1 || y == h-1:
				b.WriteByte('#')
			case x == w/2 && y == 1:
				b.WriteByte('U')
			default:
				b.WriteByte('.')
			}
		}
		rows[y] = b.String()
	}
	return &charGrid{rows: rows}
}

func (g *charGrid) Size() (int, int) {
	if len(g.rows) == 0 {
		return 0, 0
	}
	return len(g.rows[0]), len(g.rows)
}

func (g *charGrid) at(c Coord) byte {
	if c.Y < 0 || c.Y >= len(g.rows) || c.X < 0 || c.X >= len(g.rows[c.Y]) {
		return ' '
	}
	return g.rows[c.Y][c.X]
}

func (g *charGrid) TileProperty(c Coord, layer, key string) (string, bool) {
	ch := g.at(c)
	if ch == ' ' {
		return "", false
	}
	switch layer {
	case LayerBack:
		if key != PropType {
			return "", false
		}
		if ch == ',' {
			return "Dirt", true
		}
		return "Stone", true
	case LayerBuildings:
		switch key {
		case PropSolid:
			if ch == '#' {
				return "T", true
			}
		case PropAction:
			if action, ok := map[byte]string{
				'U': ActionLadder,
				'D': ActionLadderDown,
				'E': ActionElevator,
				'C': ActionChest,
				'M': ActionCoalCart,
			}[ch]; ok {
				return action, true
			}
		}
	}
	return "", false
}

type fakeAssets struct {
	grids map[string]Grid
}

func (a *fakeAssets) LoadMapAsset(name string) (Grid, error) {
	if g, ok := a.grids[name]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("no map asset %q", name)
}

func (a *fakeAssets) HasMapAsset(name string) bool {
	_, ok := a.grids[name]
	return ok
}

type fakeMonsters struct{}

func (fakeMonsters) CreateMonster(kind string, pos Coord, ctx LevelContext) *Monster {
	base := Stats{Health: 20, Damage: 5, Experience: 4}
	return &Monster{
		Kind:           kind,
		Pos:            pos,
		Sprite:         kind,
		Base:           base,
		Stats:          base,
		BaseDifficulty: ctx.Level / 10,
		Slime:          strings.Contains(kind, "slime") || strings.Contains(kind, "jelly") || strings.Contains(kind, "sludge"),
	}
}

type fakeSprites map[string]bool

func (s fakeSprites) HasTexture(name string) bool {
	return s[name]
}

func newTestSession(day int, host bool, players ...PlayerState) *LocalSession {
	s := NewLocalSession(gametime.NewCalendar(day), host)
	for _, p := range players {
		s.SetPlayer(p)
	}
	return s
}

// testLevel builds an unpopulated level on g with the entry ladder resolved.
func testLevel(number int, g Grid) *Level {
	l := newLevel(number, 1, g)
	l.Area = AreaOf(number, Overrides{})
	l.LadderUp = entryTile(l)
	return l
}
