package assets

import (
	"fmt"
	"os"
	"strings"

	"github.com/lawnchairsociety/minedepths/internal/mine"
	"gopkg.in/yaml.v3"
)

// Tile characters used by map files.
const (
	TileWall     = '#'
	TileStone    = '.'
	TileDirt     = ','
	TileEntry    = 'U'
	TileLadder   = 'D'
	TileElevator = 'E'
	TileChest    = 'C'
	TileCoalCart = 'M'
	TileVoid     = ' '
)

var actionTiles = map[byte]string{
	TileEntry:    mine.ActionLadder,
	TileLadder:   mine.ActionLadderDown,
	TileElevator: mine.ActionElevator,
	TileChest:    mine.ActionChest,
	TileCoalCart: mine.ActionCoalCart,
}

// MapYAML is a map file on disk.
type MapYAML struct {
	Name  string   `yaml:"name"`
	Tiles []string `yaml:"tiles"`
}

// TileMap is a rectangular character map. It satisfies mine.Grid.
type TileMap struct {
	Name string
	rows []string
	w    int
}

// NewTileMap builds a map from rows. Short rows are padded with void.
func NewTileMap(name string, rows []string) (*TileMap, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("map %s has no rows", name)
	}
	w := 0
	for _, row := range rows {
		w = max(w, len(row))
	}
	padded := make([]string, len(rows))
	for y, row := range rows {
		for i := 0; i < len(row); i++ {
			if !validTile(row[i]) {
				return nil, fmt.Errorf("map %s: unknown tile %q at (%d,%d)", name, row[i], i, y)
			}
		}
		padded[y] = row + strings.Repeat(string(TileVoid), w-len(row))
	}
	return &TileMap{Name: name, rows: padded, w: w}, nil
}

// LoadMapFromYAML reads a map file.
func LoadMapFromYAML(path string) (*TileMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read map file: %w", err)
	}

	var m MapYAML
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse map YAML: %w", err)
	}
	return NewTileMap(m.Name, m.Tiles)
}

// ToYAML converts the map back to its file form.
func (m *TileMap) ToYAML() *MapYAML {
	return &MapYAML{Name: m.Name, Tiles: append([]string(nil), m.rows...)}
}

func validTile(ch byte) bool {
	switch ch {
	case TileWall, TileStone, TileDirt, TileVoid:
		return true
	}
	_, ok := actionTiles[ch]
	return ok
}

func (m *TileMap) Size() (int, int) {
	return m.w, len(m.rows)
}

// At returns the tile character at c, or void outside the map.
func (m *TileMap) At(c mine.Coord) byte {
	if c.Y < 0 || c.Y >= len(m.rows) || c.X < 0 || c.X >= m.w {
		return TileVoid
	}
	return m.rows[c.Y][c.X]
}

func (m *TileMap) TileProperty(c mine.Coord, layer, key string) (string, bool) {
	ch := m.At(c)
	if ch == TileVoid {
		return "", false
	}
	switch layer {
	case mine.LayerBack:
		if key != mine.PropType {
			return "", false
		}
		if ch == TileDirt {
			return "Dirt", true
		}
		return "Stone", true
	case mine.LayerBuildings:
		switch key {
		case mine.PropSolid:
			if ch == TileWall {
				return "T", true
			}
		case mine.PropAction:
			if action, ok := actionTiles[ch]; ok {
				return action, true
			}
		}
	}
	return "", false
}

// Rows returns a copy of the map rows.
func (m *TileMap) Rows() []string {
	return append([]string(nil), m.rows...)
}

// SaveMapToYAML writes the map to path.
func SaveMapToYAML(path string, m *TileMap) error {
	data, err := yaml.Marshal(m.ToYAML())
	if err != nil {
		return fmt.Errorf("failed to marshal map: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write map file: %w", err)
	}
	return nil
}
