package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/lawnchairsociety/minedepths/internal/mine"
	"gopkg.in/yaml.v3"
)

// LevelYAML represents a generated level in YAML format
type LevelYAML struct {
	Level       int              `yaml:"level"`
	Day         int              `yaml:"day"`
	Seed        int64            `yaml:"seed"`
	Area        string           `yaml:"area"`
	Template    int              `yaml:"template"`
	MapAsset    string           `yaml:"map_asset"`
	Dark        bool             `yaml:"dark,omitempty"`
	Rainbow     bool             `yaml:"rainbow,omitempty"`
	MonsterArea bool             `yaml:"monster_area,omitempty"`
	Lighting    mine.RGB         `yaml:"lighting"`
	Music       string           `yaml:"music,omitempty"`
	Fog         *mine.FogState   `yaml:"fog,omitempty"`
	Stones      int              `yaml:"stones"`
	LadderUp    mine.Coord       `yaml:"ladder_up"`
	Ladder      *mine.Exit       `yaml:"ladder,omitempty"`
	LadderState string           `yaml:"ladder_state"`
	Elevator    *mine.Coord      `yaml:"elevator,omitempty"`
	Objects     []mine.Placeable `yaml:"objects,omitempty"`
	Monsters    []*mine.Monster  `yaml:"monsters,omitempty"`
	Map         []string         `yaml:"map,omitempty"`
}

// WriteLevelYAML writes a level to a YAML file
func WriteLevelYAML(level *LevelYAML, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(f, "# Mine level %d - %s\n", level.Level, level.Area)
	fmt.Fprintf(f, "# Generated with seed %d on day %d\n", level.Seed, level.Day)
	fmt.Fprintf(f, "# Objects: %d, monsters: %d\n\n", len(level.Objects), len(level.Monsters))

	// Objects come out of a map; order them by row then column so reruns diff cleanly.
	sort.Slice(level.Objects, func(i, j int) bool {
		a, b := level.Objects[i].Pos, level.Objects[j].Pos
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	encoder := yaml.NewEncoder(f)
	encoder.SetIndent(2)
	if err := encoder.Encode(level); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}
