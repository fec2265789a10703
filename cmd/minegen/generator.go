package main

import (
	"fmt"
	"path/filepath"

	"github.com/lawnchairsociety/minedepths/internal/assets"
	"github.com/lawnchairsociety/minedepths/internal/bestiary"
	"github.com/lawnchairsociety/minedepths/internal/events"
	"github.com/lawnchairsociety/minedepths/internal/gametime"
	"github.com/lawnchairsociety/minedepths/internal/logger"
	"github.com/lawnchairsociety/minedepths/internal/mine"
	"github.com/lawnchairsociety/minedepths/internal/seed"
)

// GeneratorConfig configures a LevelGenerator.
type GeneratorConfig struct {
	Seed         int64
	Day          int
	MapsDir      string
	RulesFile    string
	BestiaryFile string
	OutputDir    string
	Templates    bool
}

// LevelGenerator generates mine levels through a throwaway registry and
// writes them out as YAML.
type LevelGenerator struct {
	cfg      GeneratorConfig
	registry *mine.Registry
}

// NewLevelGenerator builds a host-mode registry over an in-memory store.
func NewLevelGenerator(cfg GeneratorConfig) (*LevelGenerator, error) {
	rules, err := mine.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	opts := mine.Options{
		Rules:   rules,
		Seeds:   seed.NewProvider(cfg.Seed),
		Assets:  assets.NewLibrary(cfg.MapsDir, true),
		Store:   mine.NewMemoryStore(),
		Queue:   events.NewQueue(),
		Session: mine.NewLocalSession(gametime.NewCalendar(cfg.Day), true),
	}
	if beasts, err := bestiary.LoadFromYAML(cfg.BestiaryFile); err != nil {
		logger.Warning("Failed to load bestiary, levels will have no monsters", "path", cfg.BestiaryFile, "error", err)
	} else {
		opts.Monsters = beasts
		opts.Items = beasts
		opts.Sprites = beasts
	}

	return &LevelGenerator{cfg: cfg, registry: mine.NewRegistry(opts)}, nil
}

// GenerateLevel generates level n and writes it to the output directory.
// It returns a one-line summary for progress output.
func (g *LevelGenerator) GenerateLevel(n int) (string, error) {
	l := g.registry.EnterLevel(n)
	dump := convertToYAML(l, g.cfg.Seed)

	path := filepath.Join(g.cfg.OutputDir, fmt.Sprintf("level_%03d.yaml", n))
	if err := WriteLevelYAML(dump, path); err != nil {
		return "", err
	}

	if g.cfg.Templates && l.Template > 0 {
		name := assets.TemplateName(l.Template)
		m := assets.Generate(l.Template, assets.DefaultWidth, assets.DefaultHeight)
		if err := assets.SaveMapToYAML(filepath.Join(g.cfg.OutputDir, name+".yaml"), m); err != nil {
			return "", fmt.Errorf("failed to write template %s: %w", name, err)
		}
	}

	return fmt.Sprintf("%s, %s, %d stones, %d monsters", dump.Area, dump.MapAsset, dump.Stones, len(dump.Monsters)), nil
}

func convertToYAML(l *mine.Level, gameSeed int64) *LevelYAML {
	dump := &LevelYAML{
		Level:       l.Number,
		Day:         l.Day,
		Seed:        gameSeed,
		Area:        l.Area.String(),
		Template:    l.Template,
		MapAsset:    l.MapAsset,
		Dark:        l.Dark,
		Rainbow:     l.Rainbow,
		MonsterArea: l.MonsterArea,
		Lighting:    l.Lighting,
		Music:       l.Music,
		Stones:      l.StonesRemaining,
		LadderUp:    l.LadderUp,
		Ladder:      l.Ladder,
		LadderState: l.LadderState.String(),
		Elevator:    l.Elevator,
		Monsters:    l.Monsters,
		Map:         renderMap(l),
	}
	if l.Fog.Active {
		fog := l.Fog
		dump.Fog = &fog
	}
	for _, p := range l.Objects {
		dump.Objects = append(dump.Objects, *p)
	}
	return dump
}

// Map glyphs. Terrain matches the asset tile set; contents draw over it.
const (
	glyphWall     = '#'
	glyphStone    = '.'
	glyphDirt     = ','
	glyphVoid     = ' '
	glyphEntry    = 'U'
	glyphLadder   = 'D'
	glyphShaft    = 'S'
	glyphElevator = 'E'
	glyphMonster  = 'm'
)

var objectGlyphs = map[mine.ObjectKind]byte{
	mine.ObjectStone:      'o',
	mine.ObjectItem:       '*',
	mine.ObjectGem:        '*',
	mine.ObjectClump:      '*',
	mine.ObjectDecoration: '~',
	mine.ObjectBarrel:     'b',
	mine.ObjectChest:      'C',
	mine.ObjectCoalCart:   'M',
}

var actionGlyphs = map[string]byte{
	mine.ActionLadder:     glyphEntry,
	mine.ActionLadderDown: glyphLadder,
	mine.ActionElevator:   glyphElevator,
	mine.ActionChest:      'C',
	mine.ActionCoalCart:   'M',
}

func renderMap(l *mine.Level) []string {
	grid := l.Grid()
	if grid == nil {
		return nil
	}
	w, h := grid.Size()
	rows := make([][]byte, h)
	for y := range rows {
		rows[y] = make([]byte, w)
		for x := range rows[y] {
			rows[y][x] = terrainGlyph(grid, mine.Coord{X: x, Y: y})
		}
	}

	set := func(c mine.Coord, g byte) {
		if c.Y >= 0 && c.Y < h && c.X >= 0 && c.X < w {
			rows[c.Y][c.X] = g
		}
	}
	for c, p := range l.Objects {
		if g, ok := objectGlyphs[p.Kind]; ok {
			set(c, g)
		}
	}
	for _, m := range l.Monsters {
		set(m.Pos, glyphMonster)
	}
	if l.Ladder != nil {
		g := byte(glyphLadder)
		if l.Ladder.Kind == mine.ExitShaft {
			g = glyphShaft
		}
		set(l.Ladder.Pos, g)
	}
	if l.Elevator != nil {
		set(*l.Elevator, glyphElevator)
	}

	out := make([]string, h)
	for y, row := range rows {
		out[y] = string(row)
	}
	return out
}

func terrainGlyph(grid mine.Grid, c mine.Coord) byte {
	if action, ok := grid.TileProperty(c, mine.LayerBuildings, mine.PropAction); ok {
		if g, ok := actionGlyphs[action]; ok {
			return g
		}
	}
	if solid, ok := grid.TileProperty(c, mine.LayerBuildings, mine.PropSolid); ok && solid == "T" {
		return glyphWall
	}
	switch t, _ := grid.TileProperty(c, mine.LayerBack, mine.PropType); t {
	case "Stone":
		return glyphStone
	case "Dirt":
		return glyphDirt
	}
	return glyphVoid
}
