// Package bestiary loads monster and item definitions and builds them for
// the mine engine.
package bestiary

import (
	"fmt"
	"os"

	"github.com/lawnchairsociety/minedepths/internal/logger"
	"github.com/lawnchairsociety/minedepths/internal/mine"
	"gopkg.in/yaml.v3"
)

// MonsterDefinition is a monster entry in the bestiary file.
type MonsterDefinition struct {
	Name       string `yaml:"name"`
	Sprite     string `yaml:"sprite"`     // texture name; defaults to the monster id
	Health     int    `yaml:"health"`
	Damage     int    `yaml:"damage"`
	Experience int    `yaml:"experience"`
	Difficulty int    `yaml:"difficulty"` // difficulty the base stats are tuned for
	Slime      bool   `yaml:"slime"`
}

// ItemDefinition is an item entry in the bestiary file.
type ItemDefinition struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"` // ore, gem, forage, reward
	MaxStack int    `yaml:"max_stack"`
}

// Bestiary holds every definition. It implements mine.MonsterFactory,
// mine.ItemFactory and mine.SpriteCatalog.
type Bestiary struct {
	Monsters map[string]MonsterDefinition `yaml:"monsters"`
	Items    map[string]ItemDefinition    `yaml:"items"`
	Sprites  []string                     `yaml:"sprites"` // extra textures, e.g. "_dangerous" variants

	sprites map[string]bool
}

// LoadFromYAML loads a bestiary file.
func LoadFromYAML(filename string) (*Bestiary, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read bestiary file: %w", err)
	}

	var b Bestiary
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse bestiary YAML: %w", err)
	}
	b.index()
	return &b, nil
}

// New builds a bestiary from definitions.
func New(monsters map[string]MonsterDefinition, items map[string]ItemDefinition, sprites ...string) *Bestiary {
	b := &Bestiary{Monsters: monsters, Items: items, Sprites: sprites}
	b.index()
	return b
}

func (b *Bestiary) index() {
	if b.Monsters == nil {
		b.Monsters = make(map[string]MonsterDefinition)
	}
	if b.Items == nil {
		b.Items = make(map[string]ItemDefinition)
	}

	for id, def := range b.Monsters {
		if def.Health <= 0 {
			logger.Warning("monster auto-correction applied",
				"monster_id", id,
				"issue", "health <= 0",
				"action", "set health=1")
			def.Health = 1
		}
		if def.Sprite == "" {
			def.Sprite = id
		}
		if def.Name == "" {
			def.Name = id
		}
		b.Monsters[id] = def
	}

	b.sprites = make(map[string]bool, len(b.Monsters)+len(b.Sprites))
	for _, def := range b.Monsters {
		b.sprites[def.Sprite] = true
	}
	for _, s := range b.Sprites {
		b.sprites[s] = true
	}
}

// CreateMonster builds a monster of the given kind. Unknown kinds yield nil
// and the spawn is skipped.
func (b *Bestiary) CreateMonster(kind string, pos mine.Coord, ctx mine.LevelContext) *mine.Monster {
	def, ok := b.Monsters[kind]
	if !ok {
		logger.Debug("unknown monster kind", "kind", kind, "mine_level", ctx.Level)
		return nil
	}
	base := mine.Stats{Health: def.Health, Damage: def.Damage, Experience: def.Experience}
	return &mine.Monster{
		Kind:           kind,
		Pos:            pos,
		Sprite:         def.Sprite,
		Base:           base,
		Stats:          base,
		BaseDifficulty: def.Difficulty,
		Slime:          def.Slime,
	}
}

// CreateItem builds a stack, capped at the item's max stack. Items without a
// definition pass through unchanged.
func (b *Bestiary) CreateItem(id string, quantity int) mine.Item {
	quantity = max(quantity, 1)
	if def, ok := b.Items[id]; ok && def.MaxStack > 0 {
		quantity = min(quantity, def.MaxStack)
	}
	return mine.Item{ID: id, Quantity: quantity}
}

// HasTexture reports whether a sprite with that name exists.
func (b *Bestiary) HasTexture(name string) bool {
	return b.sprites[name]
}
