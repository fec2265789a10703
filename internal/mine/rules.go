package mine

import (
	"errors"
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// Chances are per-tile spawn probabilities. Values may exceed 1 after
// adjustment; they are clamped only where the draw happens.
type Chances struct {
	Stone   float64 `yaml:"stone"`
	Monster float64 `yaml:"monster"`
	Item    float64 `yaml:"item"`
	Gem     float64 `yaml:"gem"`
	Clump   float64 `yaml:"clump"`
	Ore     float64 `yaml:"ore"` // chance a placed stone carries ore
}

// RangeRule holds the generation policy for a band of levels.
// Max 0 means the band is open ended.
type RangeRule struct {
	Min     int     `yaml:"min"`
	Max     int     `yaml:"max"`
	Chances Chances `yaml:"chances"`
	Ore     string  `yaml:"ore"`

	DarkChance        float64 `yaml:"dark_chance"`
	MonsterAreaChance float64 `yaml:"monster_area_chance"`
	SlimeAreaChance   float64 `yaml:"slime_area_chance"`
	DinoAreaChance    float64 `yaml:"dino_area_chance"`

	Items []string `yaml:"items"`
	Gems  []string `yaml:"gems"`
}

// Contains reports whether the level falls in the band.
func (r RangeRule) Contains(level int) bool {
	return level >= r.Min && (r.Max == 0 || level <= r.Max)
}

// AreaStyle is the per-area look of a level.
type AreaStyle struct {
	Lighting     RGB      `yaml:"lighting"`
	DarkLighting RGB      `yaml:"dark_lighting"`
	Fog          RGB      `yaml:"fog"`
	FogSeconds   float64  `yaml:"fog_seconds"`
	Music        string   `yaml:"music"`
	Clumps       []string `yaml:"clumps"`
	Decorations  []string `yaml:"decorations"`
}

// Rules is the data-driven policy the loader, populator and exit gates read.
type Rules struct {
	Ranges []RangeRule          `yaml:"ranges"`
	Areas  map[string]AreaStyle `yaml:"areas"`

	RainbowChance       float64 `yaml:"rainbow_chance"`
	BonusChance         float64 `yaml:"bonus_chance"`
	BonusMinLevel       int     `yaml:"bonus_min_level"`
	ShaftChance         float64 `yaml:"shaft_chance"`
	MonsterLadderChance float64 `yaml:"monster_ladder_chance"`
	ClusterThreshold    int     `yaml:"cluster_threshold"`
	EntryClearRadius    int     `yaml:"entry_clear_radius"`
	ExitSearchRadius    int     `yaml:"exit_search_radius"`
	MustKillMonster     float64 `yaml:"must_kill_monster"`
	DifficultyMonster   float64 `yaml:"difficulty_monster"`
	BarrelRays          int     `yaml:"barrel_rays"`
	OreVeinLength       int     `yaml:"ore_vein_length"`
	MinerPaths          int     `yaml:"miner_paths"`
	DecorationChance    float64 `yaml:"decoration_chance"`
	ShaftMinDrop        int     `yaml:"shaft_min_drop"`
	ShaftMaxDrop        int     `yaml:"shaft_max_drop"`
	DefaultChests       int     `yaml:"default_chests"`
	DefaultCoalCarts    int     `yaml:"default_coal_carts"`
}

// DefaultRules returns the built-in policy.
func DefaultRules() *Rules {
	return &Rules{
		Ranges: []RangeRule{
			{
				Min: 0, Max: 9, Ore: "copper_ore",
				Chances:    Chances{Stone: 0.16, Monster: 0.020, Item: 0.004, Gem: 0.0015, Clump: 0.010, Ore: 0.10},
				DarkChance: 0.15,
				Items:      []string{"geode", "torch", "bug_meat"},
				Gems:       []string{"quartz", "amethyst"},
			},
			{
				Min: 10, Max: 39, Ore: "copper_ore",
				Chances:           Chances{Stone: 0.18, Monster: 0.025, Item: 0.004, Gem: 0.002, Clump: 0.015, Ore: 0.12},
				DarkChance:        0.18,
				MonsterAreaChance: 0.04,
				Items:             []string{"geode", "cave_carrot", "slime"},
				Gems:              []string{"quartz", "topaz", "amethyst"},
			},
			{
				Min: 40, Max: 79, Ore: "iron_ore",
				Chances:           Chances{Stone: 0.20, Monster: 0.030, Item: 0.005, Gem: 0.003, Clump: 0.012, Ore: 0.14},
				DarkChance:        0.22,
				MonsterAreaChance: 0.05,
				Items:             []string{"frozen_geode", "frozen_tear", "bat_wing"},
				Gems:              []string{"aquamarine", "jade", "frozen_tear"},
			},
			{
				Min: 80, Max: BottomLevel, Ore: "gold_ore",
				Chances:           Chances{Stone: 0.22, Monster: 0.035, Item: 0.005, Gem: 0.004, Clump: 0.010, Ore: 0.16},
				DarkChance:        0.26,
				MonsterAreaChance: 0.06,
				Items:             []string{"magma_geode", "fire_quartz", "solar_essence"},
				Gems:              []string{"ruby", "emerald", "diamond"},
			},
			{
				Min: QuarryLevel, Max: QuarryLevel, Ore: "iron_ore",
				Chances: Chances{Stone: 0.30, Monster: 0.015, Item: 0.003, Gem: 0.002, Clump: 0.005, Ore: 0.20},
				Items:   []string{"geode", "bone_fragment"},
				Gems:    []string{"quartz"},
			},
			{
				Min: DesertStart, Ore: "iridium_ore",
				Chances:         Chances{Stone: 0.24, Monster: 0.040, Item: 0.006, Gem: 0.004, Clump: 0.008, Ore: 0.10},
				DarkChance:      0.30,
				SlimeAreaChance: 0.05,
				DinoAreaChance:  0.03,
				Items:           []string{"omni_geode", "bat_wing", "solar_essence"},
				Gems:            []string{"diamond", "prismatic_shard"},
			},
		},
		Areas: map[string]AreaStyle{
			"upper":  {Lighting: RGB{255, 240, 210}, DarkLighting: RGB{90, 80, 70}, Music: "mine_upper", Clumps: []string{"cave_weeds"}, Decorations: []string{"crate_debris", "bones"}},
			"jungle": {Lighting: RGB{200, 255, 190}, DarkLighting: RGB{60, 90, 60}, Fog: RGB{120, 180, 110}, FogSeconds: 20, Music: "mine_jungle", Clumps: []string{"cave_fiber", "mushroom_patch"}, Decorations: []string{"vines"}},
			"frost":  {Lighting: RGB{200, 230, 255}, DarkLighting: RGB{50, 60, 100}, Fog: RGB{220, 235, 255}, FogSeconds: 30, Music: "mine_frost", Clumps: []string{"ice_crystal"}, Decorations: []string{"icicles"}},
			"lava":   {Lighting: RGB{255, 190, 150}, DarkLighting: RGB{110, 40, 30}, Fog: RGB{255, 120, 60}, FogSeconds: 15, Music: "mine_lava", Clumps: []string{"cinder_shard"}, Decorations: []string{"lava_rock"}},
			"desert": {Lighting: RGB{255, 225, 170}, DarkLighting: RGB{80, 60, 40}, Fog: RGB{230, 200, 140}, FogSeconds: 25, Music: "cavern_desert", Clumps: []string{"cave_fiber"}, Decorations: []string{"skull", "bones"}},
			"quarry": {Lighting: RGB{255, 255, 255}, Music: "mine_quarry", Clumps: []string{"clay_patch"}, Decorations: []string{"bones"}},
			"bonus":  {Lighting: RGB{255, 215, 120}, DarkLighting: RGB{120, 90, 40}, Music: "cavern_treasure", Clumps: []string{"golden_weeds"}, Decorations: []string{"gold_pile"}},
		},
		RainbowChance:       0.035,
		BonusChance:         0.02,
		BonusMinLevel:       130,
		ShaftChance:         0.2,
		MonsterLadderChance: 0.15,
		ClusterThreshold:    35,
		EntryClearRadius:    5,
		ExitSearchRadius:    3,
		MustKillMonster:     0.06,
		DifficultyMonster:   0.01,
		BarrelRays:          6,
		OreVeinLength:       5,
		MinerPaths:          1,
		DecorationChance:    0.02,
		ShaftMinDrop:        3,
		ShaftMaxDrop:        8,
		DefaultChests:       1,
		DefaultCoalCarts:    2,
	}
}

// LoadRules reads a rules file. A missing file yields the defaults; keys
// the file leaves out keep their default values.
func LoadRules(path string) (*Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rules, nil
		}
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules file %s: %w", path, err)
	}
	return rules, nil
}

// Validate checks the tables cover every level a registry can create.
func (r *Rules) Validate() error {
	for _, level := range []int{0, 1, 10, 40, 80, BottomLevel, DesertStart, QuarryLevel} {
		if _, ok := r.rangeFor(level); !ok {
			return fmt.Errorf("no range rule covers level %d", level)
		}
	}
	if r.ShaftMaxDrop < r.ShaftMinDrop || r.ShaftMinDrop < 1 {
		return fmt.Errorf("shaft drop range %d-%d is invalid", r.ShaftMinDrop, r.ShaftMaxDrop)
	}
	for name := range r.Areas {
		if _, err := ParseArea(name); err != nil {
			return err
		}
	}
	return nil
}

func (r *Rules) rangeFor(level int) (RangeRule, bool) {
	for _, rule := range r.Ranges {
		if rule.Contains(level) {
			return rule, true
		}
	}
	return RangeRule{}, false
}

// RangeFor returns the first range rule containing the level, or the last
// rule when none does.
func (r *Rules) RangeFor(level int) RangeRule {
	if rule, ok := r.rangeFor(level); ok {
		return rule
	}
	if len(r.Ranges) == 0 {
		return RangeRule{}
	}
	return r.Ranges[len(r.Ranges)-1]
}

// Style returns the look of an area.
func (r *Rules) Style(area AreaID) AreaStyle {
	return r.Areas[area.String()]
}

// roll draws against a chance, clamping it to [0, 1]. Every probabilistic
// decision in the package goes through here. It consumes one value even
// when the chance is certain, so tuning a chance never shifts later draws.
func roll(rng *rand.Rand, chance float64) bool {
	v := rng.Float64()
	switch {
	case chance <= 0:
		return false
	case chance >= 1:
		return true
	}
	return v < chance
}

// pick returns a random element, or "" for an empty list.
func pick(rng *rand.Rand, names []string) string {
	if len(names) == 0 {
		return ""
	}
	return names[rng.Intn(len(names))]
}
