package mine

import (
	"math/rand"
	"strings"
)

// Stat scaling by difficulty gap: base * (1 + gap * factor).
const (
	healthPerLevel     = 0.10
	damagePerLevel     = 0.08
	experiencePerLevel = 0.15
)

// ScaleHealth scales base health by a difficulty gap.
func ScaleHealth(base, gap int) int {
	return scaleStat(base, gap, healthPerLevel)
}

// ScaleDamage scales base damage by a difficulty gap.
func ScaleDamage(base, gap int) int {
	return scaleStat(base, gap, damagePerLevel)
}

// ScaleExperience scales the experience reward by a difficulty gap.
func ScaleExperience(base, gap int) int {
	return scaleStat(base, gap, experiencePerLevel)
}

func scaleStat(base, gap int, factor float64) int {
	if gap <= 0 {
		return base
	}
	return int(float64(base) * (1.0 + float64(gap)*factor))
}

// Slime tints, one per depth bracket.
var (
	SlimeGreen  = RGB{R: 79, G: 255, B: 79}
	SlimeBlue   = RGB{R: 40, G: 180, B: 255}
	SlimeRed    = RGB{R: 220, G: 40, B: 40}
	SlimePurple = RGB{R: 160, G: 40, B: 240}
)

// SlimeColor returns the slime tint for a level.
func SlimeColor(level int) RGB {
	switch {
	case level < 40:
		return SlimeGreen
	case level < 80:
		return SlimeBlue
	case level <= BottomLevel:
		return SlimeRed
	default:
		return SlimePurple
	}
}

// ChanceContext is everything AdjustChances reacts to.
type ChanceContext struct {
	Level        int
	Area         AreaID
	MustKill     bool
	MonsterBan   bool
	MonsterSurge bool
	Difficulty   int
}

// SpawnTable picks a monster kind for a level.
type SpawnTable func(l *Level, rng *rand.Rand) string

// Scaler adjusts monsters and spawn chances for difficulty and buffs.
type Scaler struct {
	rules   *Rules
	sprites SpriteCatalog
	spawns  map[AreaID]SpawnTable
}

// NewScaler creates a scaler with the default spawn tables. sprites may be nil.
func NewScaler(rules *Rules, sprites SpriteCatalog) *Scaler {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Scaler{rules: rules, sprites: sprites, spawns: DefaultSpawnTables()}
}

// SetSpawnTable replaces the spawn table for one area.
func (s *Scaler) SetSpawnTable(area AreaID, table SpawnTable) {
	s.spawns[area] = table
}

// AdjustChances applies depth, variant, buff and difficulty rules to the
// base chances. Zeroing rules are applied last so nothing can re-enable a
// suppressed category. The result is not clamped.
func (s *Scaler) AdjustChances(base Chances, ctx ChanceContext) Chances {
	c := base

	if ctx.MustKill {
		c.Stone = 0
		c.Ore = 0
		c.Monster = c.Monster*2 + s.rules.MustKillMonster
	}
	if ctx.Difficulty > 0 {
		c.Monster += float64(ctx.Difficulty) * s.rules.DifficultyMonster
	}
	if ctx.MonsterSurge {
		c.Monster *= 2
	}

	if ctx.MonsterBan && ctx.Area != AreaBonus {
		c.Monster = 0
	}
	if ctx.Level%5 == 0 && !IsDesert(ctx.Level) {
		c.Item = 0
		c.Gem = 0
		if ctx.Level%10 == 0 {
			c.Monster = 0
		}
	}
	if ctx.Level == 1 {
		c.Monster = 0
		c.Item = 0
		c.Gem = 0
	}
	return c
}

// Buff raises a monster to difficulty d. Monsters whose base difficulty is
// already at or above d are left alone. Stats are always derived from the
// base stats, so buffing twice with the same d changes nothing.
func (s *Scaler) Buff(m *Monster, d int) {
	if m == nil || m.BaseDifficulty >= d {
		return
	}
	gap := d - m.BaseDifficulty
	m.Stats = Stats{
		Health:     ScaleHealth(m.Base.Health, gap),
		Damage:     ScaleDamage(m.Base.Damage, gap),
		Experience: ScaleExperience(m.Base.Experience, gap),
	}
	if s.sprites != nil && !strings.HasSuffix(m.Sprite, DangerousSuffix) && s.sprites.HasTexture(m.Sprite+DangerousSuffix) {
		m.Sprite += DangerousSuffix
	}
}

// Prepare finishes a freshly created monster for a level: slime tint, then buff.
func (s *Scaler) Prepare(m *Monster, level, d int) {
	if m.Slime {
		m.Color = SlimeColor(level)
	}
	s.Buff(m, d)
}

// MonsterKind picks a monster kind for the level from its area's table.
func (s *Scaler) MonsterKind(l *Level, rng *rand.Rand) string {
	table, ok := s.spawns[l.Area]
	if !ok {
		table = s.spawns[AreaUpper]
	}
	return table(l, rng)
}

// DefaultSpawnTables returns one table per area.
func DefaultSpawnTables() map[AreaID]SpawnTable {
	return map[AreaID]SpawnTable{
		AreaUpper:  weighted("green_slime", "green_slime", "bug", "rock_crab", "bat"),
		AreaJungle: weighted("green_slime", "grub", "cave_fly", "duggy", "bat"),
		AreaFrost:  weighted("frost_jelly", "frost_bat", "dust_sprite", "skeleton", "ghost"),
		AreaLava:   weighted("red_sludge", "lava_bat", "lava_crab", "shadow_brute", "squid_kid"),
		AreaDesert: desertTable,
		AreaQuarry: weighted("haunted_skull", "rock_crab", "bat"),
		AreaBonus:  weighted("serpent", "mummy", "iridium_crab"),
	}
}

func weighted(kinds ...string) SpawnTable {
	return func(_ *Level, rng *rand.Rand) string {
		return kinds[rng.Intn(len(kinds))]
	}
}

func desertTable(l *Level, rng *rand.Rand) string {
	switch {
	case l.SlimeArea:
		return "big_slime"
	case l.DinoArea:
		if rng.Intn(4) == 0 {
			return "pepper_rex"
		}
		return "dino_hatchling"
	}
	kinds := []string{"mummy", "serpent", "purple_slime", "dust_sprite", "iridium_bat"}
	if l.Dark {
		kinds = append(kinds, "shadow_sniper")
	}
	return kinds[rng.Intn(len(kinds))]
}
