package mine

import (
	"fmt"
	"sync"

	"github.com/lawnchairsociety/minedepths/internal/seed"
)

// Map asset name suffixes, combined in fallback order.
const (
	DangerousSuffix = "_dangerous"
	DarkSuffix      = "_dark"
)

// LoadOptions carry what the loader cannot derive from the level number.
type LoadOptions struct {
	Overrides        Overrides
	RainbowSeenToday bool
	Dangerous        bool // additional difficulty is active
}

// LoadResult describes how a level looks before it is populated.
type LoadResult struct {
	Level     int
	Area      AreaID
	Overrides Overrides
	Template  int
	MapAsset  string

	Lighting RGB
	Fog      FogState
	Music    string

	Dark        bool
	Rainbow     bool
	MonsterArea bool
	SlimeArea   bool
	DinoArea    bool
}

// Loader chooses map asset, palette and variant flags for a level.
type Loader struct {
	rules  *Rules
	seeds  seed.Provider
	assets AssetLoader

	desert map[[2]int]int // (day, level) -> template
	mu     sync.Mutex
}

// NewLoader creates a loader. assets may be nil, in which case every
// level resolves to its base template name.
func NewLoader(rules *Rules, seeds seed.Provider, assets AssetLoader) *Loader {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Loader{
		rules:  rules,
		seeds:  seeds,
		assets: assets,
		desert: make(map[[2]int]int),
	}
}

// TemplateName returns the base map asset name for a template index.
func TemplateName(template int) string {
	return fmt.Sprintf("mine_%d", template)
}

// TemplateFor folds an ordinary level onto its shared map template.
func TemplateFor(level int) int {
	switch {
	case level <= 0:
		return 0
	case level == QuarryLevel:
		return QuarryLevel
	case level == BottomLevel:
		return BottomLevel
	}
	m := level % 40
	switch {
	case m%20 == 0 && m != 0:
		return 20
	case m%10 == 0:
		return 10
	default:
		return m
	}
}

// Load decides the look of a level for a day. The same arguments always
// produce the same result.
func (l *Loader) Load(level, day int, opts LoadOptions) LoadResult {
	rng := l.seeds.LevelRand(day, level, seed.SaltLayout)
	rule := l.rules.RangeFor(level)

	// Every draw is taken in the same order whatever the options say, so
	// participants with different options still agree on the rest.
	bonus := roll(rng, l.rules.BonusChance)
	dark := roll(rng, rule.DarkChance)
	rainbow := roll(rng, l.rules.RainbowChance)
	infested := roll(rng, rule.MonsterAreaChance)
	slime := roll(rng, rule.SlimeAreaChance)
	dino := roll(rng, rule.DinoAreaChance)

	res := LoadResult{Level: level, Overrides: opts.Overrides}
	if IsDesert(level) && !res.Overrides.Bonus && level >= l.rules.BonusMinLevel && bonus {
		res.Overrides.Bonus = true
	}
	res.Area = AreaOf(level, res.Overrides)

	switch {
	case res.Area == AreaQuarry:
		res.Template = QuarryLevel
	case IsDesert(level):
		res.Template = l.desertTemplate(level, day)
	default:
		res.Template = TemplateFor(level)
	}

	fixed := level%5 == 0 || res.Area == AreaQuarry
	res.Dark = !fixed && dark
	res.Rainbow = !fixed && !opts.RainbowSeenToday && rainbow
	res.MonsterArea = !fixed && level > 1 && res.Area != AreaBonus && infested
	if res.Area == AreaDesert && !res.MonsterArea {
		res.SlimeArea = slime
		res.DinoArea = !slime && dino
	}

	style := l.rules.Style(res.Area)
	res.Lighting = style.Lighting
	if res.Dark {
		res.Lighting = style.DarkLighting
	}
	if style.FogSeconds > 0 {
		res.Fog = FogState{Active: true, Color: style.Fog, Remaining: style.FogSeconds}
	}
	res.Music = style.Music
	if res.MonsterArea {
		res.Music = "mine_infested"
	}

	res.MapAsset = l.resolveAsset(TemplateName(res.Template), opts.Dangerous, res.Dark)
	return res
}

// resolveAsset walks dangerous-dark, dangerous, dark, base and returns the
// first variant the asset loader has. It never fails: the base name is
// returned when nothing matches.
func (l *Loader) resolveAsset(base string, dangerous, dark bool) string {
	var candidates []string
	if dangerous && dark {
		candidates = append(candidates, base+DangerousSuffix+DarkSuffix)
	}
	if dangerous {
		candidates = append(candidates, base+DangerousSuffix)
	}
	if dark {
		candidates = append(candidates, base+DarkSuffix)
	}
	if l.assets == nil {
		return base
	}
	for _, name := range candidates {
		if l.assets.HasMapAsset(name) {
			return name
		}
	}
	return base
}

// desertTemplate returns the template a desert level uses on a day. Each
// level draws from [1,40) skipping elevator templates and whatever the
// previous level drew, so the chain is walked from the first desert level.
func (l *Loader) desertTemplate(level, day int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t, ok := l.desert[[2]int{day, level}]; ok {
		return t
	}
	start, prev := DesertStart, 0
	for n := level - 1; n >= DesertStart; n-- {
		if t, ok := l.desert[[2]int{day, n}]; ok {
			start, prev = n+1, t
			break
		}
	}
	for n := start; n <= level; n++ {
		prev = l.drawTemplate(n, day, prev)
		l.desert[[2]int{day, n}] = prev
	}
	return prev
}

func (l *Loader) drawTemplate(level, day, avoid int) int {
	rng := l.seeds.LevelRand(day, level, seed.SaltTemplate)
	for {
		t := 1 + rng.Intn(39)
		if t%5 != 0 && t != avoid {
			return t
		}
	}
}

// ForgetDay drops cached desert draws for days before day.
func (l *Loader) ForgetDay(day int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.desert {
		if key[0] < day {
			delete(l.desert, key)
		}
	}
}
