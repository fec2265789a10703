package mine

import (
	"fmt"
	"math/rand"

	"github.com/aquilax/go-perlin"

	"github.com/lawnchairsociety/minedepths/internal/seed"
)

// Params are the session inputs to a populate pass.
type Params struct {
	Difficulty   int
	MonsterBan   bool
	MonsterSurge bool
	Info         *Info // quotas; updated in place
	FirstVisit   bool
}

// Populator fills a loaded level with stones, monsters, items and fixtures.
type Populator struct {
	rules    *Rules
	scaler   *Scaler
	monsters MonsterFactory
	items    ItemFactory
	seeds    seed.Provider
}

// NewPopulator creates a populator. monsters and items may be nil; without
// a monster factory no monsters spawn.
func NewPopulator(rules *Rules, scaler *Scaler, monsters MonsterFactory, items ItemFactory, seeds seed.Provider) *Populator {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Populator{rules: rules, scaler: scaler, monsters: monsters, items: items, seeds: seeds}
}

// Populate fills l in place and returns the chances it used. The same
// level, grid, rng seed and params always produce the same content.
func (p *Populator) Populate(l *Level, rng *rand.Rand, params Params) Chances {
	rule := p.rules.RangeFor(l.Number)
	style := p.rules.Style(l.Area)
	chances := p.scaler.AdjustChances(rule.Chances, ChanceContext{
		Level:        l.Number,
		Area:         l.Area,
		MustKill:     l.MonsterArea,
		MonsterBan:   params.MonsterBan,
		MonsterSurge: params.MonsterSurge,
		Difficulty:   params.Difficulty,
	})
	density := perlin.NewPerlin(2, 2, 3, p.seeds.Level(l.Day, l.Number, seed.SaltContent))

	p.placeMinerPaths(l, rng)

	clumps := style.Clumps
	if l.Rainbow {
		clumps = []string{"rainbow_mushroom"}
	}

	for _, c := range clearTiles(l) {
		if !l.IsClear(c) {
			continue
		}
		switch {
		case roll(rng, chances.Stone):
			p.placeStone(l, rng, c, rule, chances, density)
		case roll(rng, chances.Monster):
			p.spawnMonster(l, rng, c, params.Difficulty)
		case roll(rng, chances.Item):
			p.placeLoot(l, ObjectItem, c, pick(rng, rule.Items))
		case roll(rng, chances.Gem):
			p.placeLoot(l, ObjectGem, c, pick(rng, rule.Gems))
		case roll(rng, chances.Clump):
			p.placeClump(l, rng, c, pick(rng, clumps))
		case roll(rng, p.rules.DecorationChance):
			if name := pick(rng, style.Decorations); name != "" {
				l.Place(&Placeable{Kind: ObjectDecoration, Name: name, Pos: c})
			}
		}
	}

	p.decluster(l, rng, chances, params.Difficulty)
	p.placeContainers(l, rng, params)
	p.placeChest(l, params)
	p.placeCoalCarts(l, params)

	l.StonesRemaining = l.CountObjects(ObjectStone)
	return chances
}

// placeStone puts a stone on c. Ore stones grow into a short vein whose
// odds follow the level's perlin density field.
func (p *Populator) placeStone(l *Level, rng *rand.Rand, c Coord, rule RangeRule, chances Chances, density *perlin.Perlin) {
	stone := &Placeable{Kind: ObjectStone, Name: "stone", Pos: c}
	if !l.Place(stone) {
		return
	}
	if rule.Ore == "" {
		return
	}
	// Noise2D is roughly [-1, 1]; shift it to a [0, 2] multiplier.
	bias := density.Noise2D(float64(c.X)/8, float64(c.Y)/8) + 1
	if !roll(rng, chances.Ore*bias) {
		return
	}
	stone.Ore = rule.Ore
	stone.Name = rule.Ore

	length := 1 + rng.Intn(max(1, p.rules.OreVeinLength))
	randomWalk(l, rng, c, length, func(t Coord) bool {
		return l.Place(&Placeable{Kind: ObjectStone, Name: rule.Ore, Ore: rule.Ore, Pos: t})
	})
}

// spawnMonster creates a monster on c unless c is too close to the entry ladder.
func (p *Populator) spawnMonster(l *Level, rng *rand.Rand, c Coord, difficulty int) {
	if p.monsters == nil || c.Distance(l.LadderUp) <= p.rules.EntryClearRadius {
		return
	}
	kind := p.scaler.MonsterKind(l, rng)
	m := p.monsters.CreateMonster(kind, c, l.Context(difficulty))
	if m == nil {
		return
	}
	m.Pos = c
	p.scaler.Prepare(m, l.Number, difficulty)
	l.AddMonster(m)
}

func (p *Populator) placeLoot(l *Level, kind ObjectKind, c Coord, id string) {
	if id == "" {
		return
	}
	item := p.createItem(id, 1)
	l.Place(&Placeable{Kind: kind, Name: id, Pos: c, Item: &item})
}

// placeClump grows a resource clump of one to three tiles from c.
func (p *Populator) placeClump(l *Level, rng *rand.Rand, c Coord, name string) {
	if name == "" || !l.Place(&Placeable{Kind: ObjectClump, Name: name, Pos: c}) {
		return
	}
	randomWalk(l, rng, c, rng.Intn(3), func(t Coord) bool {
		return l.Place(&Placeable{Kind: ObjectClump, Name: name, Pos: t})
	})
}

// placeMinerPaths lays old mine-cart track trails before anything else claims the floor.
func (p *Populator) placeMinerPaths(l *Level, rng *rand.Rand) {
	if l.Area == AreaQuarry || l.MonsterArea {
		return
	}
	tiles := clearTiles(l)
	if len(tiles) == 0 {
		return
	}
	for i := 0; i < p.rules.MinerPaths; i++ {
		start := tiles[rng.Intn(len(tiles))]
		if !l.Place(&Placeable{Kind: ObjectDecoration, Name: "old_track", Pos: start}) {
			continue
		}
		randomWalk(l, rng, start, 6+rng.Intn(10), func(t Coord) bool {
			return l.Place(&Placeable{Kind: ObjectDecoration, Name: "old_track", Pos: t})
		})
	}
}

// decluster breaks up solid stone fields: for every full threshold of
// stones one random stone has a radius of 1-3 cleared around it, and each
// cleared tile rolls half the monster chance.
func (p *Populator) decluster(l *Level, rng *rand.Rand, chances Chances, difficulty int) {
	threshold := p.rules.ClusterThreshold
	if threshold <= 0 {
		return
	}
	stones := l.CountObjects(ObjectStone)
	if stones <= threshold {
		return
	}
	passes := stones / threshold
	for i := 0; i < passes; i++ {
		all := objectsOf(l, ObjectStone)
		if len(all) == 0 {
			return
		}
		center := all[rng.Intn(len(all))]
		radius := 1 + rng.Intn(3)
		for _, c := range clearRadius(l, center, radius, ObjectStone) {
			if roll(rng, chances.Monster/2) {
				p.spawnMonster(l, rng, c, difficulty)
			}
		}
	}
}

// placeContainers puts barrels where edge rays first meet open floor. A
// first visit, or the first one after the quota was rotated, places every
// barrel and sets the quota; later visits are capped by it.
func (p *Populator) placeContainers(l *Level, rng *rand.Rand, params Params) {
	if params.Info == nil {
		return
	}
	derive := params.FirstVisit || params.Info.PlatformContainersLeft == ContainersUnset
	spots := edgeRays(l, rng, p.rules.BarrelRays)
	if !derive && len(spots) > params.Info.PlatformContainersLeft {
		spots = spots[:max(0, params.Info.PlatformContainersLeft)]
	}
	placed := 0
	for _, c := range spots {
		if l.Place(&Placeable{Kind: ObjectBarrel, Name: "barrel", Pos: c}) {
			placed++
		}
	}
	if derive {
		params.Info.PlatformContainersLeft = placed
	}
}

// placeChest puts the reward chest on checkpoint levels while the quota lasts.
func (p *Populator) placeChest(l *Level, params Params) {
	if params.Info == nil || params.Info.ChestsLeft <= 0 || l.Number%10 != 0 || IsDesert(l.Number) {
		return
	}
	item := p.createItem(fmt.Sprintf("mine_reward_%d", l.Number), 1)
	chest := &Placeable{Kind: ObjectChest, Name: "treasure_chest", Item: &item}

	if spots := l.templateTiles(ActionChest); len(spots) > 0 {
		chest.Pos = spots[0]
		l.placeFixture(chest)
		return
	}
	w, h := l.grid.Size()
	if c, ok := nearestFree(l, Coord{X: w / 2, Y: h / 2}, max(w, h)/2); ok {
		chest.Pos = c
		l.Place(chest)
	}
}

// placeCoalCarts fills every template cart tile; carts hold coal only while the quota lasts.
func (p *Populator) placeCoalCarts(l *Level, params Params) {
	for _, c := range l.templateTiles(ActionCoalCart) {
		cart := &Placeable{Kind: ObjectCoalCart, Name: "coal_cart_empty", Pos: c}
		if params.Info != nil && params.Info.CoalCartsLeft > 0 {
			coal := p.createItem("coal", 1)
			cart.Name = "coal_cart"
			cart.Item = &coal
		}
		l.placeFixture(cart)
	}
}

func (p *Populator) createItem(id string, quantity int) Item {
	if p.items == nil {
		return Item{ID: id, Quantity: quantity}
	}
	return p.items.CreateItem(id, quantity)
}
