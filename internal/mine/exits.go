package mine

import (
	"math/rand"
	"time"

	"github.com/lawnchairsociety/minedepths/internal/events"
	"github.com/lawnchairsociety/minedepths/internal/logger"
	"github.com/lawnchairsociety/minedepths/internal/seed"
)

// DefaultElevatorDelay is how long after entry a new elevator lights.
const DefaultElevatorDelay = 1500 * time.Millisecond

// ShouldCreateLadder reports whether a level may ever get a ladder down.
func ShouldCreateLadder(level int) bool {
	return level != BottomLevel && level != QuarryLevel
}

// LadderChance is the chance a broken stone reveals the ladder. It is not
// clamped; the draw clamps it.
func LadderChance(stonesLeft, monstersLeft int, luck float64, ladderLuck bool) float64 {
	chance := 0.02 + 1.0/float64(max(1, stonesLeft)) + luck/100
	if monstersLeft == 0 {
		chance += 0.04
	}
	if ladderLuck {
		chance *= 1.25
	}
	return chance
}

// ExitGates drives the ladder and elevator state machines of a level.
// Transitions fire events; applying an event is what places an exit.
type ExitGates struct {
	rules         *Rules
	seeds         seed.Provider
	queue         *events.Queue
	elevatorDelay time.Duration
}

// NewExitGates creates the gate manager. A non-positive delay uses DefaultElevatorDelay.
func NewExitGates(rules *Rules, seeds seed.Provider, queue *events.Queue, elevatorDelay time.Duration) *ExitGates {
	if rules == nil {
		rules = DefaultRules()
	}
	if elevatorDelay <= 0 {
		elevatorDelay = DefaultElevatorDelay
	}
	return &ExitGates{rules: rules, seeds: seeds, queue: queue, elevatorDelay: elevatorDelay}
}

// Seed places the fixed exits of a freshly populated level: the template
// ladder (or one seeded ladder on elevator levels whose template has none)
// and the elevator. Only the host opens a must-kill level that spawned
// empty; participants wait for its event.
func (g *ExitGates) Seed(l *Level, info *Info, rng *rand.Rand, host bool) {
	if ShouldCreateLadder(l.Number) {
		if fixed := l.templateTiles(ActionLadderDown); len(fixed) > 0 {
			l.Ladder = &Exit{Kind: ExitLadder, Pos: fixed[0]}
			l.LadderState = LadderPlaced
		} else if l.Number%5 == 0 && !IsDesert(l.Number) {
			var spots []Coord
			for _, c := range clearTiles(l) {
				if c.Distance(l.LadderUp) > 2 {
					spots = append(spots, c)
				}
			}
			if len(spots) > 0 {
				l.Ladder = &Exit{Kind: ExitLadder, Pos: spots[rng.Intn(len(spots))]}
				l.LadderState = LadderPlaced
			}
		}
	}

	if IsElevatorLevel(l.Number) {
		var pos Coord
		var ok bool
		if fixed := l.templateTiles(ActionElevator); len(fixed) > 0 {
			pos, ok = fixed[0], true
		} else {
			pos, ok = nearestFree(l, l.LadderUp.Offset(2, 0), 4)
		}
		if ok {
			l.Elevator = &pos
			if info != nil && info.ElevatorPlaced {
				l.ElevatorState = ElevatorLit
			} else {
				l.ElevatorState = ElevatorPending
				l.elevatorTimer = g.elevatorDelay
			}
		}
	}

	if host && l.MonsterArea && l.MonsterCount() == 0 {
		g.RequestLadder(l, l.LadderUp.Offset(0, 2), rng)
	}
}

// RequestLadder moves the level to LadderPending and fires the placement
// event. It refuses levels that already have (or are about to get) their
// one ladder, levels that never get one, and targets with no free tile
// within the search radius.
func (g *ExitGates) RequestLadder(l *Level, at Coord, rng *rand.Rand) bool {
	if !ShouldCreateLadder(l.Number) || l.LadderState != NoExit {
		return false
	}
	pos, ok := nearestFree(l, at, g.rules.ExitSearchRadius)
	if !ok {
		logger.Mine(l.Number).Debug("no free tile for ladder", "near", at.String())
		return false
	}

	exit := Exit{Kind: ExitLadder, Pos: pos}
	if IsDesert(l.Number) && roll(rng, g.rules.ShaftChance) {
		exit.Kind = ExitShaft
	}
	kind := events.KindLadder
	if exit.Kind == ExitShaft {
		kind = events.KindShaft
	}

	l.LadderState = LadderPending
	l.pendingExit = &exit
	g.queue.Fire(events.Event{Level: l.Number, Kind: kind, X: pos.X, Y: pos.Y})
	return true
}

// StoneBroken rolls for a ladder after a stone on c was removed. The last
// stone always opens the ladder. Must-kill levels never open on stones.
func (g *ExitGates) StoneBroken(l *Level, c Coord, luck float64, ladderLuck bool) bool {
	if l.MonsterArea {
		return false
	}
	rng := g.seeds.TileRand(l.Day, l.Number, c.X, c.Y, seed.SaltLadder)
	chance := LadderChance(l.StonesRemaining, l.MonsterCount(), luck, ladderLuck)
	if l.StonesRemaining > 0 && !roll(rng, chance) {
		return false
	}
	return g.RequestLadder(l, c, rng)
}

// MonsterKilled reacts to a removed monster: clearing a must-kill level
// opens the ladder at once, elsewhere the monster may drop one.
func (g *ExitGates) MonsterKilled(l *Level, m *Monster) bool {
	rng := g.seeds.TileRand(l.Day, l.Number, m.Pos.X, m.Pos.Y, seed.SaltLoot*1000+int64(m.ID))
	if l.MonsterArea {
		if l.MonsterCount() > 0 {
			return false
		}
		return g.RequestLadder(l, m.Pos, rng)
	}
	if !roll(rng, g.rules.MonsterLadderChance) {
		return false
	}
	return g.RequestLadder(l, m.Pos, rng)
}

// Tick advances the elevator timer and fires the lit event when it runs
// out. It reports whether the event fired.
func (g *ExitGates) Tick(l *Level, dt time.Duration) bool {
	if l.ElevatorState != ElevatorPending || l.elevatorFired {
		return false
	}
	l.elevatorTimer -= dt
	if l.elevatorTimer > 0 {
		return false
	}
	l.elevatorFired = true
	pos := *l.Elevator
	g.queue.Fire(events.Event{Level: l.Number, Kind: events.KindElevatorLit, X: pos.X, Y: pos.Y})
	return true
}

// ApplyExit places the exit an event announced. Applying the same
// placement twice, or any placement once the level has its exit, does
// nothing. When the tile has been taken meanwhile the nearest free tile is
// used, and the placement is dropped if there is none.
func (g *ExitGates) ApplyExit(l *Level, e events.Event) bool {
	if l.Ladder != nil {
		return false
	}
	kind := ExitLadder
	if e.Kind == events.KindShaft {
		kind = ExitShaft
	}
	l.pendingExit = nil
	pos, ok := nearestFree(l, Coord{X: e.X, Y: e.Y}, g.rules.ExitSearchRadius)
	if !ok {
		l.LadderState = NoExit
		return false
	}
	l.Ladder = &Exit{Kind: kind, Pos: pos}
	l.LadderState = LadderPlaced
	return true
}

// ApplyElevatorLit lights the elevator.
func (g *ExitGates) ApplyElevatorLit(l *Level, e events.Event) bool {
	if l.ElevatorState == ElevatorLit {
		return false
	}
	if l.Elevator == nil {
		pos := Coord{X: e.X, Y: e.Y}
		l.Elevator = &pos
	}
	l.ElevatorState = ElevatorLit
	l.ElevatorDinged = true
	return true
}

// ShaftDrop rolls how many levels a fall through a shaft skips.
func (g *ExitGates) ShaftDrop(rng *rand.Rand) int {
	lo, hi := g.rules.ShaftMinDrop, g.rules.ShaftMaxDrop
	if hi < lo {
		hi = lo
	}
	return lo + rng.Intn(hi-lo+1)
}
