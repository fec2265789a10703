package mine

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/lawnchairsociety/minedepths/internal/events"
	"github.com/lawnchairsociety/minedepths/internal/gametime"
	"github.com/lawnchairsociety/minedepths/internal/logger"
	"github.com/lawnchairsociety/minedepths/internal/seed"
)

var (
	// ErrUnknownLevel is returned for operations on a level that is not active.
	ErrUnknownLevel = errors.New("mine level is not active")
	// ErrNoObject is returned when the tile does not hold the expected object.
	ErrNoObject = errors.New("no matching object on tile")
)

// HostParticipant is the queue participant name the registry polls as.
const HostParticipant = "host"

// Observer receives registry activity, e.g. for metrics.
type Observer interface {
	LevelGenerated(level int, area AreaID)
	LevelPruned(level int)
	LadderPlaced(level int, kind ExitKind)
	ActiveLevels(n int)
	EventApplied(kind events.Kind)
}

type nopObserver struct{}

func (nopObserver) LevelGenerated(int, AreaID) {}
func (nopObserver) LevelPruned(int) {}
func (nopObserver) LadderPlaced(int, ExitKind) {}
func (nopObserver) ActiveLevels(int) {}
func (nopObserver) EventApplied(events.Kind) {}

// Options wire a registry to its collaborators. Session is required;
// every other field has a working default.
type Options struct {
	Rules         *Rules
	Seeds         seed.Provider
	Assets        AssetLoader
	Monsters      MonsterFactory
	Items         ItemFactory
	Sprites       SpriteCatalog
	Store         InfoStore
	Queue         *events.Queue
	Session       Session
	Observer      Observer
	ElevatorDelay time.Duration
	Participant   string
}

type disconnect struct {
	name  string
	level int
	day   int
}

// Registry owns every live mine level. At most one instance exists per
// level number.
type Registry struct {
	levels map[int]*Level

	rules     *Rules
	seeds     seed.Provider
	assets    AssetLoader
	loader    *Loader
	scaler    *Scaler
	populator *Populator
	gates     *ExitGates
	store     InfoStore
	queue     *events.Queue
	session   Session
	observer  Observer

	participant  string
	hooks        []LevelReachedHook
	disconnects  []disconnect
	deepestToday map[Branch]int
	rainbowSeen  map[int]int // level -> day the rainbow variant last appeared

	mu sync.Mutex
}

// NewRegistry creates a registry and joins its participant to the queue.
func NewRegistry(opts Options) *Registry {
	if opts.Rules == nil {
		opts.Rules = DefaultRules()
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Queue == nil {
		opts.Queue = events.NewQueue()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Participant == "" {
		opts.Participant = HostParticipant
	}

	scaler := NewScaler(opts.Rules, opts.Sprites)
	r := &Registry{
		levels:       make(map[int]*Level),
		rules:        opts.Rules,
		seeds:        opts.Seeds,
		assets:       opts.Assets,
		loader:       NewLoader(opts.Rules, opts.Seeds, opts.Assets),
		scaler:       scaler,
		populator:    NewPopulator(opts.Rules, scaler, opts.Monsters, opts.Items, opts.Seeds),
		gates:        NewExitGates(opts.Rules, opts.Seeds, opts.Queue, opts.ElevatorDelay),
		store:        opts.Store,
		queue:        opts.Queue,
		session:      opts.Session,
		observer:     opts.Observer,
		participant:  opts.Participant,
		deepestToday: make(map[Branch]int),
		rainbowSeen:  make(map[int]int),
	}
	r.queue.Join(r.participant)
	return r
}

// Scaler returns the registry's difficulty scaler.
func (r *Registry) Scaler() *Scaler {
	return r.scaler
}

// OnLevelReached registers a hook fired the first time any level is visited.
func (r *Registry) OnLevelReached(hook LevelReachedHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// GetMine returns the level for a location name such as "UndergroundMine12".
// A malformed name is logged and treated as level 0.
func (r *Registry) GetMine(name string) *Level {
	level, err := ParseLevelName(name)
	if err != nil {
		logger.Warning("malformed mine level name, using level 0", "name", name, "error", err)
		level = 0
	}
	return r.EnterLevel(level)
}

// EnterLevel returns the live instance of a level, generating it on first
// entry.
func (r *Registry) EnterLevel(level int) *Level {
	if level < 0 {
		logger.Warning("negative mine level, using level 0", "level", level)
		level = 0
	}

	r.mu.Lock()
	if l, ok := r.levels[level]; ok {
		r.mu.Unlock()
		return l
	}
	l, firstVisit := r.createLevelLocked(level)
	r.levels[level] = l
	if branch := BranchOf(level); level > r.deepestToday[branch] {
		r.deepestToday[branch] = level
	}
	r.observer.ActiveLevels(len(r.levels))
	var hooks []LevelReachedHook
	if firstVisit {
		hooks = append(hooks, r.hooks...)
	}
	r.mu.Unlock()

	for _, hook := range hooks {
		hook(level)
	}
	return l
}

func (r *Registry) createLevelLocked(number int) (*Level, bool) {
	day := r.session.Day()
	year := gametime.DateFromDaysPlayed(day).Year
	log := logger.Mine(number)

	info, found, err := r.store.GetInfo(number)
	if err != nil {
		log.Warn("mine info lookup failed, treating as first visit", "error", err)
		found = false
	}
	firstVisit := !found
	if firstVisit {
		info = NewInfo(number, year, r.rules)
	}

	params := r.sessionParams()
	res := r.loader.Load(number, day, LoadOptions{
		RainbowSeenToday: r.rainbowSeen[number] == day,
		Dangerous:        params.Difficulty > 0,
	})
	if res.Rainbow {
		r.rainbowSeen[number] = day
	}

	l := newLevel(number, day, r.loadGrid(res))
	l.Area = res.Area
	l.Overrides = res.Overrides
	l.Template = res.Template
	l.MapAsset = res.MapAsset
	l.Lighting = res.Lighting
	l.Fog = res.Fog
	l.Music = res.Music
	l.Dark = res.Dark
	l.Rainbow = res.Rainbow
	l.MonsterArea = res.MonsterArea
	l.SlimeArea = res.SlimeArea
	l.DinoArea = res.DinoArea
	l.LadderUp = entryTile(l)

	params.Info = &info
	params.FirstVisit = firstVisit
	r.populator.Populate(l, r.seeds.LevelRand(day, number, seed.SaltContent), params)
	r.gates.Seed(l, &info, r.seeds.LevelRand(day, number, seed.SaltLadder), r.session.IsHost())

	if r.session.IsHost() {
		if err := r.store.PutInfo(info); err != nil {
			log.Error("failed to save mine info", "error", err)
		}
		if firstVisit && number != QuarryLevel {
			if err := r.store.SetDeepestLevel(number); err != nil {
				log.Error("failed to save deepest level", "error", err)
			}
		}
	}

	log.Info("level generated",
		"area", l.Area.String(),
		"template", l.MapAsset,
		"dark", l.Dark,
		"must_kill", l.MonsterArea,
		"stones", l.StonesRemaining,
		"monsters", l.MonsterCount(),
		"first_visit", firstVisit)
	r.observer.LevelGenerated(number, l.Area)
	return l, firstVisit
}

// loadGrid loads the resolved asset, then the base template, then falls
// back to a plain room.
func (r *Registry) loadGrid(res LoadResult) Grid {
	if r.assets != nil {
		grid, err := r.assets.LoadMapAsset(res.MapAsset)
		if err == nil {
			return grid
		}
		logger.Warning("map asset failed to load", "asset", res.MapAsset, "error", err)
		if base := TemplateName(res.Template); base != res.MapAsset {
			if grid, err := r.assets.LoadMapAsset(base); err == nil {
				return grid
			}
		}
	}
	return FallbackGrid(40, 30)
}

// entryTile finds the template's entry ladder, or the floor tile closest
// to the top centre.
func entryTile(l *Level) Coord {
	if tiles := l.templateTiles(ActionLadder); len(tiles) > 0 {
		return tiles[0]
	}
	w, h := l.grid.Size()
	if c, ok := nearestFree(l, Coord{X: w / 2, Y: 1}, max(w, h)); ok {
		return c
	}
	return Coord{X: w / 2, Y: 1}
}

// sessionParams folds the players' difficulty settings and buffs: the
// highest difficulty applies and any player's buff counts.
func (r *Registry) sessionParams() Params {
	var p Params
	for _, player := range r.session.Players() {
		p.Difficulty = max(p.Difficulty, player.AdditionalDifficulty)
		p.MonsterBan = p.MonsterBan || player.Has(BuffMonsterBan)
		p.MonsterSurge = p.MonsterSurge || player.Has(BuffMonsterSurge)
	}
	return p
}

func (r *Registry) player(name string) PlayerState {
	for _, p := range r.session.Players() {
		if p.Name == name {
			return p
		}
	}
	return PlayerState{Name: name, Level: -1}
}

// Level returns a live level without creating it.
func (r *Registry) Level(level int) (*Level, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.levels[level]
	return l, ok
}

// ActiveLevels returns the live level numbers in ascending order.
func (r *Registry) ActiveLevels() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeLocked()
}

func (r *Registry) activeLocked() []int {
	out := make([]int, 0, len(r.levels))
	for n := range r.levels {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// DeepestLevelReached returns the deepest level ever entered.
func (r *Registry) DeepestLevelReached() int {
	deepest, err := r.store.DeepestLevel()
	if err != nil {
		logger.Error("failed to read deepest level", "error", err)
		return 0
	}
	return deepest
}

// DeepestToday returns the deepest level entered today in a branch.
func (r *Registry) DeepestToday(branch Branch) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deepestToday[branch]
}

// RecordDisconnect remembers where a player dropped out today so their
// level survives pruning until they come back.
func (r *Registry) RecordDisconnect(name string, level int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects = append(r.disconnects, disconnect{name: name, level: level, day: r.session.Day()})
}

// PruneInactive drops levels nobody needs. Per branch, the frontier is the
// deepest level holding a player or today's disconnect record; unoccupied
// levels below it are removed, and a branch with nobody in it loses every
// unoccupied level. The quarry is never pruned. It returns the
// removed level numbers in ascending order.
func (r *Registry) PruneInactive() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	day := r.session.Day()
	occupants := make(map[int]int)
	frontier := make(map[Branch]int)
	present := make(map[Branch]bool)
	note := func(level int) {
		b := BranchOf(level)
		if !present[b] || level > frontier[b] {
			frontier[b] = level
		}
		present[b] = true
	}
	for _, p := range r.session.Players() {
		if !p.InMines() {
			continue
		}
		occupants[p.Level]++
		note(p.Level)
	}
	for _, d := range r.disconnects {
		if d.day == day {
			note(d.level)
		}
	}

	var removed []int
	for _, n := range r.activeLocked() {
		b := BranchOf(n)
		if b == BranchQuarry || occupants[n] > 0 {
			continue
		}
		if present[b] && n >= frontier[b] {
			continue
		}
		delete(r.levels, n)
		removed = append(removed, n)
		r.observer.LevelPruned(n)
	}

	if len(r.levels) == 0 {
		r.deepestToday = make(map[Branch]int)
	}
	if len(removed) > 0 {
		logger.Debug("pruned inactive mine levels", "levels", fmt.Sprint(removed), "active", len(r.levels))
	}
	r.observer.ActiveLevels(len(r.levels))
	return removed
}

// OnMonsterKilled removes a monster. On a must-kill level the last kill
// moves the ladder to pending in the same call.
func (r *Registry) OnMonsterKilled(level, monsterID int, killer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.session.IsHost() {
		return nil
	}
	l, ok := r.levels[level]
	if !ok {
		return fmt.Errorf("monster killed on level %d: %w", level, ErrUnknownLevel)
	}
	m, ok := l.RemoveMonster(monsterID)
	if !ok {
		return fmt.Errorf("monster %d on level %d: %w", monsterID, level, ErrNoObject)
	}
	r.queue.Fire(events.Event{Level: level, Kind: events.KindMonsterDied, X: m.Pos.X, Y: m.Pos.Y, Ref: strconv.Itoa(monsterID)})
	if r.gates.MonsterKilled(l, m) {
		logger.Mine(level).Debug("ladder pending after monster kill", "killer", killer, "monster", m.Kind)
	}
	return nil
}

// OnStoneBroken removes a stone, returns its drops and may open the ladder.
func (r *Registry) OnStoneBroken(level int, c Coord, playerName string) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.session.IsHost() {
		return nil, nil
	}
	l, ok := r.levels[level]
	if !ok {
		return nil, fmt.Errorf("stone broken on level %d: %w", level, ErrUnknownLevel)
	}
	stone, ok := l.Objects[c]
	if !ok || stone.Kind != ObjectStone {
		return nil, fmt.Errorf("stone at %s on level %d: %w", c, level, ErrNoObject)
	}
	removeStone(l, c)

	var drops []Item
	if stone.Ore != "" {
		rng := r.seeds.TileRand(l.Day, level, c.X, c.Y, seed.SaltLoot)
		drops = append(drops, r.populator.createItem(stone.Ore, 1+rng.Intn(3)))
	}
	r.queue.Fire(events.Event{Level: level, Kind: events.KindStoneBroken, X: c.X, Y: c.Y, Ref: stone.Ore})

	p := r.player(playerName)
	r.gates.StoneBroken(l, c, p.Luck, p.Has(BuffLadderLuck))
	return drops, nil
}

// removeStone deletes the stone on c and keeps the count from going negative.
func removeStone(l *Level, c Coord) bool {
	if p, ok := l.Objects[c]; !ok || p.Kind != ObjectStone {
		return false
	}
	delete(l.Objects, c)
	if l.StonesRemaining > 0 {
		l.StonesRemaining--
	}
	return true
}

// OnChestOpened empties the reward chest and spends the level's chest quota.
func (r *Registry) OnChestOpened(level int, c Coord) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, chest, err := r.objectLocked(level, c, ObjectChest)
	if err != nil {
		return Item{}, err
	}
	delete(l.Objects, c)
	var item Item
	if chest.Item != nil {
		item = *chest.Item
	}
	r.updateInfoLocked(level, func(info *Info) {
		info.ChestsLeft = max(0, info.ChestsLeft-1)
	})
	return item, nil
}

// UseCoalCart takes the coal from a cart. It reports false when the cart
// is empty or the level's cart quota is spent.
func (r *Registry) UseCoalCart(level int, c Coord) (Item, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, cart, err := r.objectLocked(level, c, ObjectCoalCart)
	if err != nil {
		return Item{}, false, err
	}
	if cart.Item == nil {
		return Item{}, false, nil
	}
	info := r.infoLocked(level)
	if info.CoalCartsLeft <= 0 {
		return Item{}, false, nil
	}
	item := *cart.Item
	cart.Item = nil
	cart.Name = "coal_cart_empty"
	r.updateInfoLocked(level, func(info *Info) {
		info.CoalCartsLeft--
	})
	return item, true, nil
}

// OnContainerBroken removes a barrel and spends the container quota.
func (r *Registry) OnContainerBroken(level int, c Coord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, _, err := r.objectLocked(level, c, ObjectBarrel)
	if err != nil {
		return err
	}
	delete(l.Objects, c)
	r.updateInfoLocked(level, func(info *Info) {
		if info.PlatformContainersLeft > 0 {
			info.PlatformContainersLeft--
		}
	})
	return nil
}

func (r *Registry) objectLocked(level int, c Coord, kind ObjectKind) (*Level, *Placeable, error) {
	l, ok := r.levels[level]
	if !ok {
		return nil, nil, fmt.Errorf("level %d: %w", level, ErrUnknownLevel)
	}
	p, ok := l.Objects[c]
	if !ok || p.Kind != kind {
		return nil, nil, fmt.Errorf("%s at %s on level %d: %w", kind, c, level, ErrNoObject)
	}
	return l, p, nil
}

func (r *Registry) infoLocked(level int) Info {
	info, ok, err := r.store.GetInfo(level)
	if err != nil {
		logger.Mine(level).Warn("mine info lookup failed", "error", err)
	}
	if !ok {
		info = NewInfo(level, gametime.DateFromDaysPlayed(r.session.Day()).Year, r.rules)
	}
	return info
}

func (r *Registry) updateInfoLocked(level int, fn func(*Info)) {
	info := r.infoLocked(level)
	fn(&info)
	if !r.session.IsHost() {
		return
	}
	if err := r.store.PutInfo(info); err != nil {
		logger.Mine(level).Error("failed to save mine info", "error", err)
	}
}

// FallThroughShaft drops from a level with a shaft to the level it leads to.
func (r *Registry) FallThroughShaft(level int) (*Level, error) {
	r.mu.Lock()
	l, ok := r.levels[level]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("shaft on level %d: %w", level, ErrUnknownLevel)
	}
	if l.Ladder == nil || l.Ladder.Kind != ExitShaft {
		r.mu.Unlock()
		return nil, fmt.Errorf("shaft on level %d: %w", level, ErrNoObject)
	}
	drop := r.gates.ShaftDrop(r.seeds.TileRand(l.Day, level, l.Ladder.Pos.X, l.Ladder.Pos.Y, seed.SaltLadder))
	r.mu.Unlock()

	return r.EnterLevel(level + drop), nil
}

// DailyReset clears the per-day trackers. On the first day of a year it
// also rotates every persisted quota, keeping elevators that were reached.
func (r *Registry) DailyReset() {
	day := r.session.Day()
	today := gametime.DateFromDaysPlayed(day)

	r.mu.Lock()
	r.disconnects = nil
	r.deepestToday = make(map[Branch]int)
	r.rainbowSeen = make(map[int]int)
	r.mu.Unlock()
	r.loader.ForgetDay(day)

	if !today.IsFirstDayOfYear() || !r.session.IsHost() {
		return
	}
	infos, err := r.store.AllInfo()
	if err != nil {
		logger.Error("failed to list mine info for year rotation", "error", err)
		return
	}
	rotated := 0
	for _, info := range infos {
		if info.Year >= today.Year {
			continue
		}
		info.resetQuotas(r.rules)
		info.Year = today.Year
		if err := r.store.PutInfo(info); err != nil {
			logger.Error("failed to rotate mine info", "level", info.Level, "error", err)
			continue
		}
		rotated++
	}
	logger.Info("rotated mine quotas for the new year", "year", today.Year, "levels", rotated)
}

// Update advances every live level by dt and applies queued events.
func (r *Registry) Update(dt time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	host := r.session.IsHost()
	for _, n := range r.activeLocked() {
		l := r.levels[n]
		if l.Fog.Active {
			l.Fog.Remaining -= dt.Seconds()
			if l.Fog.Remaining <= 0 {
				l.Fog.Remaining = 0
				l.Fog.Active = false
			}
		}
		if host && r.gates.Tick(l, dt) {
			r.updateInfoLocked(n, func(info *Info) {
				info.ElevatorPlaced = true
			})
		}
	}

	if _, err := r.queue.Poll(r.participant, r.applyLocked); err != nil {
		logger.Error("failed to poll mine events", "participant", r.participant, "error", err)
	}
}

// applyLocked applies one queued event to its level. Events for levels
// that are not live are dropped.
func (r *Registry) applyLocked(e events.Event) {
	l, ok := r.levels[e.Level]
	if !ok {
		logger.Debug("dropping event for inactive level", "level", e.Level, "kind", string(e.Kind))
		return
	}
	switch e.Kind {
	case events.KindLadder, events.KindShaft:
		if r.gates.ApplyExit(l, e) {
			r.observer.LadderPlaced(e.Level, l.Ladder.Kind)
			logger.Mine(e.Level).Info("exit placed", "kind", l.Ladder.Kind.String(), "at", l.Ladder.Pos.String())
		}
	case events.KindElevatorLit:
		if r.gates.ApplyElevatorLit(l, e) {
			logger.Mine(e.Level).Info("elevator lit")
		}
	case events.KindStoneBroken:
		removeStone(l, Coord{X: e.X, Y: e.Y})
	case events.KindMonsterDied:
		if id, err := strconv.Atoi(e.Ref); err == nil {
			l.RemoveMonster(id)
		}
	}
	r.observer.EventApplied(e.Kind)
}
