package mine

// Map layers consulted for tile properties.
const (
	LayerBack      = "Back"
	LayerBuildings = "Buildings"
)

// Tile property keys.
const (
	PropType   = "Type"   // Back layer: Stone, Dirt
	PropAction = "Action" // Buildings layer
	PropSolid  = "Solid"  // Buildings layer: "T" for walls
)

// Buildings-layer actions a template may carry.
const (
	ActionLadder     = "Ladder"
	ActionLadderDown = "LadderDown"
	ActionElevator   = "Elevator"
	ActionChest      = "Chest"
	ActionCoalCart   = "CoalCart"
)

// Grid is a loaded tile map.
type Grid interface {
	Size() (w, h int)
	TileProperty(c Coord, layer, key string) (string, bool)
}

// AssetLoader resolves map assets by name.
type AssetLoader interface {
	LoadMapAsset(name string) (Grid, error)
	HasMapAsset(name string) bool
}

// LevelContext is what a factory needs to know about the level a monster spawns on.
type LevelContext struct {
	Level      int
	Area       AreaID
	Dark       bool
	Difficulty int
}

// MonsterFactory builds monsters by kind.
type MonsterFactory interface {
	CreateMonster(kind string, pos Coord, ctx LevelContext) *Monster
}

// Item is a stack of one item id.
type Item struct {
	ID       string `json:"id" yaml:"id"`
	Quantity int    `json:"quantity" yaml:"quantity"`
}

// ItemFactory builds item stacks.
type ItemFactory interface {
	CreateItem(id string, quantity int) Item
}

// SpriteCatalog reports which monster textures exist.
type SpriteCatalog interface {
	HasTexture(name string) bool
}

// Buff is an active player effect the engine reacts to.
type Buff string

const (
	BuffMonsterBan   Buff = "monster_ban"
	BuffMonsterSurge Buff = "monster_surge"
	BuffLadderLuck   Buff = "ladder_luck"
)

// PlayerState is the per-player session data the engine reads.
type PlayerState struct {
	Name                 string
	Level                int // current mine level; negative when not in the mines
	Buffs                []Buff
	AdditionalDifficulty int
	Luck                 float64
}

// Has reports whether the player carries the buff.
func (p PlayerState) Has(b Buff) bool {
	for _, have := range p.Buffs {
		if have == b {
			return true
		}
	}
	return false
}

// InMines reports whether the player currently stands in a mine level.
func (p PlayerState) InMines() bool {
	return p.Level >= 0
}

// Session is the game session around the engine.
type Session interface {
	Day() int
	Players() []PlayerState
	IsHost() bool
}

// LevelReachedHook is called the first time a level is ever visited.
type LevelReachedHook func(level int)
