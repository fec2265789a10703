package mine

import (
	"fmt"
	"strconv"
	"strings"
)

// Fixed level numbers.
const (
	BottomLevel = 120   // last ordinary level; the elevator chain ends here
	DesertStart = 121   // first level of the desert branch
	QuarryLevel = 77377 // the quarry is a standalone level with a fixed id
)

// LevelNamePrefix is the location name prefix used by GetMine.
const LevelNamePrefix = "UndergroundMine"

// AreaID names a depth band sharing spawn tables and palette.
type AreaID int

const (
	AreaUpper AreaID = iota
	AreaJungle
	AreaFrost
	AreaLava
	AreaDesert
	AreaQuarry
	AreaBonus
)

var areaNames = map[AreaID]string{
	AreaUpper:  "upper",
	AreaJungle: "jungle",
	AreaFrost:  "frost",
	AreaLava:   "lava",
	AreaDesert: "desert",
	AreaQuarry: "quarry",
	AreaBonus:  "bonus",
}

// AllAreas lists every area in depth order.
var AllAreas = []AreaID{AreaUpper, AreaJungle, AreaFrost, AreaLava, AreaDesert, AreaQuarry, AreaBonus}

func (a AreaID) String() string {
	if name, ok := areaNames[a]; ok {
		return name
	}
	return fmt.Sprintf("area(%d)", int(a))
}

// ParseArea converts an area name back into its ID.
func ParseArea(name string) (AreaID, error) {
	for id, n := range areaNames {
		if strings.EqualFold(n, name) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown area %q", name)
}

// Overrides are the per-level flags that take a level out of its depth band.
type Overrides struct {
	Quarry bool `yaml:"quarry,omitempty" json:"quarry,omitempty"`
	Bonus  bool `yaml:"bonus,omitempty" json:"bonus,omitempty"`
}

// AreaOf classifies a level. It is pure: the same level and overrides
// always give the same area, and ordinary levels map monotonically.
func AreaOf(level int, o Overrides) AreaID {
	if o.Quarry || level == QuarryLevel {
		return AreaQuarry
	}
	if o.Bonus {
		return AreaBonus
	}
	switch {
	case level < 10:
		return AreaUpper
	case level < 40:
		return AreaJungle
	case level < 80:
		return AreaFrost
	case level <= BottomLevel:
		return AreaLava
	default:
		return AreaDesert
	}
}

// AreaBase returns the first level of an area's band.
func AreaBase(area AreaID) int {
	switch area {
	case AreaJungle:
		return 10
	case AreaFrost:
		return 40
	case AreaLava:
		return 80
	case AreaDesert, AreaBonus:
		return DesertStart
	case AreaQuarry:
		return QuarryLevel
	default:
		return 0
	}
}

// IsElevatorLevel reports whether the level has an elevator stop.
func IsElevatorLevel(level int) bool {
	return level > 0 && level <= BottomLevel && level%5 == 0
}

// IsDesert reports whether the level lies in the desert branch.
func IsDesert(level int) bool {
	return level >= DesertStart && level != QuarryLevel
}

// Branch groups levels for pruning.
type Branch int

const (
	BranchOrdinary Branch = iota
	BranchBonus
	BranchQuarry
)

func (b Branch) String() string {
	switch b {
	case BranchOrdinary:
		return "ordinary"
	case BranchBonus:
		return "bonus"
	case BranchQuarry:
		return "quarry"
	default:
		return "unknown"
	}
}

// BranchOf returns the branch a level belongs to.
func BranchOf(level int) Branch {
	switch {
	case level == QuarryLevel:
		return BranchQuarry
	case level > BottomLevel:
		return BranchBonus
	default:
		return BranchOrdinary
	}
}

// LevelName returns the location name for a level number.
func LevelName(level int) string {
	return LevelNamePrefix + strconv.Itoa(level)
}

// ParseLevelName extracts the level number from a location name.
func ParseLevelName(name string) (int, error) {
	if !strings.HasPrefix(name, LevelNamePrefix) {
		return 0, fmt.Errorf("location %q is not a mine level", name)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, LevelNamePrefix))
	if err != nil {
		return 0, fmt.Errorf("parse level number from %q: %w", name, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative level number in %q", name)
	}
	return n, nil
}
