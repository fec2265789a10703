package assets

import (
	"github.com/aquilax/go-perlin"
	"github.com/lawnchairsociety/minedepths/internal/mine"
)

// Size of generated templates.
const (
	DefaultWidth  = 40
	DefaultHeight = 30
)

const (
	noiseScale    = 8.0
	wallThreshold = 0.3
	dirtThreshold = -0.25
)

// Generate builds the template map for an index. The same index always
// produces the same map. The entry ladder sits at the top centre and every
// floor tile is reachable from it.
func Generate(template, w, h int) *TileMap {
	w, h = max(w, 8), max(h, 8)
	noise := perlin.NewPerlin(2, 2, 3, int64(template)*7919+1)

	grid := make([][]byte, h)
	for y := range grid {
		grid[y] = make([]byte, w)
		for x := range grid[y] {
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				grid[y][x] = TileWall
				continue
			}
			v := noise.Noise2D(float64(x)/noiseScale, float64(y)/noiseScale)
			switch {
			case v > wallThreshold:
				grid[y][x] = TileWall
			case v < dirtThreshold:
				grid[y][x] = TileDirt
			default:
				grid[y][x] = TileStone
			}
		}
	}

	entry := mine.Coord{X: w / 2, Y: 1}
	for dy := 0; dy <= 2; dy++ {
		for dx := -1; dx <= 1; dx++ {
			grid[entry.Y+dy][entry.X+dx] = TileStone
		}
	}
	grid[entry.Y][entry.X] = TileEntry

	order := sealUnreachable(grid, entry)

	spots := order
	if template%5 == 0 && len(order) > 1 {
		far := order[len(order)-1]
		grid[far.Y][far.X] = TileLadder
		spots = order[:len(order)-1]
	}
	if template > 0 && template%10 == 0 {
		if c, ok := nearestTo(spots, mine.Coord{X: w / 2, Y: h / 2}); ok {
			grid[c.Y][c.X] = TileChest
		}
	}

	rows := make([]string, h)
	for y := range grid {
		rows[y] = string(grid[y])
	}
	return &TileMap{Name: TemplateName(template), rows: rows, w: w}
}

// TemplateName mirrors the mine loader's naming.
func TemplateName(template int) string {
	return mine.TemplateName(template)
}

// sealUnreachable walls off floor the entry cannot reach and returns the
// reachable floor in breadth-first order, entry excluded.
func sealUnreachable(grid [][]byte, entry mine.Coord) []mine.Coord {
	h, w := len(grid), len(grid[0])
	seen := make([][]bool, h)
	for y := range seen {
		seen[y] = make([]bool, w)
	}

	var order []mine.Coord
	queue := []mine.Coord{entry}
	seen[entry.Y][entry.X] = true
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c != entry {
			order = append(order, c)
		}
		for _, d := range []mine.Coord{{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}} {
			n := c.Offset(d.X, d.Y)
			if n.X < 0 || n.Y < 0 || n.X >= w || n.Y >= h || seen[n.Y][n.X] || grid[n.Y][n.X] == TileWall {
				continue
			}
			seen[n.Y][n.X] = true
			queue = append(queue, n)
		}
	}

	for y := range grid {
		for x := range grid[y] {
			if !seen[y][x] {
				grid[y][x] = TileWall
			}
		}
	}
	return order
}

func nearestTo(cells []mine.Coord, target mine.Coord) (mine.Coord, bool) {
	best, found := mine.Coord{}, false
	for _, c := range cells {
		if !found || c.Distance(target) < best.Distance(target) {
			best, found = c, true
		}
	}
	return best, found
}
