package mine

import "math/rand"

var directions = [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// nearestFree returns c if it is clear, otherwise the closest clear tile
// within radius, scanning ring by ring in a fixed order.
func nearestFree(l *Level, c Coord, radius int) (Coord, bool) {
	if l.IsClear(c) {
		return c, true
	}
	for r := 1; r <= radius; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if max(abs(dx), abs(dy)) != r {
					continue
				}
				t := c.Offset(dx, dy)
				if l.IsClear(t) {
					return t, true
				}
			}
		}
	}
	return Coord{}, false
}

// randomWalk walks up to steps tiles from start, stepping only onto clear
// tiles, and calls place on each tile it lands on. When every neighbour is
// blocked the walk stops. It returns the number of tiles placed.
func randomWalk(l *Level, rng *rand.Rand, start Coord, steps int, place func(Coord) bool) int {
	placed := 0
	cur := start
	for i := 0; i < steps; i++ {
		moved := false
		first := rng.Intn(len(directions))
		for k := 0; k < len(directions); k++ {
			d := directions[(first+k)%len(directions)]
			next := cur.Offset(d[0], d[1])
			if !l.IsClear(next) {
				continue
			}
			if place(next) {
				placed++
			}
			cur = next
			moved = true
			break
		}
		if !moved {
			break
		}
	}
	return placed
}

// edgeRays casts n rays inward from random points on the four map edges
// and returns the first clear tile each ray meets.
func edgeRays(l *Level, rng *rand.Rand, n int) []Coord {
	w, h := l.grid.Size()
	if w == 0 || h == 0 {
		return nil
	}
	var out []Coord
	seen := make(map[Coord]bool)
	for i := 0; i < n; i++ {
		var c Coord
		var dx, dy int
		switch rng.Intn(4) {
		case 0:
			c, dx, dy = Coord{X: rng.Intn(w), Y: 0}, 0, 1
		case 1:
			c, dx, dy = Coord{X: w - 1, Y: rng.Intn(h)}, -1, 0
		case 2:
			c, dx, dy = Coord{X: rng.Intn(w), Y: h - 1}, 0, -1
		default:
			c, dx, dy = Coord{X: 0, Y: rng.Intn(h)}, 1, 0
		}
		for l.InBounds(c) {
			if l.IsClear(c) {
				if !seen[c] {
					seen[c] = true
					out = append(out, c)
				}
				break
			}
			c = c.Offset(dx, dy)
		}
	}
	return out
}

// clearRadius removes every object of kind within radius of center and
// returns the freed tiles in row-major order.
func clearRadius(l *Level, center Coord, radius int, kind ObjectKind) []Coord {
	var freed []Coord
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			c := center.Offset(dx, dy)
			if p, ok := l.Objects[c]; ok && p.Kind == kind {
				delete(l.Objects, c)
				freed = append(freed, c)
			}
		}
	}
	return freed
}

// objectsOf returns the positions of every object of kind in row-major order.
func objectsOf(l *Level, kind ObjectKind) []Coord {
	var out []Coord
	w, h := l.grid.Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := Coord{X: x, Y: y}
			if p, ok := l.Objects[c]; ok && p.Kind == kind {
				out = append(out, c)
			}
		}
	}
	return out
}

// clearTiles returns every clear tile in row-major order.
func clearTiles(l *Level) []Coord {
	var out []Coord
	w, h := l.grid.Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := Coord{X: x, Y: y}
			if l.IsClear(c) {
				out = append(out, c)
			}
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
