package assets

import (
	"testing"

	"github.com/lawnchairsociety/minedepths/internal/mine"
)

func TestGenerateIsDeterministic(t *testing.T) {
	a, b := Generate(12, DefaultWidth, DefaultHeight), Generate(12, DefaultWidth, DefaultHeight)
	ra, rb := a.Rows(), b.Rows()
	for y := range ra {
		if ra[y] != rb[y] {
			t.Fatalf("row %d differs:\n%s\n%s", y, ra[y], rb[y])
		}
	}
}

func TestGenerateLayout(t *testing.T) {
	for _, template := range []int{1, 5, 10, 23, 39} {
		m := Generate(template, DefaultWidth, DefaultHeight)
		w, h := m.Size()
		if w != DefaultWidth || h != DefaultHeight {
			t.Fatalf("Generate(%d) size = (%d, %d)", template, w, h)
		}

		entry := mine.Coord{X: w / 2, Y: 1}
		if got := m.At(entry); got != TileEntry {
			t.Errorf("Generate(%d) entry tile = %q, want %q", template, got, TileEntry)
		}

		for x := 0; x < w; x++ {
			if m.At(mine.Coord{X: x, Y: 0}) != TileWall || m.At(mine.Coord{X: x, Y: h - 1}) != TileWall {
				t.Fatalf("Generate(%d) border open at column %d", template, x)
			}
		}

		if n := unreachable(m, entry); n != 0 {
			t.Errorf("Generate(%d) has %d floor tiles unreachable from the entry", template, n)
		}
	}
}

func TestGenerateFixtures(t *testing.T) {
	tests := []struct {
		template   int
		wantChest  bool
		wantLadder bool
	}{
		{3, false, false},
		{5, false, true},
		{10, true, true},
		{0, false, true},
	}

	for _, tt := range tests {
		m := Generate(tt.template, DefaultWidth, DefaultHeight)
		if got := count(m, TileChest) > 0; got != tt.wantChest {
			t.Errorf("Generate(%d) chest = %v, want %v", tt.template, got, tt.wantChest)
		}
		if got := count(m, TileLadder) > 0; got != tt.wantLadder {
			t.Errorf("Generate(%d) ladder = %v, want %v", tt.template, got, tt.wantLadder)
		}
	}
}

func count(m *TileMap, tile byte) int {
	n := 0
	for _, row := range m.Rows() {
		for i := 0; i < len(row); i++ {
			if row[i] == tile {
				n++
			}
		}
	}
	return n
}

func unreachable(m *TileMap, entry mine.Coord) int {
	w, h := m.Size()
	seen := map[mine.Coord]bool{entry: true}
	queue := []mine.Coord{entry}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for _, n := range []mine.Coord{c.Offset(0, -1), c.Offset(1, 0), c.Offset(0, 1), c.Offset(-1, 0)} {
			if seen[n] || m.At(n) == TileWall || m.At(n) == TileVoid {
				continue
			}
			seen[n] = true
			queue = append(queue, n)
		}
	}

	missing := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := mine.Coord{X: x, Y: y}
			if t := m.At(c); t != TileWall && t != TileVoid && !seen[c] {
				missing++
			}
		}
	}
	return missing
}
