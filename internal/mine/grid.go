package mine

// openGrid is the walled rectangle used when no map asset can be loaded.
// The entry ladder sits at the top centre.
type openGrid struct {
	w, h int
}

// FallbackGrid returns a plain walled stone room of the given size.
func FallbackGrid(w, h int) Grid {
	return openGrid{w: max(w, 5), h: max(h, 5)}
}

func (g openGrid) Size() (int, int) {
	return g.w, g.h
}

func (g openGrid) TileProperty(c Coord, layer, key string) (string, bool) {
	if c.X < 0 || c.Y < 0 || c.X >= g.w || c.Y >= g.h {
		return "", false
	}
	wall := c.X == 0 || c.Y == 0 || c.X == g.w-1 || c.Y == g.h-1
	switch layer {
	case LayerBack:
		if key == PropType {
			return "Stone", true
		}
	case LayerBuildings:
		if key == PropSolid && wall {
			return "T", true
		}
		if key == PropAction && c.X == g.w/2 && c.Y == 1 {
			return ActionLadder, true
		}
	}
	return "", false
}
