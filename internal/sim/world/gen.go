package world

import "gridbot.ai/internal/grid"

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash2(seed int64, row, col int) uint64 {
	ur := uint64(uint32(int32(row)))
	uc := uint64(uint32(int32(col)))
	v := uint64(seed) ^ (ur * 0x9e3779b97f4a7c15) ^ (uc * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

func clampPermille(v int) uint64 {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return uint64(v)
}

func withinSpawnClear(c, center grid.Coordinate, r int) bool {
	return grid.AbsInt(c.Row-center.Row) <= r && grid.AbsInt(c.Col-center.Col) <= r
}

func (w *World) generate() {
	center := w.center()
	for row := 0; row < w.cfg.Rows; row++ {
		for col := 0; col < w.cfg.Cols; col++ {
			c := grid.Coordinate{Row: row, Col: col}
			if withinSpawnClear(c, center, w.cfg.SpawnClearRadius) {
				continue
			}
			w.cells[row][col] = w.cellAt(c)
		}
	}
}

// cellAt rolls the content of c from the seed alone, so the same seed always
// yields the same grid.
func (w *World) cellAt(c grid.Coordinate) grid.Cell {
	h := hash2(w.cfg.Seed, c.Row, c.Col)
	roll := h % 1000
	extra := h >> 20

	// Precedence order: fire > garbage > bins > teleports > walls.
	limit := clampPermille(w.cfg.FirePerMille)
	if roll < limit {
		return grid.Cell{Content: grid.Fire}
	}
	limit += clampPermille(w.cfg.GarbagePerMille)
	if roll < limit {
		return grid.Cell{Content: grid.Garbage, Amount: 1 + int(extra%3)}
	}
	limit += clampPermille(w.cfg.BinPerMille)
	if roll < limit {
		return grid.Cell{Content: grid.Bin, Capacity: w.cfg.BinCapacity}
	}
	limit += clampPermille(w.cfg.TeleportPerMille)
	if roll < limit {
		return grid.Cell{Content: grid.Teleport, Active: extra%4 != 0}
	}
	limit += clampPermille(w.cfg.WallPerMille)
	if roll < limit {
		return grid.Cell{Content: grid.Other}
	}
	return grid.Cell{}
}
