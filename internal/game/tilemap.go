package game

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// TileMap is the read-only brick-grid query surface the physics and weapon
// kernels run against. Out-of-range coordinates are solid: the perimeter
// acts as an implicit wall.
type TileMap interface {
	Rows() int32
	Cols() int32
	IsSolid(col, row int32) bool
}

// GridMap is an immutable tile grid with spawn cells and item seeds.
// It is shared by every session in a room; nothing mutates it after load.
type GridMap struct {
	rows     int32
	cols     int32
	bricks   []uint8
	respawns [][2]int32 // (row, col)
	items    []MapItem
	name     string
}

// NewGridMap builds a map from a raw brick grid. Used by tests; production
// maps come from LoadMap.
func NewGridMap(rows, cols int32, bricks []uint8) *GridMap {
	return &GridMap{rows: rows, cols: cols, bricks: bricks, name: "test"}
}

func (m *GridMap) Rows() int32  { return m.rows }
func (m *GridMap) Cols() int32  { return m.cols }
func (m *GridMap) Name() string { return m.name }

func (m *GridMap) IsSolid(col, row int32) bool {
	if row < 0 || col < 0 || row >= m.rows || col >= m.cols {
		return true
	}
	return m.bricks[int(row)*int(m.cols)+int(col)] != 0
}

// SetBrick flips a single cell. Test helper only.
func (m *GridMap) SetBrick(col, row int32, solid bool) {
	v := uint8(0)
	if solid {
		v = 1
	}
	m.bricks[int(row)*int(m.cols)+int(col)] = v
}

// SetRespawns replaces the spawn cell list. Test helper only.
func (m *GridMap) SetRespawns(cells [][2]int32) {
	m.respawns = cells
}

// RandomRespawn picks a spawn cell uniformly from the supplied RNG.
// Returns false when the map has no spawn cells.
func (m *GridMap) RandomRespawn(rng *rand.Rand) (row, col int32, ok bool) {
	if len(m.respawns) == 0 {
		return 0, 0, false
	}
	cell := m.respawns[rng.Intn(len(m.respawns))]
	return cell[0], cell[1], true
}

// TakeItems hands the initial item list to the room and leaves the map
// itself item-free; the room owns item state from then on.
func (m *GridMap) TakeItems() []MapItem {
	items := m.items
	m.items = nil
	return items
}

// LoadMap reads <dir>/<name>.txt and parses it into a GridMap.
func LoadMap(dir, name string) (*GridMap, error) {
	path := filepath.Join(dir, name+".txt")
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load map %q", name)
	}
	return ParseMap(string(content), name), nil
}

// ParseMap parses the text map format: one line per row, '0'/'1'/'2' are
// bricks, 'R' marks a spawn cell, item glyphs seed pickups. Rows is the
// line count, cols the longest line.
func ParseMap(text, name string) *GridMap {
	lines := strings.Split(strings.TrimRight(text, "\r\n"), "\n")
	rows := int32(len(lines))
	cols := int32(0)
	for _, line := range lines {
		if int32(len(line)) > cols {
			cols = int32(len(line))
		}
	}

	m := &GridMap{
		rows:   rows,
		cols:   cols,
		bricks: make([]uint8, int(rows)*int(cols)),
		name:   name,
	}

	for rowIdx, line := range lines {
		row := int32(rowIdx)
		for colIdx := 0; colIdx < len(line); colIdx++ {
			col := int32(colIdx)
			ch := line[colIdx]

			switch ch {
			case '0', '1', '2':
				m.bricks[int(row)*int(cols)+int(col)] = 1
			case 'R':
				m.respawns = append(m.respawns, [2]int32{row, col})
			}

			if kind, ok := ItemKindFromGlyph(rune(ch)); ok {
				m.items = append(m.items, MapItem{
					Kind:   kind,
					Row:    row,
					Col:    col,
					Active: true,
				})
			}
		}
	}

	return m
}
