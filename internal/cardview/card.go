package cardview

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Width     = 5
	Size      = Width * Width
	FreeIndex = 12
)

// Row labels, top to bottom.
var Letters = [Width]string{"B", "I", "N", "G", "O"}

var ErrCardSize = errors.New("card must have 25 numbers")
var ErrCellOutOfRange = errors.New("cell out of range")
var ErrFreeCell = errors.New("free cell cannot be marked")
var ErrNoCard = errors.New("no card assigned")

// Card holds the 25 cell values. Zero is a placeholder for an unassigned cell.
type Card [Size]int

func NewCard(numbers []int) (Card, error) {
	var c Card
	if len(numbers) != Size {
		return c, fmt.Errorf("%w: got %d", ErrCardSize, len(numbers))
	}
	copy(c[:], numbers)
	return c, nil
}

// Assigned reports whether every non-free cell has a value.
func (c Card) Assigned() bool {
	for i, v := range c {
		if i != FreeIndex && v == 0 {
			return false
		}
	}
	return true
}

type Marks [Size]bool

// Reconcile derives the marked cells from scratch: a non-free cell is marked
// iff its value is in called.
func Reconcile(card Card, called []int) Marks {
	set := make(map[int]struct{}, len(called))
	for _, n := range called {
		set[n] = struct{}{}
	}

	var m Marks
	for i, v := range card {
		if i == FreeIndex || v == 0 {
			continue
		}
		if _, ok := set[v]; ok {
			m[i] = true
		}
	}
	return m
}

// Board is a card plus its current marks.
type Board struct {
	Card  Card
	Marks Marks
}

func NewBoard(card Card) Board {
	return Board{Card: card}
}

func (b Board) Empty() bool {
	return b.Card == Card{}
}

func (b Board) Reconcile(called []int) Board {
	b.Marks = Reconcile(b.Card, called)
	return b
}

// Toggle flips a cell for the player's own bookkeeping. The next
// reconciliation overwrites it.
func (b Board) Toggle(cell int) (Board, error) {
	if b.Empty() {
		return b, ErrNoCard
	}
	if cell < 0 || cell >= Size {
		return b, fmt.Errorf("%w: %d", ErrCellOutOfRange, cell)
	}
	if cell == FreeIndex {
		return b, ErrFreeCell
	}
	b.Marks[cell] = !b.Marks[cell]
	return b, nil
}

// Marked returns the values of marked cells in cell order.
func (b Board) Marked() []int {
	out := []int{}
	for i, marked := range b.Marks {
		if marked {
			out = append(out, b.Card[i])
		}
	}
	return out
}

type Cell struct {
	Index  int
	Value  int
	Free   bool
	Marked bool
}

type Row struct {
	Letter string
	Cells  [Width]Cell
}

func (b Board) Grid() [Width]Row {
	var rows [Width]Row
	for r := 0; r < Width; r++ {
		rows[r].Letter = Letters[r]
		for col := 0; col < Width; col++ {
			i := r*Width + col
			rows[r].Cells[col] = Cell{
				Index:  i,
				Value:  b.Card[i],
				Free:   i == FreeIndex,
				Marked: b.Marks[i],
			}
		}
	}
	return rows
}

// String renders the grid as text, marked cells in brackets.
func (b Board) String() string {
	var sb strings.Builder
	for _, row := range b.Grid() {
		sb.WriteString(row.Letter)
		for _, c := range row.Cells {
			switch {
			case c.Free:
				sb.WriteString("  FREE")
			case c.Value == 0:
				sb.WriteString("    --")
			case c.Marked:
				fmt.Fprintf(&sb, " [%3d]", c.Value)
			default:
				fmt.Fprintf(&sb, "  %3d ", c.Value)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
