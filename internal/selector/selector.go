package selector

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/bingo-miniapp/internal/cardview"
)

const (
	MinNumber = 1
	MaxNumber = 100
)

var ErrOutOfRange = errors.New("number out of range")
var ErrDisabled = errors.New("number disabled")
var ErrPending = errors.New("claim already pending")
var ErrPreviewOpen = errors.New("card preview already open")
var ErrNoPreview = errors.New("no card preview")

// Episode is the candidate state for one NumberSelecting episode. Values are
// copied, never shared, so an Episode can sit inside the session value.
type Episode struct {
	disabled [MaxNumber + 1]bool

	Candidate int // 0 when nothing is claimed
	Pending   bool
	Preview   cardview.Card
}

func NewEpisode() Episode {
	return Episode{}
}

func (e Episode) HasPreview() bool {
	return e.Preview != cardview.Card{}
}

func (e Episode) IsDisabled(n int) bool {
	if n < MinNumber || n > MaxNumber {
		return true
	}
	return e.disabled[n]
}

// Selectable reports whether the control for n accepts a click right now.
func (e Episode) Selectable(n int) bool {
	return !e.Pending && !e.HasPreview() && !e.IsDisabled(n)
}

func (e Episode) Disabled() []int {
	out := []int{}
	for n := MinNumber; n <= MaxNumber; n++ {
		if e.disabled[n] {
			out = append(out, n)
		}
	}
	return out
}

// Begin records an outstanding claim for n.
func (e Episode) Begin(n int) (Episode, error) {
	switch {
	case n < MinNumber || n > MaxNumber:
		return e, fmt.Errorf("%w: %d", ErrOutOfRange, n)
	case e.Pending:
		return e, ErrPending
	case e.HasPreview():
		return e, ErrPreviewOpen
	case e.disabled[n]:
		return e, fmt.Errorf("%w: %d", ErrDisabled, n)
	}
	e.Candidate = n
	e.Pending = true
	return e, nil
}

// Claimed turns the pending claim into a preview.
func (e Episode) Claimed(card cardview.Card) Episode {
	e.Pending = false
	e.Preview = card
	return e
}

// Rejected disables the claimed number for the rest of the episode.
func (e Episode) Rejected() Episode {
	if e.Candidate >= MinNumber && e.Candidate <= MaxNumber {
		e.disabled[e.Candidate] = true
	}
	e.Candidate = 0
	e.Pending = false
	return e
}

// Failed clears a claim that never reached a verdict; the number stays
// selectable.
func (e Episode) Failed() Episode {
	e.Candidate = 0
	e.Pending = false
	return e
}

// Cancel drops the preview and the candidate.
func (e Episode) Cancel() (Episode, error) {
	if !e.HasPreview() {
		return e, ErrNoPreview
	}
	e.Candidate = 0
	e.Preview = cardview.Card{}
	return e, nil
}
