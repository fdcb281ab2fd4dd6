package games

import (
	"math/rand/v2"

	"github.com/HarshavardhanKurtkoti/ChaCha-Chaudari-sub000/internal/gamification"
)

const (
	// TrashRounds is the fixed length of a trash-sort session.
	TrashRounds = 10
	// TrashPoints is the base award for a correct sort.
	TrashPoints = 5
)

// TrashSort deals TrashRounds random items, never the same item twice in a row when there
// is more than one to choose from.
type TrashSort struct {
	items []TrashItem
	bins  []Bin
	rng   *rand.Rand

	round    int
	current  int
	phase    Phase
	streak   int
	best     int
	correct  int
	lastPick string
}

// NewTrashSort starts round 1 with a random item.
func NewTrashSort(items []TrashItem, bins []Bin, rng *rand.Rand) *TrashSort {
	t := &TrashSort{items: items, bins: bins, rng: rng, round: 1, current: -1, phase: PhaseInProgress}
	t.current = t.pick()
	return t
}

func (t *TrashSort) pick() int {
	n := len(t.items)
	if n <= 1 || t.current < 0 {
		return t.rng.IntN(n)
	}
	i := t.rng.IntN(n - 1)
	if i >= t.current {
		i++
	}
	return i
}

// Current is the item on display.
func (t *TrashSort) Current() TrashItem {
	return t.items[t.current]
}

// Sort drops the current item into binID. A correct sort yields a scoring event and extends
// the local streak; a wrong one resets the streak and records nothing.
func (t *TrashSort) Sort(binID string) (Outcome, error) {
	switch t.phase {
	case PhaseFinished:
		return Outcome{}, ErrFinished
	case PhaseAnswered:
		return Outcome{}, ErrAlreadyAnswered
	}
	if !t.knownBin(binID) {
		return Outcome{}, ErrInvalidChoice
	}

	t.phase = PhaseAnswered
	t.lastPick = binID

	item := t.items[t.current]
	if item.Bin != binID {
		t.streak = 0
		return Outcome{Explanation: item.Name + " belongs in " + t.binLabel(item.Bin)}, nil
	}

	t.correct++
	t.streak++
	if t.streak > t.best {
		t.best = t.streak
	}
	return Outcome{
		Correct:    true,
		BasePoints: TrashPoints,
		Meta:       gamification.ScoreMeta{Mission: gamification.MissionTrash, Event: gamification.EventProgress},
		Record:     true,
	}, nil
}

// Next advances to the following round, finishing after the last.
func (t *TrashSort) Next() error {
	switch t.phase {
	case PhaseFinished:
		return ErrFinished
	case PhaseInProgress:
		return ErrNotAnswered
	}

	t.lastPick = ""
	if t.round >= TrashRounds {
		t.phase = PhaseFinished
		return nil
	}
	t.round++
	t.current = t.pick()
	t.phase = PhaseInProgress
	return nil
}

func (t *TrashSort) knownBin(id string) bool {
	for _, b := range t.bins {
		if b.ID == id {
			return true
		}
	}
	return false
}

func (t *TrashSort) binLabel(id string) string {
	for _, b := range t.bins {
		if b.ID == id {
			return b.Label
		}
	}
	return id
}

// TrashView is the client-facing state.
type TrashView struct {
	Phase      Phase      `json:"phase"`
	Round      int        `json:"round"`
	Rounds     int        `json:"rounds"`
	Correct    int        `json:"correct"`
	Streak     int        `json:"streak"`
	BestStreak int        `json:"bestStreak"`
	Bins       []Bin      `json:"bins"`
	Item       *TrashItem `json:"item,omitempty"`
	Chosen     string     `json:"chosen,omitempty"`
	Expected   string     `json:"expected,omitempty"`
}

// View snapshots the game for display.
func (t *TrashSort) View() TrashView {
	v := TrashView{
		Phase:      t.phase,
		Round:      t.round,
		Rounds:     TrashRounds,
		Correct:    t.correct,
		Streak:     t.streak,
		BestStreak: t.best,
		Bins:       t.bins,
	}
	if t.phase == PhaseFinished {
		return v
	}
	item := t.items[t.current]
	v.Item = &item
	if t.phase == PhaseAnswered {
		v.Chosen = t.lastPick
		v.Expected = item.Bin
	}
	return v
}
