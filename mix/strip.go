package mix

import (
	"fmt"

	"automix/fx"
)

// A channel strip wraps the gain, pan, and insert-effect handle of one
// track. Strips live in an arena addressed by index: track IDs map to
// slots, releasing a strip returns its slot to a free list, and no two
// strips ever share an effect handle.
type strip struct {
	trackID string
	effects fx.Effects
	inUse   bool
}

type stripArena struct {
	strips  []strip
	free    []int
	byTrack map[string]int
}

func newStripArena() *stripArena {
	return &stripArena{byTrack: make(map[string]int)}
}

// acquire returns the strip slot for trackID, creating a fresh effect
// chain from the rack if the track has none yet.
func (a *stripArena) acquire(trackID string, rack fx.Rack) (int, error) {
	if idx, ok := a.byTrack[trackID]; ok {
		return idx, nil
	}

	effects, err := rack.CreateEffects(trackID)
	if err != nil {
		return 0, fmt.Errorf("mix: create effects for track %q: %w", trackID, err)
	}

	var idx int
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
		a.strips[idx] = strip{trackID: trackID, effects: effects, inUse: true}
	} else {
		idx = len(a.strips)
		a.strips = append(a.strips, strip{trackID: trackID, effects: effects, inUse: true})
	}

	a.byTrack[trackID] = idx

	return idx, nil
}

// effects returns the effect handle for trackID.
func (a *stripArena) effects(trackID string) (fx.Effects, bool) {
	idx, ok := a.byTrack[trackID]
	if !ok {
		return nil, false
	}

	return a.strips[idx].effects, true
}

// release destroys the strip for trackID and recycles its slot.
func (a *stripArena) release(trackID string) error {
	idx, ok := a.byTrack[trackID]
	if !ok {
		return fmt.Errorf("mix: no strip for track %q", trackID)
	}

	err := a.strips[idx].effects.Destroy()

	a.strips[idx] = strip{}
	a.free = append(a.free, idx)
	delete(a.byTrack, trackID)

	return err
}

// each calls fn for every live strip; the first error aborts and is returned.
func (a *stripArena) each(fn func(trackID string, effects fx.Effects) error) error {
	for i := range a.strips {
		if !a.strips[i].inUse {
			continue
		}

		if err := fn(a.strips[i].trackID, a.strips[i].effects); err != nil {
			return err
		}
	}

	return nil
}

// releaseAll destroys every live strip. All strips are released even if
// some destroys fail; the first error is returned.
func (a *stripArena) releaseAll() error {
	var firstErr error

	for i := range a.strips {
		if !a.strips[i].inUse {
			continue
		}

		if err := a.strips[i].effects.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}

		a.strips[i] = strip{}
	}

	a.strips = a.strips[:0]
	a.free = a.free[:0]
	a.byTrack = make(map[string]int)

	return firstErr
}

// size returns the number of live strips.
func (a *stripArena) size() int {
	return len(a.byTrack)
}
