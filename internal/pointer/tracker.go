// Package pointer turns mouse and touch events into at most one splat per
// contact per simulation step.
package pointer

import (
	"math/rand/v2"

	"golang.org/x/image/math/f32"
)

// MouseID identifies the single pointing device, which always owns slot 0.
const MouseID = -1

// Pointer is one contact. Positions are surface pixels with y down; DX and DY
// are the last movement scaled by the force multiplier.
type Pointer struct {
	ID     int
	X, Y   float32
	DX, DY float32
	Color  f32.Vec3
	Active bool
	Moved  bool

	placed   bool
	ending   bool
	lastSeen uint64
}

// Options tune a tracker.
type Options struct {
	// ForceMultiplier scales movement in surface pixels, not field texels,
	// into the splat force.
	ForceMultiplier float32
	// ColorChangeEvents rotates the shared color once more than this many
	// movement events have been seen. Zero disables counting.
	ColorChangeEvents int
	// ColorChangeChance is an additional per event probability of rotating.
	ColorChangeChance float64
	// MaxContacts bounds simultaneous touches.
	MaxContacts int
}

// Tracker is a fixed capacity slot table. Slot 0 is the mouse; the rest hold
// touches keyed by contact identifier. It is driven from the frame loop and
// is not safe for concurrent use.
type Tracker struct {
	opts  Options
	rng   *rand.Rand
	slots []Pointer
	color f32.Vec3
	count int
	clock uint64
}

// New returns a tracker with an initial random color.
func New(opts Options, rng *rand.Rand) *Tracker {
	if opts.MaxContacts < 1 {
		opts.MaxContacts = 1
	}
	t := &Tracker{
		opts:  opts,
		rng:   rng,
		slots: make([]Pointer, opts.MaxContacts+1),
	}
	t.color = t.randomColor()
	t.slots[0] = Pointer{ID: MouseID, Active: true}
	return t
}

func (t *Tracker) randomColor() f32.Vec3 {
	return f32.Vec3{t.rng.Float32() + 0.2, t.rng.Float32() + 0.2, t.rng.Float32() + 0.2}
}

// Color returns the color the next movement will inject.
func (t *Tracker) Color() f32.Vec3 { return t.color }

// event advances the shared color rotation by one movement event.
func (t *Tracker) event() {
	t.count++
	rotate := t.opts.ColorChangeEvents > 0 && t.count > t.opts.ColorChangeEvents
	if !rotate && t.opts.ColorChangeChance > 0 {
		rotate = t.rng.Float64() < t.opts.ColorChangeChance
	}
	if rotate {
		t.color = t.randomColor()
		t.count = 0
	}
}

// move records a new position. The first observation of a contact only
// places it; later ones produce a scaled delta and mark it moved.
func (t *Tracker) move(p *Pointer, x, y float32) {
	t.clock++
	p.lastSeen = t.clock
	p.Color = t.color
	if !p.placed {
		p.X, p.Y, p.placed = x, y, true
		return
	}
	k := t.opts.ForceMultiplier
	p.DX, p.DY = (x-p.X)*k, (y-p.Y)*k
	p.X, p.Y = x, y
	p.Moved = true
}

// MouseMove records a cursor position.
func (t *Tracker) MouseMove(x, y float32) {
	t.event()
	t.move(&t.slots[0], x, y)
}

// TouchStart places a new contact without producing a splat.
func (t *Tracker) TouchStart(id int, x, y float32) {
	p := t.touch(id)
	p.Moved, p.ending = false, false
	p.placed = false
	t.move(p, x, y)
}

// TouchMove records a contact position, creating the contact when it was
// never started.
func (t *Tracker) TouchMove(id int, x, y float32) {
	t.event()
	t.move(t.touch(id), x, y)
}

// TouchEnd releases a contact. A movement still pending is delivered by the
// next Consume before the slot is freed.
func (t *Tracker) TouchEnd(id int) {
	i := t.find(id)
	if i < 0 {
		return
	}
	p := &t.slots[i]
	if p.Moved {
		p.ending = true
		return
	}
	t.slots[i] = Pointer{}
}

// Consume calls fn for every contact moved since the previous call, then
// clears their moved flags.
func (t *Tracker) Consume(fn func(p Pointer)) {
	for i := range t.slots {
		p := &t.slots[i]
		if !p.Active || !p.Moved {
			continue
		}
		fn(*p)
		p.Moved = false
		if p.ending {
			t.slots[i] = Pointer{}
		}
	}
}

// Contacts returns the number of active touch contacts.
func (t *Tracker) Contacts() int {
	n := 0
	for _, p := range t.slots[1:] {
		if p.Active {
			n++
		}
	}
	return n
}

func (t *Tracker) find(id int) int {
	for i := 1; i < len(t.slots); i++ {
		if t.slots[i].Active && t.slots[i].ID == id {
			return i
		}
	}
	return -1
}

// touch returns the slot of id, taking a free slot or evicting the least
// recently seen contact when the table is full.
func (t *Tracker) touch(id int) *Pointer {
	if i := t.find(id); i >= 0 {
		return &t.slots[i]
	}
	victim := -1
	for i := 1; i < len(t.slots); i++ {
		if !t.slots[i].Active {
			victim = i
			break
		}
		if victim < 0 || t.slots[i].lastSeen < t.slots[victim].lastSeen {
			victim = i
		}
	}
	t.slots[victim] = Pointer{ID: id, Active: true}
	return &t.slots[victim]
}
