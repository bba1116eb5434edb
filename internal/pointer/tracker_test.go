package pointer

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(opts Options) *Tracker {
	if opts.ForceMultiplier == 0 {
		opts.ForceMultiplier = 10
	}
	if opts.MaxContacts == 0 {
		opts.MaxContacts = 3
	}
	return New(opts, rand.New(rand.NewPCG(7, 11)))
}

func consumeAll(t *Tracker) []Pointer {
	var out []Pointer
	t.Consume(func(p Pointer) { out = append(out, p) })
	return out
}

func TestFirstObservationOnlyPlaces(t *testing.T) {
	tr := newTracker(Options{})
	tr.MouseMove(10, 10)
	assert.Empty(t, consumeAll(tr))

	tr.MouseMove(12, 7)
	got := consumeAll(tr)
	require.Len(t, got, 1)
	assert.Equal(t, MouseID, got[0].ID)
	assert.Equal(t, float32(20), got[0].DX)
	assert.Equal(t, float32(-30), got[0].DY)
}

func TestAtMostOneSplatPerStep(t *testing.T) {
	tr := newTracker(Options{})
	tr.MouseMove(0, 0)
	tr.MouseMove(5, 5)
	tr.MouseMove(8, 9)

	got := consumeAll(tr)
	require.Len(t, got, 1)
	assert.Equal(t, float32(8), got[0].X)
	assert.Equal(t, float32(9), got[0].Y)
	assert.Equal(t, float32(30), got[0].DX, "latest delta wins")
	assert.Equal(t, float32(40), got[0].DY)

	assert.Empty(t, consumeAll(tr), "flags cleared after consumption")
}

func TestTouchesAreIndependent(t *testing.T) {
	tr := newTracker(Options{})
	tr.TouchStart(100, 1, 1)
	tr.TouchStart(200, 50, 50)
	tr.TouchMove(100, 2, 1)
	tr.TouchMove(200, 50, 52)
	assert.Equal(t, 2, tr.Contacts())

	got := consumeAll(tr)
	require.Len(t, got, 2)
	byID := map[int]Pointer{got[0].ID: got[0], got[1].ID: got[1]}
	assert.Equal(t, float32(10), byID[100].DX)
	assert.Equal(t, float32(20), byID[200].DY)
}

func TestTouchMoveWithoutStartCreatesContact(t *testing.T) {
	tr := newTracker(Options{})
	tr.TouchMove(5, 3, 3)
	assert.Equal(t, 1, tr.Contacts())
	assert.Empty(t, consumeAll(tr))
}

func TestTouchEndDeliversPendingMoveThenFrees(t *testing.T) {
	tr := newTracker(Options{})
	tr.TouchStart(1, 0, 0)
	tr.TouchMove(1, 1, 0)
	tr.TouchEnd(1)
	assert.Equal(t, 1, tr.Contacts(), "slot held until the pending move is consumed")

	got := consumeAll(tr)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ID)
	assert.Zero(t, tr.Contacts())

	tr.TouchStart(2, 0, 0)
	tr.TouchEnd(2)
	assert.Zero(t, tr.Contacts())
	tr.TouchEnd(99)
}

func TestFullTableEvictsLeastRecentlySeen(t *testing.T) {
	tr := newTracker(Options{MaxContacts: 2})
	tr.TouchStart(1, 0, 0)
	tr.TouchStart(2, 0, 0)
	tr.TouchMove(1, 1, 1)
	tr.TouchStart(3, 0, 0)

	assert.Equal(t, 2, tr.Contacts())
	assert.GreaterOrEqual(t, tr.find(1), 0)
	assert.Less(t, tr.find(2), 0, "contact 2 was seen least recently")
	assert.GreaterOrEqual(t, tr.find(3), 0)
}

func TestMouseSurvivesTouchPressure(t *testing.T) {
	tr := newTracker(Options{MaxContacts: 1})
	tr.MouseMove(0, 0)
	for id := 0; id < 5; id++ {
		tr.TouchStart(id, 0, 0)
	}
	tr.MouseMove(1, 0)
	got := consumeAll(tr)
	require.Len(t, got, 1)
	assert.Equal(t, MouseID, got[0].ID)
}

func TestColorRotatesAfterEvents(t *testing.T) {
	tr := newTracker(Options{ColorChangeEvents: 3})
	first := tr.Color()
	for _, c := range first {
		assert.GreaterOrEqual(t, c, float32(0.2))
		assert.Less(t, c, float32(1.2))
	}
	for i := 0; i < 3; i++ {
		tr.MouseMove(float32(i), 0)
	}
	assert.Equal(t, first, tr.Color())
	tr.MouseMove(10, 0)
	assert.NotEqual(t, first, tr.Color())

	got := consumeAll(tr)
	require.Len(t, got, 1)
	assert.Equal(t, tr.Color(), got[0].Color)
}

func TestColorChanceRotatesEveryEvent(t *testing.T) {
	tr := newTracker(Options{ColorChangeChance: 1})
	prev := tr.Color()
	for i := 0; i < 4; i++ {
		tr.MouseMove(float32(i), 0)
		assert.NotEqual(t, prev, tr.Color())
		prev = tr.Color()
	}
}
