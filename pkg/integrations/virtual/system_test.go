package virtual

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskfocus/taskfocus/pkg/window"
)

func testMonitor() window.Monitor {
	return window.Monitor{
		Name:        "virtual-0",
		Size:        window.PhysicalSize{Width: 2880, Height: 1800},
		ScaleFactor: 2,
	}
}

func TestSystemInterface(t *testing.T) {
	var _ window.System = (*System)(nil)
	var _ window.Surface = (*Surface)(nil)
	var _ window.Panel = (*PanelSurface)(nil)
}

func TestCreateAndGet(t *testing.T) {
	sys := New(WithScaleFactor(2))

	sf, err := sys.Create(window.Options{Label: "main", Size: window.Size{Width: 800, Height: 600}})
	require.NoError(t, err)

	got, ok := sys.Get("main")
	require.True(t, ok)
	assert.Equal(t, "main", got.Label())

	size, err := sf.OuterSize()
	require.NoError(t, err)
	assert.Equal(t, window.PhysicalSize{Width: 1600, Height: 1200}, size)

	_, err = sys.Create(window.Options{Label: "main"})
	assert.ErrorIs(t, err, window.ErrLabelInUse)
	assert.Equal(t, []string{"main"}, sys.Labels())
}

func TestPanelCreation(t *testing.T) {
	sys := New()

	sf, err := sys.Create(window.Options{Label: "focus-a", Panel: &window.PanelOptions{Floating: true}})
	require.NoError(t, err)

	_, isPanel := sf.(window.Panel)
	assert.True(t, isPanel)

	plain, err := sys.Create(window.Options{Label: "focus-b"})
	require.NoError(t, err)
	_, isPanel = plain.(window.Panel)
	assert.False(t, isPanel)
}

func TestLogicalRoundTrip(t *testing.T) {
	sys := New(WithScaleFactor(2))
	sf, err := sys.Create(window.Options{Label: "focus-a", Size: window.Size{Width: 360, Height: 56}})
	require.NoError(t, err)

	require.NoError(t, sf.SetPosition(window.Point{X: 140.5, Y: 90}))
	require.NoError(t, sf.SetSize(window.Size{Width: 400, Height: 48}))

	pos, _ := sf.OuterPosition()
	size, _ := sf.OuterSize()
	assert.Equal(t, window.Point{X: 140.5, Y: 90}, pos.ToLogical(2))
	assert.Equal(t, window.Size{Width: 400, Height: 48}, size.ToLogical(2))
}

func TestMinSizeIsEnforced(t *testing.T) {
	sys := New()
	sf, err := sys.Create(window.Options{
		Label:   "focus-a",
		Size:    window.Size{Width: 360, Height: 56},
		MinSize: &window.Size{Width: 270, Height: 48},
	})
	require.NoError(t, err)

	require.NoError(t, sf.SetSize(window.Size{Width: 100, Height: 10}))
	size, _ := sf.OuterSize()
	assert.Equal(t, window.PhysicalSize{Width: 270, Height: 48}, size)
}

func TestCurrentMonitor(t *testing.T) {
	sys := New(WithMonitors(testMonitor()))
	sf, err := sys.Create(window.Options{Label: "main", Size: window.Size{Width: 100, Height: 100}})
	require.NoError(t, err)

	m, err := sf.CurrentMonitor()
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "virtual-0", m.Name)

	require.NoError(t, sf.SetPosition(window.Point{X: -5000, Y: -5000}))
	m, err = sf.CurrentMonitor()
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestCloseFreesLabel(t *testing.T) {
	sys := New()
	sf, err := sys.Create(window.Options{Label: "focusfs-a"})
	require.NoError(t, err)

	require.NoError(t, sf.Close())
	_, ok := sys.Get("focusfs-a")
	assert.False(t, ok)
	assert.ErrorIs(t, sf.Show(), window.ErrSurfaceClosed)

	_, err = sys.Create(window.Options{Label: "focusfs-a"})
	assert.NoError(t, err)
}

func TestOpsJournalOrder(t *testing.T) {
	sys := New()
	a, _ := sys.Create(window.Options{Label: "a"})
	b, _ := sys.Create(window.Options{Label: "b"})
	sys.ResetOps()

	require.NoError(t, a.Hide())
	require.NoError(t, b.Show())

	assert.Equal(t, []Op{{Label: "a", Verb: "hide"}, {Label: "b", Verb: "show"}}, sys.Ops())
	assert.Equal(t, []string{"b"}, sys.VisibleLabels())
}

func TestHoverRunsThroughDispatcher(t *testing.T) {
	var dispatched int
	sys := New(WithDispatcher(func(fn func()) {
		dispatched++
		fn()
	}))

	sf, err := sys.Create(window.Options{Label: "focus-a", Panel: &window.PanelOptions{}})
	require.NoError(t, err)

	var entered bool
	sf.(window.Panel).OnPointerEnter(func() { entered = true })

	assert.True(t, sys.Hover("focus-a"))
	assert.True(t, entered)
	assert.Equal(t, 1, dispatched)
	assert.False(t, sys.Hover("missing"))
}

func TestFailNextCreate(t *testing.T) {
	sys := New()
	sys.FailNextCreate(errors.New("boom"))

	_, err := sys.Create(window.Options{Label: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	_, err = sys.Create(window.Options{Label: "a"})
	assert.NoError(t, err)
}
