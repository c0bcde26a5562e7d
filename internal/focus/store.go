package focus

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/taskfocus/taskfocus/pkg/window"
)

// LastPanelKey is the single key of the last-panel store
const LastPanelKey = "last-panel"

// GeometryStore is a mutex-guarded map of logical window rectangles.
// The lock is held for one map access only, never across a window-system call.
type GeometryStore struct {
	mu      sync.Mutex
	entries map[string]window.Rect
}

// NewGeometryStore creates an empty store
func NewGeometryStore() *GeometryStore {
	return &GeometryStore{entries: make(map[string]window.Rect)}
}

// Get returns the snapshot stored under key
func (s *GeometryStore) Get(key string) (window.Rect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.entries[key]
	return r, ok
}

// Put stores a snapshot, replacing any previous one
func (s *GeometryStore) Put(key string, r window.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = r
}

// Remove drops the snapshot stored under key
func (s *GeometryStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Take returns and removes the snapshot stored under key
func (s *GeometryStore) Take(key string) (window.Rect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	return r, ok
}

// Len returns the number of stored snapshots
func (s *GeometryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stores groups the three independent geometry stores
type Stores struct {
	// LastPanel holds the geometry of the most recently dismissed panel
	LastPanel *GeometryStore
	// Handoff holds panel geometry captured on entering a fullscreen handoff, keyed by task
	Handoff *GeometryStore
	// PreFullscreen holds geometry captured before a simulated fullscreen, keyed by label
	PreFullscreen *GeometryStore
}

// NewStores creates three empty stores
func NewStores() *Stores {
	return &Stores{
		LastPanel:     NewGeometryStore(),
		Handoff:       NewGeometryStore(),
		PreFullscreen: NewGeometryStore(),
	}
}

// Capture reads the live rectangle of a surface in logical units. When
// inner is set the client-area size is used instead of the outer size.
func Capture(sf window.Surface, inner bool) (window.Rect, error) {
	scale, err := sf.ScaleFactor()
	if err != nil {
		scale = 1.0
	}
	pos, err := sf.OuterPosition()
	if err != nil {
		return window.Rect{}, errors.Wrapf(err, "read position of %s", sf.Label())
	}
	var size window.PhysicalSize
	if inner {
		size, err = sf.InnerSize()
	} else {
		size, err = sf.OuterSize()
	}
	if err != nil {
		return window.Rect{}, errors.Wrapf(err, "read size of %s", sf.Label())
	}

	origin := pos.ToLogical(scale)
	logical := size.ToLogical(scale)
	return window.Rect{X: origin.X, Y: origin.Y, Width: logical.Width, Height: logical.Height}, nil
}

// Apply writes a logical rectangle to a surface, size first
func Apply(sf window.Surface, r window.Rect) error {
	if err := sf.SetSize(r.Size()); err != nil {
		return errors.Wrapf(err, "resize %s", sf.Label())
	}
	if err := sf.SetPosition(r.Origin()); err != nil {
		return errors.Wrapf(err, "move %s", sf.Label())
	}
	return nil
}
