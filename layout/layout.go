// Package layout supplies the on-screen rectangles of the host's UI
// elements. Content surfaces are positioned to overlay these rectangles.
package layout

import (
	"math"
	"sync"
)

// Rect is an element's bounding box in viewport pixels.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Empty reports whether r covers no pixels.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Size returns the integer pixel size, at least 1x1.
func (r Rect) Size() (int, int) {
	w := int(math.Round(r.Width))
	h := int(math.Round(r.Height))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// Source reports element rectangles. An element that is absent or hidden
// reports ok == false.
type Source interface {
	Rect(elementID string) (r Rect, ok bool)
	Viewport() (width, height int)
}

// Static is an in-memory Source whose contents are set by the host. It is
// safe for concurrent use.
type Static struct {
	mu       sync.RWMutex
	rects    map[string]Rect
	vw, vh   int
	revision uint64
}

// NewStatic returns a Static with the given viewport size.
func NewStatic(viewportW, viewportH int) *Static {
	return &Static{rects: make(map[string]Rect), vw: viewportW, vh: viewportH}
}

// Set places or moves an element.
func (s *Static) Set(elementID string, r Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rects[elementID] = r
	s.revision++
}

// Remove detaches an element. Anchors for it stop reporting attached.
func (s *Static) Remove(elementID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rects, elementID)
	s.revision++
}

// SetViewport changes the viewport size.
func (s *Static) SetViewport(w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vw, s.vh = w, h
	s.revision++
}

// Rect implements Source.
func (s *Static) Rect(elementID string) (Rect, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rects[elementID]
	if !ok || r.Empty() {
		return Rect{}, false
	}
	return r, true
}

// Viewport implements Source.
func (s *Static) Viewport() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vw, s.vh
}

// Revision increases on every change.
func (s *Static) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Anchor is an element handle that reports whether the element is still
// present in its source. It satisfies pool.Anchor.
type Anchor struct {
	Source    Source
	ElementID string
}

// Attached reports whether the element is present.
func (a Anchor) Attached() bool {
	if a.Source == nil {
		return false
	}
	_, ok := a.Source.Rect(a.ElementID)
	return ok
}
