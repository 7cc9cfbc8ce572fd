package scene

import (
	"sync"

	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/renderer/metadata"
)

const locationLayerID = "location"

// UIState holds the two toggles shown to the user.
type UIState struct {
	LabelsVisible   bool
	LocationVisible bool
}

// Session is a running scene: the display collections plus the UI state
// that drives them.
type Session struct {
	Scene *Scene

	mu       sync.Mutex
	ui       UIState
	location *GraphicsLayer
}

func NewSession(s *Scene) *Session {
	sess := &Session{Scene: s}
	if gl, ok := s.GraphicsLayer(s.Location.LayerID); ok {
		sess.location = gl
	} else {
		sess.location = NewGraphicsLayer(locationLayerID)
	}

	sess.ui = UIState{
		LabelsVisible:   s.UI.LabelsVisible,
		LocationVisible: s.UI.LocationVisible,
	}
	sess.applyLabels()
	sess.applyLocation()
	return sess
}

func (s *Session) UI() UIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ui
}

// LocationLayer is the collection the location marker is drawn in.
func (s *Session) LocationLayer() *GraphicsLayer {
	return s.location
}

// ToggleLabels flips label visibility on every layer carrying labels.
func (s *Session) ToggleLabels() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui.LabelsVisible = !s.ui.LabelsVisible
	s.applyLabels()
	core.LogDebug("labels visible: %t", s.ui.LabelsVisible)
	return s.ui.LabelsVisible
}

// ToggleLocation flips the simulated location marker. The location layer
// is cleared either way and holds exactly one marker while visible.
func (s *Session) ToggleLocation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui.LocationVisible = !s.ui.LocationVisible
	s.applyLocation()
	core.LogDebug("location visible: %t", s.ui.LocationVisible)
	return s.ui.LocationVisible
}

func (s *Session) applyLabels() {
	for _, l := range s.Scene.Layers {
		if l.HasLabels() {
			l.SetLabelsVisible(s.ui.LabelsVisible)
		}
	}
}

func (s *Session) applyLocation() {
	s.location.Clear()
	if !s.ui.LocationVisible {
		return
	}
	pos := s.Scene.Location.Position
	s.location.Add(&metadata.Graphic{
		ID:     core.NewIdentifier(),
		Point:  &pos,
		Symbol: s.Scene.Location.Symbol,
		Attributes: map[string]interface{}{
			"kind": "simulated-location",
		},
	})
}

// Register hooks the toggles onto the event system.
func (s *Session) Register(es *core.EventSystem) {
	es.Register(core.EVENT_CODE_TOGGLE_LABELS, s, s.onEvent)
	es.Register(core.EVENT_CODE_TOGGLE_LOCATION, s, s.onEvent)
}

func (s *Session) Unregister(es *core.EventSystem) {
	es.Unregister(core.EVENT_CODE_TOGGLE_LABELS, s)
	es.Unregister(core.EVENT_CODE_TOGGLE_LOCATION, s)
}

func (s *Session) onEvent(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_TOGGLE_LABELS:
		core.LogInfo("labels %s", onOff(s.ToggleLabels()))
		return true
	case core.EVENT_CODE_TOGGLE_LOCATION:
		core.LogInfo("simulated location %s", onOff(s.ToggleLocation()))
		return true
	}
	return false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

type LayerSnapshot struct {
	ID            string
	Type          string
	Visible       bool
	LabelsVisible bool
	Graphics      int
}

type Snapshot struct {
	Scene  string
	UI     UIState
	Layers []LayerSnapshot
}

// Snapshot reports the state of every layer.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{Scene: s.Scene.Name, UI: s.UI()}
	for _, l := range s.Scene.Layers {
		ls := LayerSnapshot{ID: l.ID, Type: l.Type, Visible: l.Visible(), LabelsVisible: l.LabelsVisible()}
		if l.Graphics != nil {
			ls.Graphics = l.Graphics.Len()
		}
		snap.Layers = append(snap.Layers, ls)
	}
	if s.location.ID == locationLayerID {
		if _, ok := s.Scene.Layer(locationLayerID); !ok {
			snap.Layers = append(snap.Layers, LayerSnapshot{
				ID: locationLayerID, Type: LayerTypeGraphics, Visible: true, Graphics: s.location.Len(),
			})
		}
	}
	return snap
}
