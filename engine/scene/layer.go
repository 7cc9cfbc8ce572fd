package scene

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spaghettifunk/campusmap/engine/features"
	"github.com/spaghettifunk/campusmap/engine/renderer/metadata"
)

// GraphicsLayer is a display collection: an unordered set of graphics that
// producers append to and the owner may clear. Safe for concurrent use.
type GraphicsLayer struct {
	ID string

	mu       sync.RWMutex
	graphics []*metadata.Graphic
}

func NewGraphicsLayer(id string) *GraphicsLayer {
	return &GraphicsLayer{ID: id}
}

func (gl *GraphicsLayer) Add(g *metadata.Graphic) {
	if g == nil {
		return
	}
	gl.mu.Lock()
	gl.graphics = append(gl.graphics, g)
	gl.mu.Unlock()
}

func (gl *GraphicsLayer) Clear() {
	gl.mu.Lock()
	gl.graphics = nil
	gl.mu.Unlock()
}

// Graphics returns a copy of the current contents.
func (gl *GraphicsLayer) Graphics() []*metadata.Graphic {
	gl.mu.RLock()
	defer gl.mu.RUnlock()
	out := make([]*metadata.Graphic, len(gl.graphics))
	copy(out, gl.graphics)
	return out
}

func (gl *GraphicsLayer) Len() int {
	gl.mu.RLock()
	defer gl.mu.RUnlock()
	return len(gl.graphics)
}

// PopupTemplate formats feature attributes for display. "{field}" in Title
// is replaced by the attribute value.
type PopupTemplate struct {
	Title  string
	Fields []string
}

func (p *PopupTemplate) Render(rec features.FeatureRecord) (string, []string) {
	title := p.Title
	for {
		start := strings.Index(title, "{")
		if start < 0 {
			break
		}
		end := strings.Index(title[start:], "}")
		if end < 0 {
			break
		}
		field := title[start+1 : start+end]
		title = title[:start] + rec.String(field) + title[start+end+1:]
	}
	lines := make([]string, 0, len(p.Fields))
	for _, f := range p.Fields {
		lines = append(lines, fmt.Sprintf("%s: %s", f, rec.String(f)))
	}
	return title, lines
}

// Layer is one entry of the scene's layer list.
type Layer struct {
	ID                   string
	Title                string
	Type                 string
	URL                  string
	DefinitionExpression string
	ElevationMode        string
	Opacity              float64
	Renderer             *Renderer
	Labels               *LabelClass
	Popup                *PopupTemplate
	// Graphics is set for graphics layers only.
	Graphics *GraphicsLayer

	mu            sync.RWMutex
	visible       bool
	labelsVisible bool
}

func newLayer(cfg LayerConfig) (*Layer, error) {
	l := &Layer{
		ID:                   cfg.ID,
		Title:                cfg.Title,
		Type:                 cfg.Type,
		URL:                  cfg.URL,
		DefinitionExpression: cfg.DefinitionExpression,
		ElevationMode:        cfg.ElevationMode,
		Opacity:              cfg.Opacity,
		visible:              cfg.Visible == nil || *cfg.Visible,
	}
	if l.Opacity == 0 {
		l.Opacity = 1
	}
	if l.ElevationMode == "" {
		l.ElevationMode = "on-the-ground"
	}
	if cfg.Renderer != nil {
		r, err := newRenderer(cfg.Renderer)
		if err != nil {
			return nil, fmt.Errorf("layer '%s': %w", cfg.ID, err)
		}
		l.Renderer = r
	}
	if cfg.Labels != nil {
		lc, err := newLabelClass(cfg.Labels)
		if err != nil {
			return nil, fmt.Errorf("layer '%s' labels: %w", cfg.ID, err)
		}
		l.Labels = lc
		l.labelsVisible = true
	}
	if cfg.Popup != nil {
		l.Popup = &PopupTemplate{Title: cfg.Popup.Title, Fields: cfg.Popup.Fields}
	}
	if cfg.Type == LayerTypeGraphics {
		l.Graphics = NewGraphicsLayer(cfg.ID)
	}
	return l, nil
}

func (l *Layer) HasLabels() bool {
	return l.Labels != nil
}

func (l *Layer) Visible() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.visible
}

func (l *Layer) SetVisible(v bool) {
	l.mu.Lock()
	l.visible = v
	l.mu.Unlock()
}

// LabelsVisible is false for layers without a label class.
func (l *Layer) LabelsVisible() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.Labels != nil && l.labelsVisible
}

func (l *Layer) SetLabelsVisible(v bool) {
	if l.Labels == nil {
		return
	}
	l.mu.Lock()
	l.labelsVisible = v
	l.mu.Unlock()
}
