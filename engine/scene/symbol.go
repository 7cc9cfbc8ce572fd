package scene

import (
	"fmt"
	"image/color"

	"github.com/spaghettifunk/campusmap/engine/features"
	"github.com/spaghettifunk/campusmap/engine/renderer/metadata"
)

// ParseSymbol converts a symbol document into a drawable symbol. An empty
// document yields a plain mesh symbol without edges.
func ParseSymbol(cfg SymbolConfig) (metadata.Symbol, error) {
	s := metadata.Symbol{Size: cfg.Size}

	switch cfg.Type {
	case "", "mesh":
		s.Type = metadata.SymbolMesh
	case "point":
		s.Type = metadata.SymbolPoint
	case "fill":
		s.Type = metadata.SymbolFill
	case "line":
		s.Type = metadata.SymbolLine
	default:
		return s, fmt.Errorf("unknown symbol type '%s'", cfg.Type)
	}

	var err error
	if s.Color, err = optionalColor(cfg.Color, color.RGBA{255, 255, 255, 255}); err != nil {
		return s, err
	}
	if s.Outline, err = optionalColor(cfg.Outline, color.RGBA{}); err != nil {
		return s, err
	}
	if s.Edges, err = ParseEdges(cfg.Edges); err != nil {
		return s, err
	}
	return s, nil
}

// ParseEdges converts an edge document. Missing type means no edges.
func ParseEdges(cfg EdgesConfig) (metadata.Edges, error) {
	e := metadata.Edges{
		Type:            metadata.ParseEdgeType(cfg.Type),
		Size:            cfg.Size,
		ExtensionLength: cfg.ExtensionLength,
	}
	if cfg.Type != "" && cfg.Type != "none" && e.Type == metadata.EdgeNone {
		return e, fmt.Errorf("unknown edge type '%s'", cfg.Type)
	}
	if e.Size < 0 || e.ExtensionLength < 0 {
		return e, fmt.Errorf("edge size and extension length must not be negative")
	}
	var err error
	e.Color, err = optionalColor(cfg.Color, color.RGBA{0, 0, 0, 255})
	return e, err
}

func optionalColor(s string, fallback color.RGBA) (color.RGBA, error) {
	if s == "" {
		return fallback, nil
	}
	return metadata.ParseColor(s)
}

// Renderer picks the symbol of a feature.
type Renderer struct {
	Field   string
	Default metadata.Symbol
	Values  map[string]metadata.Symbol
}

func newRenderer(cfg *RendererConfig) (*Renderer, error) {
	def, err := ParseSymbol(cfg.Symbol)
	if err != nil {
		return nil, err
	}
	r := &Renderer{Default: def}
	if cfg.Type == "unique-value" {
		r.Field = cfg.Field
		r.Values = make(map[string]metadata.Symbol, len(cfg.Values))
		for _, v := range cfg.Values {
			s, err := ParseSymbol(v.Symbol)
			if err != nil {
				return nil, err
			}
			r.Values[v.Value] = s
		}
	}
	return r, nil
}

// SymbolFor returns the unique-value symbol matching the record, or the
// default symbol.
func (r *Renderer) SymbolFor(rec features.FeatureRecord) metadata.Symbol {
	if r.Field == "" {
		return r.Default
	}
	if s, ok := r.Values[rec.String(r.Field)]; ok {
		return s
	}
	return r.Default
}

// LabelClass describes the text drawn next to features of a layer.
type LabelClass struct {
	Field     string
	Font      string
	Size      float64
	Color     color.RGBA
	HaloColor color.RGBA
	HaloSize  float64
	Where     string
}

func newLabelClass(cfg *LabelConfig) (*LabelClass, error) {
	lc := &LabelClass{
		Field:    cfg.Field,
		Font:     cfg.Font,
		Size:     cfg.Size,
		HaloSize: cfg.HaloSize,
		Where:    cfg.Where,
	}
	if lc.Size == 0 {
		lc.Size = 10
	}
	var err error
	if lc.Color, err = optionalColor(cfg.Color, color.RGBA{0, 0, 0, 255}); err != nil {
		return nil, err
	}
	if lc.HaloColor, err = optionalColor(cfg.HaloColor, color.RGBA{255, 255, 255, 255}); err != nil {
		return nil, err
	}
	return lc, nil
}
