package scene

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/renderer/metadata"
)

// Config is a scene variant document.
type Config struct {
	Name        string            `toml:"name"`
	Title       string            `toml:"title"`
	Environment EnvironmentConfig `toml:"environment"`
	Lighting    LightingConfig    `toml:"lighting"`
	Camera      CameraConfig      `toml:"camera"`
	Location    LocationConfig    `toml:"location"`
	Layers      []LayerConfig     `toml:"layers"`
	Pipelines   []PipelineConfig  `toml:"pipelines"`
	UI          UIConfig          `toml:"ui"`
	Materials   []string          `toml:"materials"`
}

type EnvironmentConfig struct {
	Background    string  `toml:"background"`
	Atmosphere    bool    `toml:"atmosphere"`
	Stars         bool    `toml:"stars"`
	GroundColor   string  `toml:"ground_color"`
	GroundOpacity float64 `toml:"ground_opacity"`
}

type LightingConfig struct {
	Date             string `toml:"date"`
	DirectShadows    bool   `toml:"direct_shadows"`
	AmbientOcclusion bool   `toml:"ambient_occlusion"`
}

type CameraConfig struct {
	X       float64 `toml:"x"`
	Y       float64 `toml:"y"`
	Z       float64 `toml:"z"`
	Heading float64 `toml:"heading"`
	Tilt    float64 `toml:"tilt"`
	FOV     float64 `toml:"fov"`
}

// LocationConfig places the simulated geolocation marker.
type LocationConfig struct {
	X     float64 `toml:"x"`
	Y     float64 `toml:"y"`
	Z     float64 `toml:"z"`
	Color string  `toml:"color"`
	Size  float64 `toml:"size"`
	Layer string  `toml:"layer"`
}

type UIConfig struct {
	LabelsVisible   bool `toml:"labels_visible"`
	LocationVisible bool `toml:"location_visible"`
}

type EdgesConfig struct {
	Type            string  `toml:"type"`
	Color           string  `toml:"color"`
	Size            float64 `toml:"size"`
	ExtensionLength float64 `toml:"extension_length"`
}

type SymbolConfig struct {
	Type    string      `toml:"type"`
	Color   string      `toml:"color"`
	Size    float64     `toml:"size"`
	Outline string      `toml:"outline"`
	Edges   EdgesConfig `toml:"edges"`
}

type UniqueValueConfig struct {
	Value  string       `toml:"value"`
	Label  string       `toml:"label"`
	Symbol SymbolConfig `toml:"symbol"`
}

type RendererConfig struct {
	Type   string              `toml:"type"`
	Field  string              `toml:"field"`
	Symbol SymbolConfig        `toml:"symbol"`
	Values []UniqueValueConfig `toml:"values"`
}

type LabelConfig struct {
	Field     string  `toml:"field"`
	Font      string  `toml:"font"`
	Size      float64 `toml:"size"`
	Color     string  `toml:"color"`
	HaloColor string  `toml:"halo_color"`
	HaloSize  float64 `toml:"halo_size"`
	Where     string  `toml:"where"`
}

type PopupConfig struct {
	Title  string   `toml:"title"`
	Fields []string `toml:"fields"`
}

type LayerConfig struct {
	ID                   string          `toml:"id"`
	Title                string          `toml:"title"`
	Type                 string          `toml:"type"`
	URL                  string          `toml:"url"`
	DefinitionExpression string          `toml:"definition_expression"`
	ElevationMode        string          `toml:"elevation_mode"`
	Visible              *bool           `toml:"visible"`
	Opacity              float64         `toml:"opacity"`
	Renderer             *RendererConfig `toml:"renderer"`
	Labels               *LabelConfig    `toml:"labels"`
	Popup                *PopupConfig    `toml:"popup"`
}

// CatalogEntryConfig maps a category to the model standing in for it.
type CatalogEntryConfig struct {
	Model           string  `toml:"model"`
	Scale           float64 `toml:"scale"`
	CanopyComponent string  `toml:"canopy_component"`
	TrunkComponent  string  `toml:"trunk_component"`
	CanopyColor     string  `toml:"canopy_color"`
	TrunkColor      string  `toml:"trunk_color"`
	CanopyMaterial  string  `toml:"canopy_material"`
	TrunkMaterial   string  `toml:"trunk_material"`
}

type CatalogConfig struct {
	Default CatalogEntryConfig            `toml:"default"`
	Classes map[string]CatalogEntryConfig `toml:"classes"`
}

type PipelineConfig struct {
	ID            string         `toml:"id"`
	Layer         string         `toml:"layer"`
	Kind          string         `toml:"kind"`
	URL           string         `toml:"url"`
	Where         string         `toml:"where"`
	OutFields     []string       `toml:"out_fields"`
	OutSR         int            `toml:"out_sr"`
	ClassField    string         `toml:"class_field"`
	HeightField   string         `toml:"height_field"`
	RotationField string         `toml:"rotation_field"`
	Symbol        SymbolConfig   `toml:"symbol"`
	Catalog       *CatalogConfig `toml:"catalog"`
}

const (
	LayerTypeScene    = "scene"
	LayerTypeFeature  = "feature"
	LayerTypeGraphics = "graphics"

	PipelineKindModel   = "model"
	PipelineKindPolygon = "polygon"
)

func (c *Config) Layer(id string) (*LayerConfig, bool) {
	for i := range c.Layers {
		if c.Layers[i].ID == id {
			return &c.Layers[i], true
		}
	}
	return nil, false
}

// Validate checks cross references and values that cannot be expressed in
// the document structure.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.Name) == "" {
		add("name is required")
	}
	if c.Environment.Background != "" {
		if _, err := metadata.ParseColor(c.Environment.Background); err != nil {
			add("environment.background: %v", err)
		}
	}
	if c.Camera.FOV < 0 || c.Camera.FOV >= 180 {
		add("camera.fov must be in [0, 180)")
	}

	seen := map[string]bool{}
	for i, l := range c.Layers {
		if l.ID == "" {
			add("layers[%d]: id is required", i)
			continue
		}
		if seen[l.ID] {
			add("layers[%d]: duplicate id '%s'", i, l.ID)
		}
		seen[l.ID] = true
		switch l.Type {
		case LayerTypeScene, LayerTypeFeature:
			if l.URL == "" {
				add("layer '%s': url is required for %s layers", l.ID, l.Type)
			}
		case LayerTypeGraphics:
		default:
			add("layer '%s': unknown type '%s'", l.ID, l.Type)
		}
		if l.Renderer != nil {
			if err := validateRenderer(l.Renderer); err != nil {
				add("layer '%s': %v", l.ID, err)
			}
		}
	}

	if c.Location.Layer != "" {
		if l, ok := c.Layer(c.Location.Layer); !ok || l.Type != LayerTypeGraphics {
			add("location.layer '%s' must name a graphics layer", c.Location.Layer)
		}
	}

	for i, p := range c.Pipelines {
		name := p.ID
		if name == "" {
			name = fmt.Sprintf("pipelines[%d]", i)
		}
		if p.URL == "" {
			add("pipeline '%s': url is required", name)
		}
		if l, ok := c.Layer(p.Layer); !ok || l.Type != LayerTypeGraphics {
			add("pipeline '%s': layer '%s' must name a graphics layer", name, p.Layer)
		}
		if _, err := ParseSymbol(p.Symbol); err != nil {
			add("pipeline '%s': symbol: %v", name, err)
		}
		switch p.Kind {
		case PipelineKindPolygon:
		case PipelineKindModel:
			if p.Catalog == nil {
				add("pipeline '%s': model pipelines need a catalog", name)
				continue
			}
			if err := validateCatalogEntry(p.Catalog.Default); err != nil {
				add("pipeline '%s': catalog.default: %v", name, err)
			}
			for class, e := range p.Catalog.Classes {
				if err := validateCatalogEntry(e); err != nil {
					add("pipeline '%s': catalog.classes.%s: %v", name, class, err)
				}
			}
		default:
			add("pipeline '%s': unknown kind '%s'", name, p.Kind)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: scene '%s': %s", core.ErrInvalidConfig, c.Name, strings.Join(problems, "; "))
	}
	return nil
}

func validateRenderer(r *RendererConfig) error {
	switch r.Type {
	case "simple":
		_, err := ParseSymbol(r.Symbol)
		return err
	case "unique-value":
		if r.Field == "" {
			return fmt.Errorf("unique-value renderer needs a field")
		}
		for _, v := range r.Values {
			if _, err := ParseSymbol(v.Symbol); err != nil {
				return fmt.Errorf("value '%s': %w", v.Value, err)
			}
		}
		_, err := ParseSymbol(r.Symbol)
		return err
	default:
		return fmt.Errorf("unknown renderer type '%s'", r.Type)
	}
}

func validateCatalogEntry(e CatalogEntryConfig) error {
	if e.Model == "" {
		return fmt.Errorf("model is required")
	}
	if e.Scale <= 0 {
		return fmt.Errorf("scale must be positive")
	}
	for _, c := range []string{e.CanopyColor, e.TrunkColor} {
		if c == "" {
			continue
		}
		if _, err := metadata.ParseColor(c); err != nil {
			return err
		}
	}
	return nil
}
