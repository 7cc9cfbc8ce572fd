package scene

import (
	"fmt"
	"image/color"
	"time"

	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/math"
	"github.com/spaghettifunk/campusmap/engine/renderer/components"
	"github.com/spaghettifunk/campusmap/engine/renderer/metadata"
)

type Environment struct {
	Background    color.RGBA
	Atmosphere    bool
	Stars         bool
	GroundColor   color.RGBA
	GroundOpacity float64
}

type Lighting struct {
	// Zero when the scene uses the current time.
	Date             time.Time
	DirectShadows    bool
	AmbientOcclusion bool
}

// Location is the simulated geolocation shown by the location toggle.
type Location struct {
	Position math.Vec3
	Symbol   metadata.Symbol
	LayerID  string
}

// Scene is a composed variant: environment, viewpoint, layers and the
// pipelines that fill its graphics layers.
type Scene struct {
	Name        string
	Title       string
	Environment Environment
	Lighting    Lighting
	Camera      *components.Camera
	Location    Location
	Layers      []*Layer
	Pipelines   []PipelineConfig
	UI          UIConfig
	Materials   []string
}

// New builds a scene from a validated config.
func New(cfg *Config) (*Scene, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Scene{
		Name:      cfg.Name,
		Title:     cfg.Title,
		Pipelines: cfg.Pipelines,
		UI:        cfg.UI,
		Materials: cfg.Materials,
	}
	if s.Title == "" {
		s.Title = cfg.Name
	}

	var err error
	env := cfg.Environment
	s.Environment = Environment{Atmosphere: env.Atmosphere, Stars: env.Stars, GroundOpacity: env.GroundOpacity}
	if s.Environment.Background, err = optionalColor(env.Background, color.RGBA{255, 255, 255, 255}); err != nil {
		return nil, fmt.Errorf("%w: environment.background: %v", core.ErrInvalidConfig, err)
	}
	if s.Environment.GroundColor, err = optionalColor(env.GroundColor, color.RGBA{255, 255, 255, 255}); err != nil {
		return nil, fmt.Errorf("%w: environment.ground_color: %v", core.ErrInvalidConfig, err)
	}
	if s.Environment.GroundOpacity == 0 {
		s.Environment.GroundOpacity = 1
	}

	s.Lighting = Lighting{DirectShadows: cfg.Lighting.DirectShadows, AmbientOcclusion: cfg.Lighting.AmbientOcclusion}
	if cfg.Lighting.Date != "" {
		if s.Lighting.Date, err = time.Parse(time.RFC3339, cfg.Lighting.Date); err != nil {
			return nil, fmt.Errorf("%w: lighting.date: %v", core.ErrInvalidConfig, err)
		}
	}

	s.Camera = components.NewCamera()
	s.Camera.SetPosition(math.Vec3{cfg.Camera.X, cfg.Camera.Y, cfg.Camera.Z})
	s.Camera.SetOrientation(cfg.Camera.Heading, cfg.Camera.Tilt)
	if cfg.Camera.FOV > 0 {
		s.Camera.FOV = cfg.Camera.FOV
	}

	s.Location = Location{
		Position: math.Vec3{cfg.Location.X, cfg.Location.Y, cfg.Location.Z},
		LayerID:  cfg.Location.Layer,
		Symbol:   metadata.Symbol{Type: metadata.SymbolPoint, Size: cfg.Location.Size},
	}
	if s.Location.Symbol.Size == 0 {
		s.Location.Symbol.Size = 12
	}
	if s.Location.Symbol.Color, err = optionalColor(cfg.Location.Color, color.RGBA{0, 122, 194, 255}); err != nil {
		return nil, fmt.Errorf("%w: location.color: %v", core.ErrInvalidConfig, err)
	}
	s.Location.Symbol.Outline = color.RGBA{255, 255, 255, 255}

	for _, lc := range cfg.Layers {
		l, err := newLayer(lc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
		}
		s.Layers = append(s.Layers, l)
	}
	return s, nil
}

func (s *Scene) Layer(id string) (*Layer, bool) {
	for _, l := range s.Layers {
		if l.ID == id {
			return l, true
		}
	}
	return nil, false
}

// GraphicsLayer returns the display collection of a graphics layer.
func (s *Scene) GraphicsLayer(id string) (*GraphicsLayer, bool) {
	l, ok := s.Layer(id)
	if !ok || l.Graphics == nil {
		return nil, false
	}
	return l.Graphics, true
}
