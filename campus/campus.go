package campus

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/spaghettifunk/campusmap/engine"
	"github.com/spaghettifunk/campusmap/engine/assets/loaders"
	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/scene"
	"github.com/spaghettifunk/campusmap/engine/systems"
)

//go:embed scenes/*.toml
var builtinScenes embed.FS

const (
	VariantBlueprint = "blueprint"
	VariantClassical = "classical"
	VariantHandDrawn = "hand-drawn"
)

// Variants lists the built-in scene variants.
var Variants = []string{VariantBlueprint, VariantClassical, VariantHandDrawn}

var variantFiles = map[string]string{
	VariantBlueprint: "blueprint.toml",
	VariantClassical: "classical.toml",
	VariantHandDrawn: "handdrawn.toml",
	"handdrawn":      "handdrawn.toml",
}

type CampusGame struct {
	*engine.Game
}

type gameState struct {
	mu      sync.Mutex
	reports map[string]systems.BatchReport
}

func NewCampusGame(cfg *engine.ApplicationConfig) (*CampusGame, error) {
	if _, ok := variantFiles[cfg.Variant]; !ok {
		return nil, fmt.Errorf("%w: '%s' (known: %s)", core.ErrUnknownVariant, cfg.Variant, strings.Join(Variants, ", "))
	}
	cg := &CampusGame{
		Game: &engine.Game{
			ApplicationConfig: cfg,
			State: &gameState{
				reports: make(map[string]systems.BatchReport),
			},
		},
	}

	cg.FnBoot = cg.Boot
	cg.FnInitialize = cg.Initialize
	cg.FnOnBatch = cg.OnBatch
	cg.FnShutdown = cg.Shutdown

	return cg, nil
}

// Boot returns the scene of the configured variant. A document named after
// the variant in the asset directory's scenes/ folder wins over the
// built-in one.
func (g *CampusGame) Boot() (*scene.Config, error) {
	variant := g.ApplicationConfig.Variant
	core.LogInfo("booting campus map, variant '%s'...", variant)

	file, ok := variantFiles[variant]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", core.ErrUnknownVariant, variant)
	}

	if g.SystemManager != nil {
		for _, ref := range []string{path.Join("scenes", variant+".toml"), path.Join("scenes", file)} {
			if !g.SystemManager.ResourceSystem.HasAsset(ref) {
				continue
			}
			core.LogInfo("using scene override %s", ref)
			return g.SystemManager.ResourceSystem.LoadScene(ref)
		}
	}
	return LoadBuiltinScene(variant)
}

// LoadBuiltinScene parses the embedded document of a variant.
func LoadBuiltinScene(variant string) (*scene.Config, error) {
	file, ok := variantFiles[variant]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", core.ErrUnknownVariant, variant)
	}
	data, err := builtinScenes.ReadFile(path.Join("scenes", file))
	if err != nil {
		return nil, err
	}
	cfg, err := loaders.ParseSceneConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("built-in scene '%s': %w", variant, err)
	}
	return cfg, nil
}

// Initialize warms the material cache with the materials the scene names.
// A missing material is not fatal, records using it fall back to the
// default material.
func (g *CampusGame) Initialize() error {
	for _, name := range g.Session.Scene.Materials {
		if _, err := g.SystemManager.MaterialSystem.Acquire(name); err != nil {
			core.LogWarn("material '%s' not preloaded: %s", name, err)
		}
	}
	core.LogInfo("type 'labels', 'location' or 'quit'")
	return nil
}

func (g *CampusGame) OnBatch(report systems.BatchReport) {
	state := g.State.(*gameState)
	state.mu.Lock()
	state.reports[report.Pipeline] = report
	state.mu.Unlock()

	if report.Err != nil {
		core.LogError("%s: %s", report.Pipeline, report.Err)
		return
	}
	core.LogInfo("%s: %d fetched, %d added, %d failed, %d skipped in %s",
		report.Pipeline, report.Fetched, report.Appended, report.Failed, report.Skipped, report.Elapsed)
}

// Reports returns the last report of every pipeline that finished.
func (g *CampusGame) Reports() map[string]systems.BatchReport {
	state := g.State.(*gameState)
	state.mu.Lock()
	defer state.mu.Unlock()
	out := make(map[string]systems.BatchReport, len(state.reports))
	for k, v := range state.reports {
		out[k] = v
	}
	return out
}

func (g *CampusGame) Shutdown() error {
	core.LogInfo("shutting down campus map...")
	if g.SystemManager != nil {
		if n := len(g.SystemManager.Diagnostics.Errors("")); n > 0 {
			core.LogWarn("%d conversion problems were reported during the session", n)
		}
	}
	return nil
}
