package engine

import (
	"github.com/spaghettifunk/campusmap/engine/scene"
	"github.com/spaghettifunk/campusmap/engine/systems"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	SystemManager     *systems.SystemManager
	Session           *scene.Session
	State             interface{}
	FnBoot            Boot
	FnInitialize      Initialize
	FnOnBatch         OnBatch
	FnShutdown        Shutdown
}

// Boot returns the scene document the engine composes.
type Boot func() (*scene.Config, error)

// Initialize runs once the session exists, before any pipeline starts.
type Initialize func() error

// OnBatch is called for every finished pipeline batch.
type OnBatch func(report systems.BatchReport)

type Shutdown func() error
