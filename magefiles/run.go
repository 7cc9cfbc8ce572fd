//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Composes a scene variant: blueprint, classical or hand-drawn.
func (Run) Scene(variant string) error {
	mg.Deps(Build.Binary)
	fmt.Printf("Run scene %s...\n", variant)
	if _, err := executeCmd("bin/campusmap", withArgs("-variant", variant, "-assets", "assets"), withStream(), withEnv("CAMPUSMAP_LOG_LEVEL=debug")); err != nil {
		return err
	}
	return nil
}

// Composes every variant in turn without reading commands.
func (Run) All() error {
	mg.Deps(Build.Binary)
	for _, variant := range []string{"blueprint", "classical", "hand-drawn"} {
		fmt.Printf("Run scene %s...\n", variant)
		if _, err := executeCmd("bin/campusmap", withArgs("-variant", variant, "-interactive=false"), withDir(mustGetwd())); err != nil {
			return err
		}
	}
	return nil
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return wd
}
