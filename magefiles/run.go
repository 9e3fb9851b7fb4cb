//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Loads a scene on the configured device. Set SCENE to the file and CONFIG
// to an optional TOML configuration.
func (Run) Load() error {
	mg.Deps(Build.Shaders)
	scene := os.Getenv("SCENE")
	if scene == "" {
		return fmt.Errorf("SCENE is not set")
	}
	args := []string{"run", "."}
	if cfg := os.Getenv("CONFIG"); cfg != "" {
		args = append(args, "-config", cfg)
	}
	args = append(args, "load", scene)
	_, err := executeCmd("go", withArgs(args...), withStream())
	return err
}

// Watches the assets directory and reloads scenes as they change.
func (Run) Watch() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Watching assets...")
	_, err := executeCmd("go", withArgs("run", ".", "watch"), withStream())
	return err
}
