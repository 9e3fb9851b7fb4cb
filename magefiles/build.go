//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles every compute kernel in shaders/ into assets/kernels/<name>.spv.
func (Build) Shaders() error {
	sources, err := filepath.Glob(filepath.Join("shaders", "*.comp"))
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Println("No kernels in shaders/, nothing to compile")
		return nil
	}
	out := filepath.Join("assets", "kernels")
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	for _, src := range sources {
		name := strings.TrimSuffix(filepath.Base(src), ".comp") + ".spv"
		if _, err := executeCmd("glslc", withArgs("--target-env=vulkan1.2", "-fshader-stage=comp", src, "-o", filepath.Join(out, name)), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds the anima-mesh binary into bin/.
func (Build) Binary() error {
	if _, err := executeCmd("go", withArgs("mod", "download")); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "anima-mesh"), "."), withStream())
	return err
}
