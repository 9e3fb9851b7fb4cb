/*
anima-mesh inspects, converts and loads mesh and scene files.

	anima-mesh [-config file] info [-format text|yaml|dump] <file>
	anima-mesh [-config file] reorder <in.kmf|in.ksc> <out>
	anima-mesh [-config file] import <in.gltf|in.glb> <out.ksc>
	anima-mesh [-config file] load <scene>
	anima-mesh [-config file] watch
	anima-mesh [-config file] sample <out.ksc>
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine"
	"github.com/spaghettifunk/anima-mesh/engine/assets/loaders"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/resources"
	"github.com/spaghettifunk/anima-mesh/testbed"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if err != errUsage {
			core.LogError(err.Error())
		}
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("anima-mesh", flag.ContinueOnError)
	configPath := fs.String("config", "", "TOML configuration file")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: anima-mesh [-config file] info|reorder|import|load|watch|sample [args]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	cfg := engine.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = engine.LoadConfig(*configPath); err != nil {
			return err
		}
	}
	if err := core.SetLogLevel(cfg.Log.Level); err != nil {
		return err
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "info":
		return cmdInfo(rest, stdout)
	case "reorder":
		return cmdReorder(rest)
	case "import":
		return cmdImport(rest)
	case "load":
		return cmdLoad(cfg, rest, stdout)
	case "watch":
		return cmdWatch(cfg)
	case "sample":
		return cmdSample(rest)
	}
	fs.Usage()
	return errors.Errorf("unknown command %q", cmd)
}

func expectArgs(fs *flag.FlagSet, args []string, n int, usage string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != n {
		fmt.Fprintf(fs.Output(), "usage: anima-mesh %s %s\n", fs.Name(), usage)
		return errUsage
	}
	return nil
}

// readFile decodes a .kmf mesh or .ksc scene file.
func readFile(path string) (any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".kmf":
		return resources.LoadMeshFile(path)
	case ".ksc":
		return resources.LoadSceneFile(path)
	}
	return nil, errors.Errorf("%s: expected a .kmf or .ksc file", path)
}

func cmdInfo(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	format := fs.String("format", "text", "output format: text, yaml or dump")
	if err := expectArgs(fs, args, 1, "[-format text|yaml|dump] <file>"); err != nil {
		return err
	}
	v, err := readFile(fs.Arg(0))
	if err != nil {
		return err
	}
	return printInfo(stdout, v, *format)
}

func cmdReorder(args []string) error {
	fs := flag.NewFlagSet("reorder", flag.ContinueOnError)
	if err := expectArgs(fs, args, 2, "<in> <out>"); err != nil {
		return err
	}
	in, out := fs.Arg(0), fs.Arg(1)
	if !strings.EqualFold(filepath.Ext(in), filepath.Ext(out)) {
		return errors.Errorf("%s and %s must have the same extension", in, out)
	}
	v, err := readFile(in)
	if err != nil {
		return err
	}
	switch f := v.(type) {
	case *resources.MeshFile:
		if err := resources.ReorderMaterials(f); err != nil {
			return errors.Wrapf(err, "reorder %s", f.Name)
		}
		return f.Save(out)
	case *resources.SceneFile:
		for i := range f.Meshes {
			if err := resources.ReorderMaterials(&f.Meshes[i]); err != nil {
				return errors.Wrapf(err, "reorder %s", f.Meshes[i].Name)
			}
		}
		return f.Save(out)
	}
	return nil
}

func cmdImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	if err := expectArgs(fs, args, 2, "<in.gltf|in.glb> <out.ksc>"); err != nil {
		return err
	}
	sf, err := loaders.ImportGLTF(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := sf.Save(fs.Arg(1)); err != nil {
		return err
	}
	core.LogInfo("imported %d meshes and %d objects into %s", len(sf.Meshes), len(sf.Objects), fs.Arg(1))
	return nil
}

func cmdLoad(cfg *engine.ApplicationConfig, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	if err := expectArgs(fs, args, 1, "<scene>"); err != nil {
		return err
	}
	cfg.Assets.Watch = false
	cfg.Assets.Scenes = nil
	if _, err := os.Stat(cfg.Assets.Dir); err != nil {
		cfg.Assets.Dir = filepath.Dir(fs.Arg(0))
	}

	e, err := engine.New(&engine.Game{ApplicationConfig: cfg})
	if err != nil {
		return err
	}
	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		return err
	}
	ls, err := e.LoadScene(fs.Arg(0))
	if err != nil {
		_ = e.Shutdown()
		return err
	}
	fmt.Fprintf(stdout, "%s: %d meshes, %d objects, %d attribute bytes on the %s device\n",
		fs.Arg(0), len(ls.Meshes), len(ls.Objects), e.SceneData().AttributeAllocator().Used(), cfg.Device.Backend)
	return e.Shutdown()
}

func cmdWatch(cfg *engine.ApplicationConfig) error {
	cfg.Assets.Watch = true
	if err := os.MkdirAll(cfg.Assets.Dir, 0o755); err != nil {
		return errors.Wrapf(err, "create assets dir")
	}
	tb := testbed.NewTestGame(cfg)

	e, err := engine.New(tb.Game)
	if err != nil {
		return err
	}
	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		return err
	}
	return runErr
}

func cmdSample(args []string) error {
	fs := flag.NewFlagSet("sample", flag.ContinueOnError)
	if err := expectArgs(fs, args, 1, "<out.ksc>"); err != nil {
		return err
	}
	sf, err := testbed.SampleScene()
	if err != nil {
		return err
	}
	return sf.Save(fs.Arg(0))
}
