package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-anchor/anchor/cmd/anchor/internal/config"
	"github.com/go-anchor/anchor/pkg/backend/memory"
	"github.com/go-anchor/anchor/pkg/dom"
	"github.com/go-anchor/anchor/pkg/scene"
)

func init() {
	RegisterCommand(&Command{
		Name:  "demo",
		Short: "Build a scene on the in-memory backend and tear it down",
		Long: `Demo builds a scene on the in-memory backend, mounts it as the tree
root, then removes it and prints the resulting backend journal. With no
flags it runs a small built-in scene; pass -scene to run a YAML scene
file instead.`,
		Usage: "anchor demo [-scene <file>]",
		Run:   runDemo,
	})
}

const builtinScene = `kind: div
attrs:
  class: app
children:
  - kind: h1
    text: anchor demo
  - kind: ul
    children:
      - kind: li
        text: one
      - kind: li
        text: two
`

func runDemo(args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	scenePath := fs.String("scene", "", "path to a YAML scene file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadOptional(".")
	if err != nil {
		return err
	}
	if *scenePath == "" && cfg.Scene != "" {
		*scenePath = cfg.Scene
	}

	var spec *scene.Spec
	if *scenePath != "" {
		spec, err = scene.Load(*scenePath)
		if err != nil {
			return fmt.Errorf("loading scene: %w", err)
		}
	} else {
		spec, err = scene.Parse([]byte(builtinScene))
		if err != nil {
			return err
		}
	}

	b := memory.New()
	tree := dom.NewTree(b)

	root, err := scene.Build(tree, spec)
	if err != nil {
		return fmt.Errorf("building scene: %w", err)
	}
	if err := tree.SetRoot(root); err != nil {
		return err
	}

	fmt.Println("Mounted:")
	fmt.Printf("  %s\n", b.Render())

	if err := root.Remove(); err != nil {
		return err
	}

	fmt.Println("\nAfter removal:")
	if r := b.Render(); r == "" {
		fmt.Println("  (empty)")
	} else {
		fmt.Printf("  %s\n", r)
	}

	fmt.Println("\nBackend journal:")
	for _, entry := range b.Journal() {
		fmt.Fprintf(os.Stdout, "  %s\n", entry)
	}
	return nil
}
