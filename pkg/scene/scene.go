// Package scene loads declarative tree descriptions from YAML and
// instantiates them as dom nodes.
//
// A scene file describes a subtree: the kind of each visual, optional text
// and attributes, and nested children in rendering order:
//
//	kind: div
//	attrs:
//	  class: app
//	children:
//	  - kind: span
//	    text: hello
//
// Building a scene creates detached nodes; the caller installs the result
// under a parent or as a root.
package scene

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/go-anchor/anchor/pkg/dom"
	"github.com/go-anchor/anchor/pkg/errors"
)

// Spec describes one node of a scene.
type Spec struct {
	Kind     string            `yaml:"kind"`
	Text     string            `yaml:"text,omitempty"`
	Attrs    map[string]string `yaml:"attrs,omitempty"`
	Children []*Spec           `yaml:"children,omitempty"`
}

// Parse decodes and validates a scene document.
func Parse(data []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, &errors.TreeError{Op: "scene.Parse", Kind: errors.KindParse, Err: err}
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Read decodes and validates a scene document from a reader.
func Read(r io.Reader) (*Spec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &errors.TreeError{Op: "scene.Read", Kind: errors.KindParse, Err: err}
	}
	return Parse(data)
}

// Load decodes and validates a scene file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}
	return Parse(data)
}

// Validate checks the spec and its descendants for structural problems.
func (s *Spec) Validate() error {
	return s.validate("scene")
}

func (s *Spec) validate(path string) error {
	if s == nil {
		return &errors.TreeError{
			Op:   "scene.Validate",
			Kind: errors.KindParse,
			Err:  fmt.Errorf("%s: null node", path),
		}
	}
	if s.Kind == "" {
		return &errors.TreeError{
			Op:   "scene.Validate",
			Kind: errors.KindParse,
			Err:  fmt.Errorf("%s: missing kind", path),
		}
	}
	for i, c := range s.Children {
		if err := c.validate(fmt.Sprintf("%s.children[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// Build instantiates the scene as a detached subtree of tree.
func Build(tree *dom.Tree, spec *Spec) (*dom.Node, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return build(tree, spec)
}

func build(tree *dom.Tree, spec *Spec) (*dom.Node, error) {
	n, err := tree.NewNode(spec.Kind)
	if err != nil {
		return nil, err
	}
	if spec.Text != "" {
		if err := n.SetText(spec.Text); err != nil {
			return nil, err
		}
	}
	for k, v := range spec.Attrs {
		if err := n.SetAttr(k, v); err != nil {
			return nil, err
		}
	}
	for _, cs := range spec.Children {
		child, err := build(tree, cs)
		if err != nil {
			return nil, err
		}
		if err := n.Append(child); err != nil {
			return nil, err
		}
	}
	return n, nil
}
