package scene

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/go-anchor/anchor/pkg/backend/memory"
	"github.com/go-anchor/anchor/pkg/dom"
	"github.com/go-anchor/anchor/pkg/errors"
)

const sample = `
kind: div
attrs:
  class: app
children:
  - kind: span
    text: hello
  - kind: ul
    children:
      - kind: li
        text: one
      - kind: li
        text: two
`

func TestParse_Valid(t *testing.T) {
	spec, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if spec.Kind != "div" {
		t.Errorf("kind = %q", spec.Kind)
	}
	if len(spec.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(spec.Children))
	}
	if spec.Children[0].Text != "hello" {
		t.Errorf("child text = %q", spec.Children[0].Text)
	}
}

func TestParse_BadYAML(t *testing.T) {
	_, err := Parse([]byte("kind: [unclosed"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	var te *errors.TreeError
	if !stderrors.As(err, &te) || te.Kind != errors.KindParse {
		t.Errorf("expected KindParse error, got %v", err)
	}
}

func TestValidate_MissingKind(t *testing.T) {
	_, err := Parse([]byte(`
kind: div
children:
  - text: orphan
`))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "scene.children[0]") {
		t.Errorf("expected path in error, got %v", err)
	}
}

func TestBuild_InstantiatesTree(t *testing.T) {
	b := memory.New()
	tree := dom.NewTree(b)

	spec, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	root, err := Build(tree, spec)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if root.State() != dom.StateDetached {
		t.Errorf("expected detached build result, got %v", root.State())
	}
	if err := tree.SetRoot(root); err != nil {
		t.Fatalf("set root: %v", err)
	}

	want := `div#1(class=app)[span#2["hello"] ul#3[li#4["one"] li#5["two"]]]`
	if got := b.Render(); got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestBuild_TeardownReleasesWholeScene(t *testing.T) {
	b := memory.New()
	tree := dom.NewTree(b)

	spec, _ := Parse([]byte(sample))
	root, _ := Build(tree, spec)
	tree.SetRoot(root)

	if err := root.Remove(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if b.Render() != "" {
		t.Errorf("expected empty render after teardown, got %q", b.Render())
	}
}
