package tola

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestSite(t *testing.T) *Site {
	t.Helper()
	contentDir := t.TempDir()
	outDir := t.TempDir()
	site := &Site{ContentRoot: contentDir, OutputDir: outDir}
	site.Init()
	return site
}

func TestCopyRuleCopiesMatchedFiles(t *testing.T) {
	site := newTestSite(t)
	src := filepath.Join(site.ContentRoot, "report.pdf")
	if err := os.WriteFile(src, []byte("%PDF-1.4 fake"), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	rule := &CopyRule{Patterns: []string{"*.pdf"}}
	res := site.GetResource(src)
	inputs, targets := rule.TargetsFor(site, res)
	if len(inputs) != 1 || len(targets) != 1 {
		t.Fatalf("expected a single input/target pair, got %d/%d", len(inputs), len(targets))
	}

	if err := rule.Run(site, inputs, targets, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, err := os.ReadFile(targets[0].FullPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(out) != "%PDF-1.4 fake" {
		t.Fatalf("unexpected copied contents: %q", out)
	}
}

func TestCopyRuleSkipsUnmatchedFiles(t *testing.T) {
	site := newTestSite(t)
	src := filepath.Join(site.ContentRoot, "notes.txt")
	os.WriteFile(src, []byte("hi"), 0644)

	rule := &CopyRule{Patterns: []string{"*.pdf"}}
	res := site.GetResource(src)
	inputs, targets := rule.TargetsFor(site, res)
	if inputs != nil || targets != nil {
		t.Fatalf("expected no match, got %d/%d", len(inputs), len(targets))
	}
}

func TestCopyRuleFlattensIntoSharedDir(t *testing.T) {
	site := newTestSite(t)
	sub := filepath.Join(site.ContentRoot, "posts", "2026")
	os.MkdirAll(sub, 0755)
	src := filepath.Join(sub, "cover.png")
	os.WriteFile(src, []byte("binary"), 0644)

	rule := &CopyRule{Patterns: []string{"*.png"}, FlattenDir: "_shared"}
	res := site.GetResource(src)
	_, targets := rule.TargetsFor(site, res)
	if len(targets) != 1 {
		t.Fatalf("expected one target, got %d", len(targets))
	}
	want := filepath.Join(site.OutputDir, "_shared", "cover.png")
	if targets[0].FullPath != want {
		t.Fatalf("expected flattened path %q, got %q", want, targets[0].FullPath)
	}
}

func TestCSSMinifierRunProducesSmallerOutput(t *testing.T) {
	site := newTestSite(t)
	src := filepath.Join(site.ContentRoot, "site.css")
	raw := "body {\n  color:   red;\n}\n\n.a { margin: 0; }\n"
	os.WriteFile(src, []byte(raw), 0644)

	rule := &CSSMinifier{}
	res := site.GetResource(src)
	inputs, targets := rule.TargetsFor(site, res)
	if len(inputs) != 1 || len(targets) != 1 {
		t.Fatalf("expected a match, got %d/%d", len(inputs), len(targets))
	}

	if err := rule.Run(site, inputs, targets, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	out, err := os.ReadFile(targets[0].FullPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(out) >= len(raw) {
		t.Fatalf("expected minified output smaller than %d bytes, got %d", len(raw), len(out))
	}
}

func TestExternalTransformTargetsForMapsExtension(t *testing.T) {
	site := newTestSite(t)
	src := filepath.Join(site.ContentRoot, "app.scss")
	os.WriteFile(src, []byte("body { .a { color: red; } }"), 0644)

	rule := NewSCSSTransform()
	res := site.GetResource(src)
	inputs, targets := rule.TargetsFor(site, res)
	if len(inputs) != 1 || len(targets) != 1 {
		t.Fatalf("expected a match, got %d/%d", len(inputs), len(targets))
	}
	if filepath.Ext(targets[0].FullPath) != ".css" {
		t.Fatalf("expected .css output, got %q", targets[0].FullPath)
	}
}
