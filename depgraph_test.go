package tola

import "testing"

func TestDependencyGraphRecordAndLookup(t *testing.T) {
	g := NewDependencyGraph()
	g.Record("content/a.typ", []string{"templates/base.typ", "utils/lib.typ"})
	g.Record("content/b.typ", []string{"templates/base.typ"})

	deps := g.DependentsOf("templates/base.typ")
	if len(deps) != 2 {
		t.Fatalf("expected 2 dependents, got %v", deps)
	}
	deps = g.DependentsOf("utils/lib.typ")
	if len(deps) != 1 || deps[0] != "content/a.typ" {
		t.Fatalf("got %v", deps)
	}
}

func TestDependencyGraphRecordReplaces(t *testing.T) {
	g := NewDependencyGraph()
	g.Record("content/a.typ", []string{"templates/base.typ"})
	g.Record("content/a.typ", []string{"templates/other.typ"})

	if got := g.DependentsOf("templates/base.typ"); len(got) != 0 {
		t.Fatalf("expected stale reverse edge removed, got %v", got)
	}
	if got := g.DependentsOf("templates/other.typ"); len(got) != 1 {
		t.Fatalf("expected new reverse edge, got %v", got)
	}
}

func TestDependencyGraphRemoveContent(t *testing.T) {
	g := NewDependencyGraph()
	g.Record("content/a.typ", []string{"templates/base.typ"})
	g.RemoveContent("content/a.typ")
	if got := g.DependentsOf("templates/base.typ"); len(got) != 0 {
		t.Fatalf("expected no dependents after removal, got %v", got)
	}
	if got := g.DependsOn("content/a.typ"); len(got) != 0 {
		t.Fatalf("expected no forward edges after removal, got %v", got)
	}
}
