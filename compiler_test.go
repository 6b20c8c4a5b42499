package tola

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestCompiler(t *testing.T) (*PageCompiler, string) {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "tola.toml")
	os.WriteFile(configPath, []byte("title = \"t\"\n"), 0644)

	render := func(sourcePath string, body []byte) (string, string, error) {
		return "<html><head></head><body><p>" + string(body) + "</p></body></html>", "Title", nil
	}
	return &PageCompiler{
		Address:    NewAddressSpace(),
		Cache:      LoadPageCache(filepath.Join(dir, "cache.json")),
		Render:     render,
		Deps:       NewDependencyGraph(),
		ConfigPath: configPath,
	}, dir
}

func TestCompilePhase1RegistersPageAndCachesResult(t *testing.T) {
	pc, dir := newTestCompiler(t)
	src := filepath.Join(dir, "index.md")
	os.WriteFile(src, []byte("hello"), 0644)

	route := PageRoute{Source: src, Permalink: PageUrl("/")}
	page, cached, err := pc.CompilePhase1(src, route, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if cached {
		t.Fatal("expected first compile to be a cache miss")
	}
	if !strings.Contains(page.HTML, "hello") {
		t.Fatalf("expected rendered body, got %s", page.HTML)
	}
	if r, ok := pc.Address.GetByUrl(PageUrl("/")); !ok || r.Title != "Title" {
		t.Fatalf("expected page registered with title, got %+v ok=%v", r, ok)
	}

	// second compile of unchanged file should hit the cache
	_, cached2, err := pc.CompilePhase1(src, route, nil)
	if err != nil {
		t.Fatalf("recompile: %v", err)
	}
	if !cached2 {
		t.Fatal("expected second compile to be a cache hit")
	}
}

func TestCompilePhase2RewritesLinks(t *testing.T) {
	pc, dir := newTestCompiler(t)
	aboutSrc := filepath.Join(dir, "about.md")
	os.WriteFile(aboutSrc, []byte("about"), 0644)
	pc.Address.RegisterPage(PageRoute{Source: aboutSrc, Permalink: PageUrl("/about/")}, "About")

	indexSrc := filepath.Join(dir, "index.md")
	page := CompiledPage{
		Source:    indexSrc,
		Permalink: PageUrl("/"),
		HTML:      `<html><head></head><body><a href="about/">About</a></body></html>`,
	}
	out, err := pc.CompilePhase2(page, indexSrc, "")
	if err != nil {
		t.Fatalf("phase2: %v", err)
	}
	if !strings.Contains(out.HTML, `href="/about/"`) {
		t.Fatalf("expected rewritten link, got %s", out.HTML)
	}
}
