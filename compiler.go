package tola

import (
	"fmt"
	"os"
	"path/filepath"
)

// RenderFunc turns a content file's body (Typst or Markdown, front
// matter already stripped) into HTML. Content-language-specific;
// wired from md.go's goldmark pipeline or a Typst renderer, so the
// compiler itself stays markup-agnostic (spec §4.G).
type RenderFunc func(sourcePath string, body []byte) (htmlBody string, title string, err error)

// PageCompiler runs the two-phase compile described in spec §4.G:
// Phase 1 builds metadata and a first-pass HTML body for every content
// file (establishing the AddressSpace so links can resolve); Phase 2
// re-walks each page to apply link/media/head VDOM transforms now that
// every page's final URL is known. Grounded on the teacher's
// site.go Rebuild()/runPhase() two-pass structure, generalized from
// "markdown then render" into "compile then resolve".
type PageCompiler struct {
	Address      *AddressSpace
	Cache        *PageCache
	Render       RenderFunc
	Deps         *DependencyGraph
	ConfigPath   string
	AssetsPrefix string
	HotReload    bool
	HotReloadJS  string
}

// CompiledPage is the Phase 1 + Phase 2 result for one source file.
type CompiledPage struct {
	Source   string
	Permalink UrlPath
	Title    string
	HTML     string
	Warnings []string
}

// CompilePhase1 parses and renders sourcePath's body to HTML, records
// its freshness hashes, and registers it in the AddressSpace under
// route. It does NOT apply link/media transforms yet — other pages'
// URLs may not be registered at this point in a whole-site build.
func (pc *PageCompiler) CompilePhase1(sourcePath string, route PageRoute, depRoots []string) (CompiledPage, bool, error) {
	sourceHash := HashFile(sourcePath)
	depsHash := HashDeps(pc.ConfigPath, depRoots)

	if pc.Cache != nil {
		if entry, ok := pc.Cache.Get(sourcePath, sourceHash.Hex(), depsHash.Hex()); ok {
			pc.Address.RegisterPage(route, entry.Title)
			return CompiledPage{Source: sourcePath, Permalink: route.Permalink, Title: entry.Title, HTML: entry.HTML}, true, nil
		}
	}

	body, err := os.ReadFile(sourcePath)
	if err != nil {
		return CompiledPage{}, false, fmt.Errorf("tola: read %s: %w", sourcePath, err)
	}

	htmlBody, title, err := pc.Render(sourcePath, body)
	if err != nil {
		return CompiledPage{}, false, fmt.Errorf("tola: render %s: %w", sourcePath, err)
	}

	pc.Address.RegisterPage(route, title)
	if pc.Deps != nil && len(depRoots) > 0 {
		pc.Deps.Record(sourcePath, depRoots)
	}

	page := CompiledPage{Source: sourcePath, Permalink: route.Permalink, Title: title, HTML: htmlBody}
	if pc.Cache != nil {
		pc.Cache.Put(sourcePath, CacheEntry{SourceHash: sourceHash.Hex(), DepsHash: depsHash.Hex(), HTML: htmlBody, Title: title})
	}
	return page, false, nil
}

// CompilePhase2 re-parses page.HTML as a VDOM document, indexes it,
// and runs the link/media/head transform chain now that the
// full AddressSpace is populated. This is the "iterative page rebuild"
// half of spec §4.G.
func (pc *PageCompiler) CompilePhase2(page CompiledPage, sourcePath string, colocatedDir string) (CompiledPage, error) {
	raw, err := ParseRawDocument([]byte(page.HTML))
	if err != nil {
		return page, fmt.Errorf("tola: parse phase-1 html for %s: %w", sourcePath, err)
	}
	indexed := IndexDocument(raw)

	var warnings []string
	ctx := &TransformContext{
		Address:      pc.Address,
		AssetsPrefix: pc.AssetsPrefix,
		ResolveCtx: ResolveContext{
			CurrentPermalink: page.Permalink,
			SourcePath:       sourcePath,
			ColocatedDir:     colocatedDir,
		},
		HotReloadEnabled: pc.HotReload,
		HotReloadScript:  pc.HotReloadJS,
	}

	transforms := []Transform{
		LinkTransform{Warnings: &warnings},
		MediaTransform{Warnings: &warnings},
		HeadInjector{},
	}
	if err := RunTransforms(indexed, ctx, transforms); err != nil {
		return page, err
	}

	page.HTML = RenderHTML(indexed)
	page.Warnings = warnings
	return page, nil
}

// WriteOutput writes page's final HTML to its output file under
// outputRoot, creating parent directories as needed.
func (pc *PageCompiler) WriteOutput(page CompiledPage, outputRoot, outputFile string) error {
	dest := filepath.Join(outputRoot, outputFile)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("tola: mkdir for %s: %w", dest, err)
	}
	if err := os.WriteFile(dest, []byte(page.HTML), 0644); err != nil {
		return fmt.Errorf("tola: write %s: %w", dest, err)
	}
	return nil
}
