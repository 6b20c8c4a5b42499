package tola

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Orchestrator wires the teacher's generic rule-based Site build engine
// together with the tola-specific pieces built on top of it: the
// AddressSpace (so link/media VDOM transforms can resolve final URLs),
// the on-disk PageCache, the asset pipeline, feed generators, the
// optional git output, and the file-watch/hot-reload dev server. It is
// the Build()/Serve() entry point named in spec §4.H.
type Orchestrator struct {
	RootDir string
	Config  SiteConfig

	Site    *Site
	Address *AddressSpace
	Cache   *PageCache
	Deps    *DependencyGraph
	Git     *GitOutput

	// serving is true once Serve() has been entered, false for a plain
	// Build(); it is the "build mode vs dev mode" distinction
	// SvgTransform needs to decide inline-optimize vs. extract-to-file.
	serving bool

	mu       sync.Mutex
	warnings []string
}

// NewOrchestrator builds an Orchestrator rooted at dir (the directory
// holding tola.toml), with the given already-loaded config.
func NewOrchestrator(dir string, cfg SiteConfig) *Orchestrator {
	o := &Orchestrator{
		RootDir: dir,
		Config:  cfg,
		Address: NewAddressSpace(),
		Deps:    NewDependencyGraph(),
	}
	o.Cache = LoadPageCache(filepath.Join(o.cacheDir(), "pages.json"))
	o.Address.SetAssetsPrefix(cfg.AssetsUrlPrefix)
	if cfg.Build.GitCommit {
		o.Git = &GitOutput{Dir: o.outputDir()}
	}
	return o
}

func (o *Orchestrator) contentDir() string { return filepath.Join(o.RootDir, o.Config.ContentRoot) }
func (o *Orchestrator) outputDir() string  { return filepath.Join(o.RootDir, o.Config.OutputDir) }
func (o *Orchestrator) staticDir() string  { return filepath.Join(o.RootDir, o.Config.StaticDir) }
func (o *Orchestrator) layoutsDir() string { return filepath.Join(o.RootDir, o.Config.LayoutsDir) }
func (o *Orchestrator) cacheDir() string   { return filepath.Join(o.RootDir, ".tola-cache") }

// OutputDir exposes the resolved output directory for callers outside
// the package (the CLI's build/serve commands).
func (o *Orchestrator) OutputDir() string { return o.outputDir() }

// Warnings returns the link/asset warnings collected by the most
// recent Build/Validate call.
func (o *Orchestrator) Warnings() []string { return o.warnings }

// buildSite constructs the teacher's Site object wired with tola's
// rules (Markdown + Typst, behind the parametric-page dispatcher) and
// an OnResourceProcessed hook that feeds the AddressSpace.
func (o *Orchestrator) buildSite() *Site {
	mdRule := &MDToHtml{BaseToHtmlRule: BaseToHtmlRule{Extensions: []string{".md", ".mdx"}}}
	typRule := &TypstToHtml{BaseToHtmlRule: BaseToHtmlRule{Extensions: []string{".typ"}}}

	site := &Site{
		ContentRoot:     o.contentDir(),
		OutputDir:       o.outputDir(),
		TemplateFolders: []string{o.layoutsDir()},
		BuildRules: []Rule{
			&ParametricPages{Renderers: map[string]Rule{
				".md":  mdRule,
				".mdx": mdRule,
				".typ": typRule,
			}},
			mdRule,
			typRule,
		},
		IgnoreFileFunc: func(path string) bool {
			base := filepath.Base(path)
			return strings.HasPrefix(base, ".")
		},
	}
	site.Init()
	site.Hooks.OnResourceProcessed(o.onResourceProcessed)
	o.Site = site
	return site
}

// onResourceProcessed registers every page the build engine emits into
// the AddressSpace (Phase 1 of spec §4.G's two-phase compile). Assets
// discovered by discoverAssets are skipped; they are handled by the
// separate asset pipeline in asset.go.
func (o *Orchestrator) onResourceProcessed(ctx *BuildContext, input *Resource, targets []*Resource) {
	for _, out := range targets {
		if !strings.HasSuffix(out.FullPath, ".html") {
			continue
		}
		permalink := permalinkForOutput(o.outputDir(), out.FullPath)
		title := resourceTitle(input)
		o.Address.RegisterPage(PageRoute{Permalink: permalink, Source: input.FullPath}, title)
		if ids := headingIDs(input); len(ids) > 0 {
			o.Address.RegisterHeadings(permalink, ids)
		}
	}
}

// headingIDs pulls the TOC entries MDToHtml's goldmark pipeline attached
// to the source resource's Document metadata, so LinkTransform can
// validate same-page and cross-page "#heading-id" fragment links.
func headingIDs(r *Resource) []string {
	if r.Document.Metadata == nil {
		return nil
	}
	toc, ok := r.Document.Metadata["TOC"].([]TOCNode)
	if !ok {
		return nil
	}
	var ids []string
	var walk func(nodes []TOCNode)
	walk = func(nodes []TOCNode) {
		for _, n := range nodes {
			ids = append(ids, n.ID)
			walk(n.Children)
		}
	}
	walk(toc)
	return ids
}

func resourceTitle(r *Resource) string {
	if fm := r.FrontMatter(); fm != nil && fm.Data != nil {
		if t, ok := fm.Data["title"].(string); ok && t != "" {
			return t
		}
	}
	return strings.TrimSuffix(filepath.Base(r.FullPath), filepath.Ext(r.FullPath))
}

// permalinkForOutput turns an emitted file's path under outputDir into
// its site-relative URL, collapsing "/index.html" the way a static
// file server does.
func permalinkForOutput(outputDir, fullPath string) UrlPath {
	rel, err := filepath.Rel(outputDir, fullPath)
	if err != nil {
		rel = fullPath
	}
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, "index.html")
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	return PageUrl(rel)
}

// Build runs a full site build: Phase 1 (teacher's rule engine renders
// every content file to HTML and registers it in the AddressSpace),
// Phase 2 (re-walk the emitted HTML and resolve links/media now that
// every page's URL is known), the asset pipeline, feed generation, and
// an optional git commit of the output directory.
func (o *Orchestrator) Build() error {
	ClearFileHashCache()
	o.Address.Clear()
	site := o.buildSite()
	RegisterFeedSinks(site, o.Config)
	site.Rebuild(nil)

	// Assets must be registered before phase 2 walks the emitted HTML,
	// since MediaTransform/HeadInjector need every colocated/global
	// asset's final URL already in the AddressSpace to rewrite
	// references to it.
	if err := o.processAssets(); err != nil {
		return fmt.Errorf("tola: assets: %w", err)
	}

	if err := o.runPhase2(); err != nil {
		return fmt.Errorf("tola: phase 2: %w", err)
	}

	if err := WriteCNAME(o.outputDir(), o.Config.BaseUrl); err != nil {
		return fmt.Errorf("tola: cname: %w", err)
	}

	if err := o.Cache.Save(); err != nil {
		slog.Warn("tola: failed to persist page cache", "error", err)
	}

	if o.Git != nil {
		if err := o.Git.EnsureRepo(); err != nil {
			return fmt.Errorf("tola: git init: %w", err)
		}
		if err := o.Git.CommitAll("tola build"); err != nil {
			return fmt.Errorf("tola: git commit: %w", err)
		}
	}

	return nil
}

// runPhase2 walks every emitted HTML file and runs the link/media/svg
// head-injection transform chain against it, now that the AddressSpace
// is fully populated with every page's final URL.
func (o *Orchestrator) runPhase2() error {
	root := o.outputDir()
	hotReload := o.Config.Serve.HotReload
	var walkErr error
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			walkErr = err
			return nil
		}
		doc, err := ParseRawDocument(raw)
		if err != nil {
			// not every emitted file is HTML (e.g. XML feeds); skip silently
			return nil
		}
		indexed := IndexDocument(doc)

		permalink := permalinkForOutput(root, path)
		sourcePath, _ := o.Address.SourceForUrl(permalink)
		var warnings []string
		ctx := &TransformContext{
			Address:      o.Address,
			AssetsPrefix: o.Config.AssetsUrlPrefix,
			ResolveCtx: ResolveContext{
				CurrentPermalink: permalink,
				SourcePath:       sourcePath,
			},
			HotReloadEnabled: hotReload,
			HotReloadScript:  HotReloadClientScript,
		}
		disableGlobalHeader := filepath.Base(path) == "404.html"
		transforms := []Transform{
			LinkTransform{Warnings: &warnings},
			MediaTransform{Warnings: &warnings},
			o.svgTransform(path),
			o.headInjector(disableGlobalHeader),
			o.bodyInjector(),
		}
		if err := RunTransforms(indexed, ctx, transforms); err != nil {
			walkErr = err
			return nil
		}

		o.mu.Lock()
		o.warnings = append(o.warnings, warnings...)
		o.mu.Unlock()

		out := RenderHTML(indexed)
		if sourcePath != "" {
			if srcHash := HashFile(sourcePath); !srcHash.IsEmpty() {
				out += "\n" + BuildHashMarker(srcHash, ContentHash{}, false)
			}
		}
		return os.WriteFile(path, []byte(out), 0644)
	})
	return walkErr
}

// headInjector builds the HeadInjector for one page from site config.
// disableGlobalHeader is set for pages that must stay self-contained
// regardless of request depth (the custom 404 page).
func (o *Orchestrator) headInjector(disableGlobalHeader bool) HeadInjector {
	cfg := o.Config
	hi := HeadInjector{
		Title:               cfg.Title,
		Description:         cfg.Description,
		Language:            cfg.Language,
		Elements:            cfg.Header.Elements,
		RecolorEnabled:      cfg.Theme.Recolor.Enable,
		RecolorStatic:       cfg.Theme.Recolor.Source == "static",
		DisableGlobalHeader: disableGlobalHeader,
	}
	if cfg.Header.Icon != "" {
		if href := o.versionedHeadHref(cfg.Header.Icon); href != "" {
			hi.IconHref = href
			hi.IconType = mimeFromPath(cfg.Header.Icon)
		}
	}
	for _, style := range cfg.Header.Styles {
		if href := o.versionedHeadHref(style); href != "" {
			hi.StyleHrefs = append(hi.StyleHrefs, href)
		}
	}
	for _, script := range cfg.Header.Scripts {
		if href := o.versionedHeadHref(script.Path); href != "" {
			hi.Scripts = append(hi.Scripts, HeadScript{Src: href, Defer: script.Defer, Async: script.Async})
		}
	}
	return hi
}

// versionedHeadHref resolves a site-config path (relative to the
// static root) to its registered output URL, appending a content-hash
// query string for cache busting.
func (o *Orchestrator) versionedHeadHref(rel string) string {
	if rel == "" {
		return ""
	}
	abs := filepath.Join(o.staticDir(), rel)
	u, ok := o.Address.UrlForSource(abs)
	if !ok {
		return ""
	}
	hash := HashFile(abs)
	if hash.IsEmpty() {
		return u.String()
	}
	return u.String() + "?v=" + hash.Short()
}

// bodyInjector builds the BodyInjector shared by every page.
func (o *Orchestrator) bodyInjector() BodyInjector {
	cfg := o.Config
	return BodyInjector{
		RecolorEnabled: cfg.Theme.Recolor.Enable,
		RecolorStatic:  cfg.Theme.Recolor.Source == "static",
		RecolorList:    cfg.Theme.Recolor.List,
		SPANav:         cfg.Nav.SPA,
	}
}

// svgTransform builds the SvgTransform for the page being written to
// outputPath. External extraction only ever applies outside serve mode
// (o.serving is true only for the dev server's own rebuilds); the
// replacement file is written next to the page itself so a relative
// <img src> stays valid regardless of the page's own URL depth.
func (o *Orchestrator) svgTransform(outputPath string) SvgTransform {
	threshold := o.Config.Build.SVGExternalThreshold
	return SvgTransform{
		ServeMode:         o.serving,
		ExternalEnabled:   threshold > 0,
		ExternalThreshold: threshold,
		WriteExternalFile: func(markup []byte) (string, error) {
			hash := hashBytes(markup)
			name := hash.Short() + ".svg"
			dest := filepath.Join(filepath.Dir(outputPath), name)
			if err := os.WriteFile(dest, markup, 0644); err != nil {
				return "", err
			}
			return name, nil
		},
	}
}

var contentExtensions = []string{".md", ".mdx", ".typ", ".html", ".htm"}

// processAssets scans global and colocated assets, minifies CSS/JS, and
// registers every result in the AddressSpace so the link/media
// transforms can resolve references to them. Colocated assets keep
// AssetScopeColocated (spec §4.E scenario S3): content/post/img.png
// serves at /post/img.png, next to the page that references it, rather
// than being deduped into a shared hashed directory.
func (o *Orchestrator) processAssets() error {
	minifier := NewAssetMinifier()

	globalJobs, err := ScanGlobalAssets(o.staticDir())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, job := range globalJobs {
		result, err := ProcessAsset(job, o.outputDir(), o.Config.AssetsUrlPrefix, minifier)
		if err != nil {
			return err
		}
		o.Address.RegisterAsset(AssetRoute{Source: job.SourcePath, Url: result.Url, Output: result.OutputPath, Kind: AssetGlobal})
	}

	contentRoot := o.contentDir()
	var walkErr error
	filepath.WalkDir(contentRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		colocated, err := ScanColocatedAssets(path, contentExtensions)
		if err != nil {
			walkErr = err
			return nil
		}
		relDir, err := filepath.Rel(contentRoot, path)
		if err != nil {
			relDir = ""
		}
		if relDir == "." {
			relDir = ""
		}
		for _, job := range colocated {
			job.Scope = AssetScopeColocated
			job.ColocatedRel = filepath.Join(relDir, job.ColocatedRel)
			result, err := ProcessAsset(job, o.outputDir(), o.Config.AssetsUrlPrefix, minifier)
			if err != nil {
				walkErr = err
				continue
			}
			o.Address.RegisterAsset(AssetRoute{Source: job.SourcePath, Url: result.Url, Output: result.OutputPath, Kind: AssetColocated})
		}
		return nil
	})
	return walkErr
}

// Serve runs a one-shot build, then starts the file-watching
// coordinator and the dev HTTP server, blocking until ctx is
// cancelled. Grounded on the teacher's Site.Serve, generalized to the
// Coordinator/ServeRuntime split described in spec §4.J/§4.L.
func (o *Orchestrator) Serve(ctx context.Context, addr string) error {
	o.serving = true
	if err := o.Build(); err != nil {
		return err
	}

	coord := NewCoordinator([]string{o.contentDir(), o.staticDir(), o.layoutsDir()}, o.recompile, o.Config.Build.Workers)

	runtime := &ServeRuntime{
		OutputDir:   o.outputDir(),
		ContentDir:  o.contentDir(),
		HotReload:   o.Config.Serve.HotReload,
		HotReloadJS: HotReloadClientScript,
		Ready:       &serveReadyChecker{address: o.Address, coord: coord},
		Broadcast:   coord,
		WebSocket:   coord.ServeWebsocket,
	}
	runtime.MarkServing()

	errCh := make(chan error, 2)
	go func() {
		errCh <- coord.Run(ctx)
	}()
	go func() {
		errCh <- runtime.ListenAndServe(ctx, addr)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// recompile is the Coordinator's CompileFunc: it re-runs the full build
// whatever source changed. Every call re-renders every page; Build does
// not consult the PageCache, so unchanged content is not skipped.
func (o *Orchestrator) recompile(source string) error {
	return o.Build()
}

// serveReadyChecker implements ReadyChecker by mapping a requested
// browser URL back to its source file through the AddressSpace and
// running an Active-priority on-demand compile for it (spec §4.J/§4.D).
// A URL with no registered source is left for the caller's subsequent
// disk lookup to fail and fall through to 404, matching the original's
// source_for_url returning None leading straight to respond_not_found.
type serveReadyChecker struct {
	address *AddressSpace
	coord   *Coordinator
}

func (r *serveReadyChecker) EnsureReady(ctx context.Context, urlPath string) error {
	browser, ok := BrowserUrl(urlPath)
	if !ok {
		return nil
	}
	source, ok := r.address.SourceForUrl(browser)
	if !ok {
		// Page permalinks always carry a trailing slash; a browser
		// path that omits it (e.g. "/post" for "/post/") needs the
		// Page-variant form to match.
		source, ok = r.address.SourceForUrl(PageUrl(browser.String()))
	}
	if !ok {
		return nil
	}
	return r.coord.SubmitActive(source)
}
