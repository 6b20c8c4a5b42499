package tola

import (
	"fmt"
	"path"
	"strings"
	"sync"
)

// PageRoute describes where a content file ends up: its permalink, its
// output location, and whether it is an index/404/colocated page.
type PageRoute struct {
	Source      string
	Permalink   UrlPath
	OutputFile  string
	OutputDir   string
	IsIndex     bool
	Is404       bool
	ColocatedDir string // "" if none
	Relative    string
}

// AssetRoute describes where an asset file ends up.
type AssetRoute struct {
	Source string
	Url    UrlPath
	Output string
	Kind   AssetKind
}

// AssetKind discriminates global/flattened assets from colocated ones.
type AssetKind int

const (
	AssetGlobal AssetKind = iota
	AssetColocated
)

// ResourceKind discriminates the two flavors of AddressResource.
type ResourceKind int

const (
	ResourcePage ResourceKind = iota
	ResourceAsset
)

// AddressResource is a registered, addressable thing: a page or an asset.
// Every live output has exactly one AddressResource registered in the
// AddressSpace.
type AddressResource struct {
	Kind  ResourceKind
	Page  PageRoute  // valid when Kind == ResourcePage
	Asset AssetRoute // valid when Kind == ResourceAsset
	Title string
}

// IsPage / IsAsset mirror the Rust Resource::is_page()/is_asset().
func (r AddressResource) IsPage() bool  { return r.Kind == ResourcePage }
func (r AddressResource) IsAsset() bool { return r.Kind == ResourceAsset }

// Source returns the resource's originating file path regardless of
// kind.
func (r AddressResource) Source() string {
	if r.IsPage() {
		return r.Page.Source
	}
	return r.Asset.Source
}

// Url returns the resource's registered URL regardless of kind.
func (r AddressResource) Url() UrlPath {
	if r.IsPage() {
		return r.Page.Permalink
	}
	return r.Asset.Url
}

// PermalinkUpdate is the result of update_source_url, used on the
// hot-reload path where a full PageRoute isn't available.
type PermalinkUpdate struct {
	Kind            PermalinkUpdateKind
	OldUrl          UrlPath
	ConflictUrl     UrlPath
	ConflictSource  string
}

type PermalinkUpdateKind int

const (
	PermalinkUnchanged PermalinkUpdateKind = iota
	PermalinkChanged
	PermalinkConflict
)

// AddressSpace is the bidirectional source<->URL registry and link
// resolver described in spec §4.D. Guarded by a single RWMutex per
// spec §5 ("readers greatly outnumber writers").
type AddressSpace struct {
	mu           sync.RWMutex
	byUrl        map[string]AddressResource // keyed by UrlPath.String()
	bySource     map[string]UrlPath
	headings     map[string]map[string]struct{} // keyed by permalink string
	assetsPrefix string
	slugConfig   *SlugConfig
}

// NewAddressSpace returns an empty address space.
func NewAddressSpace() *AddressSpace {
	return &AddressSpace{
		byUrl:    make(map[string]AddressResource),
		bySource: make(map[string]UrlPath),
		headings: make(map[string]map[string]struct{}),
	}
}

// Clear empties the address space, used at the start of a --clean build.
func (a *AddressSpace) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byUrl = make(map[string]AddressResource)
	a.bySource = make(map[string]UrlPath)
	a.headings = make(map[string]map[string]struct{})
}

// SetAssetsPrefix sets the assets directory prefix used by IsAssetPath.
func (a *AddressSpace) SetAssetsPrefix(prefix string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.assetsPrefix = prefix
}

// SetSlugConfig sets the slug configuration used by Resolve.
func (a *AddressSpace) SetSlugConfig(cfg *SlugConfig) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.slugConfig = cfg
}

// RegisterPage registers a page resource.
func (a *AddressSpace) RegisterPage(route PageRoute, title string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.registerPageLocked(route, title)
}

func (a *AddressSpace) registerPageLocked(route PageRoute, title string) {
	perm := route.Permalink.String()
	a.byUrl[perm] = AddressResource{Kind: ResourcePage, Page: route, Title: title}
	a.bySource[route.Source] = route.Permalink
}

// RegisterAsset registers an asset resource.
func (a *AddressSpace) RegisterAsset(route AssetRoute) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byUrl[route.Url.String()] = AddressResource{Kind: ResourceAsset, Asset: route}
	a.bySource[route.Source] = route.Url
}

// RegisterHeading adds a single heading id for a page's permalink.
func (a *AddressSpace) RegisterHeading(permalink UrlPath, id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := permalink.String()
	if a.headings[key] == nil {
		a.headings[key] = make(map[string]struct{})
	}
	a.headings[key][id] = struct{}{}
}

// RegisterHeadings adds a batch of heading ids for a page's permalink.
func (a *AddressSpace) RegisterHeadings(permalink UrlPath, ids []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := permalink.String()
	if a.headings[key] == nil {
		a.headings[key] = make(map[string]struct{})
	}
	for _, id := range ids {
		a.headings[key][id] = struct{}{}
	}
}

// removeUrlLocked removes a URL entry and its headings. Caller holds the
// write lock.
func (a *AddressSpace) removeUrlLocked(url UrlPath) {
	delete(a.byUrl, url.String())
	delete(a.headings, url.String())
}

// UpdatePage updates a page's URL mapping with full Resource data,
// returning the old UrlPath if the permalink changed.
func (a *AddressSpace) UpdatePage(route PageRoute, title string) (old UrlPath, changed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if oldUrl, ok := a.bySource[route.Source]; ok && !oldUrl.Equal(route.Permalink) {
		a.removeUrlLocked(oldUrl)
		old, changed = oldUrl, true
	}
	a.registerPageLocked(route, title)
	return
}

// UpdateSourceUrl updates source -> URL mapping for hot-reload with
// conflict detection. Matches the original's three-way PermalinkUpdate
// semantics exactly, including the documented "Unchanged" result for a
// first-ever sighting of source (spec §9's resolved open question).
func (a *AddressSpace) UpdateSourceUrl(source string, newUrl UrlPath) PermalinkUpdate {
	a.mu.Lock()
	defer a.mu.Unlock()

	oldUrl, hadOld := a.bySource[source]
	if hadOld && oldUrl.Equal(newUrl) {
		return PermalinkUpdate{Kind: PermalinkUnchanged}
	}

	if res, ok := a.byUrl[newUrl.String()]; ok {
		if res.Source() != source {
			return PermalinkUpdate{
				Kind:           PermalinkConflict,
				ConflictUrl:    newUrl,
				ConflictSource: res.Source(),
			}
		}
	}

	if hadOld {
		a.removeUrlLocked(oldUrl)
	}
	a.bySource[source] = newUrl

	if hadOld {
		return PermalinkUpdate{Kind: PermalinkChanged, OldUrl: oldUrl}
	}
	return PermalinkUpdate{Kind: PermalinkUnchanged}
}

// ContainsUrl reports whether url is registered.
func (a *AddressSpace) ContainsUrl(url UrlPath) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.byUrl[url.String()]
	return ok
}

// GetByUrl returns the resource registered at url, if any.
func (a *AddressSpace) GetByUrl(url UrlPath) (AddressResource, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.byUrl[url.String()]
	return r, ok
}

// UrlForSource returns the URL a source file is registered at.
func (a *AddressSpace) UrlForSource(source string) (UrlPath, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	u, ok := a.bySource[source]
	return u, ok
}

// SourceForUrl returns the source file for a URL, pages only (used by
// on-demand compilation to resolve a requested URL back to a source).
func (a *AddressSpace) SourceForUrl(url UrlPath) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.byUrl[url.String()]
	if !ok || !r.IsPage() {
		return "", false
	}
	return r.Page.Source, true
}

// HeadingsFor returns the heading ids registered for a page's permalink.
func (a *AddressSpace) HeadingsFor(permalink UrlPath) (map[string]struct{}, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	h, ok := a.headings[permalink.String()]
	return h, ok
}

// IsAssetPath reports whether path falls under the configured assets
// prefix, matching only on a "/" segment boundary.
func (a *AddressSpace) IsAssetPath(p string) bool {
	a.mu.RLock()
	prefix := a.assetsPrefix
	a.mu.RUnlock()
	if prefix == "" {
		return false
	}
	p = strings.TrimPrefix(p, "/")
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	rest := p[len(prefix):]
	return rest == "" || strings.HasPrefix(rest, "/")
}

// Len, PageCount, AssetCount are simple introspection helpers.
func (a *AddressSpace) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.byUrl)
}

func (a *AddressSpace) PageCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := 0
	for _, r := range a.byUrl {
		if r.IsPage() {
			n++
		}
	}
	return n
}

func (a *AddressSpace) AssetCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := 0
	for _, r := range a.byUrl {
		if r.IsAsset() {
			n++
		}
	}
	return n
}

// Pages returns a snapshot slice of every registered page resource, used
// by feed/sitemap sinks and conflict detection.
func (a *AddressSpace) Pages() []AddressResource {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]AddressResource, 0, len(a.byUrl))
	for _, r := range a.byUrl {
		if r.IsPage() {
			out = append(out, r)
		}
	}
	return out
}

// ResolveContext carries the caller-side state needed to resolve a link:
// the page doing the linking.
type ResolveContext struct {
	CurrentPermalink UrlPath
	SourcePath       string
	ColocatedDir     string // "" if none
	IsAssetAttr      bool   // true for src/poster/data, false for href
}

// ResolveResultKind discriminates the ResolveResult variants of spec
// §4.D.
type ResolveResultKind int

const (
	ResolveExternal ResolveResultKind = iota
	ResolveFound
	ResolveNotFound
	ResolveFragmentNotFound
	ResolveWarning
	ResolveErrorKind
)

// ResolveResult is the outcome of AddressSpace.Resolve.
type ResolveResult struct {
	Kind           ResolveResultKind
	ExternalUrl    string
	Resource       AddressResource
	Target         string
	Tried          []string
	Page           string
	Fragment       string
	AvailableIds   []string
	ResolvedUrl    string // set on Warning when a best-effort URL was found
	Message        string
}

// Resolve is the core link-validation algorithm of spec §4.D.
func (a *AddressSpace) Resolve(link string, ctx ResolveContext) ResolveResult {
	if link == "" {
		return ResolveResult{Kind: ResolveErrorKind, Message: "Empty link"}
	}

	switch ClassifyLink(link) {
	case LinkExternal:
		return ResolveResult{Kind: ResolveExternal, ExternalUrl: link}
	case LinkFragment:
		_, fragment := SplitPathFragment(link)
		return a.resolveFragment(ctx.CurrentPermalink.String(), fragment)
	case LinkSiteRoot:
		p, fragment := SplitPathFragment(link)
		return a.resolveAbsolute(p, fragment)
	default:
		p, fragment := SplitPathFragment(link)
		if ctx.IsAssetAttr {
			return a.resolveColocatedAsset(p, fragment, ctx)
		}
		return a.resolveRelativePage(p, fragment, ctx)
	}
}

func (a *AddressSpace) resolveFragment(currentUrl, fragment string) ResolveResult {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if fragment == "" {
		if r, ok := a.byUrl[currentUrl]; ok {
			return ResolveResult{Kind: ResolveFound, Resource: r}
		}
	}
	if headings, ok := a.headings[currentUrl]; ok {
		if _, has := headings[fragment]; has {
			if r, ok := a.byUrl[currentUrl]; ok {
				return ResolveResult{Kind: ResolveFound, Resource: r}
			}
		}
		return ResolveResult{
			Kind:         ResolveFragmentNotFound,
			Page:         currentUrl,
			Fragment:     fragment,
			AvailableIds: mapKeys(headings),
		}
	}
	if r, ok := a.byUrl[currentUrl]; ok {
		return ResolveResult{Kind: ResolveFound, Resource: r}
	}
	return ResolveResult{
		Kind:   ResolveNotFound,
		Target: currentUrl + "#" + fragment,
		Tried:  []string{currentUrl},
	}
}

func mapKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (a *AddressSpace) resolveAbsolute(p, fragment string) ResolveResult {
	a.mu.RLock()
	defer a.mu.RUnlock()

	slugified := p
	if a.slugConfig != nil {
		trimmed := strings.TrimPrefix(p, "/")
		slugified = "/" + SlugifyPath(trimmed)
	}
	normalized := PageUrl(slugified)
	slugAsset := AssetUrl(slugified)

	if r, ok := a.byUrl[normalized.String()]; ok {
		if fragment != "" {
			return a.checkFragmentOnResourceLocked(r, normalized.String(), fragment)
		}
		return ResolveResult{Kind: ResolveFound, Resource: r}
	}
	if r, ok := a.byUrl[slugAsset.String()]; ok {
		if fragment != "" {
			return a.checkFragmentOnResourceLocked(r, slugAsset.String(), fragment)
		}
		return ResolveResult{Kind: ResolveFound, Resource: r}
	}

	target := p
	if fragment != "" {
		target = p + "#" + fragment
	}
	return ResolveResult{
		Kind:   ResolveNotFound,
		Target: target,
		Tried:  []string{normalized.String(), slugAsset.String()},
	}
}

func (a *AddressSpace) checkFragmentOnResourceLocked(r AddressResource, url, fragment string) ResolveResult {
	if !r.IsPage() {
		return ResolveResult{
			Kind:        ResolveWarning,
			ResolvedUrl: url,
			Message:     fmt.Sprintf("Fragment '%s' specified on asset '%s'. Assets don't have fragments.", fragment, url),
		}
	}
	if headings, ok := a.headings[url]; ok {
		if _, has := headings[fragment]; has {
			return ResolveResult{Kind: ResolveFound, Resource: r}
		}
		return ResolveResult{
			Kind:         ResolveFragmentNotFound,
			Page:         url,
			Fragment:     fragment,
			AvailableIds: mapKeys(headings),
		}
	}
	return ResolveResult{Kind: ResolveFound, Resource: r}
}

func (a *AddressSpace) resolveColocatedAsset(p, fragment string, ctx ResolveContext) ResolveResult {
	a.mu.RLock()
	defer a.mu.RUnlock()

	sourceDir := path.Dir(ctx.SourcePath)
	cleanPath := strings.TrimPrefix(p, "./")
	physicalPath := path.Join(sourceDir, cleanPath)

	if ctx.ColocatedDir != "" {
		assetPath := path.Join(ctx.ColocatedDir, cleanPath)
		if url, ok := a.bySource[assetPath]; ok {
			if r, ok := a.byUrl[url.String()]; ok {
				if fragment != "" {
					return ResolveResult{
						Kind:        ResolveWarning,
						ResolvedUrl: url.String(),
						Message:     fmt.Sprintf("Fragment '%s' specified on asset. Assets don't have fragments.", fragment),
					}
				}
				return ResolveResult{Kind: ResolveFound, Resource: r}
			}
		}
	}

	if url, ok := a.bySource[physicalPath]; ok {
		if r, ok := a.byUrl[url.String()]; ok {
			return ResolveResult{Kind: ResolveFound, Resource: r}
		}
	}

	tried := []string{physicalPath}
	if ctx.ColocatedDir != "" {
		tried = append(tried, path.Join(ctx.ColocatedDir, cleanPath))
	} else {
		tried = append(tried, "")
	}
	return ResolveResult{Kind: ResolveNotFound, Target: p, Tried: tried}
}

// resolveRelativeUrl resolves path relative to currentPermalink treated
// as a directory (it always ends in "/").
func resolveRelativeUrl(currentPermalink UrlPath, p string) UrlPath {
	joined := path.Join(currentPermalink.String(), p)
	joined = path.Clean(joined)
	if strings.HasSuffix(p, "/") || !strings.Contains(path.Base(joined), ".") {
		return PageUrl(joined)
	}
	return AssetUrl(joined)
}

// resolvePhysicalPath resolves path relative to sourceDir on disk.
func resolvePhysicalPath(sourceDir, p string) string {
	return path.Clean(path.Join(sourceDir, p))
}

func (a *AddressSpace) resolveRelativePage(p, fragment string, ctx ResolveContext) ResolveResult {
	urlTarget := resolveRelativeUrl(ctx.CurrentPermalink, p)
	sourceDir := path.Dir(ctx.SourcePath)
	physicalTarget := resolvePhysicalPath(sourceDir, p)

	a.mu.RLock()
	defer a.mu.RUnlock()

	urlMatch, urlOk := a.byUrl[urlTarget.String()]
	physUrl, physResource, physOk := a.findPageByPhysicalPathLocked(physicalTarget)

	if urlOk {
		if urlMatch.IsPage() {
			if a.sourceMatchesPhysicalLocked(physicalTarget, urlMatch.Page.Source) {
				if fragment != "" {
					return a.checkFragmentOnResourceLocked(urlMatch, urlTarget.String(), fragment)
				}
				return ResolveResult{Kind: ResolveFound, Resource: urlMatch}
			}
			return ResolveResult{
				Kind:        ResolveWarning,
				ResolvedUrl: urlTarget.String(),
				Message: fmt.Sprintf("Relative link '%s' resolves to '%s' via URL matching, but physical path '%s' points elsewhere. Consider using absolute path '%s' for clarity.",
					p, urlTarget.String(), physicalTarget, urlTarget.String()),
			}
		}
		return ResolveResult{
			Kind:        ResolveWarning,
			ResolvedUrl: urlTarget.String(),
			Message:     fmt.Sprintf("Relative link '%s' resolves to asset '%s', not a page. Use src attribute for assets.", p, urlTarget.String()),
		}
	}

	if physOk {
		return ResolveResult{
			Kind: ResolveErrorKind,
			Message: fmt.Sprintf("Relative link '%s' physically points to '%s', but that page's permalink is '%s'. The link will not work. Use absolute path '%s'.",
				p, physicalTarget, physUrl, physUrl),
		}
	}
	_ = physResource

	return ResolveResult{
		Kind:   ResolveNotFound,
		Target: p,
		Tried:  []string{"URL: " + urlTarget.String(), "Physical: " + physicalTarget},
	}
}

// findPageByPhysicalPathLocked tries {path, path.typ, path.md,
// path/index.typ, path/index.md} in order, matching spec's stated try
// order. Caller holds the read lock.
func (a *AddressSpace) findPageByPhysicalPathLocked(p string) (string, AddressResource, bool) {
	candidates := []string{
		p,
		withExt(p, "typ"),
		withExt(p, "md"),
		path.Join(p, "index.typ"),
		path.Join(p, "index.md"),
	}
	for _, c := range candidates {
		if url, ok := a.bySource[c]; ok {
			if r, ok := a.byUrl[url.String()]; ok && r.IsPage() {
				return url.String(), r, true
			}
		}
	}
	return "", AddressResource{}, false
}

func withExt(p, ext string) string {
	trimmed := strings.TrimSuffix(p, path.Ext(p))
	return trimmed + "." + ext
}

func (a *AddressSpace) sourceMatchesPhysicalLocked(physical, targetSource string) bool {
	candidates := []string{
		physical,
		withExt(physical, "typ"),
		withExt(physical, "md"),
		path.Join(physical, "index.typ"),
		path.Join(physical, "index.md"),
	}
	for _, c := range candidates {
		if c == targetSource {
			return true
		}
	}
	return false
}

// Conflict records a single URL claimed by more than one source.
type Conflict struct {
	Url     UrlPath
	Sources []string
}

// DetectConflicts runs the build-phase batch pass of spec §4.D: builds a
// map UrlPath -> sources across every registered resource (plus any
// extra claimant paths, e.g. aliases, passed in aliases) and returns
// every URL claimed by more than one source.
func (a *AddressSpace) DetectConflicts(aliases map[string][]string) []Conflict {
	a.mu.RLock()
	defer a.mu.RUnlock()

	claims := make(map[string][]string)
	for srcPath, url := range a.bySource {
		key := url.String()
		claims[key] = append(claims[key], srcPath)
	}
	for source, urls := range aliases {
		for _, u := range urls {
			claims[u] = append(claims[u], source)
		}
	}

	var out []Conflict
	for urlStr, sources := range claims {
		if len(sources) > 1 {
			var u UrlPath
			if strings.HasSuffix(urlStr, "/") {
				u = PageUrl(urlStr)
			} else {
				u = AssetUrl(urlStr)
			}
			out = append(out, Conflict{Url: u, Sources: sources})
		}
	}
	return out
}
