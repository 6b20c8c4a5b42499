package tola

import (
	"fmt"
	"strings"
)

// Transform mutates an Indexed-phase VDocument in place. Spec §4.F lists
// HeadInjector, LinkTransform, MediaTransform, SvgTransform and
// BodyInjector as the canonical transform set; each is grounded on the
// teacher's transforms.go idiom of small single-purpose passes chained
// by the compiler.
type Transform interface {
	Name() string
	Apply(doc *VDocument, ctx *TransformContext) error
}

// TransformContext carries the per-page state a transform needs:
// address-space resolution, the asset prefix, and hot-reload wiring.
type TransformContext struct {
	Address          *AddressSpace
	ResolveCtx       ResolveContext
	AssetsPrefix     string
	HotReloadEnabled bool
	HotReloadScript  string
}

// HeadScript describes one user-configured <script> tag injected into
// <head> (spec §4.F HeadInjector).
type HeadScript struct {
	Src   string
	Defer bool
	Async bool
}

// HeadInjector populates <head> with the site's title, description,
// icon, stylesheets, recolor CSS/JS, configured scripts and raw HTML
// elements, and sets the <html lang> attribute. DisableGlobalHeader
// skips everything except the lang attribute, the shape pages like a
// custom 404 need so they stay self-contained (no relative paths to a
// stylesheet that may not exist at the request's depth).
type HeadInjector struct {
	Title          string
	Description    string
	Language       string
	IconHref       string
	IconType       string
	StyleHrefs     []string
	Scripts        []HeadScript
	RecolorEnabled bool
	RecolorStatic  bool
	Elements       []string

	DisableGlobalHeader bool
}

func (HeadInjector) Name() string { return "head-injector" }

func (h HeadInjector) Apply(doc *VDocument, ctx *TransformContext) error {
	assertPhase(doc, PhaseIndexed, "HeadInjector")

	if root := FindFirst(doc.Root, "html"); root != nil {
		if _, ok := root.Attr("lang"); !ok {
			lang := h.Language
			if lang == "" {
				lang = "en"
			}
			root.SetAttr("lang", lang)
		}
	}

	if h.DisableGlobalHeader {
		return nil
	}

	head := FindFirst(doc.Root, "head")
	if head == nil {
		return nil
	}

	if h.Title != "" {
		head.Children = append(head.Children, &Node{Tag: "title", Children: []*Node{{Text: h.Title}}})
	}
	if h.Description != "" {
		head.Children = append(head.Children, metaNode("description", h.Description))
	}
	if h.IconHref != "" {
		head.Children = append(head.Children, linkNode("shortcut icon", h.IconHref, h.IconType))
	}
	for _, href := range h.StyleHrefs {
		head.Children = append(head.Children, linkNode("stylesheet", href, ""))
	}
	if h.RecolorEnabled {
		head.Children = append(head.Children, &Node{Tag: "style", Children: []*Node{{Text: recolorCSS, RawText: true}}})
		if !h.RecolorStatic {
			head.Children = append(head.Children, &Node{
				Tag:      "script",
				Attrs:    []Attr{{Key: "defer", Val: ""}},
				Children: []*Node{{Text: recolorHeadScript, RawText: true}},
			})
		}
	}
	for _, s := range h.Scripts {
		if s.Src == "" {
			continue
		}
		head.Children = append(head.Children, scriptNode(s.Src, s.Defer, s.Async))
	}
	for _, raw := range h.Elements {
		head.Children = append(head.Children, &Node{Text: raw, RawText: true})
	}

	if ctx.HotReloadEnabled && ctx.HotReloadScript != "" {
		head.Children = append(head.Children, &Node{
			Tag:   "script",
			Attrs: []Attr{{Key: "type", Val: "text/javascript"}},
			Children: []*Node{
				{Text: ctx.HotReloadScript, RawText: true},
			},
		})
	}
	return nil
}

func metaNode(name, content string) *Node {
	return &Node{Tag: "meta", Attrs: []Attr{{Key: "name", Val: name}, {Key: "content", Val: content}}}
}

func linkNode(rel, href, typ string) *Node {
	attrs := []Attr{{Key: "rel", Val: rel}, {Key: "href", Val: href}}
	if typ != "" {
		attrs = append(attrs, Attr{Key: "type", Val: typ})
	}
	return &Node{Tag: "link", Attrs: attrs}
}

func scriptNode(src string, deferAttr, async bool) *Node {
	attrs := []Attr{{Key: "src", Val: src}}
	if deferAttr {
		attrs = append(attrs, Attr{Key: "defer", Val: ""})
	}
	if async {
		attrs = append(attrs, Attr{Key: "async", Val: ""})
	}
	return &Node{Tag: "script", Attrs: attrs}
}

// LinkTransform resolves every <a href> against the AddressSpace,
// rewriting it to the final site-relative URL and recording a warning
// (never failing the build) for links that can't be resolved.
type LinkTransform struct {
	Warnings *[]string
}

func (LinkTransform) Name() string { return "link-transform" }

func (lt LinkTransform) Apply(doc *VDocument, ctx *TransformContext) error {
	assertPhase(doc, PhaseIndexed, "LinkTransform")
	var err error
	ModifyByFamily(doc.Root, FamilyLink, func(n *Node) {
		href, ok := n.Attr("href")
		if !ok || href == "" {
			return
		}
		res := ctx.Address.Resolve(href, ctx.ResolveCtx)
		switch res.Kind {
		case ResolveFound:
			n.SetAttr("href", res.Resource.Url().String())
		case ResolveWarning:
			n.SetAttr("href", res.ResolvedUrl)
			if lt.Warnings != nil {
				*lt.Warnings = append(*lt.Warnings, res.Message)
			}
		case ResolveExternal:
			// leave untouched
		default:
			if lt.Warnings != nil {
				*lt.Warnings = append(*lt.Warnings, fmt.Sprintf("broken link %q: %s", href, res.Message))
			}
		}
	})
	return err
}

// mediaAssetAttrs lists the attributes that carry a colocated-asset
// reference on a media element: src on img/video/audio/source, poster
// on video, data on object.
var mediaAssetAttrs = []string{"src", "poster", "data"}

// MediaTransform rewrites media asset attributes (src/poster/data)
// through the colocated-asset resolution branch of AddressSpace.Resolve,
// mirroring LinkTransform but marking every resolved attribute as an
// asset attribute (spec §4.D "Asset attribute ⇒ colocated-asset
// resolution") rather than a page href.
type MediaTransform struct {
	Warnings *[]string
}

func (MediaTransform) Name() string { return "media-transform" }

func (mt MediaTransform) Apply(doc *VDocument, ctx *TransformContext) error {
	assertPhase(doc, PhaseIndexed, "MediaTransform")
	rc := ctx.ResolveCtx
	rc.IsAssetAttr = true
	ModifyByFamily(doc.Root, FamilyMedia, func(n *Node) {
		for _, attr := range mediaAssetAttrs {
			val, ok := n.Attr(attr)
			if !ok || val == "" || ClassifyLink(val) == LinkExternal {
				continue
			}
			res := ctx.Address.Resolve(val, rc)
			switch res.Kind {
			case ResolveFound:
				n.SetAttr(attr, res.Resource.Url().String())
			case ResolveWarning:
				n.SetAttr(attr, res.ResolvedUrl)
				if mt.Warnings != nil {
					*mt.Warnings = append(*mt.Warnings, res.Message)
				}
			case ResolveExternal:
			default:
				if mt.Warnings != nil {
					*mt.Warnings = append(*mt.Warnings, fmt.Sprintf("broken media %s %q: %s", attr, val, res.Message))
				}
			}
		}
	})
	return nil
}

// SvgTransform reconstructs every inline <svg> element's serialized
// markup and either refreshes its viewBox from that markup (serve mode,
// where the page is rendered fresh on every request) or, once the
// reconstructed markup crosses ExternalThreshold bytes, swaps it for an
// external file and an <img> reference (build mode), mirroring the
// original's should_extract/reconstruct_svg/replace_with_img trio.
type SvgTransform struct {
	ServeMode         bool
	ExternalEnabled   bool
	ExternalThreshold int
	// WriteExternalFile persists reconstructed SVG markup somewhere the
	// page's own directory can reach and returns the URL/relative path
	// to use as the replacement <img src>.
	WriteExternalFile func(markup []byte) (string, error)
}

func (SvgTransform) Name() string { return "svg-transform" }

func (st SvgTransform) Apply(doc *VDocument, ctx *TransformContext) error {
	assertPhase(doc, PhaseIndexed, "SvgTransform")
	ModifyByFamily(doc.Root, FamilySvg, func(n *Node) {
		if n.Tag != "svg" {
			return
		}
		markup := reconstructSvg(n)
		if markup == "" {
			return
		}
		if st.shouldExtract(len(markup)) {
			if src, err := st.WriteExternalFile([]byte(markup)); err == nil {
				replaceSvgWithImg(n, src)
				return
			}
		}
		if vb, ok := extractViewBox(markup); ok {
			n.SetAttr("viewBox", vb)
		}
	})
	return nil
}

// shouldExtract mirrors the original's should_extract: external
// extraction only ever applies outside serve mode, and only once a
// size threshold is configured and crossed.
func (st SvgTransform) shouldExtract(size int) bool {
	return st.ExternalEnabled && !st.ServeMode && st.WriteExternalFile != nil &&
		st.ExternalThreshold > 0 && size >= st.ExternalThreshold
}

// reconstructSvg renders n back to an <svg ...>...</svg> string using
// the same attribute-order-preserving renderer as RenderHTML.
func reconstructSvg(n *Node) string {
	var b strings.Builder
	renderNode(&b, n)
	return b.String()
}

// extractViewBox pulls the viewBox attribute value out of reconstructed
// markup, the same string-search the original uses rather than a full
// reparse.
func extractViewBox(markup string) (string, bool) {
	const key = `viewBox="`
	idx := strings.Index(markup, key)
	if idx < 0 {
		return "", false
	}
	rest := markup[idx+len(key):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// replaceSvgWithImg turns an <svg> element into an <img> pointing at an
// externally written copy, dropping svg-only attributes and children
// (original's replace_with_img).
func replaceSvgWithImg(n *Node, src string) {
	n.Tag = "img"
	n.Family = FamilyMedia
	n.Children = nil
	var kept []Attr
	for _, a := range n.Attrs {
		if a.Key == "viewBox" || a.Key == "xmlns" || a.Key == "xmlns:xlink" {
			continue
		}
		kept = append(kept, a)
	}
	n.Attrs = kept
	n.SetAttr("src", src)
	n.SetAttr("loading", "lazy")
}

// BodyInjector inserts the recolor SVG filter at the start of <body>
// and appends the SPA navigation script and (for a dynamic recolor
// source) the recolor client script at the end, grounded on the
// original's populate_body ordering.
type BodyInjector struct {
	RecolorEnabled bool
	RecolorStatic  bool
	RecolorList    []string
	SPANav         bool
	Extra          []*Node
}

func (BodyInjector) Name() string { return "body-injector" }

func (b BodyInjector) Apply(doc *VDocument, ctx *TransformContext) error {
	assertPhase(doc, PhaseIndexed, "BodyInjector")
	body := FindFirst(doc.Root, "body")
	if body == nil {
		return nil
	}
	if b.RecolorEnabled {
		filter := &Node{Text: recolorFilterSvg(b.RecolorList), RawText: true}
		body.Children = append([]*Node{filter}, body.Children...)
	}
	if b.SPANav {
		body.Children = append(body.Children, &Node{Text: spaNavScript, RawText: true})
	}
	if b.RecolorEnabled && !b.RecolorStatic {
		body.Children = append(body.Children, &Node{Text: recolorClientScript, RawText: true})
	}
	body.Children = append(body.Children, b.Extra...)
	return nil
}

// recolorFilterSvg builds the hidden <svg><filter> the recolor CSS
// class references. A static palette bakes the configured colors into
// a feColorMatrix; an empty list falls back to a neutral hueRotate
// filter matching the original's generic FILTER_SVG.
func recolorFilterSvg(colors []string) string {
	var b strings.Builder
	b.WriteString(`<svg width="0" height="0" style="position:absolute" aria-hidden="true"><defs><filter id="tola-recolor">`)
	if len(colors) > 0 {
		b.WriteString(`<feColorMatrix type="matrix" values="0 0 0 0 0  0 0 0 0 0  0 0 0 0 0  0 0 0 1 0" data-tola-palette="`)
		b.WriteString(strings.Join(colors, ","))
		b.WriteString(`"/>`)
	} else {
		b.WriteString(`<feColorMatrix type="hueRotate" values="0"/>`)
	}
	b.WriteString(`</filter></defs></svg>`)
	return b.String()
}

// recolorCSS binds the .tola-recolor class to the filter BodyInjector
// installs; recolorHeadScript is the dynamic-palette bootstrap shipped
// only for a non-static recolor source (head.rs's "CSS always, JS for
// Source != Static" split).
const recolorCSS = `.tola-recolor{filter:url(#tola-recolor);}`
const recolorHeadScript = `window.tolaRecolor=window.tolaRecolor||{};`

const spaNavScript =`<script>(function(){document.addEventListener("click",function(e){var a=e.target.closest("a");if(!a||a.target||a.hasAttribute("download")||a.origin!==location.origin)return;e.preventDefault();history.pushState(null,"",a.href);window.dispatchEvent(new PopStateEvent("popstate"));});window.addEventListener("popstate",function(){location.reload();});})();</script>`

const recolorClientScript = `<script>(function(){var m=window.matchMedia("(prefers-color-scheme: dark)");function apply(){document.documentElement.classList.toggle("tola-dark",m.matches);}m.addEventListener("change",apply);apply();})();</script>`

// RunTransforms applies a chain of Indexed-phase transforms in order,
// stopping at the first error.
func RunTransforms(doc *VDocument, ctx *TransformContext, transforms []Transform) error {
	for _, t := range transforms {
		if err := t.Apply(doc, ctx); err != nil {
			return fmt.Errorf("tola: transform %s: %w", t.Name(), err)
		}
	}
	return nil
}
