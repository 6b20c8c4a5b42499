package tola

import (
	"strings"
	"testing"
)

func TestParseIndexRenderRoundTrip(t *testing.T) {
	src := `<html><head><title>T</title></head><body><p>Hello <a href="/x">link</a></p></body></html>`
	raw, err := ParseRawDocument([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	indexed := IndexDocument(raw)
	link := FindFirst(indexed.Root, "a")
	if link == nil || link.Family != FamilyLink {
		t.Fatalf("expected <a> to be classified FamilyLink")
	}
	out := RenderHTML(indexed)
	if !strings.Contains(out, "Hello") || !strings.Contains(out, `href="/x"`) {
		t.Fatalf("round trip lost content: %s", out)
	}
}

func TestIndexDocumentRejectsIndexedInput(t *testing.T) {
	raw, _ := ParseRawDocument([]byte(`<html><body></body></html>`))
	indexed := IndexDocument(raw)
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic when indexing an already-Indexed document")
		}
	}()
	IndexDocument(indexed)
}

func TestHeadInjectorAddsHotReloadScript(t *testing.T) {
	raw, _ := ParseRawDocument([]byte(`<html><head></head><body></body></html>`))
	doc := IndexDocument(raw)
	ctx := &TransformContext{HotReloadEnabled: true, HotReloadScript: "console.log('hi')"}
	if err := (HeadInjector{}).Apply(doc, ctx); err != nil {
		t.Fatalf("apply: %v", err)
	}
	out := RenderHTML(doc)
	if !strings.Contains(out, "console.log") {
		t.Fatalf("expected hot reload script injected, got %s", out)
	}
}

func TestLinkTransformRewritesResolvedHref(t *testing.T) {
	as := NewAddressSpace()
	as.RegisterPage(PageRoute{Permalink: PageUrl("/blog/hello/"), Source: "content/blog/hello.typ"}, "Hello")

	raw, _ := ParseRawDocument([]byte(`<html><body><a href="hello/">About</a></body></html>`))
	doc := IndexDocument(raw)
	ctx := &TransformContext{
		Address: as,
		ResolveCtx: ResolveContext{
			CurrentPermalink: PageUrl("/blog/"),
			SourcePath:       "content/blog/index.typ",
		},
	}
	var warnings []string
	if err := (LinkTransform{Warnings: &warnings}).Apply(doc, ctx); err != nil {
		t.Fatalf("apply: %v", err)
	}
	link := FindFirst(doc.Root, "a")
	href, _ := link.Attr("href")
	if href != "/blog/hello/" {
		t.Fatalf("expected rewritten href /blog/hello/, got %q (warnings=%v)", href, warnings)
	}
}
