package tola

import "testing"

func TestRegisterPageAndLookup(t *testing.T) {
	a := NewAddressSpace()
	route := PageRoute{Source: "content/hello.typ", Permalink: PageUrl("/hello/")}
	a.RegisterPage(route, "Hello")

	r, ok := a.GetByUrl(PageUrl("/hello/"))
	if !ok || !r.IsPage() || r.Page.Source != route.Source {
		t.Fatalf("expected page registered, got %+v ok=%v", r, ok)
	}
	u, ok := a.UrlForSource("content/hello.typ")
	if !ok || u.String() != "/hello/" {
		t.Fatalf("expected url mapping, got %v", u)
	}
}

func TestUpdateSourceUrlUnchangedChangedConflict(t *testing.T) {
	a := NewAddressSpace()
	a.RegisterPage(PageRoute{Source: "content/a.typ", Permalink: PageUrl("/a/")}, "")

	// first sighting of a brand new source with no conflict => Unchanged
	res := a.UpdateSourceUrl("content/new.typ", PageUrl("/new/"))
	if res.Kind != PermalinkUnchanged {
		t.Fatalf("expected Unchanged for first sighting, got %v", res.Kind)
	}

	// same source, same url => Unchanged
	res = a.UpdateSourceUrl("content/a.typ", PageUrl("/a/"))
	if res.Kind != PermalinkUnchanged {
		t.Fatalf("expected Unchanged, got %v", res.Kind)
	}

	// same source, different url => Changed
	res = a.UpdateSourceUrl("content/a.typ", PageUrl("/a-renamed/"))
	if res.Kind != PermalinkChanged || res.OldUrl.String() != "/a/" {
		t.Fatalf("expected Changed{old=/a/}, got %+v", res)
	}

	// a different source claiming an existing url => Conflict
	a.RegisterPage(PageRoute{Source: "content/b.typ", Permalink: PageUrl("/b/")}, "")
	res = a.UpdateSourceUrl("content/c.typ", PageUrl("/b/"))
	if res.Kind != PermalinkConflict || res.ConflictSource != "content/b.typ" {
		t.Fatalf("expected Conflict, got %+v", res)
	}
}

func TestDetectConflicts(t *testing.T) {
	a := NewAddressSpace()
	a.RegisterPage(PageRoute{Source: "content/a.typ", Permalink: PageUrl("/foo/")}, "")
	conflicts := a.DetectConflicts(map[string][]string{
		"content/b.typ": {"/foo/"},
	})
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	if len(conflicts[0].Sources) != 2 {
		t.Fatalf("expected 2 claimants, got %v", conflicts[0].Sources)
	}
}

func TestResolveExternalAndFragment(t *testing.T) {
	a := NewAddressSpace()
	a.RegisterPage(PageRoute{Source: "content/post.typ", Permalink: PageUrl("/post/")}, "")
	a.RegisterHeading(PageUrl("/post/"), "intro")

	res := a.Resolve("https://example.com", ResolveContext{CurrentPermalink: PageUrl("/post/")})
	if res.Kind != ResolveExternal {
		t.Fatalf("expected External, got %v", res.Kind)
	}

	res = a.Resolve("#intro", ResolveContext{CurrentPermalink: PageUrl("/post/")})
	if res.Kind != ResolveFound {
		t.Fatalf("expected Found for known fragment, got %v", res.Kind)
	}

	res = a.Resolve("#nope", ResolveContext{CurrentPermalink: PageUrl("/post/")})
	if res.Kind != ResolveFragmentNotFound {
		t.Fatalf("expected FragmentNotFound, got %v", res.Kind)
	}
}

func TestResolveColocatedAssetScenarioS3(t *testing.T) {
	a := NewAddressSpace()
	a.RegisterPage(PageRoute{Source: "content/post.typ", Permalink: PageUrl("/post/"), ColocatedDir: "content/post"}, "")
	a.RegisterAsset(AssetRoute{Source: "content/post/img.png", Url: AssetUrl("/post/img.png")})

	res := a.Resolve("./img.png", ResolveContext{
		CurrentPermalink: PageUrl("/post/"),
		SourcePath:       "content/post.typ",
		ColocatedDir:     "content/post",
		IsAssetAttr:      true,
	})
	if res.Kind != ResolveFound || !res.Resource.IsAsset() || res.Resource.Asset.Url.String() != "/post/img.png" {
		t.Fatalf("expected Found asset /post/img.png, got %+v", res)
	}
}

func TestResolveRelativePageFoundAndNotFound(t *testing.T) {
	a := NewAddressSpace()
	a.RegisterPage(PageRoute{Source: "content/blog/hello.typ", Permalink: PageUrl("/blog/hello/")}, "")

	// Case: URL-hit, physical-agrees => Found
	res := a.Resolve("hello/", ResolveContext{
		CurrentPermalink: PageUrl("/blog/"),
		SourcePath:       "content/blog/index.typ",
	})
	if res.Kind != ResolveFound {
		t.Fatalf("expected Found, got %+v", res)
	}

	// Case: URL-miss, physical-miss => NotFound
	res = a.Resolve("nonexistent/", ResolveContext{
		CurrentPermalink: PageUrl("/blog/"),
		SourcePath:       "content/blog/index.typ",
	})
	if res.Kind != ResolveNotFound {
		t.Fatalf("expected NotFound, got %+v", res)
	}
}

func TestIsAssetPathSegmentBoundary(t *testing.T) {
	a := NewAddressSpace()
	a.SetAssetsPrefix("assets")
	if !a.IsAssetPath("/assets/foo.png") {
		t.Fatal("expected /assets/foo.png to be an asset path")
	}
	if a.IsAssetPath("/assets-extra/foo.png") {
		t.Fatal("expected /assets-extra/foo.png to NOT match (no boundary)")
	}
}
