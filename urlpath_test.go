package tola

import "testing"

func TestPageUrlNormalizes(t *testing.T) {
	u := PageUrl("foo/bar")
	if u.String() != "/foo/bar/" {
		t.Fatalf("got %q", u.String())
	}
	if !u.IsPage() {
		t.Fatal("expected page variant")
	}
}

func TestAssetUrlNoTrailingSlash(t *testing.T) {
	u := AssetUrl("foo/bar.png")
	if u.String() != "/foo/bar.png" {
		t.Fatalf("got %q", u.String())
	}
	if !u.IsAsset() {
		t.Fatal("expected asset variant")
	}
}

func TestClassifyLink(t *testing.T) {
	cases := map[string]LinkKind{
		"https://example.com":  LinkExternal,
		"mailto:a@b.com":       LinkExternal,
		"#section":             LinkFragment,
		"./#section":           LinkFragment,
		"/about/":              LinkSiteRoot,
		"../img.png":           LinkFileRelative,
		"img.png":              LinkFileRelative,
	}
	for in, want := range cases {
		if got := ClassifyLink(in); got != want {
			t.Errorf("ClassifyLink(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSplitPathFragment(t *testing.T) {
	p, f := SplitPathFragment("a/b.html#heading")
	if p != "a/b.html" || f != "heading" {
		t.Fatalf("got %q %q", p, f)
	}
	p, f = SplitPathFragment("a/b.html")
	if p != "a/b.html" || f != "" {
		t.Fatalf("got %q %q", p, f)
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	in := "Hello, World! / Foo_Bar Baz"
	once := SlugifyPath(in)
	twice := SlugifyPath(once)
	if once != twice {
		t.Fatalf("not idempotent: %q vs %q", once, twice)
	}
}

func TestBrowserUrlRejectsDotDot(t *testing.T) {
	if _, ok := BrowserUrl("/../etc/passwd"); ok {
		t.Fatal("expected rejection of .. path")
	}
	if _, ok := BrowserUrl("/foo/../bar"); ok {
		t.Fatal("expected rejection of .. path")
	}
}
