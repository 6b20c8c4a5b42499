package tola

import (
	"net/url"
	"path"
	"strings"
	"unicode"
)

// UrlPath is a normalized, site-relative URL string. It comes in two
// flavors that are never interchanged implicitly: Page paths always carry
// a leading and trailing slash, Asset paths always carry a leading slash
// and never a forced trailing one. Construct one only through the
// factories below so the two kinds can't be confused at a call site.
type UrlPath struct {
	value   string
	isAsset bool
}

// PageUrl builds the Page variant of a UrlPath: leading and trailing
// slash, internal separators normalized to "/".
func PageUrl(s string) UrlPath {
	s = normalizeSeparators(s)
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	if !strings.HasSuffix(s, "/") {
		s = s + "/"
	}
	return UrlPath{value: s, isAsset: false}
}

// AssetUrl builds the Asset variant of a UrlPath: leading slash, no
// forced trailing slash.
func AssetUrl(s string) UrlPath {
	s = normalizeSeparators(s)
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return UrlPath{value: s, isAsset: true}
}

// BrowserUrl parses a path as received from an HTTP request: strips any
// "?query", percent-decodes, and rejects anything containing "..".
func BrowserUrl(s string) (UrlPath, bool) {
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return UrlPath{}, false
	}
	if containsDotDotSegment(decoded) {
		return UrlPath{}, false
	}
	return AssetUrl(decoded), true
}

func containsDotDotSegment(s string) bool {
	for _, seg := range strings.Split(s, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

func normalizeSeparators(s string) string {
	return strings.ReplaceAll(s, "\\", "/")
}

// String returns the canonical URL string.
func (u UrlPath) String() string { return u.value }

// IsAsset reports whether this is the Asset variant.
func (u UrlPath) IsAsset() bool { return u.isAsset }

// IsPage reports whether this is the Page variant.
func (u UrlPath) IsPage() bool { return !u.isAsset }

// Equal is byte-exact equality on the canonical string (and variant).
func (u UrlPath) Equal(o UrlPath) bool {
	return u.value == o.value && u.isAsset == o.isAsset
}

// LinkKind classifies a raw link string found in source markup.
type LinkKind int

const (
	LinkExternal LinkKind = iota
	LinkFragment
	LinkSiteRoot
	LinkFileRelative
)

// ClassifyLink implements the classification rules of 4.A: a link with a
// scheme and non-empty authority/value is External; one starting with "#"
// or "./#" is Fragment; one starting with a single "/" is SiteRoot;
// everything else is FileRelative.
func ClassifyLink(s string) LinkKind {
	if strings.HasPrefix(s, "#") || strings.HasPrefix(s, "./#") {
		return LinkFragment
	}
	if strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") {
		return LinkSiteRoot
	}
	if isExternalLink(s) {
		return LinkExternal
	}
	return LinkFileRelative
}

func isExternalLink(s string) bool {
	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return false
	}
	scheme := s[:i]
	for _, r := range scheme {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '-' || r == '.') {
			return false
		}
	}
	rest := s[i+1:]
	return rest != ""
}

// SplitPathFragment splits a link at its first "#", returning the path
// portion and the fragment (without the "#"), which is "" when absent.
func SplitPathFragment(s string) (p string, fragment string) {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

// SlugConfig turns on slugification of site-root link paths in
// AddressSpace.Resolve: once a non-nil SlugConfig is set, the path goes
// through SlugifyPath before lookup. SlugifyPath and SlugifyFragment
// take no SlugConfig; they always lowercase and hyphenate, and keep
// non-ASCII letters as they are (no ASCII folding).
type SlugConfig struct {
	// Lowercase is not read by SlugifyPath or SlugifyFragment, which
	// lowercase unconditionally.
	Lowercase bool
}

// SlugifyPath slugifies every "/"-separated segment of a path
// independently, preserving the separators. It is idempotent:
// SlugifyPath(SlugifyPath(s)) == SlugifyPath(s).
func SlugifyPath(s string) string {
	parts := strings.Split(s, "/")
	for i, p := range parts {
		parts[i] = slugifySegment(p)
	}
	return strings.Join(parts, "/")
}

// SlugifyFragment slugifies a single heading-id-shaped fragment.
func SlugifyFragment(s string) string {
	return slugifySegment(s)
}

func slugifySegment(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	lastWasHyphen := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastWasHyphen = false
		case r == '-' || r == '_' || unicode.IsSpace(r):
			if !lastWasHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastWasHyphen = true
			}
		default:
			// drop punctuation entirely
		}
	}
	out := strings.TrimRight(b.String(), "-")
	return out
}

// CleanJoin joins a base directory and a relative path the way
// filesystem-style resolution expects, cleaning "." and ".." segments.
func CleanJoin(base, rel string) string {
	return path.Clean(path.Join(base, rel))
}
