package tola

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
)

// AssetScope discriminates the three asset placement rules of spec
// §4.E: global assets living under a shared static root, colocated
// assets living next to their content file, and flattened assets that
// get hashed into a shared output directory to dedupe identical files
// referenced from many pages (adapted from the teacher's
// DefaultAssetHandler.HandleAssets parametric-page branch in the old
// assets.go).
type AssetScope int

const (
	AssetScopeGlobal AssetScope = iota
	AssetScopeColocated
	AssetScopeFlatten
)

// AssetJob describes one discovered asset file awaiting processing.
type AssetJob struct {
	SourcePath string
	Scope      AssetScope
	ColocatedRel string // path relative to the content file's directory, for colocated assets
}

// AssetResult is what processing one AssetJob produced.
type AssetResult struct {
	SourcePath string
	OutputPath string
	Url        UrlPath
	Minified   bool
}

var minifiableExt = map[string]string{
	".css": "text/css",
	".js":  "application/javascript",
}

// ScanGlobalAssets walks a static assets root and returns one AssetJob
// per file found, skipping temp files. Pure: performs no I/O besides
// the walk itself, grounded on the teacher's site.go discoverAssets
// directory walk idiom.
func ScanGlobalAssets(root string) ([]AssetJob, error) {
	var jobs []AssetJob
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if IsTempFile(p) {
			return nil
		}
		jobs = append(jobs, AssetJob{SourcePath: p, Scope: AssetScopeGlobal})
		return nil
	})
	return jobs, err
}

// ScanColocatedAssets lists the non-content files living in the same
// directory as a content file (images, data files referenced by
// relative URL from that page).
func ScanColocatedAssets(contentDir string, contentExts []string) ([]AssetJob, error) {
	entries, err := os.ReadDir(contentDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var jobs []AssetJob
	for _, e := range entries {
		if e.IsDir() || IsTempFile(e.Name()) {
			continue
		}
		ext := filepath.Ext(e.Name())
		isContent := false
		for _, ce := range contentExts {
			if ext == ce {
				isContent = true
				break
			}
		}
		if isContent {
			continue
		}
		jobs = append(jobs, AssetJob{
			SourcePath:   filepath.Join(contentDir, e.Name()),
			Scope:        AssetScopeColocated,
			ColocatedRel: e.Name(),
		})
	}
	return jobs, nil
}

// ProcessAsset copies (and, for CSS/JS, minifies) one asset job into
// outputDir, returning the result used to register it in the
// AddressSpace. Side-effecting: the one place in the asset subsystem
// that touches disk for writing.
func ProcessAsset(job AssetJob, outputDir string, urlPrefix string, m *minify.M) (AssetResult, error) {
	var outName string
	colocated := job.Scope == AssetScopeColocated
	ext := filepath.Ext(job.SourcePath)
	stem := strings.TrimSuffix(filepath.Base(job.SourcePath), ext)

	switch job.Scope {
	case AssetScopeFlatten:
		hash := computeFileHash(job.SourcePath)
		outName = filepath.Join(hash.Short(), filepath.Base(job.SourcePath))
	case AssetScopeColocated:
		outName = job.ColocatedRel
	default:
		rel, err := filepath.Rel(outputDir, job.SourcePath)
		if err != nil {
			rel = filepath.Base(job.SourcePath)
		}
		outName = rel
	}

	outPath := filepath.Join(outputDir, outName)

	// Freshness guard: skip re-reading/re-minifying/re-writing when the
	// destination already exists and the source hasn't changed since.
	if destInfo, err := os.Stat(outPath); err == nil {
		if srcInfo, err := os.Stat(job.SourcePath); err == nil && !srcInfo.ModTime().After(destInfo.ModTime()) {
			url := assetResultUrl(urlPrefix, outName, colocated)
			return AssetResult{SourcePath: job.SourcePath, OutputPath: outPath, Url: url}, nil
		}
	}

	data, err := os.ReadFile(job.SourcePath)
	if err != nil {
		return AssetResult{}, fmt.Errorf("tola: read asset %s: %w", job.SourcePath, err)
	}

	minified := false
	// A filename stem already ending in ".min" (e.g. "site.min.css") is
	// assumed pre-minified by its author; don't run it through the
	// minifier a second time.
	if mime, ok := minifiableExt[ext]; ok && m != nil && !strings.HasSuffix(stem, ".min") {
		out, err := m.Bytes(mime, data)
		if err == nil {
			data = out
			minified = true
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return AssetResult{}, fmt.Errorf("tola: mkdir for asset %s: %w", outPath, err)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return AssetResult{}, fmt.Errorf("tola: write asset %s: %w", outPath, err)
	}

	url := assetResultUrl(urlPrefix, outName, colocated)
	return AssetResult{SourcePath: job.SourcePath, OutputPath: outPath, Url: url, Minified: minified}, nil
}

// assetResultUrl builds an asset's final URL. A colocated asset serves
// at its own output-relative path, next to the page it belongs to
// (spec §4.E scenario S3); global/flattened assets live under the
// configured assets URL prefix.
func assetResultUrl(urlPrefix, outName string, colocated bool) UrlPath {
	if colocated {
		return AssetUrl("/" + filepath.ToSlash(outName))
	}
	return AssetUrl(CleanJoin(urlPrefix, filepath.ToSlash(outName)))
}

// NewAssetMinifier builds the tdewolff/minify dispatcher used for CSS
// and JS assets (spec §4.E's minification step). HTML pages are not
// passed through it; they are written unminified.
func NewAssetMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)
	return m
}

// WriteCNAME writes a GitHub Pages CNAME file into outputDir, but only
// when domain is a real http(s) custom domain worth publishing: a
// non-empty base URL, not localhost, not a bare IP address, and only if
// the output directory doesn't already carry a user-provided CNAME
// (spec §4.E's "don't clobber a hand-authored CNAME on --clean").
func WriteCNAME(outputDir, domain string) error {
	if domain == "" {
		return nil
	}
	cnamePath := filepath.Join(outputDir, "CNAME")
	if _, err := os.Stat(cnamePath); err == nil {
		return nil
	}

	u, err := url.Parse(domain)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil
	}
	host := u.Hostname()
	if host == "" || host == "localhost" || strings.HasPrefix(host, "127.") || host == "::1" || net.ParseIP(host) != nil {
		return nil
	}

	return os.WriteFile(cnamePath, []byte(host+"\n"), 0644)
}

// CopyFile is a small io.Copy-based helper used when an asset must be
// copied byte-for-byte with no minification (binary assets: images,
// fonts, data files).
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
