package tola

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// SiteConfig is the decoded form of a site's tola.toml, the single
// source of truth for paths, the serve port, hot reload, and feed
// generation toggles (spec §3, "SiteConfig addition"). Grounded on the
// teacher's Site struct fields, lifted out into their own decodable
// type since the teacher configures Site by direct field assignment in
// Go code rather than from a file.
type SiteConfig struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	Language    string `toml:"language"`
	BaseUrl     string `toml:"base_url"`
	ContentRoot string `toml:"content_root"`
	OutputDir   string `toml:"output_dir"`
	StaticDir   string `toml:"static_dir"`
	LayoutsDir  string `toml:"layouts_dir"`
	AssetsUrlPrefix string `toml:"assets_url_prefix"`

	Serve ServeConfig `toml:"serve"`
	Feeds FeedsConfig `toml:"feeds"`
	Build BuildConfig `toml:"build"`
	Header HeaderConfig `toml:"header"`
	Theme  ThemeConfig  `toml:"theme"`
	Nav    NavConfig    `toml:"nav"`
}

// HeaderConfig lists the extra <head> content a site wants injected
// into every page: an icon, extra stylesheets/scripts, and raw HTML
// elements (spec §4.F HeadInjector).
type HeaderConfig struct {
	Icon     string         `toml:"icon"`
	Styles   []string       `toml:"styles"`
	Scripts  []ScriptConfig `toml:"scripts"`
	Elements []string       `toml:"elements"`
}

// ScriptConfig describes one user-configured <script> tag.
type ScriptConfig struct {
	Path  string `toml:"path"`
	Defer bool   `toml:"defer"`
	Async bool   `toml:"async"`
}

// ThemeConfig holds presentation toggles that affect every page's head
// and body, currently just the recolor filter.
type ThemeConfig struct {
	Recolor RecolorConfig `toml:"recolor"`
}

// RecolorConfig controls the theme-adaptive SVG recolor filter (spec
// §4.F HeadInjector/BodyInjector). Source "static" bakes a fixed
// palette into the page; any other source ships the dynamic recolor
// JS as well.
type RecolorConfig struct {
	Enable bool     `toml:"enable"`
	Source string   `toml:"source"`
	List   []string `toml:"list"`
}

// NavConfig controls site-wide navigation behavior.
type NavConfig struct {
	SPA bool `toml:"spa"`
}

// ServeConfig controls the dev server (spec §4.J).
type ServeConfig struct {
	Port         int  `toml:"port"`
	HotReload    bool `toml:"hot_reload"`
	OpenBrowser  bool `toml:"open_browser"`
}

// FeedsConfig toggles the RSS and sitemap sinks (spec §4.M).
type FeedsConfig struct {
	RSS     bool   `toml:"rss"`
	Sitemap bool   `toml:"sitemap"`
	FeedLimit int  `toml:"feed_limit"`
}

// BuildConfig controls build-time behavior not specific to serving.
type BuildConfig struct {
	Clean     bool `toml:"clean"`
	Minify    bool `toml:"minify"`
	GitCommit bool `toml:"git_commit"`
	Workers   int  `toml:"workers"`

	// SVGExternalThreshold is the byte size above which an inline <svg>
	// is extracted to an external file and replaced with <img> during a
	// build (never during serve mode). 0 disables extraction.
	SVGExternalThreshold int `toml:"svg_external_threshold_bytes"`
}

// DefaultSiteConfig returns the configuration a freshly `tola init`-ed
// site starts with.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		Title:           "My Tola Site",
		Language:        "en",
		ContentRoot:     "content",
		OutputDir:       "public",
		StaticDir:       "static",
		LayoutsDir:      "layouts",
		AssetsUrlPrefix: "/assets",
		Serve: ServeConfig{
			Port:      8080,
			HotReload: true,
		},
		Feeds: FeedsConfig{
			RSS:       true,
			Sitemap:   true,
			FeedLimit: 20,
		},
		Build: BuildConfig{
			Minify:  true,
			Workers: 4,
		},
	}
}

// LoadSiteConfig reads and decodes tola.toml at path, applying
// DefaultSiteConfig for any zero-valued field BurntSushi/toml leaves
// untouched.
func LoadSiteConfig(path string) (SiteConfig, error) {
	cfg := DefaultSiteConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("tola: decode %s: %w", path, err)
	}
	return cfg, nil
}

// WriteSiteConfig renders cfg as TOML to path, used by `tola init`.
func WriteSiteConfig(path string, cfg SiteConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
