package tola

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// toolVersion is stamped into the marker comment of every generated
// Typst helper file so `tola fix` can tell a stale copy from a current
// one. Bump alongside releases.
const toolVersion = "0.1.0"

const versionMarkerPrefix = "(v"

// defaultTolaTemplate and defaultTolaUtil are the starter Typst helper
// files `tola init`/`tola fix` write into a fresh site, mirroring
// original_source's embedded templates/tola.typ and utils/tola.typ.
var defaultTolaTemplate = "// Tola SSG template (v" + toolVersion + ")\n" +
	"// Base page layout shared by every .typ content file.\n" +
	"#let page(title: none, body) = {\n" +
	"  set page(margin: 2cm)\n" +
	"  set text(font: \"New Computer Modern\", size: 11pt)\n" +
	"  if title != none { heading(level: 1)[#title] }\n" +
	"  body\n" +
	"}\n"

var defaultTolaUtil = "// Tola SSG utils (v" + toolVersion + ")\n" +
	"// Shared helpers importable from content files via utils/tola.typ.\n" +
	"#let link-button(url, label) = link(url)[#label]\n"

// FixResult reports what `tola fix` did for a single tracked file.
type FixResult struct {
	Path      string
	Status    string // "ok", "created", "skipped", "outdated"
	OldVersion string
}

// RunFix checks templates/tola.typ and utils/tola.typ (when those
// directories exist under root) against toolVersion, prompting via
// confirm to create missing files. It never overwrites an outdated
// file automatically: spec's original only prints the newer-version
// notice and a doc link, leaving the rewrite to the user.
func RunFix(root string, confirm func(name string) bool) ([]FixResult, error) {
	var results []FixResult

	checks := []struct {
		dir, file, content string
	}{
		{filepath.Join(root, "templates"), "templates/tola.typ", defaultTolaTemplate},
		{filepath.Join(root, "utils"), "utils/tola.typ", defaultTolaUtil},
	}

	for _, c := range checks {
		if info, err := os.Stat(c.dir); err != nil || !info.IsDir() {
			continue
		}
		path := filepath.Join(root, c.file)
		res, err := checkAndFix(path, c.file, c.content, confirm)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}

	return results, nil
}

func checkAndFix(path, name, generate string, confirm func(name string) bool) (FixResult, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if confirm == nil || !confirm(name) {
			return FixResult{Path: name, Status: "skipped"}, nil
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return FixResult{}, err
		}
		if err := os.WriteFile(path, []byte(generate), 0644); err != nil {
			return FixResult{}, err
		}
		return FixResult{Path: name, Status: "created"}, nil
	}

	version, found := extractVersion(path)
	if !found {
		return FixResult{Path: name, Status: "outdated"}, nil
	}
	if version == toolVersion {
		return FixResult{Path: name, Status: "ok"}, nil
	}
	return FixResult{Path: name, Status: "outdated", OldVersion: version}, nil
}

// extractVersion reads a file's first line looking for the
// "(vX.Y.Z)" marker written by defaultTolaTemplate/defaultTolaUtil.
func extractVersion(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return "", false
	}
	firstLine := strings.TrimSpace(scanner.Text())

	start := strings.Index(firstLine, versionMarkerPrefix)
	if start < 0 {
		return "", false
	}
	after := firstLine[start+len(versionMarkerPrefix):]
	end := strings.Index(after, ")")
	if end < 0 {
		return "", false
	}
	return after[:end], true
}

// FormatFixResult renders a FixResult the way `tola fix` prints it.
func FormatFixResult(r FixResult) string {
	switch r.Status {
	case "ok":
		return fmt.Sprintf("%s: up to date", r.Path)
	case "created":
		return fmt.Sprintf("%s: created", r.Path)
	case "skipped":
		return fmt.Sprintf("%s: not found, skipped", r.Path)
	case "outdated":
		if r.OldVersion != "" {
			return fmt.Sprintf("%s: v%s -> v%s available", r.Path, r.OldVersion, toolVersion)
		}
		return fmt.Sprintf("%s: no version marker, v%s available", r.Path, toolVersion)
	default:
		return r.Path
	}
}
