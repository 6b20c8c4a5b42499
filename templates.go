package tola

import (
	"fmt"
	"html/template"
	"path/filepath"
	"time"

	gut "github.com/panyam/goutils/utils"
)

// DefaultFuncMap returns the site-specific template helpers layered on
// top of the generic ones from goutils' template.DefaultFuncMap() and templar's own
// built-ins. These are the functions a layout template can call to walk
// the content tree: listing pages, filtering by tag, and reading a
// sidecar JSON file.
func (s *Site) DefaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"AllRes":      s.allResources,
		"PagesByTag":  s.pagesByTag,
		"PagesByDate": s.pagesByDate,
		"json":        s.Json,
	}
}

func (s *Site) allResources(offset, count int) []*Resource {
	return s.ListResources(func(r *Resource) bool {
		return !r.IsDir() && !r.IsParametric
	}, s.byDateDesc, offset, count)
}

func (s *Site) pagesByTag(tag string, offset, count int) []*Resource {
	return s.ListResources(func(r *Resource) bool {
		if r.IsDir() || r.IsParametric {
			return false
		}
		fm := r.FrontMatter()
		if fm == nil || fm.Data == nil {
			return false
		}
		return resourceHasTag(fm.Data, tag)
	}, s.byDateDesc, offset, count)
}

func (s *Site) pagesByDate(offset, count int) []*Resource {
	return s.allResources(offset, count)
}

func (s *Site) byDateDesc(a, b *Resource) bool {
	return resourceDate(a).After(resourceDate(b))
}

// resourceDate mirrors DefaultResourceBase.LoadFrom's front-matter date
// parsing so templates sort pages the same way the build engine does.
func resourceDate(r *Resource) time.Time {
	fm := r.FrontMatter()
	if fm == nil || fm.Data == nil {
		return time.Time{}
	}
	v, ok := fm.Data["date"]
	if !ok {
		return time.Time{}
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}
	}
	if t, err := time.Parse("2006-1-2T03:04:05PM", s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}

func resourceHasTag(data map[string]any, tag string) bool {
	raw, ok := data["tags"]
	if !ok {
		return false
	}
	switch tags := raw.(type) {
	case []any:
		for _, t := range tags {
			if s, ok := t.(string); ok && s == tag {
				return true
			}
		}
	case []string:
		for _, s := range tags {
			if s == tag {
				return true
			}
		}
	}
	return false
}

// Json loads a sidecar JSON file under the content root and optionally
// drills into it with a dotted field path, for use from a template.
func (s *Site) Json(path string, fieldpath string) (any, error) {
	if path == "" || path[0] == '/' {
		return nil, fmt.Errorf("invalid json path %q: must be relative to the content root", path)
	}
	fullpath := gut.ExpandUserPath(filepath.Join(s.ContentRoot, path))
	res := s.GetResource(fullpath)
	if res.Ext() != ".json" {
		return nil, fmt.Errorf("invalid json file %q: ext %q", fullpath, res.Ext())
	}
	data, err := res.ReadAll()
	if err != nil {
		return nil, err
	}
	decoded, err := gut.JsonDecodeBytes(data)
	if err != nil {
		return nil, err
	}
	if fieldpath == "" {
		return decoded, nil
	}
	return lookupJSONPath(decoded, fieldpath)
}

func lookupJSONPath(v any, fieldpath string) (any, error) {
	cur := v
	for _, part := range splitFieldPath(fieldpath) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot descend into %q: not an object", part)
		}
		cur, ok = m[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found", part)
		}
	}
	return cur, nil
}

func splitFieldPath(fieldpath string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(fieldpath); i++ {
		if fieldpath[i] == '.' {
			parts = append(parts, fieldpath[start:i])
			start = i + 1
		}
	}
	parts = append(parts, fieldpath[start:])
	return parts
}
