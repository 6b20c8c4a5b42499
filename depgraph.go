package tola

import "sync"

// DependencyGraph holds the forward (content file -> shared files it
// depends on) and reverse (shared file -> content files depending on it)
// maps described in spec §4.C. Every mutation updates both maps inside a
// single critical section so observers never see a forward edge without
// its matching reverse edge.
type DependencyGraph struct {
	mu      sync.RWMutex
	forward map[string]map[string]struct{}
	reverse map[string]map[string]struct{}
}

// NewDependencyGraph returns an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		forward: make(map[string]map[string]struct{}),
		reverse: make(map[string]map[string]struct{}),
	}
}

// Record replaces the forward edge set for content, rebuilding the
// reverse edges coherently: stale reverse edges from a prior call are
// dropped, new ones added, all under one write lock.
func (g *DependencyGraph) Record(content string, sharedFiles []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if old, ok := g.forward[content]; ok {
		for shared := range old {
			if rs, ok := g.reverse[shared]; ok {
				delete(rs, content)
				if len(rs) == 0 {
					delete(g.reverse, shared)
				}
			}
		}
	}

	if len(sharedFiles) == 0 {
		delete(g.forward, content)
		return
	}

	set := make(map[string]struct{}, len(sharedFiles))
	for _, shared := range sharedFiles {
		set[shared] = struct{}{}
		if g.reverse[shared] == nil {
			g.reverse[shared] = make(map[string]struct{})
		}
		g.reverse[shared][content] = struct{}{}
	}
	g.forward[content] = set
}

// DependentsOf returns the set of content files depending on shared, the
// read-only fast path consulted on every shared-file watch event.
func (g *DependencyGraph) DependentsOf(shared string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rs, ok := g.reverse[shared]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(rs))
	for c := range rs {
		out = append(out, c)
	}
	return out
}

// RemoveContent drops every edge involving content, from both maps.
func (g *DependencyGraph) RemoveContent(content string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	old, ok := g.forward[content]
	if !ok {
		return
	}
	for shared := range old {
		if rs, ok := g.reverse[shared]; ok {
			delete(rs, content)
			if len(rs) == 0 {
				delete(g.reverse, shared)
			}
		}
	}
	delete(g.forward, content)
}

// Clear empties the graph, called at the start of a --clean build.
func (g *DependencyGraph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.forward = make(map[string]map[string]struct{})
	g.reverse = make(map[string]map[string]struct{})
}

// DependsOn returns the shared files content currently depends on.
func (g *DependencyGraph) DependsOn(content string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set, ok := g.forward[content]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}
