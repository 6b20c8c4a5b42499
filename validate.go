package tola

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationIssue is one broken link/asset reference found during a
// validate pass, attributed to the source file that produced it.
type ValidationIssue struct {
	Source  string
	Message string
}

// ValidationReport groups issues by source file the way spec's
// "validate" command prints them, with a count at each section header.
type ValidationReport struct {
	BySource map[string][]string
}

// Empty reports whether the site validated clean.
func (r ValidationReport) Empty() bool {
	for _, msgs := range r.BySource {
		if len(msgs) > 0 {
			return false
		}
	}
	return true
}

// String renders the report the way `tola validate` prints it:
// one section per offending source file, sorted for stable output.
func (r ValidationReport) String() string {
	if r.Empty() {
		return "no broken links or assets found"
	}
	sources := make([]string, 0, len(r.BySource))
	for s := range r.BySource {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	var b strings.Builder
	for _, s := range sources {
		msgs := r.BySource[s]
		if len(msgs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s (%d issue(s)):\n", s, len(msgs))
		for _, m := range msgs {
			fmt.Fprintf(&b, "  - %s\n", m)
		}
	}
	return b.String()
}

// Validate runs a full build and returns the ValidationReport plus the
// AddressSpace's conflict list, rather than writing output anywhere
// permanent the caller cares about (the build still populates
// o.outputDir(), matching the original's "build then check" approach).
func (o *Orchestrator) Validate() (ValidationReport, []Conflict, error) {
	o.warnings = nil
	if err := o.Build(); err != nil {
		return ValidationReport{}, nil, err
	}

	report := ValidationReport{BySource: map[string][]string{}}
	for _, w := range o.warnings {
		report.BySource["(build)"] = append(report.BySource["(build)"], w)
	}

	conflicts := o.Address.DetectConflicts(nil)
	for _, c := range conflicts {
		report.BySource[c.Url.String()] = append(report.BySource[c.Url.String()],
			fmt.Sprintf("conflicting sources: %s", strings.Join(c.Sources, ", ")))
	}

	return report, conflicts, nil
}
