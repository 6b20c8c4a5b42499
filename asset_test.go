package tola

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanGlobalAssetsSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "style.css"), []byte("a{color:red}"), 0644)
	os.WriteFile(filepath.Join(dir, "style.css~"), []byte("junk"), 0644)

	jobs, err := ScanGlobalAssets(dir)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(jobs) != 1 || filepath.Base(jobs[0].SourcePath) != "style.css" {
		t.Fatalf("expected only style.css, got %+v", jobs)
	}
}

func TestScanColocatedAssetsExcludesContent(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "post.typ"), []byte("= hi"), 0644)
	os.WriteFile(filepath.Join(dir, "cover.png"), []byte("binary"), 0644)

	jobs, err := ScanColocatedAssets(dir, []string{".typ", ".md"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ColocatedRel != "cover.png" {
		t.Fatalf("expected only cover.png, got %+v", jobs)
	}
}

func TestProcessAssetMinifiesCSS(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	src := filepath.Join(dir, "style.css")
	os.WriteFile(src, []byte("body {\n  color: red;\n}\n"), 0644)

	job := AssetJob{SourcePath: src, Scope: AssetScopeGlobal}
	res, err := ProcessAsset(job, out, "/static", NewAssetMinifier())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !res.Minified {
		t.Fatal("expected CSS to be minified")
	}
	data, err := os.ReadFile(res.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(data) >= len("body {\n  color: red;\n}\n") {
		t.Fatalf("expected minified output to be smaller, got %q", data)
	}
}

func TestProcessAssetFlattenUsesHashedDir(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	src := filepath.Join(dir, "shared.png")
	os.WriteFile(src, []byte("binarydata"), 0644)

	job := AssetJob{SourcePath: src, Scope: AssetScopeFlatten}
	res, err := ProcessAsset(job, out, "/_assets", nil)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Url.String() == "/_assets/shared.png" {
		t.Fatalf("expected flattened asset to live under a hash subdir, got %s", res.Url.String())
	}
}

func TestWriteCNAMESkippedWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := WriteCNAME(dir, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "CNAME")); !os.IsNotExist(err) {
		t.Fatal("expected no CNAME file written for empty domain")
	}
}
