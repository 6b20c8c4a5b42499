package tola

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func hasGit(t *testing.T) bool {
	t.Helper()
	_, err := exec.LookPath("git")
	return err == nil
}

func TestGitOutputEnsureRepoAndCommit(t *testing.T) {
	if !hasGit(t) {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "index.html"), []byte("hi"), 0644)

	exec.Command("git", "-C", dir, "config", "user.email", "test@example.com").Run()
	exec.Command("git", "-C", dir, "config", "user.name", "Test").Run()

	g := &GitOutput{Dir: dir}
	if err := g.EnsureRepo(); err != nil {
		t.Fatalf("EnsureRepo: %v", err)
	}
	exec.Command("git", "-C", dir, "config", "user.email", "test@example.com").Run()
	exec.Command("git", "-C", dir, "config", "user.name", "Test").Run()
	if err := g.CommitAll("initial build"); err != nil {
		t.Fatalf("CommitAll: %v", err)
	}
	// second commit with no changes should be a no-op, not an error
	if err := g.CommitAll("no changes"); err != nil {
		t.Fatalf("CommitAll (no-op): %v", err)
	}
}
