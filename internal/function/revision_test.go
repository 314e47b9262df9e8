package function

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return strings.TrimSpace(string(out))
}

func TestGitRevision(t *testing.T) {
	requireGit(t)

	dir := t.TempDir()
	git(t, dir, "init", "-q")
	git(t, dir, "commit", "-q", "--allow-empty", "-m", "initial")
	want := git(t, dir, "rev-parse", "--short", "HEAD")

	rev, err := GitRevision{Dir: dir}.Revision()
	require.NoError(t, err)
	assert.Equal(t, want, rev)
}

func TestGitRevision_MissingDir(t *testing.T) {
	_, err := GitRevision{Dir: filepath.Join(t.TempDir(), "missing")}.Revision()
	assert.Error(t, err)
}

func TestBuild_GitRevisionInEntry(t *testing.T) {
	requireGit(t)

	dir := t.TempDir()
	git(t, dir, "init", "-q")
	git(t, dir, "commit", "-q", "--allow-empty", "-m", "initial")
	want := git(t, dir, "rev-parse", "--short", "HEAD")

	cfg, err := Build(Options{Entry: dir, Timeout: 30 * time.Second, StampRevision: true})
	require.NoError(t, err)
	assert.Equal(t, want, cfg.Revision)
	assert.Equal(t, []string{RevisionFlag(want)}, cfg.BuildFlags)
}

func TestBuild_GitRevisionOutsideRepo(t *testing.T) {
	_, err := Build(Options{
		Entry:         filepath.Join(t.TempDir(), "missing"),
		Timeout:       30 * time.Second,
		StampRevision: true,
	})
	assert.ErrorIs(t, err, ErrRevision)
}
