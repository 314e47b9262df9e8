package function

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// RevisionSource resolves the source revision a build is stamped with.
type RevisionSource interface {
	Revision() (string, error)
}

// RevisionFunc adapts a function to RevisionSource.
type RevisionFunc func() (string, error)

// Revision calls f.
func (f RevisionFunc) Revision() (string, error) {
	return f()
}

// StaticRevision always resolves to the same revision.
type StaticRevision string

// Revision returns r.
func (r StaticRevision) Revision() (string, error) {
	return string(r), nil
}

// GitRevision reads the short commit hash of HEAD in Dir.
type GitRevision struct {
	Dir string
}

// Revision runs git rev-parse --short HEAD. The call blocks until git exits.
func (g GitRevision) Revision() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	cmd.Dir = g.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("git rev-parse: %s", strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("git rev-parse: %w", err)
	}

	rev := strings.TrimSpace(string(out))
	if rev == "" {
		return "", errors.New("git rev-parse: no output")
	}
	return rev, nil
}
