// Package diff renders unified diffs for classified resources.
package diff

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/aymanbagabas/go-udiff"

	"github.com/chmouel/lazyhg/internal/models"
	"github.com/chmouel/lazyhg/internal/scm"
)

// WorkingRev is the revision working-copy resources are compared against.
const WorkingRev = "."

// Catter returns the content of a file at a revision.
type Catter interface {
	Cat(ctx context.Context, root, rev, path string) (string, error)
}

// Options tunes diff generation.
type Options struct {
	// MaxChars truncates the output when positive.
	MaxChars int
	// ReadFile reads working-copy content. Defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
}

// ForResource returns the unified diff of r, or "" when both sides are equal.
func ForResource(ctx context.Context, catter Catter, root string, r scm.Resource, opts Options) (string, error) {
	if opts.ReadFile == nil {
		opts.ReadFile = os.ReadFile
	}

	rel := r.RelPath(root)
	baseRel := rel
	if r.Renamed() {
		baseRel = r.RenameRelPath(root)
	}

	isParent := r.DiffBaseRev != ""
	baseRev := WorkingRev
	if isParent {
		baseRev = r.DiffBaseRev
	}

	oldText, err := baseContent(ctx, catter, root, baseRev, baseRel, r)
	if err != nil {
		return "", err
	}

	var newText string
	if isParent {
		newText, err = parentContent(ctx, catter, root, rel, r)
	} else {
		newText, err = workingContent(opts.ReadFile, r)
	}
	if err != nil {
		return "", err
	}

	oldLabel := "a/" + baseRel
	newLabel := "b/" + rel + r.DiffLabelSuffix
	if oldText == newText {
		return "", nil
	}
	if isBinary(oldText) || isBinary(newText) {
		return fmt.Sprintf("Binary files %s and %s differ\n", oldLabel, newLabel), nil
	}

	return Truncate(udiff.Unified(oldLabel, newLabel, oldText, newText), opts.MaxChars), nil
}

func baseContent(ctx context.Context, catter Catter, root, rev, path string, r scm.Resource) (string, error) {
	switch r.Status {
	case models.StatusUntracked, models.StatusIgnored:
		return "", nil
	case models.StatusAdded:
		// hg reports merged-in files as added too; they have no base either way
		return "", nil
	}
	return catter.Cat(ctx, root, rev, path)
}

func parentContent(ctx context.Context, catter Catter, root, path string, r scm.Resource) (string, error) {
	if r.Status == models.StatusDeleted {
		return "", nil
	}
	return catter.Cat(ctx, root, WorkingRev, path)
}

func workingContent(readFile func(string) ([]byte, error), r scm.Resource) (string, error) {
	switch r.Status {
	case models.StatusDeleted, models.StatusMissing:
		return "", nil
	}
	data, err := readFile(r.URI)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", r.URI, err)
	}
	return string(data), nil
}

func isBinary(text string) bool {
	sample := text
	if len(sample) > 8000 {
		sample = sample[:8000]
	}
	return bytes.IndexByte([]byte(sample), 0) >= 0
}

// Truncate cuts text to at most maxChars bytes on a rune boundary and appends a marker.
// A non-positive maxChars disables truncation.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return fmt.Sprintf("%s\n[... diff truncated at %d characters ...]\n", text[:cut], maxChars)
}
