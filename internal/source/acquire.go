package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pders01/repolens/internal/models"
)

// Limits bounds a single acquisition.
type Limits struct {
	MaxRepoSizeBytes int64
	CloneTimeout     time.Duration
}

// WorkingTree is the local, ephemeral copy of a fetched repository.
// It is owned by one analysis run and read-only after acquisition.
type WorkingTree struct {
	Path string
	Repo *Repository
}

// Remove deletes the working tree. Safe to call more than once.
func (w *WorkingTree) Remove() {
	if w == nil || w.Path == "" {
		return
	}
	forceRemove(w.Path)
}

// Acquire performs a shallow clone of repo into a uniquely named directory
// under stagingRoot. Any partially written tree is removed on every failure
// path; on success the caller owns cleanup via WorkingTree.Remove.
func Acquire(ctx context.Context, repo *Repository, stagingRoot string, limits Limits) (*WorkingTree, error) {
	if repo == nil {
		return nil, fmt.Errorf("%w: nil repository", ErrInvalidSource)
	}

	if err := os.MkdirAll(stagingRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging root: %w", err)
	}

	dirName := fmt.Sprintf("%s_%s_%s", repo.Owner, repo.Name, uuid.NewString()[:8])
	dest := filepath.Join(stagingRoot, dirName)

	timeout := limits.CloneTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	cloneCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"clone", "--depth", "1", "--single-branch"}
	if repo.Ref != "" {
		args = append(args, "--branch", repo.Ref)
	}
	args = append(args, repo.cloneURL(), dest)

	slog.Info("cloning repository", "repo", repo.FullName(), "dest", dest)

	cmd := exec.CommandContext(cloneCtx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	output, err := cmd.CombinedOutput()
	if err != nil {
		forceRemove(dest)
		if cloneCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classifyCloneError(string(output), err)
	}

	if limits.MaxRepoSizeBytes > 0 {
		size, err := treeSize(dest)
		if err != nil {
			forceRemove(dest)
			return nil, fmt.Errorf("failed to measure repository size: %w", err)
		}
		if size > limits.MaxRepoSizeBytes {
			forceRemove(dest)
			return nil, fmt.Errorf("%w: %d bytes > %d", ErrSizeExceeded, size, limits.MaxRepoSizeBytes)
		}
	}

	return &WorkingTree{Path: dest, Repo: repo}, nil
}

// Info reads basic head metadata from the working tree.
func (w *WorkingTree) Info() models.RepoInfo {
	info := models.RepoInfo{URL: w.Repo.URL}

	if out, err := gitOutput(w.Path, "rev-parse", "--short", "HEAD"); err == nil {
		info.Commit = out
	}
	if out, err := gitOutput(w.Path, "log", "-1", "--pretty=%s"); err == nil {
		info.Subject = out
	}

	size, files := int64(0), 0
	filepath.WalkDir(w.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if fi, err := d.Info(); err == nil {
			size += fi.Size()
			files++
		}
		return nil
	})
	info.SizeBytes = size
	info.FilesOnDisk = files
	return info
}

// CleanupStaging removes every working tree under the staging root.
func CleanupStaging(stagingRoot string) error {
	if stagingRoot == "" {
		return nil
	}
	if err := os.RemoveAll(stagingRoot); err != nil {
		return fmt.Errorf("failed to clean staging root: %w", err)
	}
	return os.MkdirAll(stagingRoot, 0o755)
}

func gitOutput(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func classifyCloneError(output string, err error) error {
	switch {
	case strings.Contains(output, "not found"),
		strings.Contains(output, "does not exist"),
		strings.Contains(output, "Could not resolve host"):
		return fmt.Errorf("%w: %s", ErrNotFound, errorLine(output))
	case strings.Contains(output, "Authentication failed"),
		strings.Contains(output, "could not read Username"):
		return fmt.Errorf("%w: repository may be private", ErrNotFound)
	default:
		return fmt.Errorf("git clone failed: %w: %s", err, errorLine(output))
	}
}

// errorLine picks the diagnostic line out of clone output. git prints
// "Cloning into '<dest>'..." first and the actual failure on a later
// fatal: or error: line.
func errorLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "fatal:") || strings.HasPrefix(line, "error:") {
			return line
		}
	}
	return firstLine(s)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func treeSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += fi.Size()
		}
		return nil
	})
	return total, err
}

// forceRemove clears read-only bits before retrying removal; shallow clones
// leave read-only pack files behind on some platforms.
func forceRemove(path string) {
	if err := os.RemoveAll(path); err == nil {
		return
	}
	filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err == nil {
			os.Chmod(p, 0o700)
		}
		return nil
	})
	if err := os.RemoveAll(path); err != nil {
		slog.Warn("failed to remove working tree", "path", path, "error", err)
	}
}
