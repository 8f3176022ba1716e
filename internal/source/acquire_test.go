package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pders01/repolens/internal/testutil"
)

func TestWorkingTreeInfo(t *testing.T) {
	tree := testutil.NewTempTree(t)
	tree.CreateFile("README.md", "# Test Repository\n")
	tree.CreateFile("main.go", "package main\n")
	tree.InitGit()

	w := &WorkingTree{
		Path: tree.Path,
		Repo: &Repository{URL: "https://github.com/owner/repo.git"},
	}

	info := w.Info()
	if info.URL != "https://github.com/owner/repo.git" {
		t.Errorf("URL = %q", info.URL)
	}
	if info.Commit == "" {
		t.Error("expected non-empty commit")
	}
	if info.Subject != "Initial commit" {
		t.Errorf("Subject = %q, want Initial commit", info.Subject)
	}
	if info.FilesOnDisk != 2 {
		t.Errorf("FilesOnDisk = %d, want 2", info.FilesOnDisk)
	}
	if info.SizeBytes == 0 {
		t.Error("expected non-zero size")
	}
}

func TestWorkingTreeRemove(t *testing.T) {
	tree := testutil.NewTempTree(t)
	tree.CreateFile("file.txt", "content")

	w := &WorkingTree{Path: tree.Path, Repo: &Repository{}}
	w.Remove()

	if _, err := os.Stat(tree.Path); !os.IsNotExist(err) {
		t.Errorf("expected tree removed, stat err = %v", err)
	}

	// Second removal is a no-op.
	w.Remove()
}

func TestClassifyCloneError(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   error
	}{
		{"missing repo", "fatal: repository 'x' not found", ErrNotFound},
		{"bad host", "fatal: Could not resolve host: github.invalid", ErrNotFound},
		{"private repo", "fatal: Authentication failed for 'x'", ErrNotFound},
		{"prompt disabled", "fatal: could not read Username for 'https://github.com'", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyCloneError(tt.output, errors.New("exit status 128"))
			if !errors.Is(err, tt.want) {
				t.Errorf("classifyCloneError(%q) = %v, want %v", tt.output, err, tt.want)
			}
		})
	}

	err := classifyCloneError("something else", errors.New("exit status 1"))
	if errors.Is(err, ErrNotFound) {
		t.Errorf("unclassified output should not map to ErrNotFound: %v", err)
	}
	if !strings.Contains(err.Error(), "git clone failed") {
		t.Errorf("unexpected error text: %v", err)
	}
}

func TestClassifyCloneErrorReportsFatalLine(t *testing.T) {
	output := "Cloning into '/tmp/staging/owner_repo_abc123'...\n" +
		"fatal: repository 'https://github.com/owner/gone.git/' not found\n"

	err := classifyCloneError(output, errors.New("exit status 128"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "fatal: repository") {
		t.Errorf("error should carry the fatal line, got %v", err)
	}
	if strings.Contains(err.Error(), "Cloning into") {
		t.Errorf("error should not carry the progress line, got %v", err)
	}

	output = "Cloning into '/tmp/staging/owner_repo_abc123'...\n" +
		"error: RPC failed; HTTP 500 curl 22 The requested URL returned error: 500\n"
	err = classifyCloneError(output, errors.New("exit status 128"))
	if !strings.Contains(err.Error(), "error: RPC failed") {
		t.Errorf("error should carry the diagnostic line, got %v", err)
	}
}

func TestTreeSize(t *testing.T) {
	tree := testutil.NewTempTree(t)
	tree.CreateFile("a.txt", "12345")
	tree.CreateFile("sub/b.txt", "1234567890")

	size, err := treeSize(tree.Path)
	if err != nil {
		t.Fatalf("treeSize: %v", err)
	}
	if size != 15 {
		t.Errorf("treeSize = %d, want 15", size)
	}
}

func TestCleanupStaging(t *testing.T) {
	root := t.TempDir()
	staging := filepath.Join(root, "staging")
	if err := os.MkdirAll(filepath.Join(staging, "owner_repo_abc123"), 0755); err != nil {
		t.Fatal(err)
	}

	if err := CleanupStaging(staging); err != nil {
		t.Fatalf("CleanupStaging: %v", err)
	}

	entries, err := os.ReadDir(staging)
	if err != nil {
		t.Fatalf("staging root should be recreated: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty staging root, got %d entries", len(entries))
	}
}
