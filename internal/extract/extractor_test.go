package extract

import (
	"reflect"
	"strings"
	"testing"

	"github.com/pders01/repolens/internal/models"
	"github.com/pders01/repolens/internal/source"
	"github.com/pders01/repolens/internal/testutil"
)

const pythonSample = `import os

MAX_RETRIES = 3

def load(path):
    """Read a file."""
    with open(path) as f:
        return f.read()

def save(path, data):
    with open(path, "w") as f:
        f.write(data)
`

func workingTree(tree *testutil.TempTree) *source.WorkingTree {
	return &source.WorkingTree{
		Path: tree.Path,
		Repo: &source.Repository{URL: "https://github.com/owner/repo.git"},
	}
}

func TestExtractSkipsBinariesAndOversized(t *testing.T) {
	tree := testutil.NewTempTree(t)
	tree.CreateFile("io.py", pythonSample)
	tree.CreateBinaryFile("blob.dat", []byte{0x00, 0x01, 0x02})
	tree.CreateBinaryFile("raw", []byte("text\x00with nul"))
	tree.CreateFile("big.txt", strings.Repeat("x", 200))

	records, stats := Extract(workingTree(tree), Filters{MaxFileSizeBytes: 100})

	if stats.Considered != 4 {
		t.Errorf("Considered = %d, want 4", stats.Considered)
	}
	if stats.Retained != 1 {
		t.Fatalf("Retained = %d, want 1", stats.Retained)
	}
	if stats.SkippedBinary != 2 {
		t.Errorf("SkippedBinary = %d, want 2", stats.SkippedBinary)
	}
	if stats.SkippedSize != 1 {
		t.Errorf("SkippedSize = %d, want 1", stats.SkippedSize)
	}

	r := records[0]
	if r.Path != "io.py" {
		t.Fatalf("Path = %q", r.Path)
	}
	if r.Language != "python" {
		t.Errorf("Language = %q, want python", r.Language)
	}
	if got := r.CountKind(models.KindFunction); got != 2 {
		t.Errorf("function declarations = %d, want 2", got)
	}
}

func TestExtractDeterministic(t *testing.T) {
	tree := testutil.NewTempTree(t)
	tree.CreateFile("b/two.py", "def two():\n    pass\n")
	tree.CreateFile("a/one.py", "def one():\n    pass\n")
	tree.CreateFile("zz.md", "# Title\n")
	tree.CreateFile("m/main.go", "package main\n\nfunc main() {}\n")

	first, firstStats := Extract(workingTree(tree), Filters{})
	second, secondStats := Extract(workingTree(tree), Filters{})

	if !reflect.DeepEqual(first, second) {
		t.Error("two runs over the same tree differ")
	}
	if firstStats != secondStats {
		t.Errorf("stats differ: %+v vs %+v", firstStats, secondStats)
	}

	var paths []string
	for _, r := range first {
		paths = append(paths, r.Path)
	}
	want := []string{"a/one.py", "b/two.py", "m/main.go", "zz.md"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestExtractHonorsMaxFiles(t *testing.T) {
	tree := testutil.NewTempTree(t)
	tree.CreateFile("a.txt", "a")
	tree.CreateFile("b.txt", "b")
	tree.CreateFile("c.txt", "c")

	records, stats := Extract(workingTree(tree), Filters{MaxFiles: 2})

	if len(records) != 2 {
		t.Errorf("len(records) = %d, want 2", len(records))
	}
	// Counting continues past the cap.
	if stats.Considered != 3 {
		t.Errorf("Considered = %d, want 3", stats.Considered)
	}
	if stats.Retained != 2 {
		t.Errorf("Retained = %d, want 2", stats.Retained)
	}
}

func TestExtractSkipsExcludedDirsAndLockfiles(t *testing.T) {
	tree := testutil.NewTempTree(t)
	tree.CreateFile("src/app.py", "def run():\n    pass\n")
	tree.CreateFile("node_modules/pkg/index.js", "module.exports = 1\n")
	tree.CreateFile("__pycache__/app.pyc", "junk")
	tree.CreateFile(".hidden/secret.txt", "x")
	tree.CreateFile("package-lock.json", "{}")

	records, stats := Extract(workingTree(tree), Filters{})

	if len(records) != 1 || records[0].Path != "src/app.py" {
		t.Fatalf("records = %+v, want only src/app.py", records)
	}
	if stats.SkippedIgnored != 1 {
		t.Errorf("SkippedIgnored = %d, want 1 (lockfile)", stats.SkippedIgnored)
	}
}

func TestExtractRespectsGitignore(t *testing.T) {
	tree := testutil.NewTempTree(t)
	tree.CreateFile(".gitignore", "generated/\n*.log\n")
	tree.CreateFile("generated/out.py", "def gen():\n    pass\n")
	tree.CreateFile("debug.log", "line\n")
	tree.CreateFile("kept.py", "def keep():\n    pass\n")

	records, _ := Extract(workingTree(tree), Filters{})

	var paths []string
	for _, r := range records {
		paths = append(paths, r.Path)
	}
	want := []string{".gitignore", "kept.py"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestExtractIncludeLanguages(t *testing.T) {
	tree := testutil.NewTempTree(t)
	tree.CreateFile("a.py", "def a():\n    pass\n")
	tree.CreateFile("b.go", "package b\n")
	tree.CreateFile("c.md", "# c\n")

	records, _ := Extract(workingTree(tree), Filters{IncludeLanguages: []string{"python"}})

	if len(records) != 1 || records[0].Language != "python" {
		t.Errorf("records = %+v, want only python", records)
	}
}

func TestIsBinary(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    bool
	}{
		{"empty", nil, false},
		{"ascii", []byte("hello world"), false},
		{"utf8", []byte("héllo wörld"), false},
		{"nul byte", []byte("he\x00llo"), true},
		{"invalid utf8", []byte{0xff, 0xfe, 0x41}, true},
		{"truncated rune at sample edge", append([]byte(strings.Repeat("a", binarySampleSize-1)), 0xc3, 0xa9), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBinary(tt.content); got != tt.want {
				t.Errorf("isBinary = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"one", 1},
		{"one\n", 2},
		{"one\ntwo\nthree", 3},
	}
	for _, tt := range tests {
		if got := countLines([]byte(tt.content)); got != tt.want {
			t.Errorf("countLines(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
}

func TestExcerptRespectsRuneBoundary(t *testing.T) {
	content := []byte("aé" + strings.Repeat("x", 10))
	got := excerpt(content, 2)
	if got != "a" {
		t.Errorf("excerpt = %q, want %q (no split rune)", got, "a")
	}
	if got := excerpt([]byte("short"), 100); got != "short" {
		t.Errorf("excerpt = %q, want full content", got)
	}
}
