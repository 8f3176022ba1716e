// Package testutil holds shared helpers for exercising the pipeline
// against throwaway working trees and a canned completions endpoint.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TempTree is a temporary directory standing in for an acquired
// repository working tree.
type TempTree struct {
	Path string
	T    *testing.T
}

// NewTempTree creates an empty temporary tree, removed when the test ends.
func NewTempTree(t *testing.T) *TempTree {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "repolens-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	return &TempTree{Path: tmpDir, T: t}
}

// CreateFile creates a file in the tree, making parent directories.
func (r *TempTree) CreateFile(name, content string) {
	r.T.Helper()
	path := filepath.Join(r.Path, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		r.T.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		r.T.Fatalf("failed to create file: %v", err)
	}
}

// CreateBinaryFile creates a file with raw bytes.
func (r *TempTree) CreateBinaryFile(name string, content []byte) {
	r.T.Helper()
	path := filepath.Join(r.Path, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		r.T.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		r.T.Fatalf("failed to create file: %v", err)
	}
}

// InitGit turns the tree into a git repository with one commit, so
// helpers that shell out to git have history to read.
func (r *TempTree) InitGit() {
	r.T.Helper()

	cmds := [][]string{
		{"init"},
		{"config", "user.name", "Test User"},
		{"config", "user.email", "test@example.com"},
		{"add", "."},
		{"commit", "-m", "Initial commit", "--allow-empty"},
	}
	for _, args := range cmds {
		cmd := exec.Command("git", args...)
		cmd.Dir = r.Path
		if out, err := cmd.CombinedOutput(); err != nil {
			r.T.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}
}

// CompletionServer returns an httptest server speaking the chat
// completions shape. reply maps a prompt substring to the returned text;
// prompts matching no key get fallback.
func CompletionServer(t *testing.T, reply map[string]string, fallback string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		text := fallback
		for _, m := range req.Messages {
			for needle, out := range reply {
				if needle != "" && strings.Contains(m.Content, needle) {
					text = out
				}
			}
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{
					"message":       map[string]string{"role": "assistant", "content": text},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}
