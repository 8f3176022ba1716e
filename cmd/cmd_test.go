package cmd

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pders01/repolens/internal/source"
)

func testCommand() *cobra.Command {
	c := &cobra.Command{}
	c.SetContext(context.Background())
	return c
}

func TestRunAnalyzeRejectsInvalidSource(t *testing.T) {
	viper.Set("analysis.timeout_minutes", 1)
	defer viper.Reset()

	err := runAnalyze(testCommand(), []string{"/not/a/url"})
	if !errors.Is(err, source.ErrInvalidSource) {
		t.Errorf("err = %v, want ErrInvalidSource", err)
	}
}

func TestRunExplainRejectsInvalidSource(t *testing.T) {
	viper.Set("analysis.timeout_minutes", 1)
	defer viper.Reset()

	err := runExplain(testCommand(), []string{"/not/a/url", "main.py", "main"})
	if !errors.Is(err, source.ErrInvalidSource) {
		t.Errorf("err = %v, want ErrInvalidSource", err)
	}
}

func TestRunAskRequiresQuestion(t *testing.T) {
	askSuggest = false
	err := runAsk(testCommand(), []string{"github.com/owner/repo"})
	if err == nil {
		t.Fatal("expected error when no question and no --suggest")
	}
}

func TestRunModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"data":[{"id":"model-a"},{"id":"model-b","name":"Model B"}]}`))
	}))
	defer srv.Close()

	viper.Set("llm.base_url", srv.URL)
	viper.Set("llm.max_attempts", 1)
	viper.Set("cache.enabled", false)
	defer viper.Reset()

	modelsJSON, modelsToon, modelsCheck = false, false, false
	if err := runModels(testCommand(), nil); err != nil {
		t.Fatalf("runModels: %v", err)
	}

	modelsCheck = true
	defer func() { modelsCheck = false }()
	if err := runModels(testCommand(), nil); err != nil {
		t.Fatalf("runModels --check: %v", err)
	}
}

func TestRunModelsUnreachable(t *testing.T) {
	viper.Set("llm.base_url", "http://127.0.0.1:1")
	viper.Set("llm.max_attempts", 1)
	viper.Set("cache.enabled", false)
	defer viper.Reset()

	modelsCheck = false
	if err := runModels(testCommand(), nil); err == nil {
		t.Fatal("expected error for unreachable endpoint")
	}
}

func TestRunCleanup(t *testing.T) {
	staging := filepath.Join(t.TempDir(), "staging")
	if err := os.MkdirAll(filepath.Join(staging, "owner_repo_deadbeef"), 0755); err != nil {
		t.Fatal(err)
	}

	viper.Set("acquire.staging_dir", staging)
	defer viper.Reset()

	if err := runCleanup(testCommand(), nil); err != nil {
		t.Fatalf("runCleanup: %v", err)
	}

	entries, err := os.ReadDir(staging)
	if err != nil {
		t.Fatalf("staging root should survive cleanup: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("staging root not emptied: %d entries", len(entries))
	}
}
