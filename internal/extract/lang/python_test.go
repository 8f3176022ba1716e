package lang

import (
	"testing"

	"github.com/pders01/repolens/internal/models"
)

const pySample = `import os
from pathlib import Path

VERSION = "1.0"

def helper(x):
    """Double a number."""
    return x * 2

class Worker:
    """Processes jobs."""

    def run(self, job):
        """Run one job."""
        result = helper(job)
        return result

@decorator
def decorated():
    pass
`

func TestPythonExtractor(t *testing.T) {
	decls, err := pythonExtractor{}.DetectDeclarations([]byte(pySample))
	if err != nil {
		t.Fatalf("DetectDeclarations: %v", err)
	}

	if d := findDecl(decls, models.KindModule, "os"); d == nil {
		t.Error("missing import os")
	}
	if d := findDecl(decls, models.KindModule, "pathlib"); d == nil {
		t.Error("missing from-import pathlib")
	}

	if d := findDecl(decls, models.KindVariable, "VERSION"); d == nil {
		t.Error("missing module variable VERSION")
	}

	if d := findDecl(decls, models.KindFunction, "helper"); d == nil {
		t.Error("missing func helper")
	} else if d.Doc != "Double a number." {
		t.Errorf("helper doc = %q", d.Doc)
	}

	if d := findDecl(decls, models.KindClass, "Worker"); d == nil {
		t.Error("missing class Worker")
	} else if d.Doc != "Processes jobs." {
		t.Errorf("Worker doc = %q", d.Doc)
	}

	if d := findDecl(decls, models.KindFunction, "Worker.run"); d == nil {
		t.Error("missing method Worker.run with class qualification")
	}

	if d := findDecl(decls, models.KindFunction, "decorated"); d == nil {
		t.Error("missing decorated function")
	}

	// Function locals must not leak out.
	if d := findDecl(decls, models.KindVariable, "result"); d != nil {
		t.Errorf("unexpected local variable declaration: %+v", d)
	}
}
