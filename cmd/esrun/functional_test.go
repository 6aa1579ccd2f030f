package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ecmavm/engine/internal/config"
)

// TestFunctional runs every testdata/*.js file with a matching *.want file
// through a freshly built esrun binary and compares its combined stdout+
// stderr output, byte for byte once trimmed. Grounded on funvibe-funxy's
// tests/functional_test.go (build the real CLI binary once, walk source
// files with a sibling .want, run and diff), adapted to this engine's own
// extensions/binary/fixture layout (cmd/esrun, .js, testdata/) rather than
// the teacher's cmd/funxy/.lang/root-tests-dir shape.
func TestFunctional(t *testing.T) {
	selfDir, err := filepath.Abs(".")
	if err != nil {
		t.Fatalf("failed to resolve cmd/esrun directory: %v", err)
	}

	binaryPath := filepath.Join(t.TempDir(), "esrun-test-binary")

	build := exec.Command("go", "build", "-o", binaryPath, ".")
	build.Dir = selfDir
	if output, err := build.CombinedOutput(); err != nil {
		t.Fatalf("failed to build esrun: %v\n%s", err, output)
	}

	fixtures, err := filepath.Glob(filepath.Join(selfDir, "testdata", "*"+config.SourceFileExt))
	if err != nil {
		t.Fatalf("failed to list testdata: %v", err)
	}
	if len(fixtures) == 0 {
		t.Skip("no .js fixtures under testdata/")
	}

	for _, src := range fixtures {
		src := src
		name := strings.TrimSuffix(filepath.Base(src), config.SourceFileExt)
		wantPath := strings.TrimSuffix(src, config.SourceFileExt) + ".want"
		wantBytes, err := os.ReadFile(wantPath)
		if err != nil {
			t.Fatalf("%s: missing .want file: %v", name, err)
		}
		want := strings.TrimSpace(string(wantBytes))

		t.Run(name, func(t *testing.T) {
			cmd := exec.Command(binaryPath, src)
			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr
			_ = cmd.Run() // a fixture may legitimately exit non-zero (uncaught throw)

			got := strings.TrimSpace(stdout.String())
			if stderrStr := strings.TrimSpace(stderr.String()); stderrStr != "" {
				if got != "" {
					got += "\n" + stderrStr
				} else {
					got = stderrStr
				}
			}

			if got != want {
				t.Errorf("output mismatch:\n--- want ---\n%s\n--- got ---\n%s", want, got)
			}
		})
	}
}
