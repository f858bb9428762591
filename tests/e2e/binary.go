package main

import (
	"fmt"
	"os"
	"path/filepath"
)

const binaryName = "agevents"

// FindProjectBinary locates the agevents binary under test. AGEVENTS_BINARY
// wins; otherwise bin/agevents is searched for from the working directory up.
func FindProjectBinary() (string, error) {
	if path := os.Getenv("AGEVENTS_BINARY"); path != "" {
		return path, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, "bin", binaryName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find bin/%s; run 'go build -o bin/agevents .' or set AGEVENTS_BINARY", binaryName)
		}
		dir = parent
	}
}
