package testsupport

import (
	"hash/fnv"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path holding exactly size bytes of deterministic content
// seeded from the file name, so files of equal size still hash differently.
// A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	seed := fnv.New32a()
	seed.Write([]byte(filepath.Base(path)))
	state := seed.Sum32() | 1

	buf := make([]byte, 64*1024)
	for written := int64(0); written < size; {
		n := int64(len(buf))
		if size-written < n {
			n = size - written
		}
		for i := int64(0); i < n; i++ {
			state = state*1664525 + 1013904223
			buf[i] = byte(state >> 24)
		}
		if _, err := f.Write(buf[:n]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		written += n
	}
}
