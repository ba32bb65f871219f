package entropy

import (
	"archive/zip"
	"bytes"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestShannon(t *testing.T) {
	uniform := make([]byte, 256*4)
	for i := range uniform {
		uniform[i] = byte(i)
	}

	tests := []struct {
		name     string
		data     []byte
		expected float64
	}{
		{"empty", nil, 0},
		{"single byte", []byte{0x41}, 0},
		{"single value repeated", bytes.Repeat([]byte{0x7f}, 1000), 0},
		{"two values evenly", []byte{0, 1, 0, 1}, 1},
		{"four values evenly", []byte{0, 1, 2, 3}, 2},
		{"uniform", uniform, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Shannon(tt.data); !approx(got, tt.expected) {
				t.Errorf("Shannon() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestShannonPermutationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(rng.Intn(37))
	}
	base := Shannon(data)

	for round := 0; round < 5; round++ {
		shuffled := append([]byte(nil), data...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if got := Shannon(shuffled); !approx(got, base) {
			t.Errorf("Round %d: entropy changed from %v to %v", round, base, got)
		}
	}
	if base < 0 || base > 8 {
		t.Errorf("Entropy %v out of range", base)
	}
}

func TestCounterStreaming(t *testing.T) {
	var c Counter
	_, _ = c.Write([]byte{0, 1})
	_, _ = c.Write([]byte{2, 3})
	if c.Total() != 4 {
		t.Errorf("Expected 4 bytes, got %d", c.Total())
	}
	if !approx(c.Entropy(), 2) {
		t.Errorf("Expected entropy 2, got %v", c.Entropy())
	}
}

func writeArchive(t *testing.T, entries map[string][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.apk")
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(file)
	for name, data := range entries {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := entry.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFromArchive(t *testing.T) {
	path := writeArchive(t, map[string][]byte{
		"AndroidManifest.xml":       bytes.Repeat([]byte{1}, 64),
		"classes.dex":               {0, 1, 2, 3},
		"assets/nested/classes.dex": {9, 9, 9, 9},
	})

	h, err := FromArchive(path, "classes.dex")
	if err != nil {
		t.Fatalf("FromArchive() failed: %v", err)
	}
	if !approx(h, 2) {
		t.Errorf("Expected entropy 2, got %v", h)
	}

	if _, err := FromArchive(path, "classes2.dex"); !errors.Is(err, ErrPayloadNotFound) {
		t.Errorf("Expected ErrPayloadNotFound, got %v", err)
	}
	if _, err := FromArchive(filepath.Join(t.TempDir(), "missing.apk"), "classes.dex"); err == nil {
		t.Error("Expected error for a missing archive")
	}
}
