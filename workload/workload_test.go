package workload

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateDeterministic(t *testing.T) {
	cfg := Config{NumRecords: 50, Seed: 42, DuplicateRatio: 0.1}

	var buf1, buf2 bytes.Buffer

	if _, err := NewGenerator(cfg).Generate(&buf1); err != nil {
		t.Fatalf("first generation failed: %v", err)
	}

	if _, err := NewGenerator(cfg).Generate(&buf2); err != nil {
		t.Fatalf("second generation failed: %v", err)
	}

	if buf1.String() != buf2.String() {
		t.Error("datasets are not deterministic for same seed")
	}
}

func TestGenerateCounts(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want int
	}{
		{"basic", Config{NumRecords: 25, Seed: 1}, 25},
		{"empty", Config{NumRecords: 0, Seed: 2}, 0},
		{"with duplicates", Config{NumRecords: 100, Seed: 3, DuplicateRatio: 0.5}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := NewGenerator(tt.cfg).Records()
			if len(records) != tt.want {
				t.Errorf("got %d records, want %d", len(records), tt.want)
			}

			for i, r := range records {
				if r.Codigo == "" {
					t.Fatalf("record %d has empty codigo", i)
				}
				if r.Cliente == "" {
					t.Fatalf("record %d has empty cliente", i)
				}
			}
		})
	}
}

func TestGenerateDuplicateCodigos(t *testing.T) {
	records := NewGenerator(Config{NumRecords: 200, Seed: 7, DuplicateRatio: 0.5}).Records()

	seen := make(map[string]bool, len(records))
	dups := 0

	for _, r := range records {
		if seen[r.Codigo] {
			dups++
		}
		seen[r.Codigo] = true
	}

	if dups == 0 {
		t.Error("expected duplicate codigos with DuplicateRatio=0.5")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.json")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create dataset file: %v", err)
	}

	n, err := NewGenerator(Config{NumRecords: 30, Seed: 9}).Generate(f)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n != 30 {
		t.Fatalf("generated %d records, want 30", n)
	}

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"no limit", 0, 30},
		{"limit below size", 10, 10},
		{"limit above size", 100, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Load(path, tt.limit)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if len(records) != tt.want {
				t.Errorf("got %d records, want %d", len(records), tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json"), 0); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadInvalidJSON(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("not json"))); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
