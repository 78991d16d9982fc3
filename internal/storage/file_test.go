package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shelf-tools/gleaner/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

var testProducts = []types.Product{
	{Name: "Aurora Laptop 14", Price: "54,990", Rating: "4.3 out of 5 stars"},
	{Name: "Borealis Ultrabook", Price: types.Missing, Rating: "3.9 out of 5 stars"},
}

// --- CSV Tests ---

func TestCSVHeaderWrittenAtOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")

	s, err := NewCSVStorage(path, testLogger)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// The header must be on disk before anything is stored, so a run that
	// finds zero products still leaves a valid artifact.
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(content) != "Name,Price,Rating\n" {
		t.Errorf("expected header-only file, got %q", string(content))
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestCSVRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")

	s, err := NewCSVStorage(path, testLogger)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Store(testProducts); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d records", len(records))
	}
	if records[0][0] != "Name" || records[0][1] != "Price" || records[0][2] != "Rating" {
		t.Errorf("unexpected header: %v", records[0])
	}
	if records[1][0] != "Aurora Laptop 14" || records[1][1] != "54,990" {
		t.Errorf("unexpected first row: %v", records[1])
	}
	if records[2][1] != types.Missing {
		t.Errorf("expected %q price in second row, got %q", types.Missing, records[2][1])
	}
}

func TestCSVEscaping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")

	nasty := []types.Product{
		{Name: `He said "bargain", twice`, Price: "1,299", Rating: "4.5\nout of 5"},
	}

	s, err := NewCSVStorage(path, testLogger)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Store(nasty); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(records))
	}

	got := types.Product{Name: records[1][0], Price: records[1][1], Rating: records[1][2]}
	if got != nasty[0] {
		t.Errorf("round trip mangled the row: %+v != %+v", got, nasty[0])
	}
}

func TestCSVDeterministic(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.csv")
	pathB := filepath.Join(dir, "b.csv")

	for _, path := range []string{pathA, pathB} {
		s, err := NewCSVStorage(path, testLogger)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := s.Store(testProducts); err != nil {
			t.Fatalf("store: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	a, _ := os.ReadFile(pathA)
	b, _ := os.ReadFile(pathB)
	if !bytes.Equal(a, b) {
		t.Error("identical inputs should produce byte-identical CSV files")
	}
}

func TestCSVCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "products.csv")

	s, err := NewCSVStorage(path, testLogger)
	if err != nil {
		t.Fatalf("create with nested path: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected output file to exist: %v", err)
	}
}

// --- JSON Tests ---

func TestJSONZeroProducts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")

	s, err := NewJSONStorage(path, testLogger)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.TrimSpace(string(content)) != "[]" {
		t.Errorf("expected empty array, got %q", string(content))
	}
}

func TestJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")

	s, err := NewJSONStorage(path, testLogger)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Store(testProducts); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got []types.Product
	if err := json.Unmarshal(content, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != len(testProducts) {
		t.Fatalf("expected %d products, got %d", len(testProducts), len(got))
	}
	for i := range got {
		if got[i] != testProducts[i] {
			t.Errorf("product %d: %+v != %+v", i, got[i], testProducts[i])
		}
	}
}

// --- JSONL Tests ---

func TestJSONLOneLinePerProduct(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.jsonl")

	s, err := NewJSONLStorage(path, testLogger)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Store(testProducts); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != len(testProducts) {
		t.Fatalf("expected %d lines, got %d", len(testProducts), len(lines))
	}
	for i, line := range lines {
		var got types.Product
		if err := json.Unmarshal([]byte(line), &got); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if got != testProducts[i] {
			t.Errorf("line %d: %+v != %+v", i, got, testProducts[i])
		}
	}
}

// --- Path Handling Tests ---

func TestWithExt(t *testing.T) {
	cases := []struct {
		path, ext, want string
	}{
		{"products.csv", ".json", "products.json"},
		{"products", ".jsonl", "products.jsonl"},
		{"out/data.csv", ".jsonl", "out/data.jsonl"},
		{"archive.2024.csv", ".json", "archive.2024.json"},
	}
	for _, c := range cases {
		if got := withExt(c.path, c.ext); got != c.want {
			t.Errorf("withExt(%q, %q): expected %q, got %q", c.path, c.ext, c.want, got)
		}
	}
}
