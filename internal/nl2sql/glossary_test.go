package nl2sql

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultGlossaryCoversDefectsAndProducts(t *testing.T) {
	glossary := DefaultGlossary()
	if len(glossary.Tables) != 2 {
		t.Fatalf("tables = %d", len(glossary.Tables))
	}
	text := glossary.String()
	for _, want := range []string{"defects", "serial_no", "products", "line", "'開放' = open, '關閉' = closed"} {
		if !strings.Contains(text, want) {
			t.Fatalf("glossary missing %q:\n%s", want, text)
		}
	}
}

func TestLoadGlossaryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.yaml")
	content := "tables:\n  - name: orders\n    columns:\n      - name: total\n        meaning: order total in cents\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	glossary, err := LoadGlossary(path)
	if err != nil {
		t.Fatalf("LoadGlossary() error = %v", err)
	}
	if got := glossary.String(); got != "orders:\n  - total: order total in cents" {
		t.Fatalf("String() = %q", got)
	}
}

func TestLoadGlossaryEmptyPathUsesDefault(t *testing.T) {
	glossary, err := LoadGlossary("")
	if err != nil {
		t.Fatalf("LoadGlossary() error = %v", err)
	}
	if len(glossary.Tables) == 0 {
		t.Fatal("expected embedded glossary")
	}
}

func TestParseGlossaryRejectsInvalid(t *testing.T) {
	for _, raw := range []string{"tables: [", "tables:\n  - columns: []\n", "tables:\n  - name: t\n    columns:\n      - meaning: x\n"} {
		if _, err := ParseGlossary([]byte(raw)); err == nil {
			t.Fatalf("ParseGlossary(%q) expected error", raw)
		}
	}
}
