package output

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDirSink_Save(t *testing.T) {
	sink, err := NewDirSink(t.TempDir())
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	path, err := sink.Save([]byte(`{"ok":true}`), filepath.Join("pages", "example.com", "seo.json"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != `{"ok":true}` {
		t.Errorf("content = %q", got)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want 1", len(entries))
	}
}

func TestDirSink_Overwrite(t *testing.T) {
	sink, err := NewDirSink(t.TempDir())
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	if _, err := sink.Save([]byte("first"), "report.md"); err != nil {
		t.Fatalf("first save: %v", err)
	}
	path, err := sink.Save([]byte("second"), "report.md")
	if err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "second" {
		t.Errorf("content = %q, want overwrite", got)
	}
}

func TestDirSink_RejectsEscapingHints(t *testing.T) {
	sink, err := NewDirSink(t.TempDir())
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	for _, hint := range []string{"../outside.txt", "/etc/passwd", ".", "a/../../b"} {
		if _, err := sink.Save([]byte("x"), hint); err == nil {
			t.Errorf("Save(%q) did not fail", hint)
		}
	}
}

func TestNewDirSink_EmptyRoot(t *testing.T) {
	if _, err := NewDirSink(""); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com", "example.com"},
		{"https://example.com/", "example.com"},
		{"https://example.com/docs/intro", "example.com-docs-intro"},
		{"https://Example.COM/Path", "example.com-path"},
		{"not a url at all", "not-a-url-at-all"},
		{"", "page"},
	}

	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
