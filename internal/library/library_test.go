package library

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "headings and paragraphs",
			in:   "# Body scan\n\nBreathe *in*. (3s)\nBreathe **out**. (3s)\n\nRest.",
			want: "Body scan\nBreathe in. (3s) Breathe out. (3s)\nRest.",
		},
		{
			name: "lists",
			in:   "- Relax your jaw. (4s)\n- Drop your shoulders. (4s)\n",
			want: "Relax your jaw. (4s)\nDrop your shoulders. (4s)",
		},
		{
			name: "code dropped",
			in:   "Begin.\n\n```\nignored\n```\n\nEnd.",
			want: "Begin.\nEnd.",
		},
		{
			name: "links keep text",
			in:   "Read [the guide](https://example.com) slowly.",
			want: "Read the guide slowly.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText([]byte(tt.in)); got != tt.want {
				t.Errorf("PlainText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrepare(t *testing.T) {
	in := []byte("\xef\xbb\xbf---\ntitle: x\n---\n# Calm\nBreathe.")
	if got := Prepare(in, true); got != "Calm\nBreathe." {
		t.Errorf("Prepare(markdown) = %q", got)
	}
	if got := Prepare([]byte("plain (3s)\n"), false); got != "plain (3s)\n" {
		t.Errorf("Prepare(text) = %q", got)
	}
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("Breathe. (3s)"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFindAndMatch(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "body-scan.md", "sleep/deep-sleep.txt", "notes.json", "morning.markdown")

	entries, err := Find(dir, false)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	want := []string{"body-scan", "morning", "sleep/deep-sleep"}
	if len(names) != len(want) {
		t.Fatalf("Find() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, names[i], want[i])
		}
	}

	if got := Match(entries, "deep"); len(got) == 0 || got[0].Name != "sleep/deep-sleep" {
		t.Errorf("Match(deep) = %v", got)
	}
	if got := Match(entries, "MORNING"); len(got) == 0 || got[0].Name != "morning" {
		t.Errorf("Match(MORNING) = %v", got)
	}
	if got := Match(entries, "zzz"); len(got) != 0 {
		t.Errorf("Match(zzz) = %v, want none", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "calm.md")
	if err := os.WriteFile(p, []byte("# Calm\n\nBreathe in. (3s)"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != "Calm\nBreathe in. (3s)" {
		t.Errorf("Load() = %q", got)
	}

	if _, err := Load(filepath.Join(dir, "missing.md")); err == nil {
		t.Error("Load(missing) = nil error")
	}
}
