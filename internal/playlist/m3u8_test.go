package playlist

import (
	"errors"
	"strings"
	"testing"
)

const sample = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:10.000000,
segment000.ts
#EXTINF:10.000000,
segment001.ts
#EXTINF:4.480000,
segment002.ts
#EXT-X-ENDLIST
`

func TestParse(t *testing.T) {
	entries, err := Parse(sample)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []Entry{
		{URI: "segment000.ts", DurationSeconds: 10},
		{URI: "segment001.ts", DurationSeconds: 10},
		{URI: "segment002.ts", DurationSeconds: 4.48},
	}
	if len(entries) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(entries))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d: expected %+v, got %+v", i, want[i], entries[i])
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Empty", ""},
		{"NoHeader", "segment000.ts\n"},
		{"BadExtinf", "#EXTM3U\n#EXTINF:abc,\nsegment000.ts\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.input); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}

	if _, err := Parse("garbage"); !errors.Is(err, ErrNotPlaylist) {
		t.Errorf("Expected ErrNotPlaylist, got %v", err)
	}
}

func TestParseCRLF(t *testing.T) {
	entries, err := Parse(strings.ReplaceAll(sample, "\n", "\r\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(entries) != 3 || entries[2].URI != "segment002.ts" {
		t.Errorf("Unexpected entries: %+v", entries)
	}
}

func TestRewrite(t *testing.T) {
	urls := map[string]string{
		"segment002.ts": "http://cdn/v1/segment002.ts",
		"segment000.ts": "http://cdn/v1/segment000.ts",
		"segment001.ts": "http://cdn/v1/segment001.ts",
	}

	out := Rewrite(sample, urls)

	for name, u := range urls {
		if strings.Contains(out, "\n"+name+"\n") {
			t.Errorf("Expected %s to be rewritten", name)
		}
		if strings.Count(out, u) != 1 {
			t.Errorf("Expected exactly one reference to %s", u)
		}
	}

	entries, err := Parse(out)
	if err != nil {
		t.Fatalf("rewritten playlist no longer parses: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].URI != urls["segment000.ts"] || entries[2].DurationSeconds != 4.48 {
		t.Errorf("Unexpected rewritten entries: %+v", entries)
	}

	// 标签行原样保留
	for _, tag := range []string{"#EXT-X-TARGETDURATION:10", "#EXT-X-ENDLIST"} {
		if !strings.Contains(out, tag) {
			t.Errorf("Expected tag %s to survive rewrite", tag)
		}
	}
}

func TestRewriteLeavesUnknownReferences(t *testing.T) {
	out := Rewrite(sample, map[string]string{"segment001.ts": "http://cdn/x.ts"})

	if !strings.Contains(out, "\nsegment000.ts\n") {
		t.Error("Expected unmapped segment000.ts to stay untouched")
	}
	if !strings.Contains(out, "\nhttp://cdn/x.ts\n") {
		t.Error("Expected segment001.ts to be rewritten")
	}
}

func TestRewriteIsPure(t *testing.T) {
	urls := map[string]string{"segment000.ts": "http://cdn/0.ts"}
	first := Rewrite(sample, urls)
	second := Rewrite(sample, urls)
	if first != second {
		t.Error("Rewrite should be deterministic")
	}
	if Rewrite(first, urls) != first {
		t.Error("Rewriting an already rewritten playlist should be a no-op")
	}
}
