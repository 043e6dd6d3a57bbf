package classifier

import (
	"testing"

	"github.com/WhiteFoxMax/dupemgr/internal"
)

func TestCategory(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"image/png", Image},
		{"image/jpeg", Image},
		{"video/mp4", Video},
		{"audio/mpeg", Audio},
		{"application/zip", Archive},
		{"text/x-unknown", Other},
		{"", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			if got := Category(tt.mime); got != tt.want {
				t.Errorf("Category(%q) = %s, want %s", tt.mime, got, tt.want)
			}
		})
	}
}

func group(size int64, mimes ...string) *internal.DuplicateGroup {
	g := &internal.DuplicateGroup{Size: size}
	for _, m := range mimes {
		g.Members = append(g.Members, &internal.FileRecord{Size: size, Kind: internal.KindFile, MIME: m})
	}
	return g
}

func TestSummarize(t *testing.T) {
	groups := []*internal.DuplicateGroup{
		group(100, "image/png", "image/png"),
		group(50, "image/jpeg", "image/jpeg", "image/jpeg"),
		group(1000, "video/mp4", "video/mp4"),
		group(10, "", ""),
	}

	got := Summarize(groups)
	if len(got) != 3 {
		t.Fatalf("Expected 3 categories, got %d: %+v", len(got), got)
	}

	if got[0].Category != Video || got[0].ReclaimableBytes != 1000 {
		t.Errorf("Expected video first with 1000 bytes, got %+v", got[0])
	}
	if got[1].Category != Image || got[1].Groups != 2 || got[1].Files != 5 || got[1].ReclaimableBytes != 200 {
		t.Errorf("Unexpected image stats: %+v", got[1])
	}
	if got[2].Category != Unknown || got[2].ReclaimableBytes != 10 {
		t.Errorf("Unexpected unknown stats: %+v", got[2])
	}
}

func TestSummarize_Empty(t *testing.T) {
	if got := Summarize(nil); len(got) != 0 {
		t.Errorf("Expected no categories, got %+v", got)
	}
}
