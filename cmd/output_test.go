package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/WhiteFoxMax/dupemgr/internal"
)

func sampleResult() *internal.ScanResult {
	a := &internal.FileRecord{Path: "/data/a.png", Size: 2048, Kind: internal.KindFile, MIME: "image/png",
		Safety: internal.Verdict{Safe: true}}
	b := &internal.FileRecord{Path: "/data/b.png", Size: 2048, Kind: internal.KindFile, MIME: "image/png",
		Safety: internal.Verdict{Safe: true}}
	c := &internal.FileRecord{Path: "/usr/c.png", Size: 2048, Kind: internal.KindFile, MIME: "image/png",
		Safety: internal.Verdict{Reasons: []string{"system-path"}}}

	g := &internal.DuplicateGroup{Digest: "abc", Size: 2048, Members: []*internal.FileRecord{a, b, c}, Keep: c}
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	return &internal.ScanResult{
		ScanID:          "scan-1",
		Root:            "/data",
		State:           internal.StateCompleted,
		DuplicateGroups: []*internal.DuplicateGroup{g},
		Stats:           internal.ScanStats{TotalFiles: 3, TotalBytes: 6144, DuplicateFileCount: 3, ReclaimableBytes: 4096},
		Errors: []*internal.ScanError{
			{Path: "/data/locked", Stage: internal.StageWalk, Err: errors.New("permission denied")},
		},
		StartTime: start,
		EndTime:   start.Add(time.Second),
	}
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, sampleResult(), true)
	out := buf.String()

	for _, want := range []string{
		"K /usr/c.png  (system-path; image/png)",
		"D /data/a.png",
		"sha256: abc",
		"可释放空间: 4.0 KiB",
		"image ",
		"permission denied",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q\n%s", want, out)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, sampleResult()); err != nil {
		t.Fatalf("writeJSON() error = %v", err)
	}

	var decoded jsonResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}

	if decoded.State != "completed" || len(decoded.Groups) != 1 {
		t.Fatalf("Unexpected result: %+v", decoded)
	}
	g := decoded.Groups[0]
	if g.ReclaimableBytes != 4096 || len(g.Members) != 3 {
		t.Errorf("Unexpected group: %+v", g)
	}
	if !g.Members[2].Keep || g.Members[2].Safe || g.Members[0].Keep {
		t.Errorf("Unexpected keep flags: %+v", g.Members)
	}
	if len(decoded.Errors) != 1 || decoded.Errors[0].Stage != "walk" {
		t.Errorf("Unexpected errors: %+v", decoded.Errors)
	}
	if len(decoded.Categories) != 1 || decoded.Categories[0].Category != "image" {
		t.Errorf("Unexpected categories: %+v", decoded.Categories)
	}
}

func TestWriteJSON_NoGroups(t *testing.T) {
	result := sampleResult()
	result.DuplicateGroups = nil
	result.Errors = nil

	var buf bytes.Buffer
	if err := writeJSON(&buf, result); err != nil {
		t.Fatalf("writeJSON() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"duplicateGroups": []`) {
		t.Errorf("Expected an empty group array, got %s", buf.String())
	}
}
