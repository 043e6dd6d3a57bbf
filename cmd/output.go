package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/WhiteFoxMax/dupemgr/internal"
	"github.com/WhiteFoxMax/dupemgr/pkg/classifier"
)

func printResult(w io.Writer, result *internal.ScanResult, verbose bool) {
	fmt.Fprintf(w, "扫描 %s (%s)\n", result.Root, result.ScanID)

	for i, g := range result.DuplicateGroups {
		fmt.Fprintf(w, "\n[%d] %d 个文件，每个 %s，可释放 %s\n", i+1, len(g.Members),
			humanize.IBytes(uint64(g.Size)), humanize.IBytes(uint64(g.ReclaimableBytes())))
		if verbose {
			fmt.Fprintf(w, "    sha256: %s\n", g.Digest)
		}
		for _, m := range g.Members {
			fmt.Fprintf(w, "    %s %s%s\n", marker(g, m), m.Path, memberNote(m, verbose))
		}
	}

	if summary := classifier.Summarize(result.DuplicateGroups); len(summary) > 0 {
		fmt.Fprintln(w, "\n按类型:")
		for _, s := range summary {
			fmt.Fprintf(w, "  %-9s %d 组, %d 个文件, 可释放 %s\n",
				s.Category, s.Groups, s.Files, humanize.IBytes(uint64(s.ReclaimableBytes)))
		}
	}

	st := result.Stats
	fmt.Fprintln(w, "\n========== 扫描完成 ==========")
	fmt.Fprintf(w, "状态: %s\n", result.State)
	fmt.Fprintf(w, "总文件数: %s (%s)\n", humanize.Comma(int64(st.TotalFiles)), humanize.IBytes(uint64(st.TotalBytes)))
	fmt.Fprintf(w, "重复组: %d\n", len(result.DuplicateGroups))
	fmt.Fprintf(w, "重复文件: %s\n", humanize.Comma(int64(st.DuplicateFileCount)))
	fmt.Fprintf(w, "可释放空间: %s\n", humanize.IBytes(uint64(st.ReclaimableBytes)))
	fmt.Fprintf(w, "错误: %d\n", len(result.Errors))
	fmt.Fprintf(w, "总耗时: %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	fmt.Fprintln(w, "==============================")

	if verbose {
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  ! %s\n", e)
		}
	}
}

// marker K 为建议保留，D 为可删除候选，! 为不可删除
func marker(g *internal.DuplicateGroup, m *internal.FileRecord) string {
	switch {
	case m == g.Keep:
		return "K"
	case m.Safety.Safe:
		return "D"
	default:
		return "!"
	}
}

func memberNote(m *internal.FileRecord, verbose bool) string {
	var notes []string
	if len(m.Safety.Reasons) > 0 {
		notes = append(notes, strings.Join(m.Safety.Reasons, ","))
	}
	if verbose && m.MIME != "" {
		notes = append(notes, m.MIME)
	}
	if len(notes) == 0 {
		return ""
	}
	return "  (" + strings.Join(notes, "; ") + ")"
}

type jsonMember struct {
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	MIME     string    `json:"mime,omitempty"`
	Safe     bool      `json:"safe"`
	Reasons  []string  `json:"reasons,omitempty"`
	Keep     bool      `json:"keep"`
}

type jsonGroup struct {
	Digest           string       `json:"digest"`
	Size             int64        `json:"size"`
	ReclaimableBytes int64        `json:"reclaimableBytes"`
	Members          []jsonMember `json:"members"`
}

type jsonError struct {
	Path    string `json:"path"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

type jsonResult struct {
	ScanID     string                     `json:"scanId"`
	Root       string                     `json:"root"`
	State      string                     `json:"state"`
	Groups     []jsonGroup                `json:"duplicateGroups"`
	Stats      internal.ScanStats         `json:"stats"`
	Categories []classifier.CategoryStats `json:"categories"`
	Errors     []jsonError                `json:"errors"`
	StartTime  time.Time                  `json:"startTime"`
	EndTime    time.Time                  `json:"endTime"`
}

func writeJSON(w io.Writer, result *internal.ScanResult) error {
	out := jsonResult{
		ScanID:     result.ScanID,
		Root:       result.Root,
		State:      result.State.String(),
		Groups:     []jsonGroup{},
		Stats:      result.Stats,
		Categories: classifier.Summarize(result.DuplicateGroups),
		Errors:     []jsonError{},
		StartTime:  result.StartTime,
		EndTime:    result.EndTime,
	}

	for _, g := range result.DuplicateGroups {
		jg := jsonGroup{Digest: g.Digest, Size: g.Size, ReclaimableBytes: g.ReclaimableBytes()}
		for _, m := range g.Members {
			jg.Members = append(jg.Members, jsonMember{
				Path:     m.Path,
				Size:     m.Size,
				Modified: m.Modified,
				MIME:     m.MIME,
				Safe:     m.Safety.Safe,
				Reasons:  m.Safety.Reasons,
				Keep:     m == g.Keep,
			})
		}
		out.Groups = append(out.Groups, jg)
	}

	for _, e := range result.Errors {
		out.Errors = append(out.Errors, jsonError{Path: e.Path, Stage: string(e.Stage), Message: e.Err.Error()})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
