// Package safety 判断重复文件是否可以作为删除候选。
//
// 分类器只做标注，不删除文件，也不会把文件移出重复组。
// 无法确定的情况一律视为不安全。
package safety

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/WhiteFoxMax/dupemgr/internal"
	"github.com/WhiteFoxMax/dupemgr/pkg/logger"
)

// 不可删除的原因
const (
	ReasonSystemPath        = "system-path"
	ReasonProtectedDir      = "protected-directory"
	ReasonLocked            = "locked"
	ReasonParentNotWritable = "parent-not-writable"
	ReasonNotRegular        = "not-regular-file"
	ReasonIndeterminate     = "indeterminate"
)

// KeepPolicy 所有成员都可删除时选择保留哪一个
type KeepPolicy string

const (
	KeepFirst    KeepPolicy = "first"
	KeepOldest   KeepPolicy = "oldest"
	KeepNewest   KeepPolicy = "newest"
	KeepShortest KeepPolicy = "shortest"
)

func ParseKeepPolicy(s string) (KeepPolicy, error) {
	switch p := KeepPolicy(strings.ToLower(s)); p {
	case "":
		return KeepFirst, nil
	case KeepFirst, KeepOldest, KeepNewest, KeepShortest:
		return p, nil
	default:
		return "", fmt.Errorf("unknown keep policy %q", s)
	}
}

// 版本库元数据目录，删除其中的文件会破坏仓库
var protectedDirNames = map[string]bool{
	".git": true,
	".hg":  true,
	".svn": true,
}

type Options struct {
	ProtectedPaths []string
	Keep           KeepPolicy
}

// checker 平台相关的文件检查
type checker interface {
	Locked(path string) (bool, error)
	Writable(dir string) (bool, error)
}

type Classifier struct {
	prefixes []string
	keep     KeepPolicy
	check    checker
}

func NewClassifier(opts Options) *Classifier {
	keep := opts.Keep
	if keep == "" {
		keep = KeepFirst
	}

	prefixes := defaultProtectedPaths()
	for _, p := range opts.ProtectedPaths {
		if p != "" {
			prefixes = append(prefixes, filepath.Clean(expandHome(p)))
		}
	}

	return &Classifier{
		prefixes: prefixes,
		keep:     keep,
		check:    osChecker{},
	}
}

// Classify 判断单个文件能否作为删除候选
func (c *Classifier) Classify(rec *internal.FileRecord) internal.Verdict {
	var reasons []string

	if rec.Kind != internal.KindFile {
		reasons = append(reasons, ReasonNotRegular)
	}
	if c.isSystemPath(rec.Path) {
		reasons = append(reasons, ReasonSystemPath)
	}
	if inProtectedDir(rec.Path) {
		reasons = append(reasons, ReasonProtectedDir)
	}

	locked, err := c.check.Locked(rec.Path)
	switch {
	case err != nil:
		logger.Get().Debug().Err(err).Str("path", rec.Path).Msg("无法判断文件是否被占用")
		reasons = append(reasons, ReasonIndeterminate)
	case locked:
		reasons = append(reasons, ReasonLocked)
	}

	writable, err := c.check.Writable(filepath.Dir(rec.Path))
	switch {
	case err != nil:
		logger.Get().Debug().Err(err).Str("path", rec.Path).Msg("无法判断父目录是否可写")
		if !contains(reasons, ReasonIndeterminate) {
			reasons = append(reasons, ReasonIndeterminate)
		}
	case !writable:
		reasons = append(reasons, ReasonParentNotWritable)
	}

	return internal.Verdict{Safe: len(reasons) == 0, Reasons: reasons}
}

// Annotate 为每个组的成员标注安全状态并选出保留项
func (c *Classifier) Annotate(groups []*internal.DuplicateGroup) {
	for _, g := range groups {
		for _, m := range g.Members {
			m.Safety = c.Classify(m)
		}
		g.Keep = c.chooseKeeper(g.Members)
	}
}

// MarkIndeterminate 不访问文件系统，把所有成员标为无法判定并选出保留项。
// 用于扫描取消后，此时不再做文件检查。
func (c *Classifier) MarkIndeterminate(groups []*internal.DuplicateGroup) {
	for _, g := range groups {
		for _, m := range g.Members {
			m.Safety = internal.Verdict{Reasons: []string{ReasonIndeterminate}}
		}
		g.Keep = c.chooseKeeper(g.Members)
	}
}

// chooseKeeper 有不安全成员时保留它（它本来就不会被删除），否则按策略选择
func (c *Classifier) chooseKeeper(members []*internal.FileRecord) *internal.FileRecord {
	if len(members) == 0 {
		return nil
	}
	for _, m := range members {
		if !m.Safety.Safe {
			return m
		}
	}

	keep := members[0]
	for _, m := range members[1:] {
		switch c.keep {
		case KeepOldest:
			if m.Modified.Before(keep.Modified) {
				keep = m
			}
		case KeepNewest:
			if m.Modified.After(keep.Modified) {
				keep = m
			}
		case KeepShortest:
			if len(m.Path) < len(keep.Path) {
				keep = m
			}
		}
	}
	return keep
}

func (c *Classifier) isSystemPath(path string) bool {
	for _, prefix := range c.prefixes {
		if under(path, prefix) {
			return true
		}
	}
	return false
}

func inProtectedDir(path string) bool {
	for _, part := range strings.Split(filepath.Dir(path), string(filepath.Separator)) {
		if protectedDirNames[part] {
			return true
		}
	}
	return false
}

func under(path, prefix string) bool {
	path, prefix = filepath.Clean(path), filepath.Clean(prefix)
	if runtime.GOOS == "windows" {
		path, prefix = strings.ToLower(path), strings.ToLower(prefix)
	}
	if path == prefix {
		return true
	}
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

func defaultProtectedPaths() []string {
	var paths []string
	home, _ := os.UserHomeDir()

	switch runtime.GOOS {
	case "windows":
		for _, env := range []string{"SystemRoot", "ProgramFiles", "ProgramFiles(x86)", "ProgramData", "APPDATA", "LOCALAPPDATA"} {
			if v := os.Getenv(env); v != "" {
				paths = append(paths, filepath.Clean(v))
			}
		}
		return paths
	case "darwin":
		paths = []string{"/System", "/Library", "/Applications", "/bin", "/sbin", "/usr", "/private/etc", "/private/var/db", "/cores"}
		if home != "" {
			paths = append(paths, filepath.Join(home, "Library"))
		}
	default:
		paths = []string{"/bin", "/boot", "/dev", "/etc", "/lib", "/lib32", "/lib64", "/libx32", "/proc", "/run", "/sbin", "/snap", "/sys", "/usr", "/var/lib"}
	}

	if home != "" {
		paths = append(paths, filepath.Join(home, ".ssh"), filepath.Join(home, ".gnupg"))
	}
	return paths
}

func expandHome(path string) string {
	if len(path) >= 2 && path[0] == '~' && (path[1] == '/' || path[1] == '\\') {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
