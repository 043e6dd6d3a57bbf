//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package safety

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

func TestOSChecker_Locked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locked.db")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	locked, err := osChecker{}.Locked(path)
	if err != nil || locked {
		t.Fatalf("Expected unlocked file, got locked=%v err=%v", locked, err)
	}

	holder, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open file: %v", err)
	}
	defer holder.Close()
	if err := unix.Flock(int(holder.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		t.Skipf("flock not supported: %v", err)
	}

	locked, err = osChecker{}.Locked(path)
	if err != nil || !locked {
		t.Errorf("Expected locked file, got locked=%v err=%v", locked, err)
	}

	v := NewClassifier(Options{}).Classify(file(path))
	if v.Safe || !contains(v.Reasons, ReasonLocked) {
		t.Errorf("Expected locked verdict, got %+v", v)
	}
}

func TestOSChecker_Writable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("Skipping permission test when running as root")
	}

	dir := t.TempDir()
	writable, err := osChecker{}.Writable(dir)
	if err != nil || !writable {
		t.Fatalf("Expected writable temp dir, got %v %v", writable, err)
	}

	if err := os.Chmod(dir, 0555); err != nil {
		t.Fatalf("Failed to chmod: %v", err)
	}
	defer os.Chmod(dir, 0755)

	writable, err = osChecker{}.Writable(dir)
	if err != nil || writable {
		t.Errorf("Expected read-only dir, got %v %v", writable, err)
	}
}
