package lock

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestAcquirePIDLockWritesPID(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "orchestra-gw.lock")
	l, err := AcquirePIDLock(lockPath)
	if err != nil {
		t.Fatalf("AcquirePIDLock: %v", err)
	}
	t.Cleanup(func() { _ = l.Release() })

	b, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		t.Fatalf("lock file does not hold a PID: %q", b)
	}
	if pid != os.Getpid() {
		t.Fatalf("expected pid %d in lock file, got %d", os.Getpid(), pid)
	}
}

func TestAcquirePIDLockContentionReportsHolder(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "orchestra-gw.lock")
	l, err := AcquirePIDLock(lockPath)
	if err != nil {
		t.Fatalf("AcquirePIDLock: %v", err)
	}
	t.Cleanup(func() { _ = l.Release() })

	// flock is per open file description, so a second open in the
	// same process contends just like a second instance would.
	_, err = AcquirePIDLock(lockPath)
	if !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}
	var held *HeldError
	if !errors.As(err, &held) {
		t.Fatalf("expected *HeldError, got %T", err)
	}
	if held.HolderPID != os.Getpid() {
		t.Fatalf("expected holder pid %d, got %d", os.Getpid(), held.HolderPID)
	}
	if held.Path != lockPath {
		t.Fatalf("expected path %q, got %q", lockPath, held.Path)
	}
	if !strings.Contains(held.Error(), strconv.Itoa(os.Getpid())) {
		t.Fatalf("expected holder pid in message, got %q", held.Error())
	}
}

func TestAcquirePIDLockReleaseAllowsReacquire(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "orchestra-gw.lock")
	l, err := AcquirePIDLock(lockPath)
	if err != nil {
		t.Fatalf("AcquirePIDLock: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("second Release should be a no-op, got %v", err)
	}

	l2, err := AcquirePIDLock(lockPath)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	t.Cleanup(func() { _ = l2.Release() })
}
