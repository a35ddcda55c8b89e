//go:build linux

package runner

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// applyLimits sets rlimits on the already started child. The child runs
// unrestricted for the short window between start and prlimit.
func applyLimits(pid int, limits Limits) error {
	if limits.IsZero() {
		return nil
	}
	set := []struct {
		resource int
		value    uint64
		name     string
	}{
		{unix.RLIMIT_AS, limits.MemoryBytes, "address space"},
		{unix.RLIMIT_CPU, limits.CPUSeconds, "cpu"},
		{unix.RLIMIT_NOFILE, limits.OpenFiles, "open files"},
		{unix.RLIMIT_NPROC, limits.Processes, "processes"},
	}
	for _, s := range set {
		if s.value == 0 {
			continue
		}
		rlim := &unix.Rlimit{Cur: s.value, Max: s.value}
		if err := unix.Prlimit(pid, s.resource, rlim, nil); err != nil {
			return fmt.Errorf("prlimit %s: %w", s.name, err)
		}
	}
	return nil
}
