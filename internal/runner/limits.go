package runner

// Limits caps the resources of the child process. Zero fields are left at
// the inherited value. Limits are only enforced on Linux.
type Limits struct {
	MemoryBytes uint64
	CPUSeconds  uint64
	OpenFiles   uint64
	Processes   uint64
}

// IsZero reports whether no limit is configured.
func (l Limits) IsZero() bool {
	return l == Limits{}
}
