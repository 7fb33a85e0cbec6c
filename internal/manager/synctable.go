package manager

// SyncTable carries the options of one synchronization pass.
// The zero value is an ordinary incremental pass.
type SyncTable struct {
	// ContentUnsync drops every resolved reference target.
	ContentUnsync bool `yaml:"content_unsync" json:"content_unsync"`

	// Resync forces re-resolution even of cached references.
	Resync bool `yaml:"resync" json:"resync"`

	// RuntimeClear forces re-derivation of runtime-only state.
	RuntimeClear bool `yaml:"runtime_clear" json:"runtime_clear"`

	// DependencyDataClear forces re-resolution of dependency data.
	DependencyDataClear bool `yaml:"dependency_data_clear" json:"dependency_data_clear"`

	// DeleteOnMemoryPresent clears the in-memory set before a full reload.
	DeleteOnMemoryPresent bool `yaml:"delete_on_memory_present" json:"delete_on_memory_present"`
}

// bypassesCache reports whether a pass must look past already-synched
// references.
func (t SyncTable) bypassesCache() bool {
	return t.Resync || t.RuntimeClear || t.DependencyDataClear
}
