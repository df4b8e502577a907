package credentials

import "sync"

// defaultCells memoizes the env-resolved default credential per provider
// type so that repeated provider construction (e.g. one adapter instance
// per request) does not re-read the environment every time.
var (
	defaultCellsMu sync.Mutex
	defaultCells   = map[string]*defaultCell{}
)

type defaultCell struct {
	once  sync.Once
	value Credential
}

// ResolveDefault returns the process-wide cached credential for a provider
// type's default environment variable, resolving it at most once. Distinct
// provider types (or the same type configured with different env var
// names) get independent cells.
func ResolveDefault(providerType, envVar string) Credential {
	key := providerType + ":" + envVar
	defaultCellsMu.Lock()
	cell, ok := defaultCells[key]
	if !ok {
		cell = &defaultCell{}
		defaultCells[key] = cell
	}
	defaultCellsMu.Unlock()

	cell.once.Do(func() {
		cell.value = Resolve(providerType, Env{Variable: envVar})
	})
	return cell.value
}

// resetDefaultCellsForTest clears the memoization cache. Test-only.
func resetDefaultCellsForTest() {
	defaultCellsMu.Lock()
	defer defaultCellsMu.Unlock()
	defaultCells = map[string]*defaultCell{}
}
