package core

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]ModuleInfo)
)

// RegisterModule adds a module to the global registry, instantiating it
// once to read its ModuleInfo. Modules call this from init, so any
// problem with the info is a programming error and panics.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if info.ID == "" {
		panic("core: RegisterModule: empty module ID")
	}
	if info.New == nil {
		panic(fmt.Sprintf("core: RegisterModule: module %s has a nil New", info.ID))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	id := string(info.ID)
	if _, taken := registry[id]; taken {
		panic(fmt.Sprintf("core: module %s registered twice", id))
	}
	registry[id] = info
}

// GetModule looks up a registered module by ID.
func GetModule(id string) (ModuleInfo, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, ok := registry[id]
	return info, ok
}

// GetModules returns every registered module, sorted by ID.
func GetModules() []ModuleInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	infos := slices.Collect(maps.Values(registry))
	slices.SortFunc(infos, func(a, b ModuleInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return infos
}

// resetRegistry empties the registry between tests.
func resetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]ModuleInfo)
}
