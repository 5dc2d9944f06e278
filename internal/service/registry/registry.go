package registry

import (
	"heliowatch/internal/domain/models"
	domsvc "heliowatch/internal/domain/service"
)

// ConfigRegistry is a ModelRegistry loaded once from config at startup.
// Entries are immutable after construction.
type ConfigRegistry struct {
	entries map[models.Instrument]domsvc.RegistryEntry
}

// New builds a registry from config entries, dropping unknown instruments.
func New(entries map[models.Instrument]domsvc.RegistryEntry) *ConfigRegistry {
	kept := make(map[models.Instrument]domsvc.RegistryEntry, len(entries))
	for id, e := range entries {
		if models.IsValidInstrument(id) {
			kept[id] = e
		}
	}
	return &ConfigRegistry{entries: kept}
}

// Lookup returns the registered artifact refs for an instrument, or a
// ModelUnavailableError when none are registered.
func (r *ConfigRegistry) Lookup(id models.Instrument) (domsvc.RegistryEntry, error) {
	e, ok := r.entries[id]
	if !ok {
		return domsvc.RegistryEntry{}, &domsvc.ModelUnavailableError{Instrument: id}
	}
	return e, nil
}

var _ domsvc.ModelRegistry = (*ConfigRegistry)(nil)
