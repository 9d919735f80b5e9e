package dashboard

import (
	"fmt"
	"sort"
	"sync"
)

// SectionHook lets packages register sections/providers during init().
type SectionHook func(reg *SectionRegistry) error

var (
	globalHookMu sync.Mutex
	globalHooks  []SectionHook
)

// RegisterSectionHook registers a hook executed against new registries.
func RegisterSectionHook(h SectionHook) {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	globalHooks = append(globalHooks, h)
}

// SectionRegistry maps stable section ids to definitions and providers.
type SectionRegistry struct {
	mu          sync.RWMutex
	definitions map[string]SectionDefinition
	providers   map[string]Provider
	sequence    map[string]int
	next        int
}

// NewSectionRegistry builds a registry holding the built-in sections and
// applies global hooks.
func NewSectionRegistry() *SectionRegistry {
	reg := NewEmptySectionRegistry()
	reg.registerDefaults()
	_ = reg.ApplyHooks()
	return reg
}

// NewEmptySectionRegistry builds a registry without built-ins or hooks.
func NewEmptySectionRegistry() *SectionRegistry {
	return &SectionRegistry{
		definitions: map[string]SectionDefinition{},
		providers:   map[string]Provider{},
		sequence:    map[string]int{},
	}
}

func (r *SectionRegistry) registerDefaults() {
	providers := defaultProviders()
	for _, def := range DefaultSectionDefinitions() {
		_ = r.RegisterSection(def)
		if provider, ok := providers[def.ID]; ok {
			_ = r.RegisterProvider(def.ID, provider)
		}
	}
}

// ApplyHooks executes registered section hooks.
func (r *SectionRegistry) ApplyHooks() error {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	for _, hook := range globalHooks {
		if err := hook(r); err != nil {
			return err
		}
	}
	return nil
}

// RegisterSection stores section metadata. Re-registering an id replaces its
// metadata but keeps its original registration slot.
func (r *SectionRegistry) RegisterSection(def SectionDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("dashboard: section id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sequence[def.ID]; !ok {
		r.sequence[def.ID] = r.next
		r.next++
	}
	r.definitions[def.ID] = def
	return nil
}

// RegisterProvider associates a provider implementation with a section.
func (r *SectionRegistry) RegisterProvider(id string, provider Provider) error {
	if id == "" {
		return fmt.Errorf("dashboard: section id is required to register provider")
	}
	if provider == nil {
		return fmt.Errorf("dashboard: provider cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.definitions[id]; !ok {
		return fmt.Errorf("dashboard: section %s not found", id)
	}
	r.providers[id] = provider
	return nil
}

// Section fetches a section definition by id.
func (r *SectionRegistry) Section(id string) (SectionDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[id]
	return def, ok
}

// Provider fetches a section provider by id.
func (r *SectionRegistry) Provider(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.providers[id]
	return provider, ok
}

// Sections returns all registered definitions in default order: by Position,
// then registration order.
func (r *SectionRegistry) Sections() []SectionDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]SectionDefinition, 0, len(r.definitions))
	for _, def := range r.definitions {
		defs = append(defs, def)
	}
	sort.SliceStable(defs, func(i, j int) bool {
		if defs[i].Position != defs[j].Position {
			return defs[i].Position < defs[j].Position
		}
		return r.sequence[defs[i].ID] < r.sequence[defs[j].ID]
	})
	return defs
}

// DefaultOrder lists section ids in default order.
func (r *SectionRegistry) DefaultOrder() []string {
	defs := r.Sections()
	ids := make([]string, len(defs))
	for i, def := range defs {
		ids[i] = def.ID
	}
	return ids
}

// DefaultPreferences is the record used when a viewer has none stored.
func (r *SectionRegistry) DefaultPreferences() Preferences {
	prefs := Preferences{
		WidgetOrder:    []string{},
		HiddenSections: []string{},
	}
	for _, def := range r.Sections() {
		prefs.WidgetOrder = append(prefs.WidgetOrder, def.ID)
		if def.DefaultHidden {
			prefs.HiddenSections = append(prefs.HiddenSections, def.ID)
		}
	}
	return prefs
}
