package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sectionIDs(defs []SectionDefinition) []string {
	ids := make([]string, len(defs))
	for i, def := range defs {
		ids[i] = def.ID
	}
	return ids
}

func TestResolveSectionsFollowsStoredOrder(t *testing.T) {
	reg := NewSectionRegistry()
	got := ResolveSections([]string{"activity", "metrics", "revenue", "priority"}, nil, reg)
	assert.Equal(t, []string{"activity", "metrics", "revenue", "priority"}, sectionIDs(got))
}

func TestResolveSectionsSkipsUnknownIDs(t *testing.T) {
	reg := NewSectionRegistry()
	got := ResolveSections([]string{"revenue", "weather", "metrics", "", "revenue"}, nil, reg)
	assert.Equal(t, []string{"revenue", "metrics", "priority", "activity"}, sectionIDs(got))
}

func TestResolveSectionsHidingKeepsRelativeOrder(t *testing.T) {
	reg := NewSectionRegistry()
	order := []string{"revenue", "metrics", "activity", "priority"}
	got := ResolveSections(order, []string{"metrics"}, reg)
	assert.Equal(t, []string{"revenue", "activity", "priority"}, sectionIDs(got))
	assert.Equal(t, []string{"revenue", "metrics", "activity", "priority"}, order)
}

func TestResolveSectionsAppendsUnlistedSections(t *testing.T) {
	reg := NewSectionRegistry()
	require.NoError(t, reg.RegisterSection(SectionDefinition{ID: "leases", Title: "Leases", Position: 15}))
	got := ResolveSections([]string{"activity", "metrics"}, []string{"revenue"}, reg)
	assert.Equal(t, []string{"activity", "metrics", "leases", "priority"}, sectionIDs(got))
}

func TestRegistryDefaults(t *testing.T) {
	reg := NewSectionRegistry()
	assert.Equal(t, DefaultWidgetOrder(), reg.DefaultOrder())
	for _, id := range DefaultWidgetOrder() {
		_, ok := reg.Provider(id)
		assert.True(t, ok, "provider for %s", id)
	}
	prefs := reg.DefaultPreferences()
	assert.Equal(t, DefaultWidgetOrder(), prefs.WidgetOrder)
	assert.Empty(t, prefs.HiddenSections)
	assert.NotNil(t, prefs.HiddenSections)
}

func TestRegistryRejectsInvalidRegistrations(t *testing.T) {
	reg := NewEmptySectionRegistry()
	assert.Error(t, reg.RegisterSection(SectionDefinition{}))
	assert.Error(t, reg.RegisterProvider("", NewActivityProvider(1)))
	assert.Error(t, reg.RegisterProvider("missing", NewActivityProvider(1)))
	require.NoError(t, reg.RegisterSection(SectionDefinition{ID: "notes", Title: "Notes"}))
	assert.Error(t, reg.RegisterProvider("notes", nil))
}

func TestRegistryReRegisterKeepsSlot(t *testing.T) {
	reg := NewEmptySectionRegistry()
	require.NoError(t, reg.RegisterSection(SectionDefinition{ID: "a", Title: "A"}))
	require.NoError(t, reg.RegisterSection(SectionDefinition{ID: "b", Title: "B"}))
	require.NoError(t, reg.RegisterSection(SectionDefinition{ID: "a", Title: "A2"}))
	assert.Equal(t, []string{"a", "b"}, reg.DefaultOrder())
	def, _ := reg.Section("a")
	assert.Equal(t, "A2", def.Title)
}

func TestRegisterSectionHookAppliesToNewRegistries(t *testing.T) {
	globalHookMu.Lock()
	saved := globalHooks
	globalHookMu.Unlock()
	t.Cleanup(func() {
		globalHookMu.Lock()
		globalHooks = saved
		globalHookMu.Unlock()
	})

	RegisterSectionHook(func(reg *SectionRegistry) error {
		if err := reg.RegisterSection(SectionDefinition{ID: "vacancies", Title: "Vacancies", Position: 50}); err != nil {
			return err
		}
		return reg.RegisterProvider("vacancies", ProviderFunc(func(context.Context, SectionContext) (SectionData, error) {
			return SectionData{"count": 3}, nil
		}))
	})
	reg := NewSectionRegistry()
	_, ok := reg.Provider("vacancies")
	assert.True(t, ok)
	assert.Equal(t, "vacancies", reg.DefaultOrder()[4])

	RegisterSectionHook(func(*SectionRegistry) error { return errors.New("hook failed") })
	assert.Error(t, NewEmptySectionRegistry().ApplyHooks())
}
