package dashboard

const maxSectionIDs = 64

var defaultSectionDefinitions = []SectionDefinition{
	{
		ID:          SectionMetrics,
		Title:       "Overview",
		Description: "Portfolio totals, occupancy and revenue for the selected range",
		Position:    10,
	},
	{
		ID:          SectionPriority,
		Title:       "Priority",
		Description: "Pending maintenance and overdue payments",
		Position:    20,
	},
	{
		ID:          SectionRevenue,
		Title:       "Revenue",
		Description: "Six-month revenue and collected payments",
		Position:    30,
	},
	{
		ID:          SectionActivity,
		Title:       "Recent Activity",
		Description: "Latest tenants, requests and properties",
		Position:    40,
	},
}

// DefaultSectionDefinitions returns the built-in sections in default order.
func DefaultSectionDefinitions() []SectionDefinition {
	return append([]SectionDefinition(nil), defaultSectionDefinitions...)
}

// preferencesSchema bounds both preference lists to unique, non-empty ids.
func preferencesSchema() map[string]any {
	idList := map[string]any{
		"type":        "array",
		"uniqueItems": true,
		"maxItems":    maxSectionIDs,
		"items": map[string]any{
			"type":      "string",
			"minLength": 1,
			"maxLength": 128,
		},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"widget_order":    idList,
			"hidden_sections": idList,
		},
	}
}
