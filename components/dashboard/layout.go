package dashboard

// ResolveSections walks the stored order and returns the visible sections.
// Unknown ids are skipped, hidden ids are filtered without disturbing the
// relative order of the rest, and registered sections missing from the
// stored order are appended in registry default order.
func ResolveSections(order, hidden []string, registry *SectionRegistry) []SectionDefinition {
	if registry == nil {
		return nil
	}
	hiddenSet := make(map[string]struct{}, len(hidden))
	for _, id := range hidden {
		hiddenSet[id] = struct{}{}
	}
	result := make([]SectionDefinition, 0, len(order))
	seen := make(map[string]struct{}, len(order))
	visit := func(id string) {
		if _, dup := seen[id]; dup {
			return
		}
		def, ok := registry.Section(id)
		if !ok {
			return
		}
		seen[id] = struct{}{}
		if _, isHidden := hiddenSet[id]; isHidden {
			return
		}
		result = append(result, def)
	}
	for _, id := range order {
		visit(id)
	}
	for _, id := range registry.DefaultOrder() {
		visit(id)
	}
	return result
}

// completeOrder returns order followed by any registered ids it lacks, so a
// reorder always works over every known section.
func completeOrder(order []string, registry *SectionRegistry) []string {
	out := uniqueIDs(order)
	if registry == nil {
		return out
	}
	present := make(map[string]struct{}, len(out))
	for _, id := range out {
		present[id] = struct{}{}
	}
	for _, id := range registry.DefaultOrder() {
		if _, ok := present[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// visibleOrder filters hidden and unknown ids out of order.
func visibleOrder(order, hidden []string, registry *SectionRegistry) []string {
	defs := ResolveSections(order, hidden, registry)
	ids := make([]string, len(defs))
	for i, def := range defs {
		ids[i] = def.ID
	}
	return ids
}
