package merge

// Attribute keys used to retain history across merges. Prior values of
// overwritten single-valued attributes are kept under provenance; keys whose
// values disagreed are flagged rather than silently dropped.
const (
	provenanceKey = "_provenance"
	conflictsKey  = "_conflicts"
)

// reconcileAttributes folds incoming attributes into existing ones.
// Single-valued attributes: most recently observed wins, with the prior
// value retained under provenance. Multi-valued attributes: set union.
// Scalar disagreements are additionally flagged under the conflicts key.
func reconcileAttributes(existing, incoming map[string]interface{}) map[string]interface{} {
	if existing == nil {
		existing = map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(existing)+len(incoming))
	for k, v := range existing {
		out[k] = v
	}

	for k, newVal := range incoming {
		if k == provenanceKey || k == conflictsKey {
			continue
		}

		oldVal, had := out[k]
		if !had {
			out[k] = newVal
			continue
		}

		oldList, oldIsList := oldVal.([]interface{})
		newList, newIsList := newVal.([]interface{})
		if oldIsList || newIsList {
			if !oldIsList {
				oldList = []interface{}{oldVal}
			}
			if !newIsList {
				newList = []interface{}{newVal}
			}
			out[k] = unionValues(oldList, newList)
			continue
		}

		if oldVal == newVal {
			continue
		}

		// Scalar disagreement: newest observation wins, prior value kept.
		recordProvenance(out, k, oldVal)
		flagConflict(out, k)
		out[k] = newVal
	}

	return out
}

func unionValues(a, b []interface{}) []interface{} {
	seen := make(map[interface{}]bool, len(a)+len(b))
	out := make([]interface{}, 0, len(a)+len(b))
	for _, list := range [][]interface{}{a, b} {
		for _, v := range list {
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func recordProvenance(attrs map[string]interface{}, key string, prior interface{}) {
	prov, _ := attrs[provenanceKey].(map[string]interface{})
	if prov == nil {
		prov = map[string]interface{}{}
	}
	history, _ := prov[key].([]interface{})
	prov[key] = append(history, prior)
	attrs[provenanceKey] = prov
}

func flagConflict(attrs map[string]interface{}, key string) {
	flags, _ := attrs[conflictsKey].([]interface{})
	for _, f := range flags {
		if f == key {
			return
		}
	}
	attrs[conflictsKey] = append(flags, key)
}
