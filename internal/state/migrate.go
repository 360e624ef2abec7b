package state

import "encoding/json"

// deprecatedFeatureStatus maps old status labels seen in earlier schema
// versions to the current enum, so state files written by a prior cde
// release still load cleanly.
var deprecatedFeatureStatus = map[string]string{
	"planning":    "defining",
	"in_progress": "implementing",
	"review":      "reviewing",
	"done":        "completed",
	"error":       "failed",
}

// migrateProject mutates raw in place, rewriting deprecated feature status
// strings and coercing malformed feature payloads. Returns true if anything
// changed.
func migrateProject(raw map[string]json.RawMessage) bool {
	featuresRaw, ok := raw["features"]
	if !ok {
		return false
	}

	var items []json.RawMessage
	if err := json.Unmarshal(featuresRaw, &items); err != nil {
		return false
	}

	changed := false
	for i, item := range items {
		var asMap map[string]json.RawMessage
		if err := json.Unmarshal(item, &asMap); err != nil {
			// Not a mapping at all: coerce to {prompt: str(payload)}.
			coerced := map[string]interface{}{"prompt": string(item)}
			if rewritten, err := json.Marshal(coerced); err == nil {
				items[i] = rewritten
				changed = true
			}
			continue
		}

		if statusRaw, ok := asMap["status"]; ok {
			var status string
			if json.Unmarshal(statusRaw, &status) == nil {
				if next, isDeprecated := deprecatedFeatureStatus[status]; isDeprecated {
					if rewritten, err := json.Marshal(next); err == nil {
						asMap["status"] = rewritten
						changed = true
					}
				}
			}
		}

		if _, hasUpdated := asMap["updated_at"]; !hasUpdated {
			if created, ok := asMap["created_at"]; ok {
				asMap["updated_at"] = created
				changed = true
			}
		}

		if changed {
			if rewritten, err := json.Marshal(asMap); err == nil {
				items[i] = rewritten
			}
		}
	}

	if changed {
		if rewritten, err := json.Marshal(items); err == nil {
			raw["features"] = rewritten
		}
	}
	return changed
}
