package attachments

import (
	"encoding/json"
	"strings"
)

// KeptSet is the set of blob ids a client wants to keep on update.
type KeptSet map[string]struct{}

// Has reports whether id is kept.
func (k KeptSet) Has(id string) bool {
	_, ok := k[id]
	return ok
}

// ParseKept decodes the keptAttachments form value: a JSON array whose
// items are blob ids or objects with an "id" field. Items of any other
// shape and objects without an id are skipped. A value that is not a JSON
// array yields an empty set and ok=false, so the update removes every
// existing attachment rather than failing.
func ParseKept(raw string) (kept KeptSet, ok bool) {
	kept = KeptSet{}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return kept, true
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return KeptSet{}, false
	}

	for _, item := range items {
		var id string
		if err := json.Unmarshal(item, &id); err == nil {
			if id != "" {
				kept[id] = struct{}{}
			}
			continue
		}

		var obj struct {
			ID *string `json:"id"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		if obj.ID != nil && *obj.ID != "" {
			kept[*obj.ID] = struct{}{}
		}
	}
	return kept, true
}

// Partition splits existing into references to retain and references to
// remove. Both keep the relative order of existing.
func Partition(existing List, kept KeptSet) (retain, remove List) {
	retain = List{}
	remove = List{}
	for _, ref := range existing {
		if kept.Has(ref.ID()) {
			retain = append(retain, ref)
		} else {
			remove = append(remove, ref)
		}
	}
	return retain, remove
}
