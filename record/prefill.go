package record

import (
	"log/slog"

	"github.com/tbxark/civicdesk/registry"
)

// Prefill writes every non-empty incoming value through Apply, in declaration
// order, and returns the names of the accepted fields. Unknown keys and rejected
// values are skipped.
func Prefill(r Record, values map[string]any) (Record, []string) {
	var accepted []string
	for _, f := range registry.Fields(r.Kind) {
		raw, ok := values[f.Name]
		if !ok || IsEmpty(raw) {
			continue
		}
		next, err := ApplyValue(r, f.Name, raw)
		if err != nil {
			slog.Debug("prefill value rejected", "kind", r.Kind, "field", f.Name, "error", err)
			continue
		}
		r = next
		accepted = append(accepted, f.Name)
	}
	return r, accepted
}
