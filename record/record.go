package record

import (
	"fmt"
	"maps"
	"strings"

	"github.com/tbxark/civicdesk/registry"
)

// ZeroIsEmpty makes a numeric zero count as unset, so a numeric field holding 0
// is asked again.
const ZeroIsEmpty = true

// Record holds the validated answers collected so far for one kind.
type Record struct {
	Kind   registry.Kind  `json:"kind"`
	Values map[string]any `json:"values"`
}

func New(kind registry.Kind) Record {
	return Record{Kind: kind, Values: map[string]any{}}
}

// Clone returns a deep enough copy for the flat value map.
func (r Record) Clone() Record {
	values := make(map[string]any, len(r.Values))
	maps.Copy(values, r.Values)
	return Record{Kind: r.Kind, Values: values}
}

func (r Record) Get(field string) (any, bool) {
	v, ok := r.Values[field]
	if !ok || IsEmpty(v) {
		return nil, false
	}
	return v, true
}

// IsEmpty reports whether v counts as an unset field value.
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case float64:
		return ZeroIsEmpty && val == 0
	case float32:
		return ZeroIsEmpty && val == 0
	case int:
		return ZeroIsEmpty && val == 0
	case int64:
		return ZeroIsEmpty && val == 0
	default:
		return false
	}
}

// Missing returns the empty fields of r in declaration order.
func Missing(r Record) []registry.FieldSpec {
	var missing []registry.FieldSpec
	for _, f := range registry.Fields(r.Kind) {
		if _, ok := r.Get(f.Name); !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

func Complete(r Record) bool {
	return len(Missing(r)) == 0
}

// Summary lists the filled fields as "Label: value" lines in declaration order.
func Summary(r Record) string {
	var sb strings.Builder
	for _, f := range registry.Fields(r.Kind) {
		v, ok := r.Get(f.Name)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", f.Label, FormatValue(v))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatValue renders a stored value the way it is shown to citizens.
func FormatValue(v any) string {
	switch val := v.(type) {
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%.2f", val)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
