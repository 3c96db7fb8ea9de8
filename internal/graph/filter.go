package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Filter is a subset-match predicate over attributes. Every key named in
// the filter is either required to equal a value or required to be absent.
// Keys the filter does not name are ignored.
type Filter struct {
	equals Attributes
	absent map[string]struct{}
}

// Match builds a filter requiring each key of attrs to be present with an
// equal value. A nil or empty map matches everything.
func Match(attrs Attributes) Filter {
	return Filter{equals: attrs.Clone()}
}

// MatchAll returns the filter that accepts every vertex
func MatchAll() Filter { return Filter{} }

// FilterFrom builds a filter from a generic map as decoded from JSON or YAML.
// nil values are dropped and therefore mean "don't care".
func FilterFrom(m map[string]interface{}) Filter {
	return Match(AttributesFrom(m))
}

// Where adds an equality clause and returns the extended filter
func (f Filter) Where(key string, v Value) Filter {
	out := f.clone()
	delete(out.absent, key)
	out.equals[key] = v
	return out
}

// Missing adds a clause requiring key to be absent
func (f Filter) Missing(key string) Filter {
	out := f.clone()
	delete(out.equals, key)
	out.absent[key] = struct{}{}
	return out
}

// Empty reports whether the filter has no clauses
func (f Filter) Empty() bool {
	return len(f.equals) == 0 && len(f.absent) == 0
}

// Matches applies the filter to an attribute map
func (f Filter) Matches(attrs Attributes) bool {
	for k, want := range f.equals {
		got, ok := attrs[k]
		if !ok || !got.Equal(want) {
			return false
		}
	}
	for k := range f.absent {
		if _, ok := attrs[k]; ok {
			return false
		}
	}
	return true
}

// String renders the filter with clauses sorted by key. Each clause is in
// the form ParseFilter accepts: string values that would not parse back
// unchanged are written as JSON strings. Keys are written as-is.
func (f Filter) String() string {
	if f.Empty() {
		return "{}"
	}
	var parts []string
	for _, k := range f.equals.Keys() {
		v := f.equals[k]
		if s, ok := v.Str(); ok {
			parts = append(parts, fmt.Sprintf("%s=%s", k, clauseValue(s)))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%s", k, v.String()))
		}
	}
	absent := make([]string, 0, len(f.absent))
	for k := range f.absent {
		absent = append(absent, "!"+k)
	}
	sort.Strings(absent)
	parts = append(parts, absent...)
	return "{" + strings.Join(parts, ", ") + "}"
}

// clauseValue writes s so that ParseFilter reads back the same string
func clauseValue(s string) string {
	if s == strings.TrimSpace(s) && !strings.Contains(s, ", ") && ParseValue(s).Equal(String(s)) {
		return s
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func (f Filter) clone() Filter {
	out := Filter{
		equals: f.equals.Clone(),
		absent: make(map[string]struct{}, len(f.absent)),
	}
	for k := range f.absent {
		out.absent[k] = struct{}{}
	}
	return out
}

// ParseFilter parses clauses of the form "key=value" or "!key".
// Values go through ParseValue, so is_deleted=false is a boolean and
// type=nova.host a string. Quote a value to force a string: id="42".
func ParseFilter(clauses []string) (Filter, error) {
	f := Filter{equals: Attributes{}, absent: map[string]struct{}{}}
	for _, c := range clauses {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if strings.HasPrefix(c, "!") {
			key := strings.TrimSpace(c[1:])
			if key == "" {
				return Filter{}, fmt.Errorf("invalid filter clause %q: empty key", c)
			}
			f = f.Missing(key)
			continue
		}
		key, raw, ok := strings.Cut(c, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return Filter{}, fmt.Errorf("invalid filter clause %q: want key=value or !key", c)
		}
		f = f.Where(key, ParseValue(strings.TrimSpace(raw)))
	}
	return f, nil
}
