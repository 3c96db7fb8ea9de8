package graph

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValue_EqualIsKindSensitive(t *testing.T) {
	tests := []struct {
		a, b Value
		want bool
	}{
		{String("a"), String("a"), true},
		{String("1"), Int(1), false},
		{Bool(false), String("false"), false},
		{Bool(false), Bool(false), true},
		{Number(1.5), Number(1.5), true},
		{Int(0), Bool(false), false},
	}
	for _, tt := range tests {
		if got := tt.a.Equal(tt.b); got != tt.want {
			t.Errorf("%#v.Equal(%#v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestValue_JSON(t *testing.T) {
	attrs := Attributes{"s": String("x"), "n": Number(2.5), "b": Bool(true)}
	data, err := json.Marshal(attrs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"b":true,"n":2.5,"s":"x"}` {
		t.Errorf("unexpected JSON: %s", data)
	}

	var back Attributes
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(attrs) {
		t.Errorf("got %v, want %v", back, attrs)
	}

	var v Value
	if err := json.Unmarshal([]byte(`null`), &v); err == nil {
		t.Error("null should not decode into a Value")
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{"false", Bool(false)},
		{"true", Bool(true)},
		{"42", Int(42)},
		{"-1.5", Number(-1.5)},
		{"nova.host", String("nova.host")},
		{`"42"`, String("42")},
		{"", String("")},
		{"1 2", String("1 2")},
		{`{"a":1}`, String(`{"a":1}`)},
	}
	for _, tt := range tests {
		if got := ParseValue(tt.in); !got.Equal(tt.want) {
			t.Errorf("ParseValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestFromAny_NestedBecomesJSONText(t *testing.T) {
	v, ok := FromAny(map[string]interface{}{"k": "v"})
	if !ok {
		t.Fatal("maps should be accepted")
	}
	if s, isStr := v.Str(); !isStr || s != `{"k":"v"}` {
		t.Errorf("got %#v", v)
	}
	if _, ok := FromAny(nil); ok {
		t.Error("nil should be rejected")
	}
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter([]string{"category=RESOURCE", "is_deleted=false", "!state", " "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	match := Attributes{"category": String("RESOURCE"), "is_deleted": Bool(false), "type": String("x")}
	if !f.Matches(match) {
		t.Errorf("%s should match %v", f, match)
	}

	withState := match.Clone()
	withState["state"] = String("ok")
	if f.Matches(withState) {
		t.Errorf("%s should reject a vertex that has state", f)
	}

	stringly := match.Clone()
	stringly["is_deleted"] = String("false")
	if f.Matches(stringly) {
		t.Errorf("%s should not coerce \"false\" to false", f)
	}

	if got := f.String(); got != "{category=RESOURCE, is_deleted=false, !state}" {
		t.Errorf("unexpected String(): %s", got)
	}
}

func TestParseFilter_Errors(t *testing.T) {
	for _, clause := range []string{"novalue", "=x", "!"} {
		if _, err := ParseFilter([]string{clause}); err == nil {
			t.Errorf("expected error for %q", clause)
		}
	}
}

func TestFilter_StringRoundTrip(t *testing.T) {
	f := MatchAll().Where("id", String("42")).Where("n", Int(42))
	if got := f.String(); got != `{id="42", n=42}` {
		t.Errorf("unexpected String(): %s", got)
	}
	parsed, err := ParseFilter([]string{`id="42"`, "n=42"})
	if err != nil {
		t.Fatal(err)
	}
	attrs := Attributes{"id": String("42"), "n": Int(42)}
	if !parsed.Matches(attrs) || !f.Matches(attrs) {
		t.Errorf("both filters should match %v", attrs)
	}
}

func TestFilterFrom_DropsNil(t *testing.T) {
	f := FilterFrom(map[string]interface{}{"type": "nova.host", "state": nil})
	if !f.Matches(Attributes{"type": String("nova.host")}) {
		t.Error("nil filter value should mean don't care")
	}
}

func TestFilter_WhereOverridesMissing(t *testing.T) {
	f := MatchAll().Missing("k").Where("k", Int(1))
	if !f.Matches(Attributes{"k": Int(1)}) {
		t.Error("later Where should replace the Missing clause")
	}
	f = f.Missing("k")
	if f.Matches(Attributes{"k": Int(1)}) {
		t.Error("later Missing should replace the Where clause")
	}
}

func TestFilter_StringQuotesAmbiguousStrings(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"nova.host", "k=nova.host"},
		{"42", `k="42"`},
		{"true", `k="true"`},
		{`say "hi"`, `k=say "hi"`},
		{" padded ", `k=" padded "`},
		{"a, b", `k="a, b"`},
		{`"quoted"`, `k="\"quoted\""`},
		{"<tag>", "k=<tag>"},
	}
	for _, tt := range tests {
		f := MatchAll().Where("k", String(tt.value))
		rendered := f.String()
		if rendered != "{"+tt.want+"}" {
			t.Errorf("String() for %q = %s, want {%s}", tt.value, rendered, tt.want)
		}

		clause := strings.TrimSuffix(strings.TrimPrefix(rendered, "{"), "}")
		parsed, err := ParseFilter([]string{clause})
		if err != nil {
			t.Fatalf("ParseFilter(%q): %v", clause, err)
		}
		attrs := Attributes{"k": String(tt.value)}
		if !parsed.Matches(attrs) {
			t.Errorf("clause %s should read back as %q", clause, tt.value)
		}
	}
}

func TestValue_Accessors(t *testing.T) {
	if b, ok := Bool(true).Boolean(); !ok || !b {
		t.Errorf("Bool(true).Boolean() = %v, %v", b, ok)
	}
	if _, ok := String("true").Boolean(); ok {
		t.Error("a string is not a bool")
	}
	if n, ok := Int(3).Num(); !ok || n != 3 {
		t.Errorf("Int(3).Num() = %v, %v", n, ok)
	}

	attrs := Attributes{"state": String("ok")}
	if v, ok := attrs.Get("state"); !ok || !v.Equal(String("ok")) {
		t.Errorf("Get(state) = %v, %v", v, ok)
	}
	if _, ok := attrs.Get("missing"); ok {
		t.Error("Get should report a missing key")
	}
}
