package telemetry

import "testing"

func TestNum(t *testing.T) {
	m := map[string]any{
		"float":  63.0,
		"string": "4521.33",
		"bad":    "not a number",
		"bool":   true,
	}

	if v, ok := Num(m, "float"); !ok || v != 63.0 {
		t.Errorf("Num(float) = %v, %v", v, ok)
	}
	// Legacy firmware emits some numerics as strings.
	if v, ok := Num(m, "string"); !ok || v != 4521.33 {
		t.Errorf("Num(string) = %v, %v", v, ok)
	}
	if _, ok := Num(m, "bad"); ok {
		t.Error("Num coerced a non-numeric string")
	}
	if _, ok := Num(m, "bool"); ok {
		t.Error("Num coerced a bool")
	}
	if _, ok := Num(m, "absent"); ok {
		t.Error("Num found an absent key")
	}
	if _, ok := Num(nil, "x"); ok {
		t.Error("Num read from a nil map")
	}
}

func TestListAndMapAt(t *testing.T) {
	m := map[string]any{
		"chains": []any{map[string]any{"index": 0.0}, "not a map"},
	}

	l, ok := List(m, "chains")
	if !ok || len(l) != 2 {
		t.Fatalf("List = %v, %v", l, ok)
	}
	if rec, ok := MapAt(l, 0); !ok || rec["index"] != 0.0 {
		t.Errorf("MapAt(0) = %v, %v", rec, ok)
	}
	if _, ok := MapAt(l, 1); ok {
		t.Error("MapAt accepted a non-map element")
	}
	if _, ok := MapAt(l, 5); ok {
		t.Error("MapAt accepted an out-of-range index")
	}
	if _, ok := MapAt(l, -1); ok {
		t.Error("MapAt accepted a negative index")
	}
}

func TestNums(t *testing.T) {
	got := Nums([]any{0.0, 55.0, "57", nil, "junk", true})
	want := []float64{0, 55, 57}
	if len(got) != len(want) {
		t.Fatalf("Nums = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Nums[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
