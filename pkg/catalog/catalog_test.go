package catalog

import "testing"

func TestLookup(t *testing.T) {
	cases := []struct {
		name      string
		minerType string
		wantModel string
		wantFound bool
	}{
		{"exact", "Antminer S19", "Antminer S19", true},
		{"longest match wins", "Antminer S19 Pro", "Antminer S19 Pro", true},
		{"suffix noise", "Antminer S19j Pro (Vnish 1.2.0)", "Antminer S19j Pro", true},
		{"legacy model", "Antminer S9", "Antminer S9", true},
		{"t17 plus", "Antminer T17+", "Antminer T17+", true},
		{"unknown", "Whatsminer M30S", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec, found := Lookup(tc.minerType)
			if found != tc.wantFound {
				t.Fatalf("Lookup(%q) found = %v, want %v", tc.minerType, found, tc.wantFound)
			}
			if found && spec.Model != tc.wantModel {
				t.Errorf("Lookup(%q) = %q, want %q", tc.minerType, spec.Model, tc.wantModel)
			}
		})
	}
}

func TestSpecsComplete(t *testing.T) {
	for _, name := range Models() {
		spec, ok := Lookup(name)
		if !ok {
			t.Errorf("Lookup(%q) failed for a catalogued model", name)
			continue
		}
		if spec.ExpectedHashboards == 0 || spec.ExpectedChips == 0 || spec.ExpectedFans == 0 {
			t.Errorf("%s has incomplete expectations: %+v", name, spec)
		}
		if spec.Algorithm == "" {
			t.Errorf("%s has no algorithm", name)
		}
	}
}
