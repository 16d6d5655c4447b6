// Package catalog is the static device catalog: per-model hardware
// attributes that cannot be queried reliably from the firmware itself.
package catalog

import "strings"

// Spec holds the constant attributes of one hardware model.
type Spec struct {
	// Model is the canonical model name, e.g. "Antminer S19 Pro".
	Model string

	// ExpectedHashboards is how many board slots the chassis has.
	ExpectedHashboards int

	// ExpectedChips is the chip count per board for a healthy unit.
	ExpectedChips int

	// ExpectedFans is how many chassis fans the model carries.
	ExpectedFans int

	// Algorithm is the mining algorithm, e.g. "sha256d".
	Algorithm string
}

var specs = []Spec{
	{Model: "Antminer S9", ExpectedHashboards: 3, ExpectedChips: 63, ExpectedFans: 2, Algorithm: "sha256d"},
	{Model: "Antminer T9", ExpectedHashboards: 3, ExpectedChips: 54, ExpectedFans: 2, Algorithm: "sha256d"},
	{Model: "Antminer S17", ExpectedHashboards: 3, ExpectedChips: 48, ExpectedFans: 4, Algorithm: "sha256d"},
	{Model: "Antminer S17 Pro", ExpectedHashboards: 3, ExpectedChips: 48, ExpectedFans: 4, Algorithm: "sha256d"},
	{Model: "Antminer T17", ExpectedHashboards: 3, ExpectedChips: 30, ExpectedFans: 4, Algorithm: "sha256d"},
	{Model: "Antminer T17+", ExpectedHashboards: 3, ExpectedChips: 44, ExpectedFans: 4, Algorithm: "sha256d"},
	{Model: "Antminer S19", ExpectedHashboards: 3, ExpectedChips: 76, ExpectedFans: 4, Algorithm: "sha256d"},
	{Model: "Antminer S19 Pro", ExpectedHashboards: 3, ExpectedChips: 114, ExpectedFans: 4, Algorithm: "sha256d"},
	{Model: "Antminer S19j Pro", ExpectedHashboards: 3, ExpectedChips: 126, ExpectedFans: 4, Algorithm: "sha256d"},
	{Model: "Antminer T19", ExpectedHashboards: 3, ExpectedChips: 76, ExpectedFans: 4, Algorithm: "sha256d"},
}

// Lookup resolves a self-reported miner type string to its spec. The
// reported string often carries extra detail ("Antminer S19 Pro (Vnish...)"),
// so the longest matching model name wins.
func Lookup(minerType string) (Spec, bool) {
	var best Spec
	var found bool
	for _, s := range specs {
		if strings.Contains(minerType, s.Model) {
			if !found || len(s.Model) > len(best.Model) {
				best = s
				found = true
			}
		}
	}
	return best, found
}

// Models lists every catalogued model name.
func Models() []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.Model
	}
	return out
}
