// Package costmodel holds the two documents an indexer-agent cost model is
// made of: the numeric Variables mapping and the opaque model text, plus the
// wire formatting rules for both.
package costmodel

import (
	"encoding/json"
	"strconv"
)

// GlobalCostMultiplierKey is the distinguished variable the bandit loop
// controls. It must be present whenever a PriceBanditLoop is active for the
// owning subgraph.
const GlobalCostMultiplierKey = "GLOBAL_COST_MULTIPLIER"

// DefaultCostKey seeds every freshly-allocated subgraph's variables.
const DefaultCostKey = "DEFAULT_COST"

// DefaultCostValue is the initial value written for DefaultCostKey.
const DefaultCostValue = 50

// Variables is the mapping from Agora variable name to numeric value that
// the indexer-agent stores alongside a subgraph's cost model.
type Variables map[string]float64

// Default returns a fresh Variables map seeded with DEFAULT_COST, the
// minimum an allocation supervisor must write before any bandit tick runs.
func Default() Variables {
	return Variables{DefaultCostKey: DefaultCostValue}
}

// Clone returns a shallow copy so callers can mutate without aliasing the
// original map.
func (v Variables) Clone() Variables {
	out := make(Variables, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// MarshalJSON renders every value with 18 fractional digits, the precision
// the indexer-agent's GraphQL variables string requires.
func (v Variables) MarshalJSON() ([]byte, error) {
	strs := make(map[string]string, len(v))
	for k, val := range v {
		strs[k] = strconv.FormatFloat(val, 'f', 18, 64)
	}
	// Re-marshal through a map[string]json.Number-like string so that the
	// wire form is the formatted decimal text, not a re-rounded float64.
	raw := make(map[string]json.RawMessage, len(strs))
	for k, s := range strs {
		raw[k] = json.RawMessage(s)
	}
	return json.Marshal(raw)
}

// UnmarshalJSON accepts both numeric and string-encoded values, since the
// indexer-agent round-trips whatever it was given.
func (v *Variables) UnmarshalJSON(data []byte) error {
	var raw map[string]json.Number
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Variables, len(raw))
	for k, n := range raw {
		f, err := n.Float64()
		if err != nil {
			return err
		}
		out[k] = f
	}
	*v = out
	return nil
}

// Text is an opaque Agora cost-model document, created by modelbuilder and
// consumed by indexeragent. No other package inspects its contents.
type Text string
