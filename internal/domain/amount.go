package domain

import (
	"encoding/json"

	"github.com/andresuchdata/recipecost/internal/normalize"
)

// Amount is a weight, price or quantity taken from free-text form input.
// Decoding accepts JSON numbers, numeric strings with '.' or ',' decimals,
// null and "". Anything unparseable decodes to 0.
type Amount float64

// Float returns the amount as a finite float64.
func (a Amount) Float() float64 {
	return normalize.Finite(float64(a))
}

// IsSet reports whether the amount carries a non-zero value.
func (a Amount) IsSet() bool {
	return a.Float() != 0
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*a = 0
		return nil
	}
	*a = Amount(normalize.ToNumber(raw))
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Float())
}
