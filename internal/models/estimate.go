package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Estimate is a single card from the estimation deck: either a numeric value
// or the "?" sentinel for "no idea yet".
type Estimate struct {
	Unknown bool
	Value   float64
}

// Deck is the fixed card set clients may vote with.
var Deck = []Estimate{
	{Value: 0}, {Value: 1}, {Value: 2}, {Value: 3}, {Value: 5}, {Value: 8},
	{Value: 13}, {Value: 21}, {Value: 34}, {Value: 55}, {Value: 89},
	{Unknown: true},
}

// UnknownEstimate returns the "?" card.
func UnknownEstimate() Estimate {
	return Estimate{Unknown: true}
}

// NumericEstimate returns the card for a numeric value.
func NumericEstimate(v float64) Estimate {
	return Estimate{Value: v}
}

// InDeck reports whether the estimate is one of the allowed cards.
func (e Estimate) InDeck() bool {
	for _, card := range Deck {
		if e == card {
			return true
		}
	}
	return false
}

func (e Estimate) String() string {
	if e.Unknown {
		return "?"
	}
	return strconv.FormatFloat(e.Value, 'f', -1, 64)
}

// MarshalJSON encodes numeric cards as JSON numbers and the sentinel as "?",
// matching the wire contract exactly.
func (e Estimate) MarshalJSON() ([]byte, error) {
	if e.Unknown {
		return []byte(`"?"`), nil
	}
	return json.Marshal(e.Value)
}

// UnmarshalJSON accepts a JSON number or the string "?". Anything else is
// rejected so a malformed vote never reaches room state.
func (e *Estimate) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case float64:
		*e = Estimate{Value: v}
		return nil
	case string:
		if v == "?" {
			*e = Estimate{Unknown: true}
			return nil
		}
		return fmt.Errorf("invalid estimate %q", v)
	default:
		return fmt.Errorf("invalid estimate type %T", raw)
	}
}
