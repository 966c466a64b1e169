package renderer

import (
	"encoding/json"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/fsa"
)

// Query evaluates a JSONPath expression on the JSON form of the report.
//
// For instance "$.liquidity.current" or `$.rows[?(@.label == "Cash")].growth`.
func Query(r *fsa.Report, expr string) (any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("could not encode report: %w", err)
	}
	var jobj any
	if err := json.Unmarshal(data, &jobj); err != nil {
		return nil, fmt.Errorf("could not decode report: %w", err)
	}
	v, err := jsonpath.Get(expr, jobj)
	if err != nil {
		return nil, fmt.Errorf("error evaluating %q: %w", expr, err)
	}
	return v, nil
}

// FormatValue prints a Query result: strings as is, anything else as JSON.
func FormatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
