package agent

import (
	"context"
	"fmt"

	"github.com/etnz/fsa"
	"google.golang.org/genai"
)

// Tools returns the functions a chat can call to look into r.
func Tools(r *fsa.Report) []Function {
	return []Function{lineItem(r), liquidity(r)}
}

type lineItemOutput struct {
	Label        string  `json:"label"`
	Prior        float64 `json:"prior"`
	Current      float64 `json:"current"`
	Growth       float64 `json:"growth_percent"`
	PriorShare   float64 `json:"prior_share_percent"`
	CurrentShare float64 `json:"current_share_percent"`
}

func lineItem(r *fsa.Report) Function {
	const name = "LineItem"
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: name,
			Description: `LineItem returns the figures of the line items of the statement whose label contains the given text,
			ignoring case: prior and current year values, growth rate and share of total assets in percent.`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"label": {
						Type:        genai.TypeString,
						Description: "Text to look for in the line item labels, for instance 'Tiền' or 'inventories'.",
					},
				},
				Required: []string{"label"},
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			label, ok := args["label"].(string)
			if !ok || label == "" {
				return failure(id, name, fmt.Errorf("argument 'label' must be a non empty string, got %T", args["label"]))
			}
			m := fsa.NewMatcher(label)
			var items []lineItemOutput
			for _, d := range r.Rows {
				if !m.Match(d.Label) {
					continue
				}
				items = append(items, lineItemOutput{
					Label:        d.Label,
					Prior:        d.Prior,
					Current:      d.Current,
					Growth:       float64(d.Growth),
					PriorShare:   float64(d.PriorShare),
					CurrentShare: float64(d.CurrentShare),
				})
			}
			if len(items) == 0 {
				return failure(id, name, fmt.Errorf("no line item matches %q", label))
			}
			return success(id, name, items)
		},
	}
}

func liquidity(r *fsa.Report) Function {
	const name = "Liquidity"
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: name,
			Description: `Liquidity returns the current ratio (current assets / current liabilities) of both years
			and its change. A ratio is "N/A" when the statement lacks one of the two line items.`,
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			l := r.Liquidity
			return success(id, name, map[string]string{
				"prior":   l.Prior.String(),
				"current": l.Current.String(),
				"delta":   l.Delta().SignedString(),
			})
		},
	}
}
