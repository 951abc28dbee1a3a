// internal/engine/prepare.go
package engine

import (
	"fmt"
	"strings"

	"quote-engine/internal/models"
)

type preparedQuote struct {
	quote      models.VendorQuote
	excluded   bool
	inputError *models.InputError
	notes      []string
}

// prepare copies the batch, gives every vendor a unique display name and
// decides which quotes cannot take part in ranking.
func prepare(quotes []models.VendorQuote) []preparedQuote {
	used := make(map[string]struct{}, len(quotes))
	out := make([]preparedQuote, len(quotes))

	for i, q := range quotes {
		p := preparedQuote{quote: q.Clone()}

		name := strings.TrimSpace(q.VendorName)
		if name == "" {
			name = fmt.Sprintf("Vendor %d", i+1)
			p.excluded = true
			p.inputError = &models.InputError{Reason: "vendor name is missing"}
		}

		if _, taken := used[strings.ToLower(name)]; taken {
			renamed := uniqueName(name, used)
			p.notes = append(p.notes, fmt.Sprintf("duplicate vendor name %q reported as %q", name, renamed))
			name = renamed
		}
		used[strings.ToLower(name)] = struct{}{}
		p.quote.VendorName = name

		if len(q.Items) == 0 {
			p.excluded = true
			if q.Terms.IsEmpty() && p.inputError == nil {
				p.inputError = &models.InputError{Reason: "quote has no items and no terms"}
			} else {
				p.notes = append(p.notes, "quote has no items; excluded from ranking")
			}
		}

		if p.inputError != nil {
			p.inputError.Vendor = name
			p.notes = append(p.notes, "excluded: "+p.inputError.Reason)
		}
		out[i] = p
	}
	return out
}

func uniqueName(name string, used map[string]struct{}) string {
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", name, n)
		if _, taken := used[strings.ToLower(candidate)]; !taken {
			return candidate
		}
	}
}
