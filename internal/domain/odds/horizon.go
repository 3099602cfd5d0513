package odds

// Horizon collects the distinct match dates seen while scanning provider
// responses, regardless of the requested date.
type Horizon map[string]struct{}

func (h Horizon) Observe(g Game) {
	if day, ok := g.Date(); ok {
		h[day] = struct{}{}
	}
}

// Union adds every date of other into h.
func (h Horizon) Union(other Horizon) {
	for day := range other {
		h[day] = struct{}{}
	}
}

// Next returns the smallest observed date that is not before from.
// ISO dates order correctly as strings.
func (h Horizon) Next(from string) *string {
	var next string
	found := false
	for day := range h {
		if day < from {
			continue
		}
		if !found || day < next {
			next = day
			found = true
		}
	}
	if !found {
		return nil
	}
	return &next
}
