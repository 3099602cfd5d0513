package odds

import "sort"

// MatchBook accumulates prices for one league across all of its region
// responses. It is not safe for concurrent use; callers merge sequentially.
type MatchBook struct {
	date    string
	entries map[MatchIdentity]OddsTriple
}

func NewMatchBook(date string) *MatchBook {
	return &MatchBook{
		date:    date,
		entries: make(map[MatchIdentity]OddsTriple),
	}
}

// Add folds one game into the book when it kicks off on the book date.
// Partial triples are kept so that a later region can complete them.
// It reports whether the game was priced into the book.
func (b *MatchBook) Add(g Game) bool {
	day, ok := g.Date()
	if !ok || day != b.date {
		return false
	}
	if g.HomeTeam == "" || g.AwayTeam == "" {
		return false
	}

	prices, _ := BestPrices(g)
	id := g.Identity()
	b.entries[id] = b.entries[id].Merge(prices)
	return true
}

// Prices returns the accumulated triple for a match.
func (b *MatchBook) Prices(id MatchIdentity) (OddsTriple, bool) {
	prices, ok := b.entries[id]
	return prices, ok
}

// Matches returns complete matches ordered by kickoff, then home team.
func (b *MatchBook) Matches() []Match {
	out := make([]Match, 0, len(b.entries))
	for id, prices := range b.entries {
		if !prices.Complete() {
			continue
		}
		out = append(out, Match{
			Home:    id.HomeTeam,
			Away:    id.AwayTeam,
			UTCDate: id.Kickoff,
			Odds:    prices,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UTCDate != out[j].UTCDate {
			return out[i].UTCDate < out[j].UTCDate
		}
		if out[i].Home != out[j].Home {
			return out[i].Home < out[j].Home
		}
		return out[i].Away < out[j].Away
	})
	return out
}
