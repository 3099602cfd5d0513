package odds

import (
	"math"
	"strings"
)

// OddsTriple holds the best decimal price per 1X2 outcome.
// Zero means the outcome has not been observed yet.
type OddsTriple struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// Complete reports whether all three outcomes have a price.
func (t OddsTriple) Complete() bool {
	return t.Home > 0 && t.Draw > 0 && t.Away > 0
}

// Merge keeps the higher price per outcome. It is commutative and
// associative with the zero triple as identity.
func (t OddsTriple) Merge(other OddsTriple) OddsTriple {
	return OddsTriple{
		Home: math.Max(t.Home, other.Home),
		Draw: math.Max(t.Draw, other.Draw),
		Away: math.Max(t.Away, other.Away),
	}
}

// BestPrices reduces every head-to-head market of a game to the maximum
// price per outcome. Outcomes are matched to the home and away team by
// exact name; the draw is matched case-insensitively. Prices that are not
// finite positive numbers are skipped. The second result reports whether
// the triple is complete.
func BestPrices(g Game) (OddsTriple, bool) {
	var best OddsTriple
	for _, bookmaker := range g.Bookmakers {
		for _, market := range bookmaker.Markets {
			if market.Key != MarketHeadToHead {
				continue
			}
			for _, outcome := range market.Outcomes {
				price := outcome.Price
				if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
					continue
				}

				switch {
				case outcome.Name == g.HomeTeam:
					best.Home = math.Max(best.Home, price)
				case outcome.Name == g.AwayTeam:
					best.Away = math.Max(best.Away, price)
				case strings.EqualFold(outcome.Name, drawOutcomeName):
					best.Draw = math.Max(best.Draw, price)
				}
			}
		}
	}

	return best, best.Complete()
}
