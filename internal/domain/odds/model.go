package odds

import "github.com/riskibarqy/best-odds/internal/domain/league"

const (
	// MarketHeadToHead is the provider market key for 1X2 prices.
	MarketHeadToHead = "h2h"
	// FormatDecimal is the only odds format requested from the provider.
	FormatDecimal = "decimal"

	drawOutcomeName = "draw"
	dateLength      = len("2006-01-02")
)

// Game is one provider event record: a single region's bookmaker view of a match.
type Game struct {
	ID           string
	SportKey     string
	CommenceTime string
	HomeTeam     string
	AwayTeam     string
	Bookmakers   []Bookmaker
}

type Bookmaker struct {
	Key     string
	Title   string
	Markets []Market
}

type Market struct {
	Key      string
	Outcomes []RawOutcome
}

// RawOutcome is a priced selection. Price is NaN when the provider value
// could not be read as a number.
type RawOutcome struct {
	Name  string
	Price float64
}

// Date returns the YYYY-MM-DD prefix of the kickoff timestamp.
func (g Game) Date() (string, bool) {
	if len(g.CommenceTime) < dateLength {
		return "", false
	}
	return g.CommenceTime[:dateLength], true
}

func (g Game) Identity() MatchIdentity {
	return MatchIdentity{
		HomeTeam: g.HomeTeam,
		AwayTeam: g.AwayTeam,
		Kickoff:  g.CommenceTime,
	}
}

// MatchIdentity ties records from different regions to one logical match.
// Comparison is exact; team names are not normalized.
type MatchIdentity struct {
	HomeTeam string
	AwayTeam string
	Kickoff  string
}

// Match is a priced fixture on the requested date.
type Match struct {
	Home    string     `json:"home"`
	Away    string     `json:"away"`
	UTCDate string     `json:"utcDate"`
	Odds    OddsTriple `json:"odds"`
}

// LeagueResult groups the complete matches of one league.
type LeagueResult struct {
	Key     string  `json:"key"`
	Name    string  `json:"name"`
	Matches []Match `json:"matches"`
}

// Payload is the response body of the matchday board.
type Payload struct {
	Date     string         `json:"date"`
	NextDate *string        `json:"nextDate"`
	Leagues  []LeagueResult `json:"leagues"`
	Meta     Report         `json:"meta"`
}

// FetchRequest describes one upstream call for a (league, region) pair.
type FetchRequest struct {
	League   league.League
	Region   string
	DaysFrom int
	APIKey   string
}

// FetchResult carries the call outcome and, on success, the decoded games.
// Call is populated even when the fetch fails.
type FetchResult struct {
	Call  CallOutcome
	Games []Game
}
