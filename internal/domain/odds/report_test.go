package odds

import "testing"

func TestClassify(t *testing.T) {
	ok := CallOutcome{League: "Premier League", Status: 200}
	limited := CallOutcome{League: "Serie A", Status: 429}
	timeout := CallOutcome{League: "La Liga", Status: 0, Error: "timeout"}
	someLeague := []LeagueResult{{Key: "soccer_epl", Name: "Premier League", Matches: []Match{{Home: "a"}}}}

	tests := []struct {
		name    string
		calls   []CallOutcome
		leagues []LeagueResult
		want    Classification
	}{
		{name: "no calls", want: ClassificationSuccess},
		{name: "all ok", calls: []CallOutcome{ok, ok}, leagues: someLeague, want: ClassificationSuccess},
		{name: "all ok but empty day", calls: []CallOutcome{ok}, want: ClassificationSuccess},
		{name: "partial", calls: []CallOutcome{ok, limited}, leagues: someLeague, want: ClassificationPartialFailure},
		{name: "partial without matches", calls: []CallOutcome{ok, limited}, want: ClassificationPartialFailure},
		{name: "total", calls: []CallOutcome{limited, timeout}, want: ClassificationTotalFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := NewReport()
			for _, call := range tt.calls {
				report.Record(call)
			}
			got := Classify(Payload{Leagues: tt.leagues, Meta: report})
			if got != tt.want {
				t.Fatalf("Classify()=%s want=%s", got, tt.want)
			}
			if got.Cacheable() == (tt.want == ClassificationTotalFailure) {
				t.Fatalf("unexpected cacheability for %s", got)
			}
		})
	}
}

func TestReport_RecordSplitsErrors(t *testing.T) {
	report := NewReport()
	report.Record(CallOutcome{Status: 200})
	report.Record(CallOutcome{Status: 401})
	report.Record(CallOutcome{Status: 204})

	if len(report.Calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(report.Calls))
	}
	if len(report.Errors) != 1 || report.Errors[0].Status != 401 {
		t.Fatalf("unexpected errors %+v", report.Errors)
	}
}
