package odds

// CallOutcome records one upstream (league, region) call. Status is the
// HTTP status, or 0 when no response was received.
type CallOutcome struct {
	League    string  `json:"league"`
	LeagueKey string  `json:"leagueKey"`
	Region    string  `json:"region,omitempty"`
	Status    int     `json:"status"`
	Remaining *string `json:"remaining"`
	Error     string  `json:"error,omitempty"`
}

func (c CallOutcome) Failed() bool {
	return c.Status < 200 || c.Status > 299
}

// Report is the diagnostic block of the payload. Errors is the failed
// subset of Calls.
type Report struct {
	Calls  []CallOutcome `json:"calls"`
	Errors []CallOutcome `json:"errors"`
}

func NewReport() Report {
	return Report{
		Calls:  make([]CallOutcome, 0, 16),
		Errors: make([]CallOutcome, 0, 4),
	}
}

func (r *Report) Record(call CallOutcome) {
	r.Calls = append(r.Calls, call)
	if call.Failed() {
		r.Errors = append(r.Errors, call)
	}
}

// Classification summarizes how the upstream fan-out went.
type Classification string

const (
	ClassificationSuccess        Classification = "success"
	ClassificationPartialFailure Classification = "partial_failure"
	ClassificationTotalFailure   Classification = "total_failure"
)

// Classify marks a payload as a total failure only when at least one call
// was made, every call failed and no league produced a match. Anything else
// is served as a success; partial failures stay visible in Meta.Errors.
func Classify(p Payload) Classification {
	calls := len(p.Meta.Calls)
	failed := len(p.Meta.Errors)
	switch {
	case calls > 0 && failed == calls && len(p.Leagues) == 0:
		return ClassificationTotalFailure
	case failed > 0:
		return ClassificationPartialFailure
	default:
		return ClassificationSuccess
	}
}

// Cacheable reports whether a payload with this classification may be stored.
func (c Classification) Cacheable() bool {
	return c != ClassificationTotalFailure
}
