package timeline

// Event is one rendered timeline row.
// This is the stable public type; internal representations may evolve
// independently without breaking consumers.
type Event struct {
	ID         string `json:"id"`
	Type       string `json:"type"`            // e.g. user.message, tool.execution_start
	Category   string `json:"category"`        // session, user, assistant, tool or other
	Summary    string `json:"summary"`         // one line, at most 260 characters
	Timestamp  string `json:"timestamp"`       // formatted in the viewer's timezone mode, "-" when unknown
	Clock      string `json:"clock"`           // time-of-day part of Timestamp
	Delta      string `json:"delta,omitempty"` // since the previous event of the same day
	SinceStart string `json:"sinceStart,omitempty"`
}

// Day is a run of consecutive events sharing a calendar day.
type Day struct {
	Day    string  `json:"day"` // YYYY-MM-DD, "-" for unknown timestamps
	Events []Event `json:"events"`
}

// Timeline is the filtered view of a loaded session.
type Timeline struct {
	Days     []Day  `json:"days"`
	Showing  int    `json:"showing"`
	Total    int    `json:"total"`
	Duration string `json:"duration"`
}

// Malformed describes a line that could not be decoded.
type Malformed struct {
	Line  int    `json:"line"` // 1-based among non-blank lines
	Error string `json:"error"`
}
