package model

// Entry is one rendered row of a timeline.
type Entry struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Category   string `json:"category,omitempty"`
	Badge      string `json:"badge,omitempty"`
	Summary    string `json:"summary"`
	Timestamp  string `json:"timestamp,omitempty"`  // full formatted timestamp, "-" when unknown
	Clock      string `json:"clock"`                // time-of-day part of Timestamp
	Day        string `json:"day"`                  // day key, "-" when unknown
	Delta      string `json:"delta,omitempty"`      // since the previous row of the same day
	SinceStart string `json:"sinceStart,omitempty"` // since the first row of the view
	Index      int    `json:"index"`
}

// DayGroup is a run of consecutive entries sharing a day key.
type DayGroup struct {
	Day     string  `json:"day"`
	Entries []Entry `json:"entries"`
}

// Timeline is the rendered, filtered view of a loaded collection.
type Timeline struct {
	Days     []DayGroup `json:"days"`
	Showing  int        `json:"showing"`
	Total    int        `json:"total"`
	Duration string     `json:"duration"` // "-" when the view is empty
}

// Entries flattens the day groups in display order.
func (t Timeline) Entries() []Entry {
	var out []Entry
	for _, d := range t.Days {
		out = append(out, d.Entries...)
	}
	return out
}
