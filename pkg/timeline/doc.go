// Package timeline loads JSONL session logs written by an AI coding
// assistant CLI and renders them as a filtered, day-grouped timeline.
//
// Quick start:
//
//	v, err := timeline.Open(ctx, "session.jsonl", timeline.WithTZ("utc"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, day := range v.Timeline().Days {
//	    for _, ev := range day.Events {
//	        fmt.Println(ev.Clock, ev.Type, ev.Summary)
//	    }
//	}
//
// Malformed lines are skipped and reported by Malformed. A Viewer is safe
// for concurrent use.
package timeline
