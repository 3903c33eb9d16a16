package events

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// WriteSSE writes one event as a server-sent-events frame and flushes it
// immediately, matching spec.md §6.1's wire format exactly:
//
//	event: <type>
//	data: <json>
//	id: <seq>
//
//	(blank line)
func WriteSSE(w http.ResponseWriter, flusher http.Flusher, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\nid: %d\n\n", ev.Type, body, ev.Seq); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
