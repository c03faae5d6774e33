package audit

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"time"
)

var csvHeader = []string{
	"id", "timestamp", "identity_id", "event_type", "description",
	"source_ip", "user_agent", "status", "metadata",
}

// WriteCSV renders events as CSV for the log-export surface. Metadata is
// serialised as a JSON object in the final column.
func WriteCSV(w io.Writer, events []Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, event := range events {
		meta := ""
		if len(event.Metadata) > 0 {
			raw, err := json.Marshal(event.Metadata)
			if err != nil {
				return err
			}
			meta = string(raw)
		}
		record := []string{
			event.ID,
			event.Timestamp.UTC().Format(time.RFC3339),
			event.IdentityID,
			event.EventType,
			event.Description,
			event.SourceIP,
			event.UserAgent,
			event.Status,
			meta,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
