package models

import "encoding/json"

// Weather and Elevation are relayed verbatim from third-party services; the
// client does not interpret them beyond display.
type Weather json.RawMessage

type Elevation json.RawMessage

func (w Weather) MarshalJSON() ([]byte, error) { return rawOrNull(w), nil }

func (w *Weather) UnmarshalJSON(b []byte) error {
	*w = append((*w)[:0], b...)
	return nil
}

func (e Elevation) MarshalJSON() ([]byte, error) { return rawOrNull(e), nil }

func (e *Elevation) UnmarshalJSON(b []byte) error {
	*e = append((*e)[:0], b...)
	return nil
}

func rawOrNull(b []byte) []byte {
	if len(b) == 0 {
		return []byte("null")
	}
	return b
}

// LocationInfo is what a tap on the map shows.
type LocationInfo struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Weather   Weather   `json:"weather"`
	Elevation Elevation `json:"elevation"`
}

// BugReport is sent anonymously from the footer form.
type BugReport struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Bug   string `json:"bug"`
}
