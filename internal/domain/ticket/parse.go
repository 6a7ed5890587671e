package ticket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// stripCodeFences removes an optional leading ``` or ```json line and an
// optional trailing ``` around model output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
		if strings.HasPrefix(strings.ToLower(s), "json") {
			s = strings.TrimSpace(s[4:])
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// field aliases the model is known to produce besides the requested keys.
var fieldAliases = map[string][]string{
	"airline":        {"airline", "carrier"},
	"pnr":            {"pnr", "booking_reference", "bookingReference"},
	"flight_date":    {"flight_date", "flightDate", "date"},
	"flight_time":    {"flight_time", "flightTime", "time"},
	"origin":         {"origin", "from"},
	"destination":    {"destination", "to"},
	"passenger_name": {"passenger_name", "passengerName", "passenger"},
}

var requiredFields = []string{"pnr", "flight_date", "origin", "destination", "passenger_name"}

// ParseExtraction unwraps and decodes the model text, coerces every field to
// a trimmed string and checks the mandatory ones.
func ParseExtraction(raw string) (ExtractedFlight, error) {
	body := stripCodeFences(raw)

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return ExtractedFlight{}, newError(KindParse, "model returned invalid JSON", err)
	}
	if obj == nil {
		return ExtractedFlight{}, newError(KindParse, "model returned invalid JSON", fmt.Errorf("expected an object"))
	}
	// The object must be the whole payload.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ExtractedFlight{}, newError(KindParse, "model returned invalid JSON", fmt.Errorf("unexpected data after object"))
	}

	values := make(map[string]string, len(fieldAliases))
	for field, aliases := range fieldAliases {
		for _, k := range aliases {
			if v := strings.TrimSpace(toString(obj[k])); v != "" {
				values[field] = v
				break
			}
		}
	}

	var missing []string
	for _, f := range requiredFields {
		if values[f] == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return ExtractedFlight{}, newError(KindIncomplete, "missing required fields: "+strings.Join(missing, ", "), nil)
	}

	return ExtractedFlight{
		Airline:       values["airline"],
		// Booking references are case-insensitive; stored upper case.
		PNR:           strings.ToUpper(values["pnr"]),
		FlightDate:    values["flight_date"],
		FlightTime:    normalizeFlightTime(values["flight_time"]),
		Origin:        values["origin"],
		Destination:   values["destination"],
		PassengerName: values["passenger_name"],
	}, nil
}

// normalizeFlightTime returns HH:MM, falling back to 00:00 for absent or
// unreadable values.
func normalizeFlightTime(s string) string {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04")
		}
	}
	return DefaultFlightTime
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
