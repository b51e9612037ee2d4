package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lessslie/olimpo-checkin/types"
)

// DataParam is the query parameter that carries the JSON document in the
// URL form of the code.
const DataParam = "data"

const dateLayout = "2006-01-02"

var (
	ErrNotJSON   = errors.New("payload is not a json document")
	ErrWrongKind = errors.New("payload is not an attendance code")
	ErrMalformed = errors.New("malformed attendance payload")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type wireMsg struct {
	Type      string  `json:"type" validate:"required"`
	GymID     string  `json:"gym_id" validate:"required"`
	UserID    *string `json:"user_id,omitempty"`
	Timestamp *string `json:"timestamp,omitempty"`
}

// Validate turns decoded QR text into an attendance intent. It accepts the
// JSON document itself or a URL whose query string carries it.
func Validate(raw string) (types.AttendanceIntent, error) {
	doc, ok := extract(strings.TrimSpace(raw))
	if !ok {
		return types.AttendanceIntent{}, ErrNotJSON
	}

	var tag struct {
		Type any `json:"type"`
	}
	if err := json.Unmarshal(doc, &tag); err != nil {
		return types.AttendanceIntent{}, ErrNotJSON
	}
	if s, ok := tag.Type.(string); !ok || s != types.AttendanceKind {
		return types.AttendanceIntent{}, ErrWrongKind
	}

	var msg wireMsg
	if err := json.Unmarshal(doc, &msg); err != nil {
		return types.AttendanceIntent{}, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	if err := validate.Struct(msg); err != nil {
		return types.AttendanceIntent{}, fmt.Errorf("%w: %s", ErrMalformed, err)
	}

	intent := types.AttendanceIntent{
		Kind:       types.AttendanceKind,
		FacilityID: strings.TrimSpace(msg.GymID),
	}
	if intent.FacilityID == "" {
		return types.AttendanceIntent{}, fmt.Errorf("%w: empty gym_id", ErrMalformed)
	}
	if msg.UserID != nil {
		intent.SubjectUserID = strings.TrimSpace(*msg.UserID)
	}
	if msg.Timestamp != nil && *msg.Timestamp != "" {
		ts, err := parseTimestamp(*msg.Timestamp)
		if err != nil {
			return types.AttendanceIntent{}, fmt.Errorf("%w: %s", ErrMalformed, err)
		}
		intent.IssuedAt = ts
	}

	return intent, nil
}

// extract returns the JSON object carried by raw, either directly or inside
// a URL query parameter.
func extract(raw string) ([]byte, bool) {
	if isObject([]byte(raw)) {
		return []byte(raw), true
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.RawQuery == "" {
		return nil, false
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, false
	}

	if v := q.Get(DataParam); isObject([]byte(v)) {
		return []byte(v), true
	}
	for _, vs := range q {
		for _, v := range vs {
			if isObject([]byte(v)) {
				return []byte(v), true
			}
		}
	}
	return nil, false
}

func isObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return false
	}
	return json.Valid(b)
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}

// EncodeJSON renders the intent as the raw JSON form of the code.
func EncodeJSON(intent types.AttendanceIntent) (string, error) {
	msg := wireMsg{
		Type:  types.AttendanceKind,
		GymID: intent.FacilityID,
	}
	if intent.SubjectUserID != "" {
		msg.UserID = &intent.SubjectUserID
	}
	if !intent.IssuedAt.IsZero() {
		ts := intent.IssuedAt.Format(time.RFC3339Nano)
		msg.Timestamp = &ts
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("error encoding payload: %w", err)
	}
	return string(b), nil
}

// EncodeURL embeds the JSON form into base's query string.
func EncodeURL(base string, intent types.AttendanceIntent) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("error parsing base url %q: %w", base, err)
	}
	doc, err := EncodeJSON(intent)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set(DataParam, doc)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
