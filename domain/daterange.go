package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"atlas/bizerror"
)

const dateLayout = "2006-01-02"

// bounds notation of a Postgres daterange value: '[' and ']' are inclusive
// endpoints, ')' is exclusive.
const (
	BoundsHalfOpen = "[)"
	BoundsClosed   = "[]"
)

// DateRange is the normalized form of a {lower, upper} calendar date pair.
// It travels to and from a DATERANGE column in its textual form.
type DateRange struct {
	Lower  time.Time
	Upper  time.Time
	Bounds string
	Empty  bool
}

// NormalizeDateRange validates a loosely typed {lower, upper} pair and
// produces the stored range. A zero-length interval still covers exactly one
// day, which requires the inclusive-inclusive encoding.
func NormalizeDateRange(raw map[string]interface{}) (*DateRange, error) {
	if len(raw) == 0 {
		return nil, bizerror.ErrEmptyDateRange
	}
	if isFalsy(raw["lower"]) || isFalsy(raw["upper"]) {
		return nil, bizerror.ErrIncompleteDateRange
	}

	parsed := map[string]time.Time{}
	for _, field := range []string{"lower", "upper"} {
		value, ok := raw[field].(string)
		if !ok {
			return nil, &bizerror.ErrDateFormatType{Field: field}
		}
		date, err := time.Parse(dateLayout, value)
		if err != nil {
			return nil, &bizerror.ErrDateFormatValue{Field: field}
		}
		parsed[field] = date
	}

	lower, upper := parsed["lower"], parsed["upper"]
	if lower.After(upper) {
		return nil, bizerror.ErrInvertedDateRange
	}

	bounds := BoundsClosed
	if upper.After(lower) {
		bounds = BoundsHalfOpen
	}
	return &DateRange{Lower: lower, Upper: upper, Bounds: bounds}, nil
}

func isFalsy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case float64:
		return v == 0
	}
	return false
}

func (r DateRange) String() string {
	if r.Empty {
		return "empty"
	}
	return fmt.Sprintf("%c%s,%s%c", r.Bounds[0], r.Lower.Format(dateLayout), r.Upper.Format(dateLayout), r.Bounds[1])
}

func (r DateRange) Value() (driver.Value, error) {
	if r.Bounds == "" && !r.Empty {
		return nil, nil
	}
	return r.String(), nil
}

func (r *DateRange) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = DateRange{}
		return nil
	case []byte:
		return r.parse(string(v))
	case string:
		return r.parse(v)
	}
	return fmt.Errorf("unsupported daterange source type %T", src)
}

func (r *DateRange) parse(text string) error {
	if text == "empty" {
		*r = DateRange{Empty: true}
		return nil
	}
	if len(text) < 4 || (text[0] != '[' && text[0] != '(') {
		return fmt.Errorf("malformed daterange text '%s'", text)
	}
	body := text[1 : len(text)-1]
	parts := strings.SplitN(body, ",", 2)
	if len(parts) != 2 {
		return fmt.Errorf("malformed daterange text '%s'", text)
	}
	lower, err := time.Parse(dateLayout, strings.Trim(parts[0], `"`))
	if err != nil {
		return err
	}
	upper, err := time.Parse(dateLayout, strings.Trim(parts[1], `"`))
	if err != nil {
		return err
	}
	*r = DateRange{Lower: lower, Upper: upper, Bounds: string(text[0]) + string(text[len(text)-1])}
	return nil
}

type dateRangeJSON struct {
	Lower  string `json:"lower"`
	Upper  string `json:"upper"`
	Bounds string `json:"bounds"`
	Empty  bool   `json:"empty"`
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(dateRangeJSON{
		Lower:  r.Lower.Format(dateLayout),
		Upper:  r.Upper.Format(dateLayout),
		Bounds: r.Bounds,
		Empty:  r.Empty,
	})
}

func (r *DateRange) UnmarshalJSON(data []byte) error {
	aux := dateRangeJSON{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	lower, err := time.Parse(dateLayout, aux.Lower)
	if err != nil {
		return err
	}
	upper, err := time.Parse(dateLayout, aux.Upper)
	if err != nil {
		return err
	}
	*r = DateRange{Lower: lower, Upper: upper, Bounds: aux.Bounds, Empty: aux.Empty}
	return nil
}
