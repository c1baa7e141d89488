package shard

import (
	"encoding/json"
	"fmt"
)

// Record positions in the wire array.
const (
	posRegistration = iota
	posType
	posFlags
	posDescription
	posWakeCategory
	numKnownFields
)

// Record is the metadata stored for one aircraft.
//
// On the wire a record is a JSON array:
//
//	["N123AB", "B738", "00", "L2J", "M"]
//
// Positions 3 and 4 (description and wake turbulence category) are usually
// absent from shard documents and are filled in by enrichment. Absent and
// null positions decode to nil.
type Record struct {
	Registration *string `json:"registration,omitempty"`
	TypeCode     *string `json:"type,omitempty"`
	Flags        *string `json:"flags,omitempty"`
	Description  *string `json:"desc,omitempty"`
	WakeCategory *string `json:"wtc,omitempty"`

	// Extra holds any positions beyond the known fields, untouched.
	Extra []json.RawMessage `json:"extra,omitempty"`
}

// DecodeRecord parses the wire array form of a record.
func DecodeRecord(raw []byte) (*Record, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}

	r := &Record{}
	slots := []**string{&r.Registration, &r.TypeCode, &r.Flags, &r.Description, &r.WakeCategory}
	for i, f := range fields {
		if i >= numKnownFields {
			r.Extra = append(r.Extra, f)
			continue
		}
		v, err := decodeField(f)
		if err != nil {
			return nil, fmt.Errorf("decode record field %d: %w", i, err)
		}
		*slots[i] = v
	}
	return r, nil
}

// decodeField accepts a string, null, or any other scalar (kept as its JSON text).
func decodeField(raw json.RawMessage) (*string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return &s, nil
	}
	if raw[0] == '{' || raw[0] == '[' {
		return nil, fmt.Errorf("unexpected composite value %s", raw)
	}
	s := string(raw)
	return &s, nil
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := &Record{
		Registration: cloneString(r.Registration),
		TypeCode:     cloneString(r.TypeCode),
		Flags:        cloneString(r.Flags),
		Description:  cloneString(r.Description),
		WakeCategory: cloneString(r.WakeCategory),
	}
	if r.Extra != nil {
		c.Extra = make([]json.RawMessage, len(r.Extra))
		copy(c.Extra, r.Extra)
	}
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr is a convenience for building records in code.
func StringPtr(s string) *string { return &s }
