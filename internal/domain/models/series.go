package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is a numeric cell that may be unset. An unset Value is "present with no value".
type Value struct {
	Float float64
	Valid bool
}

// Some returns a set Value.
func Some(f float64) Value { return Value{Float: f, Valid: true} }

// Unset is the "no data point" value.
var Unset = Value{}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v.Float, 'f', -1, 64)), nil
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Unset
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

// Row is one dated record. Values[i] belongs to the owning Series' Fields[i].
type Row struct {
	Date   Date
	Values []Value
}

// Series is an ordered, date-keyed table with named numeric fields.
// Well-formed series have unique dates in ascending order; see align.Normalize.
type Series struct {
	Fields []string
	Rows   []Row
}

// NewSeries creates an empty series with the given fields.
func NewSeries(fields ...string) *Series {
	fs := make([]string, len(fields))
	copy(fs, fields)
	return &Series{Fields: fs}
}

// Append adds a row. The number of values must match the number of fields.
func (s *Series) Append(d Date, values ...Value) error {
	if len(values) != len(s.Fields) {
		return fmt.Errorf("series: row %s has %d values, want %d", d, len(values), len(s.Fields))
	}
	vs := make([]Value, len(values))
	copy(vs, values)
	s.Rows = append(s.Rows, Row{Date: d, Values: vs})
	return nil
}

func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// FieldIndex returns the column position of name.
func (s *Series) FieldIndex(name string) (int, bool) {
	for i, f := range s.Fields {
		if f == name {
			return i, true
		}
	}
	return -1, false
}

// Value returns the cell at row i for field. ok is false when the field key
// does not exist in the series at all, as opposed to existing but unset.
func (s *Series) Value(i int, field string) (Value, bool) {
	idx, ok := s.FieldIndex(field)
	if !ok || i < 0 || i >= len(s.Rows) {
		return Unset, false
	}
	return s.Rows[i].Values[idx], true
}

// Column returns all values of one field in row order.
func (s *Series) Column(field string) []Value {
	idx, ok := s.FieldIndex(field)
	if !ok {
		return nil
	}
	out := make([]Value, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Values[idx]
	}
	return out
}

// Dates returns the row dates in order.
func (s *Series) Dates() []Date {
	if s == nil {
		return nil
	}
	out := make([]Date, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Date
	}
	return out
}

// DateSet returns the set of dates present in the series.
func (s *Series) DateSet() map[Date]struct{} {
	set := make(map[Date]struct{}, s.Len())
	if s == nil {
		return set
	}
	for _, r := range s.Rows {
		set[r.Date] = struct{}{}
	}
	return set
}

// Bounds returns the first and last dates. ok is false for an empty series.
func (s *Series) Bounds() (first, last Date, ok bool) {
	if s.Len() == 0 {
		return Date{}, Date{}, false
	}
	return s.Rows[0].Date, s.Rows[len(s.Rows)-1].Date, true
}

// Clone deep-copies the series.
func (s *Series) Clone() *Series {
	if s == nil {
		return nil
	}
	out := NewSeries(s.Fields...)
	out.Rows = make([]Row, len(s.Rows))
	for i, r := range s.Rows {
		vs := make([]Value, len(r.Values))
		copy(vs, r.Values)
		out.Rows[i] = Row{Date: r.Date, Values: vs}
	}
	return out
}

// MarshalJSON emits {"fields":[...],"rows":[{"date":"2024-01-01","venus":10.5,"close":null}]}.
// Every field key is present on every row.
func (s Series) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"fields":`)
	fields := s.Fields
	if fields == nil {
		fields = []string{}
	}
	fb, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	buf.Write(fb)
	buf.WriteString(`,"rows":[`)
	for i, r := range s.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		db, err := r.Date.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.WriteString(`{"date":`)
		buf.Write(db)
		for j, f := range s.Fields {
			kb, err := json.Marshal(f)
			if err != nil {
				return nil, err
			}
			vb, err := r.Values[j].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.WriteByte(',')
			buf.Write(kb)
			buf.WriteByte(':')
			buf.Write(vb)
		}
		buf.WriteByte('}')
	}
	buf.WriteString(`]}`)
	return buf.Bytes(), nil
}

func (s *Series) UnmarshalJSON(b []byte) error {
	var raw struct {
		Fields []string                     `json:"fields"`
		Rows   []map[string]json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := NewSeries(raw.Fields...)
	out.Rows = make([]Row, 0, len(raw.Rows))
	for i, rr := range raw.Rows {
		var d Date
		if err := json.Unmarshal(rr["date"], &d); err != nil {
			return fmt.Errorf("series row %d: %w", i, err)
		}
		vs := make([]Value, len(raw.Fields))
		for j, f := range raw.Fields {
			rv, ok := rr[f]
			if !ok {
				continue
			}
			if err := json.Unmarshal(rv, &vs[j]); err != nil {
				return fmt.Errorf("series row %d field %s: %w", i, f, err)
			}
		}
		out.Rows = append(out.Rows, Row{Date: d, Values: vs})
	}
	*s = *out
	return nil
}
