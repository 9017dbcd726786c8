package wbs

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Kind is the type held by a Value.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an extension attribute of a task or graph.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	date time.Time
}

func String(s string) Value     { return Value{kind: KindString, str: s} }
func Number(f float64) Value    { return Value{kind: KindNumber, num: f} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Date(t time.Time) Value    { return Value{kind: KindDate, date: t} }
func (v Value) Kind() Kind      { return v.kind }
func (v Value) Str() string     { return v.str }
func (v Value) Num() float64    { return v.num }
func (v Value) Bool() bool      { return v.b }
func (v Value) Time() time.Time { return v.date }

// Interface returns the held value as a plain Go value.
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindDate:
		return v.date
	default:
		return v.str
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindDate:
		return v.date.Format(time.RFC3339)
	default:
		return v.str
	}
}

// dateJSON is the JSON form of a date value. Dates are wrapped so that
// strings holding a date-like text keep their kind.
type dateJSON struct {
	Date time.Time `json:"date"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindDate {
		return json.Marshal(dateJSON{Date: v.date})
	}
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes scalars and {"date": "<RFC 3339>"} objects.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case string:
		*v = String(x)
	case float64:
		*v = Number(x)
	case bool:
		*v = Bool(x)
	case map[string]any:
		var d dateJSON
		if _, ok := x["date"]; !ok || len(x) != 1 {
			return fmt.Errorf("unsupported attribute value %s", data)
		}
		if err := json.Unmarshal(data, &d); err != nil {
			return fmt.Errorf("attribute date: %w", err)
		}
		*v = Date(d.Date)
	default:
		return fmt.Errorf("unsupported attribute value %s", data)
	}
	return nil
}

func (v Value) MarshalYAML() (any, error) {
	return v.Interface(), nil
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: attribute values must be scalars", node.Line)
	}
	switch node.ShortTag() {
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = Number(f)
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = Bool(b)
	case "!!timestamp":
		var t time.Time
		if err := node.Decode(&t); err != nil {
			return err
		}
		*v = Date(t)
	default:
		*v = String(node.Value)
	}
	return nil
}
