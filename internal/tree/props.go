package tree

import (
	"encoding/json"
	"fmt"
)

const (
	kindString = "string"
	kindLong   = "long"
	kindDouble = "double"
	kindBool   = "boolean"
)

type wireValue struct {
	Kind  string          `json:"t"`
	Value json.RawMessage `json:"v"`
}

// MarshalProperties encodes normalized properties as typed JSON so integer
// and floating point values keep their kind across a round trip.
func MarshalProperties(p Properties) ([]byte, error) {
	wire := make(map[string]wireValue, len(p))
	for k, v := range p {
		var kind string
		switch v.(type) {
		case string:
			kind = kindString
		case int64:
			kind = kindLong
		case float64:
			kind = kindDouble
		case bool:
			kind = kindBool
		default:
			return nil, fmt.Errorf("marshal property %q: unsupported type %T", k, v)
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal property %q: %w", k, err)
		}
		wire[k] = wireValue{Kind: kind, Value: raw}
	}
	return json.Marshal(wire)
}

// UnmarshalProperties decodes the output of MarshalProperties.
func UnmarshalProperties(data []byte) (Properties, error) {
	if len(data) == 0 {
		return Properties{}, nil
	}
	var wire map[string]wireValue
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}
	out := make(Properties, len(wire))
	for k, w := range wire {
		var (
			v   any
			err error
		)
		switch w.Kind {
		case kindString:
			var s string
			err = json.Unmarshal(w.Value, &s)
			v = s
		case kindLong:
			var n int64
			err = json.Unmarshal(w.Value, &n)
			v = n
		case kindDouble:
			var f float64
			err = json.Unmarshal(w.Value, &f)
			v = f
		case kindBool:
			var b bool
			err = json.Unmarshal(w.Value, &b)
			v = b
		default:
			err = fmt.Errorf("unknown kind %q", w.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("unmarshal property %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
