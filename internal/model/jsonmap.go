package model

import (
	"database/sql/driver"
	"fmt"

	"github.com/go-faster/jx"
)

// JSONMap represents a jsonb column (flows.args, tasks.args, tasks.output).
// It round-trips through database/sql/driver as raw JSON bytes and is
// encoded/decoded with go-faster/jx rather than encoding/json, matching the
// fast-path JSON handling used elsewhere in the corpus's wire layer.
type JSONMap map[string]any

// Value implements driver.Valuer for writing to a jsonb column.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}

	var e jx.Encoder
	e.ObjStart()
	for k, v := range m {
		e.FieldStart(k)
		if err := encodeJXValue(&e, v); err != nil {
			return nil, fmt.Errorf("encode jsonmap field %q: %w", k, err)
		}
	}
	e.ObjEnd()

	return e.Bytes(), nil
}

// Scan implements sql.Scanner for reading a jsonb column.
func (m *JSONMap) Scan(src any) error {
	if src == nil {
		*m = JSONMap{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("jsonmap: unsupported scan source %T", src)
	}

	if len(raw) == 0 {
		*m = JSONMap{}
		return nil
	}

	d := jx.DecodeBytes(raw)
	result := JSONMap{}
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		val, err := decodeJXValue(d)
		if err != nil {
			return fmt.Errorf("decode jsonmap field %q: %w", key, err)
		}
		result[string(key)] = val
		return nil
	}); err != nil {
		return fmt.Errorf("jsonmap: decode object: %w", err)
	}

	*m = result
	return nil
}

func encodeJXValue(e *jx.Encoder, v any) error {
	switch val := v.(type) {
	case nil:
		e.Null()
	case bool:
		e.Bool(val)
	case string:
		e.Str(val)
	case float64:
		e.Float64(val)
	case int:
		e.Int(val)
	case JSONMap:
		return encodeJXValue(e, map[string]any(val))
	case map[string]any:
		e.ObjStart()
		for k, nested := range val {
			e.FieldStart(k)
			if err := encodeJXValue(e, nested); err != nil {
				return err
			}
		}
		e.ObjEnd()
	case []any:
		e.ArrStart()
		for _, nested := range val {
			if err := encodeJXValue(e, nested); err != nil {
				return err
			}
		}
		e.ArrEnd()
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}

	return nil
}

func decodeJXValue(d *jx.Decoder) (any, error) {
	switch d.Next() {
	case jx.Null:
		return nil, d.Null()
	case jx.Bool:
		return d.Bool()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return nil, err
		}
		return n.Float64()
	case jx.String:
		return d.Str()
	case jx.Array:
		var out []any
		err := d.Arr(func(d *jx.Decoder) error {
			v, err := decodeJXValue(d)
			if err != nil {
				return err
			}
			out = append(out, v)
			return nil
		})
		return out, err
	case jx.Object:
		out := map[string]any{}
		err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			v, err := decodeJXValue(d)
			if err != nil {
				return err
			}
			out[string(key)] = v
			return nil
		})
		return out, err
	default:
		return nil, fmt.Errorf("unsupported json token")
	}
}
