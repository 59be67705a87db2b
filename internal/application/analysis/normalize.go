package analysis

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/EconSOM/pkg/errors"
)

var (
	timeType       = reflect.TypeOf(time.Time{})
	jsonNumberType = reflect.TypeOf(json.Number(""))
	byteSliceType  = reflect.TypeOf([]byte(nil))
)

// Normalize maps v onto the JSON value model: nil, bool, string, int64,
// float64, []any and map[string]any.
//
// Rules:
//   - NaN and ±Inf become nil (JSON null).
//   - nil pointers and interfaces become nil; nil slices and maps become
//     empty sequences and mappings.
//   - struct fields follow their json tags, including "-" and omitempty.
//   - integer and string-kinded map keys become strings.
//   - time.Time becomes an RFC 3339 string, []byte a base64 string.
//   - anything else (channels, functions, complex numbers, other map keys)
//     is rejected with a serialization error naming the offending path.
func Normalize(v any) (any, error) {
	return normalize(reflect.ValueOf(v), "$")
}

func normalize(rv reflect.Value, path string) (any, error) {
	if !rv.IsValid() {
		return nil, nil
	}

	switch rv.Type() {
	case timeType:
		return rv.Interface().(time.Time).UTC().Format(time.RFC3339Nano), nil
	case jsonNumberType:
		f, err := strconv.ParseFloat(rv.String(), 64)
		if err != nil {
			return nil, unserializable(path, "malformed json.Number")
		}
		return finiteOrNil(f), nil
	case byteSliceType:
		if rv.IsNil() {
			return nil, nil
		}
		return base64.StdEncoding.EncodeToString(rv.Bytes()), nil
	}

	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		return normalize(rv.Elem(), path)

	case reflect.Bool:
		return rv.Bool(), nil

	case reflect.String:
		return rv.String(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return float64(u), nil
		}
		return int64(u), nil

	case reflect.Float32, reflect.Float64:
		return finiteOrNil(rv.Float()), nil

	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			v, err := normalize(rv.Index(i), path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k, err := mapKey(iter.Key(), path)
			if err != nil {
				return nil, err
			}
			v, err := normalize(iter.Value(), path+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil

	case reflect.Struct:
		out := make(map[string]any, rv.NumField())
		if err := normalizeStruct(rv, path, out); err != nil {
			return nil, err
		}
		return out, nil
	}

	return nil, unserializable(path, rv.Kind().String())
}

func normalizeStruct(rv reflect.Value, path string, out map[string]any) error {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, omitEmpty, skip := jsonField(f)
		if skip {
			continue
		}
		fv := rv.Field(i)
		// Untagged embedded structs are flattened like encoding/json does.
		if f.Anonymous && f.Tag.Get("json") == "" {
			ev := fv
			if ev.Kind() == reflect.Pointer {
				if ev.IsNil() {
					continue
				}
				ev = ev.Elem()
			}
			if ev.Kind() == reflect.Struct {
				if err := normalizeStruct(ev, path, out); err != nil {
					return err
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if omitEmpty && isEmpty(fv) {
			continue
		}
		v, err := normalize(fv, path+"."+name)
		if err != nil {
			return err
		}
		out[name] = v
	}
	return nil
}

func jsonField(f reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name = f.Name
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Struct:
		return false
	}
	return v.IsZero()
}

func mapKey(k reflect.Value, path string) (string, error) {
	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", unserializable(path, "map key of kind "+k.Kind().String())
}

func finiteOrNil(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func unserializable(path, what string) error {
	return errors.New(errors.ErrCodeSerialization, "value outside the JSON value model").
		WithDetail(fmt.Sprintf("%s: %s", path, what))
}

//Personal.AI order the ending
