package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"unicode/utf8"
)

var ErrInvalidUTF8 = errors.New("string is not valid UTF-8")

// CanonicalEncode renders v as compact JSON with object keys sorted at every
// depth, numbers kept in their shortest decimal form and forward slashes
// escaped as "\/". Two values with the same content always produce the same
// bytes, whatever order their fields were declared or inserted in.
// Strings that are not valid UTF-8 are rejected with ErrInvalidUTF8 rather
// than coerced, since coercion would give different values one encoding.
func CanonicalEncode(v interface{}) ([]byte, error) {
	if err := checkUTF8(reflect.ValueOf(v)); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	// round trip through a generic tree: maps are emitted with sorted keys
	// and json.Number keeps the numeric text untouched
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var tree interface{}
	if err := decoder.Decode(&tree); err != nil {
		return nil, err
	}

	buff := new(bytes.Buffer)
	encoder := json.NewEncoder(buff)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(tree); err != nil {
		return nil, err
	}

	out := bytes.TrimSuffix(buff.Bytes(), []byte("\n"))
	// '/' can only occur inside string literals
	return bytes.ReplaceAll(out, []byte("/"), []byte(`\/`)), nil
}

// checkUTF8 walks every string json.Marshal would emit.
func checkUTF8(v reflect.Value) error {
	switch v.Kind() {
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			return fmt.Errorf("%w: %q", ErrInvalidUTF8, v.String())
		}
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			return checkUTF8(v.Elem())
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !v.Type().Field(i).IsExported() {
				continue
			}
			if err := checkUTF8(v.Field(i)); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		// []byte is emitted as base64
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := checkUTF8(v.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := checkUTF8(iter.Key()); err != nil {
				return err
			}
			if err := checkUTF8(iter.Value()); err != nil {
				return err
			}
		}
	}
	return nil
}
