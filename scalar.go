package arbor

import (
	"encoding"
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// parseScalar stores text into v, which must be settable.
func parseScalar(v reflect.Value, text string) error {
	if v.CanAddr() {
		switch u := v.Addr().Interface().(type) {
		case TextUnmarshaler:
			return u.UnmarshalDOMText(text)
		case encoding.TextUnmarshaler:
			return u.UnmarshalText([]byte(text))
		}
	}

	switch v.Kind() {
	case reflect.String:
		v.SetString(text)
		return nil
	case reflect.Slice:
		if v.Type().Elem().Kind() != reflect.Uint8 {
			break
		}
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
		if err != nil {
			return err
		}
		v.SetBytes(b)
		return nil
	}

	text = strings.TrimSpace(text)
	switch v.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(text, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(text, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(text, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	default:
		return fmt.Errorf("cannot parse text into %s", v.Type())
	}
	return nil
}

// formatScalar renders a scalar value. ff may be nil.
func formatScalar(v reflect.Value, ff FloatFormatter) (string, error) {
	if v.CanInterface() {
		switch m := v.Interface().(type) {
		case TextMarshaler:
			return m.MarshalDOMText()
		case encoding.TextMarshaler:
			b, err := m.MarshalText()
			return string(b), err
		}
	}
	if v.CanAddr() {
		switch m := v.Addr().Interface().(type) {
		case TextMarshaler:
			return m.MarshalDOMText()
		case encoding.TextMarshaler:
			b, err := m.MarshalText()
			return string(b), err
		}
	}

	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		bits := v.Type().Bits()
		if ff != nil {
			return ff.FormatFloat(v.Float(), bits), nil
		}
		return strconv.FormatFloat(v.Float(), 'g', -1, bits), nil
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(v.Bytes()), nil
		}
	}
	return "", fmt.Errorf("cannot format %s as text", v.Type())
}
