package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero/api"

	anyerrors "github.com/wippyai/anyfile/errors"
)

// ParseParam parses s as a value of type t and returns its wazero stack
// encoding. Integers accept any Go integer literal syntax.
func ParseParam(t api.ValueType, s string) (uint64, error) {
	s = strings.TrimSpace(s)
	switch t {
	case api.ValueTypeI32:
		v, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			// allow the unsigned spelling of i32 bit patterns
			u, uerr := strconv.ParseUint(s, 0, 32)
			if uerr != nil {
				return 0, paramError(t, s, err)
			}
			v = int64(int32(uint32(u)))
		}
		return api.EncodeI32(int32(v)), nil
	case api.ValueTypeI64:
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			u, uerr := strconv.ParseUint(s, 0, 64)
			if uerr != nil {
				return 0, paramError(t, s, err)
			}
			return u, nil
		}
		return api.EncodeI64(v), nil
	case api.ValueTypeF32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return 0, paramError(t, s, err)
		}
		return api.EncodeF32(float32(v)), nil
	case api.ValueTypeF64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, paramError(t, s, err)
		}
		return api.EncodeF64(v), nil
	default:
		return 0, anyerrors.InvalidInput(anyerrors.PhaseEngine,
			fmt.Sprintf("unsupported parameter type %s", api.ValueTypeName(t)))
	}
}

// FormatResult renders a raw stack value of type t.
func FormatResult(t api.ValueType, v uint64) string {
	switch t {
	case api.ValueTypeI32:
		return strconv.FormatInt(int64(api.DecodeI32(v)), 10)
	case api.ValueTypeI64:
		return strconv.FormatInt(int64(v), 10)
	case api.ValueTypeF32:
		return strconv.FormatFloat(float64(api.DecodeF32(v)), 'g', -1, 32)
	case api.ValueTypeF64:
		return strconv.FormatFloat(api.DecodeF64(v), 'g', -1, 64)
	default:
		return fmt.Sprintf("0x%x", v)
	}
}

// Signature renders f as name(i32, i64) -> f32.
func (f Function) Signature() string {
	var b strings.Builder
	b.WriteString(f.Name)
	b.WriteByte('(')
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(api.ValueTypeName(p))
	}
	b.WriteByte(')')
	if len(f.Results) > 0 {
		b.WriteString(" -> ")
		for i, r := range f.Results {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(api.ValueTypeName(r))
		}
	}
	return b.String()
}

func paramError(t api.ValueType, s string, err error) error {
	return anyerrors.Wrap(anyerrors.PhaseEngine, anyerrors.KindInvalidInput, err,
		fmt.Sprintf("%q is not a valid %s", s, api.ValueTypeName(t)))
}
