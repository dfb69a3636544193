package commands

import (
	"fmt"
	"strconv"
	"strings"
)

// ParamType is the closed set of argument types a handler may declare.
// The zero value is deliberately not a valid type.
type ParamType int

const (
	TypeBool ParamType = iota + 1
	TypeByte
	TypeShort
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeString
)

var paramTypeNames = map[ParamType]string{
	TypeBool:   "bool",
	TypeByte:   "byte",
	TypeShort:  "short",
	TypeInt:    "int",
	TypeLong:   "long",
	TypeFloat:  "float",
	TypeDouble: "double",
	TypeString: "string",
}

func (t ParamType) String() string {
	if name, ok := paramTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ParamType(%d)", int(t))
}

// Coerce converts token to the Go value for t:
//
//	bool   -> bool     (only a case-insensitive "true" is true; never fails)
//	byte   -> int8
//	short  -> int16
//	int    -> int      (32-bit range)
//	long   -> int64
//	float  -> float32
//	double -> float64
//	string -> string   (unchanged)
//
// Numeric tokens outside the width of t, or not numbers at all, fail with
// ErrInvalidLiteral. Unknown types fail with ErrUnsupportedType.
func Coerce(t ParamType, token string) (any, error) {
	switch t {
	case TypeBool:
		return strings.EqualFold(token, "true"), nil
	case TypeByte:
		v, err := strconv.ParseInt(token, 10, 8)
		if err != nil {
			return nil, invalidLiteral(t, token, err)
		}
		return int8(v), nil
	case TypeShort:
		v, err := strconv.ParseInt(token, 10, 16)
		if err != nil {
			return nil, invalidLiteral(t, token, err)
		}
		return int16(v), nil
	case TypeInt:
		v, err := strconv.ParseInt(token, 10, 32)
		if err != nil {
			return nil, invalidLiteral(t, token, err)
		}
		return int(v), nil
	case TypeLong:
		v, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return nil, invalidLiteral(t, token, err)
		}
		return v, nil
	case TypeFloat:
		v, err := strconv.ParseFloat(token, 32)
		if err != nil {
			return nil, invalidLiteral(t, token, err)
		}
		return float32(v), nil
	case TypeDouble:
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, invalidLiteral(t, token, err)
		}
		return v, nil
	case TypeString:
		return token, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

func invalidLiteral(t ParamType, token string, cause error) error {
	if ne, ok := cause.(*strconv.NumError); ok {
		cause = ne.Err
	}
	return fmt.Errorf("%w: %q is not a valid %s (%v)", ErrInvalidLiteral, token, t, cause)
}
