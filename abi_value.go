package echo

import (
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

/*
Chooses which side of a "bytesN" value keeps the payload when the input is
shorter than N. "AlignRight" zero-pads on the left (the most significant side);
"AlignLeft" zero-pads on the right.
*/
type Align string

const (
	AlignLeft  Align = "left"
	AlignRight Align = "right"
)

/*
Describes a byte sequence for "bytesN" and "bytes" parameters. "Value" is
either a string, interpreted according to "Encoding", or a []byte, used as-is.

Supported encodings: "" or "hex" (the default: hex text with optional "0x"),
"utf8", "ascii"/"latin1", "utf16le"/"ucs2".

An empty "Align" means "AlignRight". Plain string or []byte inputs have no
alignment, and must match the declared size exactly.
*/
type BytesInput struct {
	Value    interface{}
	Encoding string
	Align    Align
}

/*
Validated, canonical form of one input value. Produced for the whole value tree
before any output is written, which means encoding a normalized value can't
fail and never leaves partially built output.
*/
type abiValue struct {
	atype AbiType
	word  Word       // static elementary kinds
	data  []byte     // AbiKindBytes | AbiKindString
	elems []abiValue // AbiKindArray
}

var (
	bigOne       = big.NewInt(1)
	bigTwoPow256 = new(big.Int).Lsh(bigOne, 256)

	// Floats beyond this magnitude may have already lost integer precision.
	maxSafeFloat = float64(1<<53 - 1)

	bigIntPtrType = reflect.TypeOf((*big.Int)(nil))
)

func normalizeAbiValue(atype AbiType, input interface{}) (abiValue, error) {
	input = derefInput(input)
	out := abiValue{atype: atype}

	switch atype.Kind {
	case AbiKindBool:
		val := reflect.ValueOf(input)
		if !val.IsValid() || val.Kind() != reflect.Bool {
			return out, invalidValue("value is not a boolean")
		}
		if val.Bool() {
			out.word = trueWord
		}
		return out, nil

	case AbiKindUint, AbiKindInt:
		num, err := normalizeInteger(atype, input)
		if err != nil {
			return out, err
		}
		out.word, err = integerWord(atype, num)
		return out, err

	case AbiKindAddress:
		id, err := normalizeObjectId(input)
		if err != nil {
			return out, err
		}
		out.word, err = id.AbiWord()
		return out, err

	case AbiKindFixedBytes:
		var err error
		out.word, err = fixedBytesWord(atype, input)
		return out, err

	case AbiKindBytes:
		data, _, _, err := bytesFromInput(input)
		out.data = data
		return out, err

	case AbiKindString:
		val := reflect.ValueOf(input)
		if !val.IsValid() || val.Kind() != reflect.String {
			return out, invalidValue("value is not a string")
		}
		out.data = []byte(val.String())
		return out, nil

	case AbiKindArray:
		val := reflect.ValueOf(input)
		if !val.IsValid() || (val.Kind() != reflect.Slice && val.Kind() != reflect.Array) {
			return out, invalidValue("value is not an array")
		}

		length := val.Len()
		if atype.FixedLen && length != atype.ArrayLen {
			return out, invalidValuef("expected %d elements, got %d", atype.ArrayLen, length)
		}

		out.elems = make([]abiValue, length)
		for i := range out.elems {
			elem, err := normalizeAbiValue(*atype.Elem, val.Index(i).Interface())
			if err != nil {
				return out, errors.WithMessagef(err, "element %d of %s", i, atype.Type)
			}
			out.elems[i] = elem
		}
		return out, nil

	default:
		return out, errors.Errorf(`can't encode unknown ABI kind %v`, atype.Kind)
	}
}

/*
Accepts Go integers, *big.Int, decimal.Decimal, json.Number, numeric strings
(decimal, or hex with "0x") and floats. Floats must be integral and exactly
representable.
*/
func normalizeInteger(atype AbiType, input interface{}) (*big.Int, error) {
	switch input := input.(type) {
	case *big.Int:
		if input == nil {
			return nil, invalidValue("value is not a number")
		}
		return new(big.Int).Set(input), nil
	case big.Int:
		return new(big.Int).Set(&input), nil
	case decimal.Decimal:
		return decimalToInt(atype, input)
	case json.Number:
		return parseIntegerText(atype, string(input))
	case string:
		return parseIntegerText(atype, input)
	case float64:
		return floatToInt(input)
	case float32:
		return floatToInt(float64(input))
	}

	val := reflect.ValueOf(input)
	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(val.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return new(big.Int).SetUint64(val.Uint()), nil
	}
	return nil, invalidValue("value is not a number")
}

func parseIntegerText(atype AbiType, input string) (*big.Int, error) {
	input = strings.TrimSpace(input)

	if raw := drop0x(input); len(raw) != len(input) {
		num, ok := new(big.Int).SetString(raw, 16)
		if !ok || raw == "" {
			return nil, invalidValue("value is not a number")
		}
		return num, nil
	}

	num, err := decimal.NewFromString(input)
	if err != nil {
		return nil, invalidValue("value is not a number")
	}
	return decimalToInt(atype, num)
}

const maxIntegerDigits = 78

/*
The exponent is checked before any arithmetic: "1e50000000" would otherwise
expand into millions of digits. 78 digits exceed every 256-bit value.
*/
func decimalToInt(atype AbiType, input decimal.Decimal) (*big.Int, error) {
	if input.IsZero() {
		return new(big.Int), nil
	}

	exp := int64(input.Exponent())
	digits := int64(len(new(big.Int).Abs(input.Coefficient()).String()))
	if exp < 0 && -exp >= digits {
		return nil, invalidValue("value is not a integer")
	}
	if exp+digits > maxIntegerDigits {
		return nil, invalidValue(atype.Type + " overloading")
	}

	if !input.IsInteger() {
		return nil, invalidValue("value is not a integer")
	}
	return input.BigInt(), nil
}

func floatToInt(input float64) (*big.Int, error) {
	if math.IsNaN(input) || math.IsInf(input, 0) {
		return nil, invalidValue("value is not a number")
	}
	if math.Trunc(input) != input {
		return nil, invalidValue("value is not a integer")
	}
	if math.Abs(input) > maxSafeFloat {
		return nil, invalidValue("loss of accuracy, use big.Int")
	}
	return big.NewInt(int64(input)), nil
}

/*
Range-checks the number against the two's-complement domain of the declared
width, then writes it as a 256-bit two's-complement word. Negative numbers are
sign-extended to the full word regardless of the declared width.
*/
func integerWord(atype AbiType, num *big.Int) (Word, error) {
	if atype.Kind == AbiKindUint {
		if num.Sign() < 0 {
			return Word{}, invalidValue("value is negative")
		}
		if num.BitLen() > atype.Bits {
			return Word{}, invalidValue(atype.Type + " overloading")
		}
		return bigIntToWord(num), nil
	}

	upper := new(big.Int).Lsh(bigOne, uint(atype.Bits-1))
	lower := new(big.Int).Neg(upper)
	if num.Cmp(upper) >= 0 || num.Cmp(lower) < 0 {
		return Word{}, invalidValue(atype.Type + " overloading")
	}
	return bigIntToWord(num), nil
}

// The caller must ensure the number fits into int256 or uint256.
func bigIntToWord(num *big.Int) Word {
	var out Word
	if num.Sign() < 0 {
		new(big.Int).Add(bigTwoPow256, num).FillBytes(out[:])
	} else {
		num.FillBytes(out[:])
	}
	return out
}

func normalizeObjectId(input interface{}) (ObjectId, error) {
	switch input := input.(type) {
	case ObjectId:
		return input, nil
	case string:
		return ParseObjectId(input)
	}

	val := reflect.ValueOf(input)
	if val.Kind() == reflect.String {
		return ParseObjectId(val.String())
	}
	return ObjectId{}, invalidValue("address is not a string")
}

/*
Builds the word for a "bytesN" value: the payload is padded to N bytes on the
side opposite to its alignment, then right-padded to the word size.
*/
func fixedBytesWord(atype AbiType, input interface{}) (Word, error) {
	var out Word

	data, align, aligned, err := bytesFromInput(input)
	if err != nil {
		return out, err
	}

	size := atype.ByteLen
	if len(data) > size {
		return out, invalidValue("input is too large")
	}
	if len(data) < size && !aligned {
		return out, invalidValue("input is too short, maybe u need to use align?")
	}

	if align == AlignLeft {
		copy(out[:size], data)
	} else {
		copy(out[size-len(data):size], data)
	}
	return out, nil
}

/*
Converts any supported byte-sequence input into raw bytes. The boolean
indicates whether the input carried an alignment option.
*/
func bytesFromInput(input interface{}) ([]byte, Align, bool, error) {
	switch input := input.(type) {
	case BytesInput:
		align := input.Align
		if align == "" {
			align = AlignRight
		}
		if align != AlignLeft && align != AlignRight {
			return nil, "", false, invalidValue("unknown align")
		}
		data, err := decodeBytesText(derefInput(input.Value), input.Encoding)
		return data, align, true, err

	case string:
		if !isHex(input) {
			return nil, "", false, invalidValue("input is not a hex string")
		}
		data, err := HexDecode(input)
		return data, AlignRight, false, err

	case []byte:
		return copyBytes(input), AlignRight, false, nil

	case HexBytes:
		return copyBytes(input), AlignRight, false, nil
	}

	// Fixed-size byte arrays such as [4]byte or Word.
	val := reflect.ValueOf(input)
	if val.Kind() == reflect.Array && val.Type().Elem().Kind() == reflect.Uint8 {
		out := make([]byte, val.Len())
		reflect.Copy(reflect.ValueOf(out), val)
		return out, AlignRight, false, nil
	}

	return nil, "", false, invalidValue("value is not a byte sequence")
}

func decodeBytesText(value interface{}, encoding string) ([]byte, error) {
	switch value := value.(type) {
	case []byte:
		return copyBytes(value), nil
	case HexBytes:
		return copyBytes(value), nil
	case string:
		switch strings.ToLower(encoding) {
		case "", "hex":
			if !isHex(value) {
				return nil, invalidValue("input is not a hex string")
			}
			return HexDecode(value)

		case "utf8", "utf-8":
			return []byte(value), nil

		case "ascii", "latin1", "binary":
			out, err := charmap.ISO8859_1.NewEncoder().String(value)
			if err != nil {
				return nil, invalidValuef("input is not representable in %s", encoding)
			}
			return []byte(out), nil

		case "utf16le", "utf-16le", "ucs2", "ucs-2":
			out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().String(value)
			if err != nil {
				return nil, invalidValuef("input is not representable in %s", encoding)
			}
			return []byte(out), nil

		default:
			return nil, invalidValue("unknown encoding")
		}
	default:
		return nil, invalidValue("value is not a byte sequence")
	}
}

/*
Dereferences pointers, except *big.Int which is a first-class input. A nil
pointer becomes nil, which every kind rejects with its own message.
*/
func derefInput(input interface{}) interface{} {
	val := reflect.ValueOf(input)
	for val.Kind() == reflect.Ptr && val.Type() != bigIntPtrType {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if !val.IsValid() {
		return nil
	}
	return val.Interface()
}

func copyBytes(input []byte) []byte {
	out := make([]byte, len(input))
	copy(out, input)
	return out
}
