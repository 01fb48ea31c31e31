package echo

import (
	"fmt"
	"math"
	"math/big"

	"github.com/pkg/errors"
)

/*
ABI-decodes a call result into Go values, following the provided output
parameters. Only "Type" (or a pre-parsed "AbiType") is used; names are
ignored. Decoded values have these types:

	bool        bool
	uintN/intN  *big.Int
	address     string (object id, e.g. "1.16.321")
	bytesN      []byte (N bytes)
	bytes       []byte
	string      string
	T[k], T[]   []interface{}

Returns an error for malformed input; partial results are never returned.
*/
func Decode(input []byte, outputs []AbiParam) ([]interface{}, error) {
	types, err := paramTypes(outputs)
	if err != nil {
		return nil, err
	}
	return AbiUnmarshalTuple(input, types)
}

// Same as "Decode", but accepts hex input with an optional "0x" prefix.
func DecodeHex(input string, outputs []AbiParam) ([]interface{}, error) {
	buf, err := HexDecode(input)
	if err != nil {
		return nil, err
	}
	return Decode(buf, outputs)
}

/*
ABI-decodes multiple values laid out as one block, typically return values
from a method call. Inverse of "AbiMarshalTuple".
*/
func AbiUnmarshalTuple(input []byte, types []AbiType) ([]interface{}, error) {
	out := make([]interface{}, len(types))
	offset := 0

	for i, atype := range types {
		val, next, err := abiDecodeSlot(input, offset, atype)
		if err != nil {
			return nil, errors.WithMessagef(err, `failed to unmarshal param %v of type %q`, i, atype.Type)
		}
		out[i] = val
		offset = next
	}
	return out, nil
}

/*
ABI-decodes a single value from its self-contained encoding, which must start
at the beginning of the input. Inverse of "AbiMarshal".
*/
func AbiUnmarshal(input []byte, atype AbiType) (interface{}, error) {
	size := atype.Size()
	if size >= 0 && len(input) < size {
		return nil, errors.New(lenMismatch(size, len(input)))
	}
	return abiDecode(input, atype)
}

/*
Decodes the item whose head slot starts at "offset" within "block". Static
items are read in place; dynamic items are read at the offset stored in the
slot, relative to the start of the block. Returns the offset of the next slot.
*/
func abiDecodeSlot(block []byte, offset int, atype AbiType) (interface{}, int, error) {
	next := offset + atype.HeadSize()
	if len(block) < next {
		return nil, 0, errors.New(lenMismatch(next, len(block)))
	}

	if !atype.IsDynamic() {
		val, err := abiDecode(block[offset:next], atype)
		return val, next, err
	}

	heapOffset, err := readSize(block[offset:next])
	if err != nil {
		return nil, 0, err
	}
	if heapOffset > len(block) {
		return nil, 0, errors.Errorf(`offset %v points outside of input (%v bytes)`, heapOffset, len(block))
	}

	val, err := abiDecode(block[heapOffset:], atype)
	return val, next, err
}

func abiDecode(input []byte, atype AbiType) (interface{}, error) {
	switch atype.Kind {
	case AbiKindBool:
		word, err := readWord(input)
		if err != nil {
			return nil, err
		}
		switch Word(word) {
		case trueWord:
			return true, nil
		case falseWord:
			return false, nil
		}
		for i, char := range word[:wordSize-1] {
			if char != 0 {
				return nil, errors.Errorf("malformed bool input: byte %#02x at index %v of 31", char, i)
			}
		}
		return nil, errors.Errorf("malformed bool input: byte %#02x in last position", word[wordSize-1])

	case AbiKindUint:
		word, err := readWord(input)
		if err != nil {
			return nil, err
		}
		return new(big.Int).SetBytes(word), nil

	case AbiKindInt:
		word, err := readWord(input)
		if err != nil {
			return nil, err
		}
		num := new(big.Int).SetBytes(word)
		if word[0]&0x80 != 0 {
			num.Sub(num, bigTwoPow256)
		}
		return num, nil

	case AbiKindAddress:
		word, err := readWord(input)
		if err != nil {
			return nil, err
		}
		id, err := objectIdFromWord(word)
		if err != nil {
			return nil, err
		}
		return id.String(), nil

	case AbiKindFixedBytes:
		word, err := readWord(input)
		if err != nil {
			return nil, err
		}
		return copyBytes(word[:atype.ByteLen]), nil

	case AbiKindBytes, AbiKindString:
		body, err := readLengthPrefixed(input)
		if err != nil {
			return nil, err
		}
		if atype.Kind == AbiKindString {
			return string(body), nil
		}
		return copyBytes(body), nil

	case AbiKindArray:
		// Note: for arrays, this is element count, not byte count
		length := atype.ArrayLen
		if !atype.FixedLen {
			word, err := readWord(input)
			if err != nil {
				return nil, err
			}
			length, err = readSize(word)
			if err != nil {
				return nil, err
			}
			input = input[wordSize:]
		}

		// Bound the allocation by what the input can actually hold.
		headSize := atype.Elem.HeadSize()
		if length < 0 || (headSize > 0 && length > len(input)/headSize) || (headSize == 0 && !atype.FixedLen && length > len(input)) {
			return nil, errors.Errorf(`array length %v exceeds available input (%v bytes)`, length, len(input))
		}
		// Zero-size elements consume nothing, so only a fixed cap applies.
		if headSize == 0 && length > maxEmptyArrayValues {
			return nil, errors.Errorf(`array %s has too many empty elements`, atype.Type)
		}

		out := make([]interface{}, length)
		offset := 0
		for i := range out {
			val, next, err := abiDecodeSlot(input, offset, *atype.Elem)
			if err != nil {
				return nil, errors.WithMessagef(err, `element %v of %s`, i, atype.Type)
			}
			out[i] = val
			offset = next
		}
		return out, nil

	default:
		return nil, errors.Errorf(`can't decode unknown ABI kind %v`, atype.Kind)
	}
}

func readWord(input []byte) ([]byte, error) {
	if len(input) < wordSize {
		return nil, errors.New(lenMismatch(wordSize, len(input)))
	}
	return input[:wordSize], nil
}

func readLengthPrefixed(input []byte) ([]byte, error) {
	word, err := readWord(input)
	if err != nil {
		return nil, err
	}
	length, err := readSize(word)
	if err != nil {
		return nil, err
	}
	body := input[wordSize:]
	if len(body) < length {
		return nil, errors.New(lenMismatch(wordSize+length, len(input)))
	}
	return body[:length], nil
}

// Reads an offset or length word, which must fit into a non-negative int.
func readSize(word []byte) (int, error) {
	num := new(big.Int).SetBytes(word)
	if !num.IsInt64() || num.Int64() > math.MaxInt {
		return 0, errors.Errorf(`offset or length %v is out of range`, num)
	}
	return int(num.Int64()), nil
}

// Fills missing parsed types; "AbiParam" values built by hand may only have
// the type string.
func paramTypes(params []AbiParam) ([]AbiType, error) {
	out := make([]AbiType, len(params))
	for i, param := range params {
		if param.AbiType.Kind != 0 {
			out[i] = param.AbiType
			continue
		}
		atype, err := ParseAbiType(param.Type)
		if err != nil {
			return nil, errors.WithMessagef(err, `failed to parse type of param %v`, i)
		}
		out[i] = atype
	}
	return out, nil
}

// Canonical type name for signatures. Unparseable types are kept verbatim.
func (self AbiParam) canonicalType() string {
	if self.AbiType.Kind != 0 {
		return self.AbiType.Type
	}
	atype, err := ParseAbiType(self.Type)
	if err != nil {
		return self.Type
	}
	return atype.Type
}

func lenMismatch(expected, actual int) string {
	return fmt.Sprintf(`length mismatch: expected at least %v bytes, got %v`, expected, actual)
}

func errMalformedAddress(char byte, index int) error {
	return errors.Errorf("malformed address input: byte %#02x at index %v of 11", char, index)
}
