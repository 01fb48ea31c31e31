package echo

/*
Wire format: every value is made of 32-byte words. Static values are written
in place; dynamic values (bytes, string, T[], T[k] of dynamic T) are written to
the tail of the enclosing block and referenced from its head by a byte offset,
measured from the start of that block.
*/

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const wordSize = 256 / 8

/*
A single typed input for "Encode": an ABI type string and a value. See
"BytesInput" and "ObjectId" for the less obvious value forms.
*/
type AbiItem struct {
	Type  string
	Value interface{}
}

/*
ABI-encodes the items as one block, the way function arguments are encoded,
and returns lowercase hex without the "0x" prefix. A single item is encoded as
a one-element list. Every value is validated before anything is written: on
error, there's no output.
*/
func Encode(items ...AbiItem) (string, error) {
	out, err := EncodeBytes(items...)
	if err != nil {
		return "", err
	}
	return HexEncode(out), nil
}

// Same as "Encode", but returns raw bytes.
func EncodeBytes(items ...AbiItem) ([]byte, error) {
	types := make([]AbiType, len(items))
	inputs := make([]interface{}, len(items))

	for i, item := range items {
		atype, err := ParseAbiType(item.Type)
		if err != nil {
			return nil, errors.WithMessagef(err, `failed to parse type of param %v`, i)
		}
		types[i] = atype
		inputs[i] = item.Value
	}

	return abiAppendTuple(nil, types, inputs)
}

/*
ABI-encodes a single value into its self-contained encoding: one word for
elementary static types, a length-prefixed body for "bytes" and "string", and a
nested block (length-prefixed for "T[]") for arrays. Returns an error in case
of type mismatch or invalid value.
*/
func AbiMarshal(atype AbiType, input interface{}) ([]byte, error) {
	val, err := normalizeAbiValue(atype, input)
	if err != nil {
		return nil, err
	}
	return val.appendTo(nil), nil
}

/*
ABI-encodes multiple values, typically parameters to a method call. Returns an
error in case of arity mismatch, type mismatch, or invalid value.
*/
func AbiMarshalTuple(types []AbiType, inputs ...interface{}) ([]byte, error) {
	return abiAppendTuple(nil, types, inputs)
}

func abiAppendTuple(out []byte, types []AbiType, inputs []interface{}) ([]byte, error) {
	if len(types) != len(inputs) {
		return out, errors.Errorf(`arity mismatch: expected %v inputs, got %v`, len(types), len(inputs))
	}

	// Validate everything first. Past this point, encoding can't fail.
	vals := make([]abiValue, len(types))
	for i, atype := range types {
		val, err := normalizeAbiValue(atype, inputs[i])
		if err != nil {
			return out, errors.WithMessagef(err, `failed to encode param %v of type %q`, i, atype.Type)
		}
		vals[i] = val
	}

	return appendBlock(out, vals), nil
}

// Appends the self-contained encoding of a normalized value.
func (self abiValue) appendTo(out []byte) []byte {
	switch self.atype.Kind {
	case AbiKindBytes, AbiKindString:
		out = abiAppendUint64(out, uint64(len(self.data)))
		return appendRightPadded(out, self.data)

	case AbiKindArray:
		// Note: for arrays, the length word is the element count, not byte count
		if !self.atype.FixedLen {
			out = abiAppendUint64(out, uint64(len(self.elems)))
		}
		return appendBlock(out, self.elems)

	default:
		return append(out, self.word[:]...)
	}
}

/*
Head/tail layout. The head has one slot per item: the item itself if static,
or an offset word if dynamic. Dynamic items follow the head in item order.
Offsets are relative to the start of this block, which makes every block
self-contained regardless of where it ends up.
*/
func appendBlock(out []byte, items []abiValue) []byte {
	heapOffset := 0
	for _, item := range items {
		heapOffset += item.atype.HeadSize()
	}

	var heap []byte

	for _, item := range items {
		if !item.atype.IsDynamic() {
			out = item.appendTo(out)
			continue
		}

		out = abiAppendUint64(out, uint64(heapOffset))
		size := len(heap)
		heap = item.appendTo(heap)
		heapOffset += len(heap) - size
	}

	return append(out, heap...)
}

func abiPaddedLen(length int) int {
	if length <= 0 {
		return length
	}
	return (length + wordSize - 1) / wordSize * wordSize
}

func abiPaddingDelta(length int) int {
	if length <= 0 {
		return 0
	}
	return abiPaddedLen(length) - length
}

var zeroChunk [8]byte

func appendRightPadded(out []byte, buf []byte) []byte {
	out = append(out, buf...)
	delta := abiPaddingDelta(len(buf))
	for delta > 0 {
		out = append(out, 0)
		delta--
	}
	return out
}

func abiAppendUint64(out []byte, num uint64) []byte {
	out = append(out, zeroChunk[:]...)
	out = append(out, zeroChunk[:]...)
	out = append(out, zeroChunk[:]...)
	out = append(out, zeroChunk[:]...)
	binary.BigEndian.PutUint64(out[len(out)-64/8:], num)
	return out
}

var (
	trueWord = func() Word {
		var out Word
		out[len(out)-1] = 1
		return out
	}()
	falseWord Word
)
