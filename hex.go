package echo

import (
	"encoding/hex"

	"github.com/pkg/errors"
)

/*
Hex-encodes the input in the wire format used by Echo nodes and call payloads:
lowercase, without the "0x" prefix.
*/
func HexEncode(input []byte) string {
	return hex.EncodeToString(input)
}

// Same as "HexEncode", but prepends "0x". Used for display.
func HexEncode0x(input []byte) string {
	out := make([]byte, HexEncodedLen(len(input)))
	out[0] = '0'
	out[1] = 'x'
	hex.Encode(out[2:], input)
	return bytesToMutableString(out)
}

/*
Hex-decodes the input. The "0x" prefix is optional: it's stripped only at
text-parsing boundaries, and node responses usually omit it. Empty input is
ok and decodes to an empty slice.
*/
func HexDecode(input string) ([]byte, error) {
	raw := drop0x(input)
	out, err := hex.DecodeString(raw)
	if err != nil {
		return nil, errors.Wrapf(err, `malformed hex input %q`, input)
	}
	return out, nil
}

// Version of "HexDecode" that panics on error. Convenient for initializing
// global variables.
func MustHexDecode(input string) []byte {
	output, err := HexDecode(input)
	if err != nil {
		panic(err)
	}
	return output
}

func drop0x(input string) string {
	if len(input) >= 2 && input[0] == '0' && (input[1] == 'x' || input[1] == 'X') {
		return input[2:]
	}
	return input
}

// True if the input, minus an optional "0x", is an even number of hex digits.
func isHex(input string) bool {
	raw := drop0x(input)
	if len(raw)%2 != 0 {
		return false
	}
	for i := 0; i < len(raw); i++ {
		switch char := raw[i]; {
		case '0' <= char && char <= '9':
		case 'a' <= char && char <= 'f':
		case 'A' <= char && char <= 'F':
		default:
			return false
		}
	}
	return true
}

/*
Similar to "hex.EncodedLen" from "encoding/hex". Takes an unencoded byte count
and returns how many bytes are needed to hex-encode it with the "0x" prefix.
Namely, it returns "(len * 2) + 2".
*/
func HexEncodedLen(len int) int {
	return (len * 2) + 2
}

func hexEncodeQuoted(input []byte) []byte {
	out := make([]byte, hex.EncodedLen(len(input))+2)
	out[0] = '"'
	hex.Encode(out[1:len(out)-1], input)
	out[len(out)-1] = '"'
	return out
}
