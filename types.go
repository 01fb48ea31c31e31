package echo

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

var null = []byte{'n', 'u', 'l', 'l'}

/*
Version of "[]byte" that uses the node's hex format: lowercase, no "0x" prefix.
Decoding accepts an optional "0x" prefix.
*/
type HexBytes []byte

/*
Decodes the provided string. Zero-length input is ok. The "0x" prefix is
optional.
*/
func ParseHexBytes(input string) (HexBytes, error) {
	out, err := HexDecode(input)
	return HexBytes(out), err
}

// Version of "ParseHexBytes" that panics on error. Convenient for
// initializing global variables.
func MustParseHexBytes(input string) HexBytes {
	out, err := ParseHexBytes(input)
	if err != nil {
		panic(err)
	}
	return out
}

// Implements "encoding.TextMarshaler".
func (self HexBytes) MarshalText() ([]byte, error) {
	return stringToBytesUnsafe(HexEncode(self)), nil
}

// Implements "encoding.TextUnmarshaler". Empty input is ok.
func (self *HexBytes) UnmarshalText(input []byte) error {
	out, err := HexDecode(string(input))
	if err != nil {
		return err
	}
	*self = HexBytes(out)
	return nil
}

/*
Implements "json.Marshaler". A zero-length value encodes as "null". Otherwise,
it encodes as a hex string without a prefix.
*/
func (self HexBytes) MarshalJSON() ([]byte, error) {
	if len(self) == 0 {
		return null, nil
	}
	return hexEncodeQuoted(self), nil
}

// Implements "fmt.Stringer". Follows the same rules as "MarshalText".
func (self HexBytes) String() string {
	return HexEncode(self)
}

/*
A Word is the atomic unit of the ABI wire format: 32 bytes of arbitrary
content. Every elementary type is padded to exactly one word; the head of every
block is a sequence of words. Also used for event topics.

Uses the unprefixed hex notation for encoding and decoding. An empty Word{}
will text-encode as "" and JSON-encode as `null`.
*/
type Word [32]byte

// Decodes the provided string. Zero-length input is ok.
func ParseWord(input string) (Word, error) {
	var out Word
	err := out.UnmarshalText([]byte(input))
	return out, err
}

// Version of "ParseWord" that panics on error. Convenient for initializing
// global variables.
func MustParseWord(input string) Word {
	out, err := ParseWord(input)
	if err != nil {
		panic(err)
	}
	return out
}

/*
Implements "encoding.TextMarshaler". A zero-initialized value encodes as "",
otherwise uses unprefixed hex encoding.
*/
func (self Word) MarshalText() ([]byte, error) {
	if self == ZeroWord {
		return nil, nil
	}
	return stringToBytesUnsafe(HexEncode(self[:])), nil
}

// Implements "encoding.TextUnmarshaler". Empty input is ok.
func (self *Word) UnmarshalText(input []byte) error {
	if len(input) == 0 {
		*self = Word{}
		return nil
	}
	out, err := HexDecode(string(input))
	if err != nil {
		return err
	}
	if len(out) != len(self) {
		return errors.Errorf(`hex input %s has %d bytes, want %d`, input, len(out), len(self))
	}
	copy(self[:], out)
	return nil
}

// Implements "json.Marshaler". A zero-initialized value encodes as "null".
func (self Word) MarshalJSON() ([]byte, error) {
	if self == ZeroWord {
		return null, nil
	}
	return hexEncodeQuoted(self[:]), nil
}

/*
Implements "fmt.Stringer". Unlike "MarshalText" and "MarshalJSON", doesn't
have special rules for zero-initialized values.
*/
func (self Word) String() string {
	return HexEncode(self[:])
}

// Intermediary structure used internally by transports.
type either struct {
	val []byte
	err error
}

/*
JSON-RPC request. Echo nodes expose their APIs through the Graphene-style
"call" method; see "DatabaseCall".
*/
type rpcRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	Id      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Jsonrpc string      `json:"jsonrpc"`
	Id      string      `json:"id"`
	Result  interface{} `json:"result"`
	Error   *RpcError   `json:"error"`
}

/*
JSON-RPC error returned by the node, for example when a contract call fails
during evaluation.
*/
type RpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Implements "error".
func (self RpcError) Error() string {
	if len(self.Data) > 0 {
		return fmt.Sprintf("RPC error %d: %s: %s", self.Code, self.Message, self.Data)
	}
	return fmt.Sprintf("RPC error %d: %s", self.Code, self.Message)
}

/*
A single contract log entry: the emitting contract, its topics, and the
ABI-encoded non-indexed parameters. Decode with "AbiEvent.UnmarshalLogEntry".
*/
type LogEntry struct {
	Address string   `json:"address"`
	Topics  []Word   `json:"log"`
	Data    HexBytes `json:"data"`
}
