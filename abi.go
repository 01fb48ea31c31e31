package echo

/*
Echo contracts are EVM contracts; their ABI follows
https://solidity.readthedocs.io/en/develop/abi-spec.html, except that addresses
are Echo object ids. See "ObjectId".
*/

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

/*
Decodes output from a Solidity compiler. Expects JSON produced by the following
incantation:

	solc --combined-json=abi,bin --optimize

Maps contract identifiers to decoded "ContractDef" values. Each identifier has
the form "filePath:contractName".

Note: check the "github.com/purelabio/echo/echoabi" subpackage for a
simpler way of dealing with solc.
*/
func ReadContractDefs(src io.Reader) (map[string]ContractDef, error) {
	var input struct {
		Contracts map[string]struct {
			Abi json.RawMessage
			Bin string
		}
	}

	err := json.NewDecoder(src).Decode(&input)
	if err != nil {
		return nil, errors.Wrap(err, `failed to read Solidity output`)
	}

	out := make(map[string]ContractDef, len(input.Contracts))
	for name, inp := range input.Contracts {
		path := strings.SplitN(name, ":", 2)
		if len(path) != 2 {
			return nil, errors.Errorf(`unexpected contract identifier %q in Solidity output`, name)
		}

		// Older compilers emit the ABI as a JSON string, newer ones inline it.
		abiJson := inp.Abi
		var quoted string
		if json.Unmarshal(abiJson, &quoted) == nil {
			abiJson = json.RawMessage(quoted)
		}

		def := ContractDef{
			FileName:     path[0],
			ContractName: path[1],
			AbiJson:      string(abiJson),
		}

		err := json.Unmarshal(abiJson, &def.Abi)
		if err != nil {
			return nil, errors.Wrap(err, `failed to decode Solidity output`)
		}

		code := stringToBytesUnsafe(inp.Bin)
		buf := make([]byte, hex.DecodedLen(len(code)))
		_, err = hex.Decode(buf, code)
		if err != nil {
			return nil, errors.Wrap(err, `failed to decode Solidity output`)
		}
		def.Code = HexBytes(buf)

		out[name] = def
	}

	return out, nil
}

/*
Decodes output from a Solidity compiler. See ReadContractDefs for details.
*/
func DecodeContractDefs(input []byte) (map[string]ContractDef, error) {
	return ReadContractDefs(bytes.NewReader(input))
}

/*
A structure representing the output of a Solidity compiler for a single
contract. See "ReadContractDefs" for details.
*/
type ContractDef struct {
	FileName     string
	ContractName string
	Abi          Abi
	AbiJson      string
	Code         HexBytes
}

/*
Abi represents method and event definitions of a Solidity contract. It's parsed
from the output of a Solidity compiler. See the subpackage
"github.com/purelabio/echo/echoabi" for a convenient bridge from Solidity to
Go.

See the "AbiMethod" definition.
*/
type Abi []AbiMethod

/*
Parses an ABI definition. The input must be JSON from a Solidity compiler.
Panics on failure. Convenient for initializing global variables on startup:

	var TestAbi = echo.MustParseAbiJson(`[{"name": "test", "type": "function", "inputs": [...]}]`)
*/
func MustParseAbiJson(input string) Abi {
	var abi Abi
	err := abi.UnmarshalJSON(stringToBytesUnsafe(input))
	if err != nil {
		panic(err)
	}
	return abi
}

// Attempts to find the constructor definition. Boolean indicates success or failure.
func (self Abi) MaybeConstructor() (AbiConstructor, bool) {
	for _, entry := range self {
		switch entry := entry.(type) {
		case AbiConstructor:
			return entry, true
		}
	}
	return AbiConstructor{}, false
}

// Returns the constructor definition. Panics if the constructor is not present.
func (self Abi) Constructor() AbiConstructor {
	out, ok := self.MaybeConstructor()
	if !ok {
		panic("constructor not found in ABI definition")
	}
	return out
}

// Attempts to find the method by name. Boolean indicates success or failure.
func (self Abi) MaybeFunction(name string) (AbiFunction, bool) {
	for _, entry := range self {
		switch entry := entry.(type) {
		case AbiFunction:
			if entry.Name == name {
				return entry, true
			}
		}
	}
	return AbiFunction{}, false
}

// Finds the method by name. Panics if not found.
func (self Abi) Function(name string) AbiFunction {
	out, ok := self.MaybeFunction(name)
	if !ok {
		panic(fmt.Sprintf("function %v not found in ABI definition", name))
	}
	return out
}

// Attempts to find the event by name. Boolean indicates success or failure.
func (self Abi) MaybeEvent(name string) (AbiEvent, bool) {
	for _, entry := range self {
		switch entry := entry.(type) {
		case AbiEvent:
			if entry.Name == name {
				return entry, true
			}
		}
	}
	return AbiEvent{}, false
}

// Finds the event by name. Panics if not found.
func (self Abi) Event(name string) AbiEvent {
	out, ok := self.MaybeEvent(name)
	if !ok {
		panic(fmt.Sprintf("event %v not found in ABI definition", name))
	}
	return out
}

/*
Implements "json.Unmarshaler". Decodes a JSON ABI definition produced by a
Solidity compiler. Automatically selects the appropriate data structures for
constructors, functions and events, based on their type. Entries of other
types, such as "fallback", are skipped.
*/
func (self *Abi) UnmarshalJSON(input []byte) error {
	var chunks []json.RawMessage

	err := json.Unmarshal(input, &chunks)
	if err != nil {
		return errors.WithStack(err)
	}

	for _, chunk := range chunks {
		val, err := unmarshalAbiMethod(chunk)
		if err != nil {
			return err
		}
		if val != nil {
			*self = append(*self, val)
		}
	}
	return nil
}

func unmarshalAbiMethod(input []byte) (AbiMethod, error) {
	var tag struct{ Type string }

	err := json.Unmarshal(input, &tag)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var out AbiMethod
	switch tag.Type {
	case "constructor":
		var val AbiConstructor
		err = json.Unmarshal(input, &val)
		out = val
	case "function", "":
		var val AbiFunction
		err = json.Unmarshal(input, &val)
		out = val
	case "event":
		var val AbiEvent
		err = json.Unmarshal(input, &val)
		out = val
	case "fallback", "receive":
		return nil, nil
	default:
		return nil, errors.Errorf("unknown ABI type: %v", tag.Type)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return out, nil
}

/*
Represents one of several possible ABI definitions. Possible types:

	AbiConstructor
	AbiFunction
	AbiEvent
*/
type AbiMethod interface{}

// Represents a contract constructor.
type AbiConstructor struct {
	Type            string     `json:"type"` // "constructor"
	Inputs          []AbiParam `json:"inputs"`
	Payable         bool       `json:"payable"`
	StateMutability string     `json:"stateMutability"`
}

/*
ABI-encodes the constructor arguments, without a selector. The result is
appended to the contract code when deploying; see "DeploymentCode".
*/
func (self AbiConstructor) Marshal(args ...interface{}) ([]byte, error) {
	return AssembleConstructor(self.Inputs, args...)
}

/*
Represents a contract method. Useful for ABI-encoding arguments and ABI-decoding
return values. Usually obtained via "Abi.Function()".
*/
type AbiFunction struct {
	Type            string     `json:"type"` // "function" | ""
	Name            string     `json:"name"`
	Constant        bool       `json:"constant"`
	Inputs          []AbiParam `json:"inputs"`
	Outputs         []AbiParam `json:"outputs"`
	Payable         bool       `json:"payable"`
	StateMutability string     `json:"stateMutability"`
	Selector        [4]byte    `json:"-"`
}

/*
ABI-encodes the arguments, which must exactly match this method's parameter
signature. Prepends the method's ".Selector", or the Keccak256 selector of its
signature when ".Selector" is unset, as in hand-built definitions. The result
is the payload of a contract call. Returns an error in case of arity or type
mismatch.
*/
func (self AbiFunction) Marshal(args ...interface{}) ([]byte, error) {
	if self.Selector == ([4]byte{}) {
		return self.MarshalWith(Keccak256, args...)
	}

	types, err := paramTypes(self.Inputs)
	if err != nil {
		return nil, err
	}
	out, err := abiAppendTuple(self.Selector[:], types, args)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Same as "Marshal", but derives the selector with the provided hash function.
func (self AbiFunction) MarshalWith(hash Hasher, args ...interface{}) ([]byte, error) {
	return AssembleCall(hash, self.Name, self.Inputs, args...)
}

/*
ABI-decodes a call result according to this method's return signature. See
"Decode" for the types of the returned values. Returns an error in case of
malformed input.
*/
func (self AbiFunction) Unmarshal(input []byte) ([]interface{}, error) {
	return Decode(input, self.Outputs)
}

// Canonical signature, e.g. "transfer(address,uint256)".
func (self AbiFunction) Signature() string {
	return Signature(self.Name, self.Inputs)
}

/*
Implements "json.Unmarshaler". In addition to parsing the JSON structure, this
precomputes the method's ".Selector", which is used when ABI-encoding arguments
for method calls.
*/
func (self *AbiFunction) UnmarshalJSON(input []byte) error {
	var plain struct {
		Type            string
		Name            string
		Constant        bool
		Inputs          []AbiParam
		Outputs         []AbiParam
		Payable         bool
		StateMutability string
	}

	err := json.Unmarshal(input, &plain)
	if err != nil {
		return err
	}

	*self = AbiFunction{
		Type:            plain.Type,
		Name:            plain.Name,
		Constant:        plain.Constant,
		Inputs:          plain.Inputs,
		Outputs:         plain.Outputs,
		Payable:         plain.Payable,
		StateMutability: plain.StateMutability,
		Selector:        Selector(Keccak256, Signature(plain.Name, plain.Inputs)),
	}
	return nil
}

/*
Represents a contract event. Useful for decoding contract logs. Usually
obtained via "Abi.Event()".
*/
type AbiEvent struct {
	Type             string     `json:"type"` // "event"
	Name             string     `json:"name"`
	Inputs           []AbiParam `json:"inputs"`
	Anonymous        bool       `json:"anonymous"`
	Selector         Word       `json:"-"`
	IndexedInputs    []AbiParam `json:"-"`
	NonIndexedInputs []AbiParam `json:"-"`
}

/*
Implements "json.Unmarshaler". In addition to parsing the JSON structure, this
precomputes the event's ".Selector", which is the first topic of its logs.
*/
func (self *AbiEvent) UnmarshalJSON(input []byte) error {
	var plain struct {
		Type      string
		Name      string
		Inputs    []AbiParam
		Anonymous bool
	}

	err := json.Unmarshal(input, &plain)
	if err != nil {
		return err
	}

	var indexed []AbiParam
	var nonIndexed []AbiParam
	for _, param := range plain.Inputs {
		if param.Indexed {
			indexed = append(indexed, param)
		} else {
			nonIndexed = append(nonIndexed, param)
		}
	}

	var selector Word
	copy(selector[:], Keccak256([]byte(Signature(plain.Name, plain.Inputs))))

	*self = AbiEvent{
		Type:             plain.Type,
		Name:             plain.Name,
		Inputs:           plain.Inputs,
		Anonymous:        plain.Anonymous,
		Selector:         selector,
		IndexedInputs:    indexed,
		NonIndexedInputs: nonIndexed,
	}
	return nil
}

// Shortcut for "UnmarshalLog" with the topics and data of a log entry.
func (self AbiEvent) UnmarshalLogEntry(entry LogEntry) ([]interface{}, error) {
	return self.UnmarshalLog(entry.Topics, entry.Data)
}

/*
ABI-decodes event parameters from the topics and data of a contract log. The
output has one value per event parameter, in declaration order.

Indexed parameters are stored as topics: static ones are ABI-encoded words,
dynamic ones are hashed. Since hashing loses information, this returns an
error for events with dynamic indexed parameters. Non-indexed parameters are
encoded as their own tuple in the log data.

Returns an error in case of event mismatch, arity mismatch, or malformed
input.
*/
func (self AbiEvent) UnmarshalLog(topics []Word, data []byte) ([]interface{}, error) {
	indexedTopics := topics
	if !self.Anonymous {
		if len(topics) == 0 || topics[0] != self.Selector {
			return nil, errors.Errorf(`log entry doesn't appear to contain event %v`, self.Name)
		}
		indexedTopics = topics[1:]
	}

	if len(indexedTopics) != len(self.IndexedInputs) {
		return nil, errors.Errorf(`parameter mismatch in event %v: expected %v indexed parameters, found %v`,
			self.Name, len(self.IndexedInputs), len(indexedTopics))
	}

	types, err := paramTypes(self.Inputs)
	if err != nil {
		return nil, err
	}
	for i, param := range self.Inputs {
		if param.Indexed && types[i].IsDynamic() {
			return nil, errors.Errorf(
				`can't ABI-decode parameter %v of type %v in event %v: parameter is hashed`,
				i, types[i].Type, self.Name)
		}
	}

	nonIndexed, err := Decode(data, self.NonIndexedInputs)
	if err != nil {
		return nil, err
	}

	out := make([]interface{}, len(self.Inputs))
	for i, param := range self.Inputs {
		if !param.Indexed {
			out[i], nonIndexed = nonIndexed[0], nonIndexed[1:]
			continue
		}

		topic := indexedTopics[0]
		indexedTopics = indexedTopics[1:]

		val, err := AbiUnmarshal(topic[:], types[i])
		if err != nil {
			return nil, errors.WithMessagef(err, `failed to unmarshal indexed param %v of event %v`, i, self.Name)
		}
		out[i] = val
	}
	return out, nil
}

/*
Represents a method parameter, method return value, or event parameter.
Part of an ABI definition, used for encoding and decoding.
*/
type AbiParam struct {
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Indexed bool    `json:"indexed,omitempty"` // event only
	AbiType AbiType `json:"-"`
}

// Builds parameters from type strings, parsing them eagerly.
func AbiParams(typeNames ...string) ([]AbiParam, error) {
	out := make([]AbiParam, len(typeNames))
	for i, typeName := range typeNames {
		atype, err := ParseAbiType(typeName)
		if err != nil {
			return nil, err
		}
		out[i] = AbiParam{Type: typeName, AbiType: atype}
	}
	return out, nil
}

/*
Implements "json.Unmarshaler". Parses the type string eagerly, so that an
invalid ABI definition fails to load rather than failing on first use. Tuple
types are not supported.
*/
func (self *AbiParam) UnmarshalJSON(input []byte) error {
	var plain struct {
		Type       string
		Components []json.RawMessage
		Name       string
		Indexed    bool
	}

	err := json.Unmarshal(input, &plain)
	if err != nil {
		return err
	}

	if len(plain.Components) > 0 || strings.HasPrefix(plain.Type, "tuple") {
		return errors.Errorf(`parameter %q: tuple types are not supported`, plain.Name)
	}

	abiType, err := ParseAbiType(plain.Type)
	if err != nil {
		return errors.WithMessagef(err, `parameter %q`, plain.Name)
	}

	*self = AbiParam{
		Type:    plain.Type,
		Name:    plain.Name,
		Indexed: plain.Indexed,
		AbiType: abiType,
	}
	return nil
}
