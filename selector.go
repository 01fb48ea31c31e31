package echo

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

/*
Hash function used to derive method selectors and event topics from canonical
signatures. Injected into the call assembler; "Keccak256" is what Echo nodes
use, and is the default wherever a nil Hasher is passed.
*/
type Hasher func(input []byte) []byte

// Legacy Keccak256, as used by the EVM. Not the same as SHA3-256.
func Keccak256(input []byte) []byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write(input)
	return hash.Sum(nil)
}

func (self Hasher) orDefault() Hasher {
	if self == nil {
		return Keccak256
	}
	return self
}

/*
Builds the canonical signature of a method or event: its name followed by the
parenthesized, comma-joined parameter types, without spaces. Types are in
canonical form, e.g. "uint" becomes "uint256".

	transfer(address,uint256)
*/
func Signature(name string, params []AbiParam) string {
	typeNames := make([]string, len(params))
	for i, param := range params {
		typeNames[i] = param.canonicalType()
	}
	return signatureOf(name, typeNames)
}

func typesSignature(name string, types []AbiType) string {
	typeNames := make([]string, len(types))
	for i, atype := range types {
		typeNames[i] = atype.Type
	}
	return signatureOf(name, typeNames)
}

func signatureOf(name string, typeNames []string) string {
	var buf strings.Builder
	buf.WriteString(name)
	buf.WriteByte('(')
	buf.WriteString(strings.Join(typeNames, ","))
	buf.WriteByte(')')
	return buf.String()
}

// The first 4 bytes of the signature's hash.
func Selector(hash Hasher, signature string) [4]byte {
	sum := hash.orDefault()(stringToBytesUnsafe(signature))
	var out [4]byte
	copy(out[:], sum)
	return out
}

/*
Builds a call payload: the method's 4-byte selector followed by the
ABI-encoded arguments. The arguments must exactly match the parameters.
Nothing is hashed or encoded if any argument is invalid.
*/
func AssembleCall(hash Hasher, name string, params []AbiParam, args ...interface{}) ([]byte, error) {
	types, err := paramTypes(params)
	if err != nil {
		return nil, err
	}
	if len(types) != len(args) {
		return nil, errors.Errorf(`arity mismatch in %v: expected %v inputs, got %v`, name, len(types), len(args))
	}

	// The selector is filled in after the arguments are known to be valid.
	out, err := abiAppendTuple(make([]byte, 4), types, args)
	if err != nil {
		return nil, err
	}
	selector := Selector(hash, typesSignature(name, types))
	copy(out, selector[:])
	return out, nil
}

/*
Builds a constructor payload: the ABI-encoded arguments with no selector.
During deployment, the payload is appended to the contract code; see
"DeploymentCode".
*/
func AssembleConstructor(params []AbiParam, args ...interface{}) ([]byte, error) {
	types, err := paramTypes(params)
	if err != nil {
		return nil, err
	}
	return abiAppendTuple(nil, types, args)
}

// Contract code followed by the encoded constructor arguments.
func DeploymentCode(code []byte, params []AbiParam, args ...interface{}) ([]byte, error) {
	payload, err := AssembleConstructor(params, args...)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(code)+len(payload))
	out = append(out, code...)
	return append(out, payload...), nil
}
