package echo

import (
	"math/big"
	"regexp"
	"strconv"
)

// Object-id components used by the address encoding.
const (
	ObjectSpaceProtocol = 1
	ObjectTypeAccount   = 2
	ObjectTypeContract  = 16
)

// Marker byte that distinguishes non-account objects in a 20-byte address.
const addressObjectMarker = 0x01

var (
	objectIdReg   = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)$`)
	contractIdReg = regexp.MustCompile(`^1\.16\.(0|[1-9]\d*)$`)

	bigTwoPow152 = new(big.Int).Lsh(big.NewInt(1), 152)
	bigTwoPow160 = new(big.Int).Lsh(big.NewInt(1), 160)
)

/*
An Echo object id, written as "space.type.instance", e.g. "1.2.123" for an
account or "1.16.321" for a contract. The instance is arbitrary-precision; it's
range-checked only when packed into an ABI address word.
*/
type ObjectId struct {
	Space    uint64
	Type     uint64
	Instance *big.Int
}

/*
Parses an object id. Each component must be decimal without leading zeros.
Returns a FormatError with the message "invalid address format" otherwise.
*/
func ParseObjectId(input string) (ObjectId, error) {
	match := objectIdReg.FindStringSubmatch(input)
	if match == nil {
		return ObjectId{}, badFormat("invalid address format")
	}

	space, err := strconv.ParseUint(match[1], 10, 64)
	if err != nil {
		return ObjectId{}, badFormat("invalid address format")
	}
	typ, err := strconv.ParseUint(match[2], 10, 64)
	if err != nil {
		return ObjectId{}, badFormat("invalid address format")
	}
	instance, _ := new(big.Int).SetString(match[3], 10)

	return ObjectId{Space: space, Type: typ, Instance: instance}, nil
}

/*
Parses a contract id, which must have the form "1.16.<instance>" with the
instance below 2**152. Used where a contract address is supplied directly,
rather than as an ABI argument.
*/
func ParseContractId(input string) (ObjectId, error) {
	match := contractIdReg.FindStringSubmatch(input)
	if match == nil {
		return ObjectId{}, badFormat("invalid contractId format")
	}

	instance, _ := new(big.Int).SetString(match[1], 10)
	if instance.Cmp(bigTwoPow152) >= 0 {
		return ObjectId{}, invalidValue("contractId is greater than or equals to 2**152")
	}

	return ObjectId{Space: ObjectSpaceProtocol, Type: ObjectTypeContract, Instance: instance}, nil
}

// Version of "ParseObjectId" that panics on error.
func MustParseObjectId(input string) ObjectId {
	out, err := ParseObjectId(input)
	if err != nil {
		panic(err)
	}
	return out
}

func (self ObjectId) IsAccount() bool  { return self.Type == ObjectTypeAccount }
func (self ObjectId) IsContract() bool { return self.Type == ObjectTypeContract }

// Implements "fmt.Stringer".
func (self ObjectId) String() string {
	out := make([]byte, 0, 16)
	out = strconv.AppendUint(out, self.Space, 10)
	out = append(out, '.')
	out = strconv.AppendUint(out, self.Type, 10)
	out = append(out, '.')
	return string(self.instance().Append(out, 10))
}

/*
Packs the object id into an ABI address word. Accounts occupy the whole 20-byte
address field; other objects get a 0x01 marker byte followed by a 19-byte
instance. The field is left-padded to 32 bytes.
*/
func (self ObjectId) AbiWord() (Word, error) {
	var out Word
	instance := self.instance()

	if instance.Sign() < 0 {
		return out, invalidValue("objectId is negative")
	}

	if self.IsAccount() {
		if instance.Cmp(bigTwoPow160) >= 0 {
			return out, invalidValue("objectId is greater or equals to 2**160")
		}
		instance.FillBytes(out[wordSize-20:])
		return out, nil
	}

	if instance.Cmp(bigTwoPow152) >= 0 {
		return out, invalidValue("objectId is greater or equals to 2**152")
	}
	out[wordSize-20] = addressObjectMarker
	instance.FillBytes(out[wordSize-19:])
	return out, nil
}

func (self ObjectId) instance() *big.Int {
	if self.Instance == nil {
		return new(big.Int)
	}
	return self.Instance
}

/*
Inverse of "ObjectId.AbiWord". The space is always 1. A marker byte means a
contract; anything else is read as a 20-byte account instance.
*/
func objectIdFromWord(word []byte) (ObjectId, error) {
	for i, char := range word[:wordSize-20] {
		if char != 0 {
			return ObjectId{}, errMalformedAddress(char, i)
		}
	}

	field := word[wordSize-20 : wordSize]
	if field[0] == addressObjectMarker {
		return ObjectId{
			Space:    ObjectSpaceProtocol,
			Type:     ObjectTypeContract,
			Instance: new(big.Int).SetBytes(field[1:]),
		}, nil
	}
	return ObjectId{
		Space:    ObjectSpaceProtocol,
		Type:     ObjectTypeAccount,
		Instance: new(big.Int).SetBytes(field),
	}, nil
}
