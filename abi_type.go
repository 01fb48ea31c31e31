package echo

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

/*
Represents a broad category of ABI types. The set is closed: every AbiType is
one of the elementary kinds, or an array wrapping another AbiType.
*/
type AbiKind byte

const (
	AbiKindBool AbiKind = iota + 1
	AbiKindUint
	AbiKindInt
	AbiKindAddress
	AbiKindFixedBytes // bytesN
	AbiKindBytes
	AbiKindString
	AbiKindArray
)

// Implements "fmt.Stringer".
func (self AbiKind) String() string {
	switch self {
	case AbiKindBool:
		return "AbiKindBool"
	case AbiKindUint:
		return "AbiKindUint"
	case AbiKindInt:
		return "AbiKindInt"
	case AbiKindAddress:
		return "AbiKindAddress"
	case AbiKindFixedBytes:
		return "AbiKindFixedBytes"
	case AbiKindBytes:
		return "AbiKindBytes"
	case AbiKindString:
		return "AbiKindString"
	case AbiKindArray:
		return "AbiKindArray"
	default:
		return ""
	}
}

/*
Details about a concrete ABI type, parsed from a type string such as "bool",
"uint64", "bytes24[3]" or "uint32[][2][]". Used for encoding and decoding.

Treat as immutable: parsed descriptors are cached and shared, including the
"Elem" pointer.
*/
type AbiType struct {
	Type     string   // canonical type string, used in signatures
	Kind     AbiKind
	Bits     int      // AbiKindUint | AbiKindInt
	ByteLen  int      // AbiKindFixedBytes
	ArrayLen int      // can be 0 when FixedLen == true
	FixedLen bool     // implies Kind == AbiKindArray
	Elem     *AbiType // must be present if Kind == AbiKindArray
}

// One array dimension: either Fixed(Len) or Dynamic.
type AbiDim struct {
	Len   int
	Fixed bool
}

/*
Determines how many bytes are needed to ABI-encode a value of this type. Returns
-1 for dynamically-sized types. Otherwise, it's a multiple of 32, starting at 0.
*/
func (self AbiType) Size() int {
	switch self.Kind {
	case AbiKindBytes, AbiKindString:
		return -1
	case AbiKindArray:
		if !self.FixedLen {
			return -1
		}
		size := self.Elem.Size()
		if size >= 0 {
			return size * self.ArrayLen
		}
		return -1
	default:
		return wordSize
	}
}

// Caps zero-size static arrays such as "uint256[0][N]", which decode to N
// values without consuming any input.
const maxEmptyArrayValues = 1 << 20

// Number of Go values a static array decodes into, counting nested arrays.
// Anything else counts as one.
func (self AbiType) valueCount() int {
	if self.Kind != AbiKindArray || !self.FixedLen {
		return 1
	}
	return 1 + self.ArrayLen*self.Elem.valueCount()
}

// True if the encoded length depends on the value. Such values are placed in
// the tail and referenced from the head by an offset word.
func (self AbiType) IsDynamic() bool {
	return self.Size() < 0
}

// How many bytes this type occupies in the head of an enclosing block.
func (self AbiType) HeadSize() int {
	size := self.Size()
	if size < 0 {
		return wordSize
	}
	return size
}

/*
Returns the array dimensions, outermost first. For "uint32[][2][]" that's
Dynamic, Fixed(2), Dynamic. Elementary types have no dimensions.
*/
func (self AbiType) Dimensions() []AbiDim {
	var out []AbiDim
	for typ := self; typ.Kind == AbiKindArray; typ = *typ.Elem {
		out = append(out, AbiDim{Len: typ.ArrayLen, Fixed: typ.FixedLen})
	}
	return out
}

// Returns the elementary type at the bottom of any array dimensions.
func (self AbiType) Base() AbiType {
	for self.Kind == AbiKindArray {
		self = *self.Elem
	}
	return self
}

// Field-by-field comparison, following "Elem".
func (self AbiType) Equal(other AbiType) bool {
	if self.Type != other.Type ||
		self.Kind != other.Kind ||
		self.Bits != other.Bits ||
		self.ByteLen != other.ByteLen ||
		self.ArrayLen != other.ArrayLen ||
		self.FixedLen != other.FixedLen {
		return false
	}
	if self.Elem == nil || other.Elem == nil {
		return self.Elem == other.Elem
	}
	return self.Elem.Equal(*other.Elem)
}

// Implements "fmt.Stringer".
func (self AbiType) String() string { return self.Type }

var (
	abiIntReg        = regexp.MustCompile(`^(u?int)(\d*)$`)
	abiFixedBytesReg = regexp.MustCompile(`^bytes(\d+)$`)
	abiDigitsReg     = regexp.MustCompile(`^\d+$`)
)

/*
Parsing is pure, so descriptors are memoised. The cache is bounded because type
strings may come from untrusted ABI definitions.
*/
var abiTypeCache = func() *lru.Cache[string, AbiType] {
	cache, err := lru.New[string, AbiType](1024)
	if err != nil {
		panic(err)
	}
	return cache
}()

/*
Accepts a name of an ABI type, such as "bytes32", "uint256" or
"address[12][]", and returns its details as an AbiType. Array suffixes are
stripped right to left; the rightmost suffix is the outermost dimension.
Returns a TypeSyntaxError for malformed input.
*/
func ParseAbiType(typeName string) (AbiType, error) {
	out, ok := abiTypeCache.Get(typeName)
	if ok {
		return out, nil
	}

	out, err := parseAbiType(typeName)
	if err != nil {
		return AbiType{}, err
	}
	abiTypeCache.Add(typeName, out)
	return out, nil
}

// Version of "ParseAbiType" that panics on error. Convenient for initializing
// global variables.
func MustParseAbiType(typeName string) AbiType {
	out, err := ParseAbiType(typeName)
	if err != nil {
		panic(err)
	}
	return out
}

// Parses several type strings at once, typically a parameter list.
func ParseAbiTypes(typeNames ...string) ([]AbiType, error) {
	out := make([]AbiType, 0, len(typeNames))
	for _, typeName := range typeNames {
		atype, err := ParseAbiType(typeName)
		if err != nil {
			return nil, err
		}
		out = append(out, atype)
	}
	return out, nil
}

func parseAbiType(typeName string) (AbiType, error) {
	if strings.HasSuffix(typeName, "]") {
		open := strings.LastIndexByte(typeName, '[')
		if open < 0 {
			return AbiType{}, typeSyntax(typeName, malformedDim(typeName))
		}

		elem, err := parseAbiType(typeName[:open])
		if err != nil {
			return AbiType{}, err
		}

		inner := typeName[open+1 : len(typeName)-1]
		if inner == "" {
			return AbiType{
				Type: elem.Type + "[]",
				Kind: AbiKindArray,
				Elem: &elem,
			}, nil
		}

		if !abiDigitsReg.MatchString(inner) {
			return AbiType{}, typeSyntax(typeName, malformedDim(typeName))
		}
		length, err := strconv.Atoi(inner)
		if err != nil {
			return AbiType{}, typeSyntax(typeName, malformedDim(typeName))
		}
		// Static sizes must stay well within int.
		size := elem.Size()
		if (size > 0 && length > math.MaxInt32/size) ||
			(size == 0 && length > maxEmptyArrayValues/elem.valueCount()) {
			return AbiType{}, typeSyntax(typeName, `array "`+typeName+`" is too large`)
		}
		return AbiType{
			Type:     elem.Type + "[" + strconv.Itoa(length) + "]",
			Kind:     AbiKindArray,
			ArrayLen: length,
			FixedLen: true,
			Elem:     &elem,
		}, nil
	}

	if strings.ContainsAny(typeName, "[]") {
		return AbiType{}, typeSyntax(typeName, malformedDim(typeName))
	}

	return parseElementaryType(typeName)
}

func parseElementaryType(typeName string) (AbiType, error) {
	switch {
	case typeName == "bool":
		return AbiType{Type: typeName, Kind: AbiKindBool}, nil

	case typeName == "address":
		return AbiType{Type: typeName, Kind: AbiKindAddress}, nil

	case typeName == "string":
		return AbiType{Type: typeName, Kind: AbiKindString}, nil

	case typeName == "bytes":
		return AbiType{Type: typeName, Kind: AbiKindBytes}, nil

	case abiFixedBytesReg.MatchString(typeName):
		match := abiFixedBytesReg.FindStringSubmatch(typeName)
		count, err := strconv.Atoi(match[1])
		switch {
		case err == nil && count <= 0:
			return AbiType{}, typeSyntax(typeName, "bytes count is not positive")
		case err != nil || count > 32:
			return AbiType{}, typeSyntax(typeName, "bytes count is grater than 32")
		}
		return AbiType{Type: "bytes" + strconv.Itoa(count), Kind: AbiKindFixedBytes, ByteLen: count}, nil

	case abiIntReg.MatchString(typeName):
		match := abiIntReg.FindStringSubmatch(typeName)
		kind := AbiKindUint
		if match[1] == "int" {
			kind = AbiKindInt
		}

		// "uint" and "int" are aliases for the 256-bit versions.
		if match[2] == "" {
			return AbiType{Type: match[1] + "256", Kind: kind, Bits: 256}, nil
		}

		bits, err := strconv.Atoi(match[2])
		switch {
		case err == nil && bits <= 0:
			return AbiType{}, typeSyntax(typeName, "bits count is not positive")
		case err != nil || bits > 256:
			return AbiType{}, typeSyntax(typeName, "bits count is greater than 256")
		case bits%8 != 0:
			return AbiType{}, typeSyntax(typeName, "bits count is not divisible to 8")
		}
		return AbiType{Type: match[1] + strconv.Itoa(bits), Kind: kind, Bits: bits}, nil

	default:
		return AbiType{}, typeSyntax(typeName, `unknown type "`+typeName+`"`)
	}
}

func malformedDim(typeName string) string {
	return `malformed array dimension in "` + typeName + `"`
}
