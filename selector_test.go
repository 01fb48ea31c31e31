package echo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeccak256(t *testing.T) {
	assert.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		HexEncode(Keccak256(nil)))
	assert.Equal(t,
		"ddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
		HexEncode(Keccak256([]byte("Transfer(address,address,uint256)"))))
}

func TestSelector(t *testing.T) {
	for _, test := range []struct {
		signature string
		exp       string
	}{
		{"transfer(address,uint256)", "a9059cbb"},
		{"at(address)", "dce4a447"},
		{"balanceOf(address)", "70a08231"},
		{"qwe(bytes24[3],uint32[][2][],string)", "9c89d58f"},
	} {
		selector := Selector(Keccak256, test.signature)
		assert.Equal(t, test.exp, HexEncode(selector[:]), test.signature)

		// A nil hasher means Keccak256.
		assert.Equal(t, selector, Selector(nil, test.signature))
	}
}

func TestSignature(t *testing.T) {
	assert.Equal(t, "four()", Signature("four", nil))
	assert.Equal(t,
		"qwe(bytes24[3],uint32[][2][],string)",
		Signature("qwe", params("bytes24[3]", "uint32[][2][]", "string")))

	// Aliases are canonicalized.
	assert.Equal(t, "f(uint256,int256[2])", Signature("f", params("uint", "int[2]")))

	// Params without a parsed type fall back to the declared type.
	assert.Equal(t, "g(uint256)", Signature("g", []AbiParam{{Type: "uint256"}}))
	assert.Equal(t, "g(uint256,int8[])", Signature("g", []AbiParam{{Type: "uint"}, {Type: "int8[]"}}))

	// Unparseable types are kept as declared.
	assert.Equal(t, "g(uint9)", Signature("g", []AbiParam{{Type: "uint9"}}))
}

var qweParams = params("bytes24[3]", "uint32[][2][]", "string")

func qweArgs() []interface{} {
	return []interface{}{
		[]interface{}{
			[]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23},
			BytesInput{Value: "dead", Align: AlignLeft},
			BytesInput{Value: "qwe", Encoding: "ascii", Align: AlignRight},
		},
		[][2][]int{{{}, {1}}, {{2, 3}, {4, 5, 6}}, {{7, 8}, {9}}},
		" \\(ꙨပꙨ)// ",
	}
}

const qwePayload = "9c89d58f" +
	"000102030405060708090a0b0c0d0e0f10111213141516170000000000000000" +
	"dead000000000000000000000000000000000000000000000000000000000000" +
	"0000000000000000000000000000000000000000007177650000000000000000" +
	"00000000000000000000000000000000000000000000000000000000000000a0" +
	"00000000000000000000000000000000000000000000000000000000000003c0" +
	"0000000000000000000000000000000000000000000000000000000000000003" +
	"0000000000000000000000000000000000000000000000000000000000000060" +
	"0000000000000000000000000000000000000000000000000000000000000100" +
	"0000000000000000000000000000000000000000000000000000000000000220" +
	"0000000000000000000000000000000000000000000000000000000000000040" +
	"0000000000000000000000000000000000000000000000000000000000000060" +
	"0000000000000000000000000000000000000000000000000000000000000000" +
	"0000000000000000000000000000000000000000000000000000000000000001" +
	"0000000000000000000000000000000000000000000000000000000000000001" +
	"0000000000000000000000000000000000000000000000000000000000000040" +
	"00000000000000000000000000000000000000000000000000000000000000a0" +
	"0000000000000000000000000000000000000000000000000000000000000002" +
	"0000000000000000000000000000000000000000000000000000000000000002" +
	"0000000000000000000000000000000000000000000000000000000000000003" +
	"0000000000000000000000000000000000000000000000000000000000000003" +
	"0000000000000000000000000000000000000000000000000000000000000004" +
	"0000000000000000000000000000000000000000000000000000000000000005" +
	"0000000000000000000000000000000000000000000000000000000000000006" +
	"0000000000000000000000000000000000000000000000000000000000000040" +
	"00000000000000000000000000000000000000000000000000000000000000a0" +
	"0000000000000000000000000000000000000000000000000000000000000002" +
	"0000000000000000000000000000000000000000000000000000000000000007" +
	"0000000000000000000000000000000000000000000000000000000000000008" +
	"0000000000000000000000000000000000000000000000000000000000000001" +
	"0000000000000000000000000000000000000000000000000000000000000009" +
	"0000000000000000000000000000000000000000000000000000000000000010" +
	"205c28ea99a8e18095ea99a8292f2f2000000000000000000000000000000000"

func TestAssembleCall(t *testing.T) {
	out, err := AssembleCall(Keccak256, "qwe", qweParams, qweArgs()...)
	require.NoError(t, err)
	assert.Equal(t, qwePayload, HexEncode(out))
}

func TestAssembleCall_aliasedParams(t *testing.T) {
	aliased, err := AssembleCall(nil, "f", []AbiParam{{Type: "uint"}}, 1)
	require.NoError(t, err)
	canonical, err := AssembleCall(nil, "f", params("uint256"), 1)
	require.NoError(t, err)

	assert.Equal(t, "b3de648b"+zeroHex(63)+"1", HexEncode(aliased))
	assert.Equal(t, canonical, aliased)
}

func TestAssembleCall_injectedHash(t *testing.T) {
	var hashed []string
	hash := Hasher(func(input []byte) []byte {
		hashed = append(hashed, string(input))
		return []byte{0xca, 0xfe, 0xba, 0xbe, 0xff}
	})

	out, err := AssembleCall(hash, "one", params("uint256"), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"one(uint256)"}, hashed)
	assert.Equal(t, "cafebabe"+zeroHex(62)+"01", HexEncode(out))
}

func TestAssembleCall_invalidArgs(t *testing.T) {
	hashed := false
	hash := Hasher(func(input []byte) []byte {
		hashed = true
		return Keccak256(input)
	})

	_, err := AssembleCall(hash, "one", params("uint256"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arity mismatch in one: expected 1 inputs, got 0")

	_, err = AssembleCall(hash, "one", params("uint8"), 256)
	require.Error(t, err)

	assert.False(t, hashed)
}

func TestAssembleConstructor(t *testing.T) {
	out, err := AssembleConstructor(qweParams, qweArgs()...)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimPrefix(qwePayload, "9c89d58f"), HexEncode(out))

	out, err = AssembleConstructor(nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = AssembleConstructor(params("bool"), "yes")
	require.Error(t, err)
}

func TestDeploymentCode(t *testing.T) {
	code := []byte{0x60, 0x80, 0x60, 0x40}

	out, err := DeploymentCode(code, params("uint256"), 7)
	require.NoError(t, err)
	assert.Equal(t, "60806040"+zeroHex(62)+"07", HexEncode(out))
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40}, code)

	out, err = DeploymentCode(code, nil)
	require.NoError(t, err)
	assert.Equal(t, code, out)
}
