/*
Library for working with Echo smart contracts from within a Go program: ABI
encoding and decoding, call assembly, and a thin contract layer over the node's
JSON-RPC API.

Echo contracts run on an EVM and use the Solidity ABI, with one difference:
addresses are Echo object ids such as "1.2.123" (accounts) or "1.16.321"
(contracts), packed into the 20-byte address field. See "ObjectId".

Features:

	* ABI type parsing: elementary types and nested fixed/dynamic arrays

	* ABI encoding and decoding with head/tail layout

	* method selectors and call payloads, with an injectable hash function

	* contract ABI definitions from Solidity compiler output

	* contracts: calls and deployment through injected collaborators

	* RPC transports (HTTP, websocket) with optional Prometheus metrics

	* CLI tool "echoabi" for encoding, decoding, calling contracts, and
	  generating Go definitions (the latter requires a Solidity compiler)

Encoding

Values are encoded against parsed types:

	out, err := echo.Encode(
		echo.AbiItem{Type: "uint256", Value: big.NewInt(123)},
		echo.AbiItem{Type: "address", Value: "1.16.321"},
		echo.AbiItem{Type: "bytes4", Value: echo.BytesInput{Value: "dead", Align: echo.AlignLeft}},
		echo.AbiItem{Type: "string[]", Value: []string{"one", "two"}},
	)

Every value is validated before anything is written. An encoding call either
returns the complete output or an error; errors are "TypeSyntaxError",
"InvalidValueError" or "FormatError", possibly wrapped with the position of
the offending parameter. Use "errors.As" to inspect them.

Integers accept Go integer types, *big.Int, decimal.Decimal, json.Number,
numeric strings, and floats that are exactly representable. Negative integers
are sign-extended to the full word.

Byte sequences accept hex strings, []byte, or "BytesInput", which also
supports text encodings and alignment for "bytesN" values shorter than N.

Decoding

	vals, err := echo.Decode(output, []echo.AbiParam{{Type: "uint256"}, {Type: "string"}})

Decoded integers are always *big.Int, addresses are object id strings, byte
sequences are []byte, arrays are []interface{}. Malformed input, including
offsets or lengths that point outside of the input, results in an error and
no partial output.

Contracts

A "Contract" pairs an ABI with an id and a "Caller":

	trans, err := echo.Dial("wss://node.example.com/ws", logger)
	contract := echo.Contract{
		Abi:     TokenAbi,
		Address: "1.16.7829",
		Caller:  echo.NodeCaller{Trans: trans, CallerId: "1.2.5"},
	}
	vals, err := contract.Call(ctx, "balanceOf", "1.2.5")

Deployment goes through a "Deployer", which is responsible for building and
signing the transaction; this package only assembles the code and the
constructor arguments. See "Deploy".

Concurrency

Encoding, decoding, and type parsing are pure and safe for concurrent use.
Parsed types are cached in a bounded LRU. Transports are safe for concurrent
use.
*/
package echo
