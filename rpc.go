package echo

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

/*
Name of the node API that serves read-only queries, including contract calls
that don't change state. Echo nodes expose their APIs through the single
"call" JSON-RPC method, taking the API name, the method name, and the
arguments.
*/
const DatabaseApi = "database"

/*
Invokes a method of the node's database API: sends a "call" request with the
parameters ["database", method, args], and decodes the result into `out`.
*/
func DatabaseCall(ctx context.Context, trans Trans, out interface{}, method string, args ...interface{}) error {
	if args == nil {
		args = []interface{}{}
	}
	err := trans.Call(ctx, out, "call", DatabaseApi, method, args)
	return errors.Wrapf(err, `error in %q`, method)
}

/*
Strongly-typed version of the "call_contract_no_changing_state" database
method. Evaluates a contract call against the current state without creating a
transaction. The payload is a hex-encoded call, as produced by "AssembleCall"
or "Contract.Payload"; the result is the raw ABI-encoded output.

The caller is the account on whose behalf the call is evaluated; the asset is
the one that would pay for it, usually "DefaultAssetId".
*/
func CallContractNoChangingState(
	ctx context.Context, trans Trans, contractId string, callerId string, assetId string, payloadHex string,
) ([]byte, error) {
	var out string
	err := DatabaseCall(ctx, trans, &out, "call_contract_no_changing_state", contractId, callerId, assetId, payloadHex)
	if err != nil {
		return nil, err
	}

	buf, err := HexDecode(out)
	if err != nil {
		return nil, errors.WithMessage(err, `malformed result of "call_contract_no_changing_state"`)
	}
	return buf, nil
}

/*
Strongly-typed version of the "get_objects" database method. Returns one JSON
object per requested id, in order; missing objects are "null".
*/
func GetObjects(ctx context.Context, trans Trans, ids ...string) ([]json.RawMessage, error) {
	var out []json.RawMessage
	err := DatabaseCall(ctx, trans, &out, "get_objects", ids)
	return out, err
}

// Strongly-typed version of the "get_chain_id" database method.
func GetChainId(ctx context.Context, trans Trans) (string, error) {
	var out string
	err := DatabaseCall(ctx, trans, &out, "get_chain_id")
	return out, err
}
