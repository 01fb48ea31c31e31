package echo

import (
	"context"

	"github.com/pkg/errors"
)

/*
Sends read-only contract calls. Implementations evaluate the hex-encoded call
payload against the contract and return the raw ABI-encoded result.
"NodeCaller" implements this over an RPC transport.
*/
type Caller interface {
	SendCall(ctx context.Context, contractId string, payloadHex string) ([]byte, error)
}

/*
Broadcasts contract deployments. Implementations build, sign, and submit the
deployment transaction, then return the id of the created contract, e.g.
"1.16.123". The key is opaque to this package and passed through as-is.
*/
type Deployer interface {
	BroadcastDeployment(ctx context.Context, bytecode []byte, constructorPayload []byte, key interface{}) (string, error)
}

/*
A deployed contract: its ABI, its id, and the caller used to reach it. The
hash function defaults to "Keccak256" when nil.
*/
type Contract struct {
	Abi     Abi
	Address string
	Caller  Caller
	Hash    Hasher
}

/*
Builds the call payload for the named method: selector followed by the
ABI-encoded arguments. Doesn't need a caller or an address.
*/
func (self Contract) Payload(method string, args ...interface{}) ([]byte, error) {
	fn, ok := self.Abi.MaybeFunction(method)
	if !ok {
		return nil, errors.Errorf(`method %q not found in contract ABI`, method)
	}
	return fn.MarshalWith(self.Hash, args...)
}

/*
Calls the named method on the contract at ".Address" and decodes the result
according to the method's outputs.
*/
func (self Contract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	return self.CallAt(ctx, self.Address, method, args...)
}

/*
Same as "Call", but targets the given contract id instead of ".Address". The
id is validated before anything is encoded or sent.
*/
func (self Contract) CallAt(ctx context.Context, contractId string, method string, args ...interface{}) ([]interface{}, error) {
	_, err := ParseContractId(contractId)
	if err != nil {
		return nil, err
	}

	if self.Caller == nil {
		return nil, errors.New(`can't call contract method without a caller`)
	}

	fn, ok := self.Abi.MaybeFunction(method)
	if !ok {
		return nil, errors.Errorf(`method %q not found in contract ABI`, method)
	}

	payload, err := fn.MarshalWith(self.Hash, args...)
	if err != nil {
		return nil, err
	}

	output, err := self.Caller.SendCall(ctx, contractId, HexEncode(payload))
	if err != nil {
		return nil, errors.WithMessagef(err, `failed to call %v on %v`, fn.Name, contractId)
	}

	out, err := fn.Unmarshal(output)
	if err != nil {
		return nil, errors.WithMessagef(err, `failed to decode result of %v`, fn.Name)
	}
	return out, nil
}

/*
Deploys the contract code via the deployer and returns the id of the new
contract. When the ABI has a constructor, the arguments are encoded against
it; otherwise no arguments are allowed. Fails without broadcasting anything if
the arguments are invalid. The returned id is validated as a contract id.
*/
func Deploy(ctx context.Context, deployer Deployer, code []byte, key interface{}, abi Abi, args ...interface{}) (string, error) {
	if len(code) == 0 {
		return "", errors.New("contract deployment requires contract code")
	}

	var payload []byte
	constructor, ok := abi.MaybeConstructor()
	if ok {
		var err error
		payload, err = constructor.Marshal(args...)
		if err != nil {
			return "", errors.WithMessage(err, "failed to encode constructor arguments")
		}
	} else if len(args) > 0 {
		return "", errors.Errorf(`arity mismatch in constructor: expected 0 inputs, got %v`, len(args))
	}

	id, err := deployer.BroadcastDeployment(ctx, code, payload, key)
	if err != nil {
		return "", errors.WithMessage(err, "failed to deploy contract")
	}

	_, err = ParseContractId(id)
	if err != nil {
		return "", errors.WithMessagef(err, `deployer returned unexpected contract id %q`, id)
	}
	return id, nil
}

/*
Same as "Deploy", but returns a "Contract" bound to the new id, the ABI, and
the provided caller.
*/
func DeployContract(
	ctx context.Context, deployer Deployer, caller Caller, code []byte, key interface{}, abi Abi, args ...interface{},
) (Contract, error) {
	id, err := Deploy(ctx, deployer, code, key, abi, args...)
	if err != nil {
		return Contract{}, err
	}
	return Contract{Abi: abi, Address: id, Caller: caller}, nil
}

/*
Implements "Caller" over an RPC transport, via
"call_contract_no_changing_state". "CallerId" is the account on whose behalf
calls are evaluated. "AssetId" defaults to "DefaultAssetId".
*/
type NodeCaller struct {
	Trans    Trans
	CallerId string
	AssetId  string
}

// Implements "Caller".
func (self NodeCaller) SendCall(ctx context.Context, contractId string, payloadHex string) ([]byte, error) {
	assetId := self.AssetId
	if assetId == "" {
		assetId = DefaultAssetId
	}
	return CallContractNoChangingState(ctx, self.Trans, contractId, self.CallerId, assetId, payloadHex)
}
