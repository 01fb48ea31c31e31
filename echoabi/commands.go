package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/purelabio/echo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newEncodeCmd() *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "encode <type=value ...>",
		Short: "ABI-encode typed values",
		Long: `ABI-encode typed values as one block, the way call arguments are encoded.
Each value is JSON; anything that isn't valid JSON is taken as a plain string.
Large integers may be written as JSON numbers or as strings. Hex bytes that
look like a number, such as 1234, must be quoted.

With --method, the output is a complete call payload prefixed with the selector
of "method(types...)".`,
		Example: `  echoabi encode 'bool=true' 'uint32[]=[1,2,3]' 'address=1.16.321'
  echoabi encode --method transfer 'address=1.2.5' 'uint256=1000'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := parseItems(args)
			if err != nil {
				return err
			}

			out, err := encodeItems(method, items)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", "", "method name; prepends the method selector")
	return cmd
}

func encodeItems(method string, items []echo.AbiItem) (string, error) {
	if method == "" {
		return echo.Encode(items...)
	}

	typeNames := make([]string, len(items))
	values := make([]interface{}, len(items))
	for i, item := range items {
		typeNames[i] = item.Type
		values[i] = item.Value
	}

	params, err := echo.AbiParams(typeNames...)
	if err != nil {
		return "", err
	}

	out, err := echo.AssembleCall(echo.Keccak256, method, params, values...)
	if err != nil {
		return "", err
	}
	return echo.HexEncode(out), nil
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex> <type ...>",
		Short: "ABI-decode a call result",
		Long: `ABI-decode a hex-encoded call result into JSON, one value per output type.
Use "-" to read the hex input from stdin.`,
		Example: `  echoabi decode 000000000000000000000000000000000000000000000000000000000000007b uint256`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			if input == "-" {
				buf, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.WithStack(err)
				}
				input = string(bytes.TrimSpace(buf))
			}

			params, err := echo.AbiParams(args[1:]...)
			if err != nil {
				return err
			}

			vals, err := echo.DecodeHex(input, params)
			if err != nil {
				return err
			}
			return printJson(cmd.OutOrStdout(), displayValues(vals))
		},
	}
}

func newSelectorCmd() *cobra.Command {
	var topic bool

	cmd := &cobra.Command{
		Use:   "selector <signature>",
		Short: "Compute the selector of a method signature",
		Long: `Compute the 4-byte selector of a method signature, e.g. "transfer(address,uint256)".
With --topic, print the full 32-byte hash, which is the first topic of event logs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signature := strings.ReplaceAll(args[0], " ", "")
			if topic {
				fmt.Fprintln(cmd.OutOrStdout(), echo.HexEncode(echo.Keccak256([]byte(signature))))
				return nil
			}
			selector := echo.Selector(echo.Keccak256, signature)
			fmt.Fprintln(cmd.OutOrStdout(), echo.HexEncode(selector[:]))
			return nil
		},
	}

	cmd.Flags().BoolVar(&topic, "topic", false, "print the full hash instead of the 4-byte selector")
	return cmd
}

func newCallCmd(loadConfig func() (Config, error)) *cobra.Command {
	var abiPath string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "call <contractId> <method> [args ...]",
		Short: "Call a contract method without changing state",
		Long: `Call a contract method on the configured node, without creating a transaction,
and print the decoded result as JSON. Arguments are JSON values matching the
method's inputs in the ABI file.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			if conf.CallerId == "" {
				return errors.New(`config: "caller_id" is required for contract calls`)
			}

			abi, err := readAbiFile(abiPath)
			if err != nil {
				return err
			}

			callArgs := make([]interface{}, len(args)-2)
			for i, arg := range args[2:] {
				callArgs[i] = parseValue(arg)
			}

			logger, err := conf.Logger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			trans, err := dial(conf, logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			contract := echo.Contract{
				Abi:    abi,
				Caller: echo.NodeCaller{Trans: trans, CallerId: conf.CallerId, AssetId: conf.AssetId},
			}

			logger.Debug("calling contract",
				zap.String("contract", args[0]), zap.String("method", args[1]))

			vals, err := contract.CallAt(ctx, args[0], args[1], callArgs...)
			if err != nil {
				return err
			}
			return printJson(cmd.OutOrStdout(), displayValues(vals))
		},
	}

	cmd.Flags().StringVar(&abiPath, "abi", "", "path to the contract's JSON ABI (required)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "call timeout")
	_ = cmd.MarkFlagRequired("abi")
	return cmd
}

func newChainIdCmd(loadConfig func() (Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "chain-id",
		Short: "Print the chain id of the configured node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}

			logger, err := conf.Logger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			trans, err := dial(conf, logger)
			if err != nil {
				return err
			}

			id, err := echo.GetChainId(cmd.Context(), trans)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func dial(conf Config, logger *zap.Logger) (echo.Trans, error) {
	trans, err := echo.Dial(conf.NodeUrl, logger)
	if err != nil {
		return nil, errors.WithMessagef(err, `failed to connect to %v`, conf.NodeUrl)
	}
	if ws, ok := trans.(*echo.WsTrans); ok {
		ws.ReconnectInterval = conf.ReconnectInterval
	}
	return trans, nil
}

func readAbiFile(path string) (echo.Abi, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer file.Close()

	var abi echo.Abi
	err = json.NewDecoder(file).Decode(&abi)
	if err != nil {
		return nil, errors.Wrapf(err, `failed to decode ABI %q`, path)
	}
	return abi, nil
}

func parseItems(args []string) ([]echo.AbiItem, error) {
	out := make([]echo.AbiItem, len(args))
	for i, arg := range args {
		pair := strings.SplitN(arg, "=", 2)
		if len(pair) != 2 {
			return nil, errors.Errorf(`items must have the form "<type>=<value>", got %q`, arg)
		}
		out[i] = echo.AbiItem{Type: strings.TrimSpace(pair[0]), Value: parseValue(pair[1])}
	}
	return out, nil
}

/*
Decodes a JSON argument, keeping numbers as "json.Number" so that large
integers are exact. Anything that isn't valid JSON is a plain string, which
covers object ids and hex without quoting.
*/
func parseValue(input string) interface{} {
	dec := json.NewDecoder(strings.NewReader(input))
	dec.UseNumber()

	var out interface{}
	if dec.Decode(&out) != nil || dec.More() {
		return input
	}
	return out
}

// Converts decoded values into their JSON display form.
func displayValues(vals []interface{}) []interface{} {
	out := make([]interface{}, len(vals))
	for i, val := range vals {
		out[i] = displayValue(val)
	}
	return out
}

func displayValue(val interface{}) interface{} {
	switch val := val.(type) {
	case *big.Int:
		return json.Number(val.String())
	case []byte:
		return echo.HexEncode0x(val)
	case []interface{}:
		return displayValues(val)
	default:
		return val
	}
}

func printJson(out io.Writer, val interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return errors.WithStack(enc.Encode(val))
}
