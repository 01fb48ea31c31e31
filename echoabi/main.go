/*
A CLI tool for working with Echo contract ABIs: encoding call arguments,
decoding call results, computing selectors, calling contracts on a node, and
generating Go definitions from Solidity sources.

Installation:

	go install github.com/purelabio/echo/echoabi@latest

Example usage:

	echoabi encode 'uint256=123' 'string="hello"'
	echoabi decode 0x...7b uint256
	echoabi selector 'transfer(address,uint256)'
	echoabi call --config echo.yaml --abi Token.json 1.16.7829 balanceOf 1.2.123
	echoabi gen --out gen_contracts.go sol/Test.sol:Test
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "echoabi",
		Short:         "Encode, decode, and call Echo contracts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	loadConfig := func() (Config, error) { return LoadConfig(configPath) }

	root.AddCommand(
		newEncodeCmd(),
		newDecodeCmd(),
		newSelectorCmd(),
		newCallCmd(loadConfig),
		newChainIdCmd(loadConfig),
		newGenCmd(),
	)
	return root
}
