package main

/*
The "gen" command reads Solidity contracts as *.sol files and outputs ABI
definitions as *.go code. Requires a Solidity compiler; see the documentation
at https://solidity.readthedocs.io

Example usage:

	echoabi gen --out gen_contracts.go sol/Test.sol:Test

To use with "go generate", include a "go:generate" comment in your source code:

	//go:generate echoabi gen --out gen_contracts.go sol/Test.sol:Test

The generated file contains ABI definitions and contract code in various
formats: Abi data structure, JSON ABI string, contract code as bytes, contract
code as hex-encoded string. The solc compiler is invoked with "--optimize".

The generated code doesn't contain any function calls and has no impact on the
program startup.
*/

import (
	"bytes"
	"encoding/json"
	"go/format"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"text/template"

	"github.com/Mitranim/repr"
	"github.com/pkg/errors"
	"github.com/purelabio/echo"
	"github.com/spf13/cobra"
)

const echoImportPath = "github.com/purelabio/echo"

type genOptions struct {
	solc string
	out  string
	pkg  string
	self bool
}

func newGenCmd() *cobra.Command {
	var opts genOptions

	cmd := &cobra.Command{
		Use:   "gen <filePath:contractName ...>",
		Short: "Compile Solidity contracts and output their ABI definitions as Go code",
		Example: `  echoabi gen --out=gen_contracts.go sol/Test.sol:Test
  echoabi gen --out=gen_contracts.go sol/file0.sol:A sol/file0.sol:B sol/file1.sol:C`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, specs []string) error {
			if env := os.Getenv("SOLC"); env != "" {
				opts.solc = env
			}
			return runGen(opts, specs)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.solc, "solc", "solc", "Solidity compiler; can be overridden with the SOLC environment variable")
	flags.StringVar(&opts.out, "out", "", "output path for the generated Go file (required)")
	flags.StringVar(&opts.pkg, "pkg", "main", "package name for the generated code")
	flags.BoolVar(&opts.self, "self", false, "generate without imports or package prefixes")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runGen(opts genOptions, specs []string) error {
	// Extract file paths from <filePath>:<contractName> specs
	filePaths := []string{}
	for _, spec := range specs {
		pair := strings.Split(spec, ":")
		if len(pair) < 2 {
			return errors.Errorf(`contract specs must have the form "<filePath>:<contractName>", got %q`, spec)
		}
		filePaths = append(filePaths, pair[0])
	}

	solcArgs := append([]string{"--combined-json=abi,bin", "--optimize"}, filePaths...)
	cmd := exec.Command(opts.solc, solcArgs...)

	var buf bytes.Buffer
	cmd.Stdin = os.Stdin
	cmd.Stdout = &buf
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err != nil {
		return errors.Wrap(err, "failed to invoke solc")
	}

	source, err := generate(&buf, specs, opts)
	if err != nil {
		return err
	}

	const readWriteMode = os.FileMode(0600)
	err = os.WriteFile(opts.out, source, readWriteMode)
	if err != nil {
		return errors.Wrapf(err, "failed to write %q", opts.out)
	}
	return nil
}

/*
Turns solc output into formatted Go source, keeping only the requested
contracts.
*/
func generate(solcOutput io.Reader, specs []string, opts genOptions) ([]byte, error) {
	defs, err := echo.ReadContractDefs(solcOutput)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode ABI output from solc")
	}

	// Pick the specified contracts, validating their presence.
	filtered := make([]echo.ContractDef, 0, len(specs))
	for _, spec := range specs {
		def, ok := defs[spec]
		if !ok {
			return nil, errors.Errorf("contract %q is missing from the solc output; found contracts: %q",
				spec, sortedDefNames(defs))
		}

		def.AbiJson, err = prettyJson(def.AbiJson)
		if err != nil {
			return nil, err
		}
		filtered = append(filtered, def)
	}

	var buf bytes.Buffer
	buf.WriteString("// Code generated by echoabi gen. DO NOT EDIT.\n\n")
	buf.WriteString("package " + opts.pkg + "\n")
	if !opts.self {
		buf.WriteString(`import "` + echoImportPath + `"` + "\n")
	}

	err = codeTemplate(opts).Execute(&buf, filtered)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	source, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "failed to format generated code")
	}
	return source, nil
}

func codeTemplate(opts genOptions) *template.Template {
	reprString := func(val interface{}) string {
		if opts.self {
			return repr.StringC(val, repr.Config{
				PackageMap: map[string]string{echoImportPath: ""},
			})
		}
		return repr.String(val)
	}

	return template.Must(template.New("").
		Funcs(template.FuncMap{
			"repr":      reprString,
			"reprBytes": func(input []byte) string { return reprString(input) },
		}).
		Parse(`
{{range .}}

var {{.ContractName}}Abi = {{.Abi | repr}}

const {{.ContractName}}AbiJson = ` + "`" + `{{.AbiJson}}` + "`" + `

var {{.ContractName}}Code = {{.Code | reprBytes}}

const {{.ContractName}}CodeHex = ` + "`" + `{{.Code.String}}` + "`" + `

{{end}}
`))
}

func sortedDefNames(defs map[string]echo.ContractDef) []string {
	var names []string
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func prettyJson(input string) (string, error) {
	var val interface{}
	err := json.Unmarshal([]byte(input), &val)
	if err != nil {
		return "", errors.WithStack(err)
	}
	pretty, err := json.MarshalIndent(val, "", "\t")
	return string(pretty), errors.WithStack(err)
}
