package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const chainsYaml = `
chains:
  - id: 33139
    name: ApeChain
    native_symbol: APE
    decimals: 18
    rpc_url: https://rpc.apechain.com
    explorer_url: https://apescan.io
    explorer_name: ApeScan
  - id: 33111
    name: Curtis
    native_symbol: APE
    decimals: 18
`

func TestLoadChainConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chains.yaml")
	require.NoError(t, os.WriteFile(path, []byte(chainsYaml), 0o600))

	chains, err := LoadChainConfig(path)
	require.NoError(t, err)
	require.Len(t, chains, 2)

	ape, err := FindChain(chains, 33139)
	require.NoError(t, err)
	require.Equal(t, "ApeScan", ape.ExplorerName)
	require.Equal(t, int32(18), ape.Decimals)

	_, err = FindChain(chains, 1)
	require.Error(t, err)
}

func TestParseChainConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "missing id", doc: "chains:\n  - native_symbol: APE\n    decimals: 18\n"},
		{name: "missing symbol", doc: "chains:\n  - id: 1\n    decimals: 18\n"},
		{name: "bad decimals", doc: "chains:\n  - id: 1\n    native_symbol: ETH\n"},
		{name: "duplicate", doc: "chains:\n  - id: 1\n    native_symbol: ETH\n    decimals: 18\n  - id: 1\n    native_symbol: ETH\n    decimals: 18\n"},
		{name: "not yaml", doc: "chains: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChainConfig([]byte(tt.doc))
			require.Error(t, err)
		})
	}
}

func TestFormatting(t *testing.T) {
	require.Equal(t, "0x123456...cdef", ShortHash("0x1234567890abcdef"))
	require.Equal(t, "none", ShortHash(""))
	require.Equal(t, "1.2345 APE", FormatAmount(decimal.RequireFromString("1.23456"), 4, "APE"))
	require.Equal(t, "3.10 USD", FormatFiat(decimal.RequireFromString("3.1"), ""))
}
