package common

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// ChainInfo describes one supported EVM chain
type ChainInfo struct {
	Id           uint64 `yaml:"id"`
	Name         string `yaml:"name"`
	NativeSymbol string `yaml:"native_symbol"`
	Decimals     int32  `yaml:"decimals"`
	RpcURL       string `yaml:"rpc_url"`
	ExplorerURL  string `yaml:"explorer_url"`
	ExplorerName string `yaml:"explorer_name"`
}

type ChainsConfig struct {
	Chains []ChainInfo `yaml:"chains"`
}

func LoadChainConfig(chainsFile string) ([]ChainInfo, error) {
	var chainsPath string
	if filepath.IsAbs(chainsFile) {
		chainsPath = chainsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		chainsPath = filepath.Join(wd, chainsFile)
	}

	data, err := os.ReadFile(chainsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", chainsFile, err)
	}

	return ParseChainConfig(data)
}

// ParseChainConfig decodes and validates a chains document.
func ParseChainConfig(data []byte) ([]ChainInfo, error) {
	var config ChainsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse chains config: %w", err)
	}

	seen := make(map[uint64]bool, len(config.Chains))
	for i, chain := range config.Chains {
		if chain.Id == 0 {
			return nil, fmt.Errorf("chain at index %d missing id", i)
		}
		if chain.NativeSymbol == "" {
			return nil, fmt.Errorf("chain %d missing native_symbol", chain.Id)
		}
		if chain.Decimals <= 0 {
			return nil, fmt.Errorf("chain %d has invalid decimals %d", chain.Id, chain.Decimals)
		}
		if seen[chain.Id] {
			return nil, fmt.Errorf("chain %d listed more than once", chain.Id)
		}
		seen[chain.Id] = true
	}

	return config.Chains, nil
}

// FindChain returns the entry for chainId.
func FindChain(chains []ChainInfo, chainId uint64) (ChainInfo, error) {
	for _, chain := range chains {
		if chain.Id == chainId {
			return chain, nil
		}
	}
	return ChainInfo{}, fmt.Errorf("chain %d is not configured", chainId)
}
