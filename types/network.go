package types

import "fmt"

// Network identifies a Solana cluster.
type Network string

const (
	NetworkSolanaMainnet Network = "solana-mainnet"
	NetworkSolanaDevnet  Network = "solana-devnet"
	NetworkSolanaTestnet Network = "solana-testnet"
)

// Canonical USDC mints per cluster.
const (
	USDCMintMainnet = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDCMintDevnet  = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"
)

// Default public RPC endpoints per cluster.
var defaultRPCUrls = map[Network]string{
	NetworkSolanaMainnet: "https://api.mainnet-beta.solana.com",
	NetworkSolanaDevnet:  "https://api.devnet.solana.com",
	NetworkSolanaTestnet: "https://api.testnet.solana.com",
}

func (n Network) String() string { return string(n) }

// Cluster returns the short cluster label used in challenge bodies and
// explorer links.
func (n Network) Cluster() string {
	switch n {
	case NetworkSolanaMainnet:
		return "mainnet-beta"
	case NetworkSolanaTestnet:
		return "testnet"
	default:
		return "devnet"
	}
}

// IsMainnet reports whether the network settles real value.
func (n Network) IsMainnet() bool {
	return n == NetworkSolanaMainnet
}

// USDCMint resolves the canonical USDC mint for the cluster. Testnet has no
// canonical deployment, so it falls back to the devnet mint.
func (n Network) USDCMint() string {
	if n == NetworkSolanaMainnet {
		return USDCMintMainnet
	}
	return USDCMintDevnet
}

// DefaultRPCUrl returns the public RPC endpoint for the cluster.
func (n Network) DefaultRPCUrl() string {
	if url, ok := defaultRPCUrls[n]; ok {
		return url
	}
	return defaultRPCUrls[NetworkSolanaDevnet]
}

// ExplorerTxURL builds an explorer link for a transaction signature.
func (n Network) ExplorerTxURL(signature string) string {
	if n.IsMainnet() {
		return fmt.Sprintf("https://explorer.solana.com/tx/%s", signature)
	}
	return fmt.Sprintf("https://explorer.solana.com/tx/%s?cluster=%s", signature, n.Cluster())
}
