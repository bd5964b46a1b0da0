// Package wallet parses the wallet addresses the dashboard links identities to.
package wallet

import (
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ethereum/go-ethereum/common"
)

type Kind string

const (
	KindSolana   Kind = "solana"
	KindEthereum Kind = "ethereum"
)

// solanaKeyLen is the size of an ed25519 public key.
const solanaKeyLen = 32

var (
	ErrEmpty   = errors.New("wallet address is empty")
	ErrInvalid = errors.New("wallet address is not a solana or ethereum address")
)

type Address struct {
	Kind  Kind
	Value string
}

func (a Address) String() string {
	return a.Value
}

// Parse accepts a base58 solana public key or a 0x prefixed ethereum
// address. Ethereum addresses are returned in EIP-55 checksum form.
func Parse(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, ErrEmpty
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if !common.IsHexAddress(s) {
			return Address{}, ErrInvalid
		}
		return Address{Kind: KindEthereum, Value: common.HexToAddress(s).Hex()}, nil
	}
	if !IsSolana(s) {
		return Address{}, ErrInvalid
	}
	return Address{Kind: KindSolana, Value: s}, nil
}

// IsSolana reports whether s decodes to a 32 byte public key.
func IsSolana(s string) bool {
	if s == "" {
		return false
	}
	return len(base58.Decode(s)) == solanaKeyLen
}
