package client

import (
	"context"
	"crypto/ecdsa"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/healingbudsglobal/walletgate/adapters/eth"
)

// KeySigner signs with a raw private key. Intended for service accounts and
// tests; end users sign through their wallet instead.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address string
}

// NewKeySigner wraps a secp256k1 private key.
func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{
		key:     key,
		address: ethcrypto.PubkeyToAddress(key.PublicKey).Hex(),
	}
}

var _ Signer = (*KeySigner)(nil)

func (s *KeySigner) Address() string {
	return s.address
}

func (s *KeySigner) SignMessage(ctx context.Context, message string) (string, error) {
	return eth.SignMessage(message, s.key)
}
