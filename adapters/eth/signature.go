package eth

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/healingbudsglobal/walletgate/core"
)

// SignatureLength is the expected length of a secp256k1 signature with
// recovery id.
const SignatureLength = 65

// ValidAddress reports whether s is a well-formed hex Ethereum address.
func ValidAddress(s string) bool {
	return common.IsHexAddress(s)
}

// personalHash applies the EIP-191 "personal message" prefix and hashes the
// result. This matches what wallets sign via personal_sign.
func personalHash(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}

// RecoverAddress recovers the address that produced an EIP-191 personal
// signature over message.
func RecoverAddress(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", core.ErrSignatureMismatch)
	}
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes: %w", SignatureLength, core.ErrSignatureMismatch)
	}

	// Wallets return V as 27/28; go-ethereum expects 0/1.
	v := sig[SignatureLength-1]
	if v >= 27 {
		sig = append([]byte{}, sig...)
		sig[SignatureLength-1] = v - 27
	}

	pub, err := crypto.SigToPub(personalHash(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", core.ErrSignatureMismatch)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyPersonalSignature checks that signature over message was produced by
// address. The comparison is case-insensitive.
func VerifyPersonalSignature(message, signature, address string) error {
	recovered, err := RecoverAddress(message, signature)
	if err != nil {
		return err
	}
	if core.NormalizeAddress(recovered.Hex()) != core.NormalizeAddress(address) {
		return core.ErrSignatureMismatch
	}
	return nil
}

// SignMessage produces an EIP-191 personal signature over message. Local
// signers and tests use it; server-side verification never needs a key.
func SignMessage(message string, key *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(personalHash(message), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[SignatureLength-1] += 27
	return hexutil.Encode(sig), nil
}
