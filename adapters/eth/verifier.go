package eth

import "github.com/healingbudsglobal/walletgate/ports"

// PersonalSignVerifier implements SignatureVerifier for EIP-191 personal
// signatures, the format browser wallets produce via personal_sign.
type PersonalSignVerifier struct{}

var _ ports.SignatureVerifier = PersonalSignVerifier{}

func (PersonalSignVerifier) Verify(message, signature, address string) error {
	return VerifyPersonalSignature(message, signature, address)
}
