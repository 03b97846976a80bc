package ports

// SignatureVerifier checks that a wallet signature over a message was
// produced by the claimed address.
type SignatureVerifier interface {
	Verify(message, signature, address string) error
}
