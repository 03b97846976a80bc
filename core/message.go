package core

import (
	"fmt"
	"time"
)

// MessageVersion versions the sign-in message template. Any change to the
// template text or field order must bump this, since every signature is
// checked against the exact bytes.
const MessageVersion = "1"

// SignInMessage renders the fixed sign-in message a wallet is asked to sign.
// The verifier rebuilds the same text from the stored challenge, so the
// template is byte-for-byte stable: fixed preamble, fixed field order,
// normalized address, UTC RFC3339 issued-at.
func SignInMessage(app, address string, purpose Purpose, nonce string, issuedAt time.Time) string {
	return fmt.Sprintf(
		"%s wants you to sign in with your wallet.\n"+
			"\n"+
			"Address: %s\n"+
			"Purpose: %s\n"+
			"Nonce: %s\n"+
			"Issued At: %s\n"+
			"Version: %s",
		app,
		NormalizeAddress(address),
		purpose,
		nonce,
		issuedAt.UTC().Format(time.RFC3339),
		MessageVersion,
	)
}
