// Package signature checks Razorpay payment signatures.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

func mac(secret, orderID, paymentID string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(orderID + "|" + paymentID))
	return h.Sum(nil)
}

// Sign returns hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func Sign(secret, orderID, paymentID string) string {
	return hex.EncodeToString(mac(secret, orderID, paymentID))
}

// Verify compares in constant time. Malformed signatures never match.
func Verify(secret, orderID, paymentID, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil || len(got) != sha256.Size {
		return false
	}
	return hmac.Equal(got, mac(secret, orderID, paymentID))
}
