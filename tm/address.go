package tm

import (
	"crypto/ecdsa"

	"github.com/renproject/id"
)

// Address identifies a validator. It is the 32-byte hash of the validator's
// ECDSA public key, totally ordered by its underlying bytes.
type Address = id.Signatory

// Addresses is a wrapper around the []Address type.
type Addresses = id.Signatories

// NewAddress derives an Address from an ECDSA public key.
func NewAddress(pubKey ecdsa.PublicKey) Address {
	return id.NewSignatory(pubKey)
}

// AddressLess orders two Addresses by their underlying bytes, giving a
// total order that every correct node computes identically.
func AddressLess(a, b Address) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
