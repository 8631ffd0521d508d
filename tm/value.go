package tm

import (
	"encoding/base64"
	"fmt"

	"github.com/renproject/id"
	"golang.org/x/crypto/sha3"
)

// Value is an opaque, application-specific payload upon which consensus is
// reached. No assumptions are made about its format; it is treated as an
// uninterpreted byte string everywhere in the consensus core, the same way
// block.Data is treated in the teacher's Block type.
type Value []byte

// String implements fmt.Stringer.
func (v Value) String() string {
	return base64.RawStdEncoding.EncodeToString(v)
}

// ID computes the digest used to identify a Value in votes and proposals.
func (v Value) ID() ValueID {
	return ValueID(sha3.Sum256(v))
}

// ValueID is an opaque, equality-comparable digest of a Value.
type ValueID = id.Hash

// NilValueID is the distinguished "no value" id used for nil votes.
var NilValueID = ValueID{}

// IsNilValueID reports whether valueID is the nil value id.
func IsNilValueID(valueID ValueID) bool {
	return valueID == NilValueID
}

// NilValue is the distinguished absence of a Value, for use in vote-for-nil.
var NilValue = Value(nil)

// String implements a readable representation for debugging/logging.
func ValueIDString(v ValueID) string {
	return fmt.Sprintf("%x", v[:4])
}
