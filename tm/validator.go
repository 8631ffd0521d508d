package tm

import (
	"crypto/ecdsa"
	"fmt"
	"sort"
)

// Validator is a member of the consensus, identified by Address, carrying
// its public key and its voting power. Power must be at least 1.
type Validator struct {
	Address   Address        `json:"address"`
	PublicKey ecdsa.PublicKey `json:"-"`
	Power     uint64         `json:"power"`
}

// String implements fmt.Stringer.
func (v Validator) String() string {
	return fmt.Sprintf("Validator(Address=%v,Power=%v)", v.Address, v.Power)
}

// ValidatorSet is a non-empty, deterministically ordered collection of
// Validators. The ordering is identical on every node: by Address.
//
// ValidatorSet is immutable within a height (spec.md §5): callers must
// construct a new ValidatorSet rather than mutate one in place.
type ValidatorSet struct {
	validators []Validator
	byAddress  map[Address]int
	total      uint64
}

// NewValidatorSet builds a ValidatorSet from an unordered slice of
// Validators, sorting them by Address and precomputing the total voting
// power. It panics if the set is empty or any Power is zero, mirroring the
// precondition panics in block.NewHeader.
func NewValidatorSet(validators []Validator) ValidatorSet {
	if len(validators) == 0 {
		panic("pre-condition violation: validator set must not be empty")
	}
	sorted := make([]Validator, len(validators))
	copy(sorted, validators)
	sort.Slice(sorted, func(i, j int) bool {
		return AddressLess(sorted[i].Address, sorted[j].Address)
	})

	byAddress := make(map[Address]int, len(sorted))
	var total uint64
	for i, v := range sorted {
		if v.Power == 0 {
			panic(fmt.Errorf("pre-condition violation: validator %v has zero power", v.Address))
		}
		byAddress[v.Address] = i
		total += v.Power
	}
	return ValidatorSet{validators: sorted, byAddress: byAddress, total: total}
}

// Len returns the number of Validators in the set.
func (vs ValidatorSet) Len() int {
	return len(vs.validators)
}

// TotalPower returns the sum of every Validator's Power in the set.
func (vs ValidatorSet) TotalPower() uint64 {
	return vs.total
}

// GetByAddress looks up a Validator by Address.
func (vs ValidatorSet) GetByAddress(addr Address) (Validator, bool) {
	i, ok := vs.byAddress[addr]
	if !ok {
		return Validator{}, false
	}
	return vs.validators[i], true
}

// GetByIndex looks up a Validator by its position in the canonical
// (Address-sorted) ordering.
func (vs ValidatorSet) GetByIndex(i int) (Validator, bool) {
	if i < 0 || i >= len(vs.validators) {
		return Validator{}, false
	}
	return vs.validators[i], true
}
