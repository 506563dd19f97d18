package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
)

// PharmaContract holds the deterministic state-transition logic of the
// pharma network. It carries no mutable state of its own: every
// operation takes an explicit EntityStore handle and an explicit caller
// identity, reads its dependencies, validates the invariants, and
// stages its writes into the same transaction.
type PharmaContract struct {
	namespace string
}

// NewPharmaContract creates a contract bound to the deployment
// namespace used for composite key derivation.
func NewPharmaContract(namespace string) *PharmaContract {
	return &PharmaContract{namespace: namespace}
}

// Namespace returns the deployment namespace the contract derives
// composite keys under.
func (c *PharmaContract) Namespace() string {
	return c.namespace
}

// getEntity loads and decodes the record under key. entity names the
// record kind in the not-found detail.
func getEntity(store EntityStore, key, entity string, out any) *ContractError {
	value, err := store.Get(key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return NewNotFoundError(
				fmt.Sprintf("%s does not exist", entity),
				fmt.Sprintf("no %s record under key %q", entity, key),
			)
		}
		return AsContractError(err)
	}
	if err := json.Unmarshal(value, out); err != nil {
		return newStoreError(fmt.Sprintf("decoding %s record %q: %s", entity, key, err.Error()))
	}
	return nil
}

// putEntity encodes the record and stages it under key.
func putEntity(store EntityStore, key string, in any) *ContractError {
	value, err := json.Marshal(in)
	if err != nil {
		return newStoreError(fmt.Sprintf("encoding record %q: %s", key, err.Error()))
	}
	if err := store.Put(key, value); err != nil {
		return AsContractError(err)
	}
	return nil
}

// getCompany resolves a company by its full composite key components.
func (c *PharmaContract) getCompany(store EntityStore, crn, name string) (*Company, *ContractError) {
	var company Company
	if cerr := getEntity(store, c.companyKey(crn, name), "company", &company); cerr != nil {
		return nil, cerr
	}
	return &company, nil
}

// getCompanyByCRN resolves a company from the CRN alone, used where the
// caller does not know the name component of the full key. The scan
// yields entries in ascending key order and the lexicographically
// smallest full key wins the tie-break.
func (c *PharmaContract) getCompanyByCRN(store EntityStore, crn string) (*Company, *ContractError) {
	entries, err := store.ScanByPrefix(c.companyPrefix(crn))
	if err != nil {
		return nil, AsContractError(err)
	}
	if len(entries) == 0 {
		return nil, NewNotFoundError(
			"company does not exist",
			fmt.Sprintf("no company registered under CRN %q", crn),
		)
	}
	var company Company
	if err := json.Unmarshal(entries[0].Value, &company); err != nil {
		return nil, newStoreError(fmt.Sprintf("decoding company record %q: %s", entries[0].Key, err.Error()))
	}
	return &company, nil
}

// tradePairAllowed reports whether buyer may purchase from seller:
// the buyer's hierarchy rank must be exactly one greater than the
// seller's, and both must hold a rank. This admits exactly
// distributor-from-manufacturer and retailer-from-distributor.
func tradePairAllowed(buyer, seller *Company) bool {
	return buyer.HierarchyRank != 0 &&
		seller.HierarchyRank != 0 &&
		buyer.HierarchyRank == seller.HierarchyRank+1
}
