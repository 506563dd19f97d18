package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhim1509/pharmaContract/ledger"
)

func TestRegisterCompanyRoles(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		wantRank int
	}{
		{name: "manufacturer holds rank 1", role: "manufacturer", wantRank: 1},
		{name: "distributor holds rank 2", role: "distributor", wantRank: 2},
		{name: "retailer holds rank 3", role: "retailer", wantRank: 3},
		{name: "transporter holds no rank", role: "transporter", wantRank: 0},
		{name: "role is case insensitive", role: "Manufacturer", wantRank: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, store := newTestContract()
			company := mustRegister(t, c, store, "CRN001", "Acme", "Pune", tt.role)
			assert.Equal(t, tt.wantRank, company.HierarchyRank)
		})
	}
}

func TestRegisterCompanyRejectsUnknownRole(t *testing.T) {
	c, store := newTestContract()

	cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		_, cerr := c.RegisterCompany(es, "CRN001", "Acme", "Pune", "wholesaler")
		return cerr
	})
	require.NotNil(t, cerr)
	assert.Equal(t, ledger.CodeValidation, cerr.Code)

	// The failed registration must leave nothing behind
	lookupErr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		_, cerr := c.LookupCompany(es, "CRN001", "Acme")
		return cerr
	})
	require.NotNil(t, lookupErr)
	assert.Equal(t, ledger.CodeNotFound, lookupErr.Code)
}

func TestRegisterCompanyUpsert(t *testing.T) {
	c, store := newTestContract()

	mustRegister(t, c, store, "CRN001", "Acme", "Pune", "manufacturer")
	mustRegister(t, c, store, "CRN001", "Acme", "Nagpur", "manufacturer")

	var company *ledger.Company
	cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		var cerr *ledger.ContractError
		company, cerr = c.LookupCompany(es, "CRN001", "Acme")
		return cerr
	})
	require.Nil(t, cerr)
	assert.Equal(t, "Nagpur", company.Location)
}

func TestLookupCompanyByCRNTieBreak(t *testing.T) {
	c, store := newTestContract()

	// Two companies under the same CRN: the lexicographically smallest
	// full key wins.
	mustRegister(t, c, store, "CRN001", "Zeta Labs", "Pune", "distributor")
	mustRegister(t, c, store, "CRN001", "Acme", "Pune", "manufacturer")

	var company *ledger.Company
	cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		var cerr *ledger.ContractError
		company, cerr = c.LookupCompanyByCRN(es, "CRN001")
		return cerr
	})
	require.Nil(t, cerr)
	assert.Equal(t, "Acme", company.Name)
}

func TestLookupCompanyByCRNNotFound(t *testing.T) {
	c, store := newTestContract()

	cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		_, cerr := c.LookupCompanyByCRN(es, "CRN404")
		return cerr
	})
	require.NotNil(t, cerr)
	assert.Equal(t, ledger.CodeNotFound, cerr.Code)
}
