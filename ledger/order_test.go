package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhim1509/pharmaContract/ledger"
)

func TestCreatePO(t *testing.T) {
	c, store := newTestContract()
	manufacturer, distributor, _, _ := registerTradeChain(t, c, store)

	var po *ledger.PurchaseOrder
	cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		var cerr *ledger.ContractError
		po, cerr = c.CreatePO(es, "VG Pharma", "DIST001", "MAN001", "Paracetamol", 3)
		return cerr
	})
	require.Nil(t, cerr)

	assert.Equal(t, "Paracetamol", po.DrugName)
	assert.Equal(t, 3, po.Quantity)
	assert.Equal(t, distributor.CompanyID, po.Buyer)
	assert.Equal(t, manufacturer.CompanyID, po.Seller)

	var state *ledger.PurchaseOrder
	cerr = runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		var cerr *ledger.ContractError
		state, cerr = c.PurchaseOrderState(es, "DIST001", "Paracetamol")
		return cerr
	})
	require.Nil(t, cerr)
	assert.Equal(t, po, state)
}

func TestCreatePOHierarchy(t *testing.T) {
	tests := []struct {
		name      string
		caller    string
		buyerCRN  string
		sellerCRN string
		wantCode  string
	}{
		{name: "distributor buys from manufacturer", caller: "VG Pharma", buyerCRN: "DIST001", sellerCRN: "MAN001"},
		{name: "retailer buys from distributor", caller: "upgrad", buyerCRN: "RET001", sellerCRN: "DIST001"},
		{name: "retailer may not buy from manufacturer", caller: "upgrad", buyerCRN: "RET001", sellerCRN: "MAN001", wantCode: ledger.CodeAuthorization},
		{name: "manufacturer may not buy from distributor", caller: "Sun Pharma", buyerCRN: "MAN001", sellerCRN: "DIST001", wantCode: ledger.CodeAuthorization},
		{name: "distributor may not buy from retailer", caller: "VG Pharma", buyerCRN: "DIST001", sellerCRN: "RET001", wantCode: ledger.CodeAuthorization},
		{name: "distributor may not buy from distributor", caller: "VG Pharma", buyerCRN: "DIST001", sellerCRN: "DIST001", wantCode: ledger.CodeAuthorization},
		{name: "transporter may not buy", caller: "FedEx", buyerCRN: "TRA001", sellerCRN: "MAN001", wantCode: ledger.CodeAuthorization},
		{name: "transporter may not sell", caller: "VG Pharma", buyerCRN: "DIST001", sellerCRN: "TRA001", wantCode: ledger.CodeAuthorization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, store := newTestContract()
			registerTradeChain(t, c, store)

			cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
				_, cerr := c.CreatePO(es, tt.caller, tt.buyerCRN, tt.sellerCRN, "Paracetamol", 2)
				return cerr
			})
			if tt.wantCode == "" {
				assert.Nil(t, cerr)
			} else {
				require.NotNil(t, cerr)
				assert.Equal(t, tt.wantCode, cerr.Code)
			}
		})
	}
}

func TestCreatePOValidation(t *testing.T) {
	c, store := newTestContract()
	registerTradeChain(t, c, store)

	t.Run("zero quantity", func(t *testing.T) {
		cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
			_, cerr := c.CreatePO(es, "VG Pharma", "DIST001", "MAN001", "Paracetamol", 0)
			return cerr
		})
		require.NotNil(t, cerr)
		assert.Equal(t, ledger.CodeValidation, cerr.Code)
	})

	t.Run("negative quantity", func(t *testing.T) {
		cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
			_, cerr := c.CreatePO(es, "VG Pharma", "DIST001", "MAN001", "Paracetamol", -1)
			return cerr
		})
		require.NotNil(t, cerr)
		assert.Equal(t, ledger.CodeValidation, cerr.Code)
	})

	t.Run("unknown seller", func(t *testing.T) {
		cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
			_, cerr := c.CreatePO(es, "VG Pharma", "DIST001", "MAN404", "Paracetamol", 2)
			return cerr
		})
		require.NotNil(t, cerr)
		assert.Equal(t, ledger.CodeNotFound, cerr.Code)
	})

	t.Run("unknown buyer", func(t *testing.T) {
		cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
			_, cerr := c.CreatePO(es, "Ghost Pharma", "DIST404", "MAN001", "Paracetamol", 2)
			return cerr
		})
		require.NotNil(t, cerr)
		assert.Equal(t, ledger.CodeNotFound, cerr.Code)
	})
}

func TestCreatePOUpsert(t *testing.T) {
	c, store := newTestContract()
	registerTradeChain(t, c, store)

	for _, quantity := range []int{2, 5} {
		cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
			_, cerr := c.CreatePO(es, "VG Pharma", "DIST001", "MAN001", "Paracetamol", quantity)
			return cerr
		})
		require.Nil(t, cerr)
	}

	var po *ledger.PurchaseOrder
	cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		var cerr *ledger.ContractError
		po, cerr = c.PurchaseOrderState(es, "DIST001", "Paracetamol")
		return cerr
	})
	require.Nil(t, cerr)
	assert.Equal(t, 5, po.Quantity)
}
