package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhim1509/pharmaContract/ledger"
)

func TestCreateShipment(t *testing.T) {
	c, store := newTestContract()
	manufacturer, _, _, transporter := registerTradeChain(t, c, store)

	batch1 := mustAddDrug(t, c, store, "Sun Pharma", "Paracetamol", "001", "2024-01-01", "2026-01-01", "MAN001")
	batch2 := mustAddDrug(t, c, store, "Sun Pharma", "Paracetamol", "002", "2024-01-01", "2026-01-01", "MAN001")

	cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		_, cerr := c.CreatePO(es, "VG Pharma", "DIST001", "MAN001", "Paracetamol", 2)
		return cerr
	})
	require.Nil(t, cerr)

	var shipment *ledger.Shipment
	cerr = runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		var cerr *ledger.ContractError
		shipment, cerr = c.CreateShipment(es, "Sun Pharma", "DIST001", "Paracetamol", []string{batch1.ProductID, batch2.ProductID}, "TRA001")
		return cerr
	})
	require.Nil(t, cerr)

	assert.Equal(t, ledger.ShipmentInTransit, shipment.Status)
	assert.Equal(t, manufacturer.CompanyID, shipment.Creator)
	assert.Equal(t, transporter.CompanyID, shipment.Transporter)
	assert.Equal(t, []string{batch1.ProductID, batch2.ProductID}, shipment.Assets)

	// Custody passes provisionally to the transporter; the shipment
	// reference on each batch stays unset until delivery.
	for _, serialNo := range []string{"001", "002"} {
		var state *ledger.DrugBatch
		cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
			var cerr *ledger.ContractError
			state, cerr = c.DrugState(es, "Paracetamol", serialNo)
			return cerr
		})
		require.Nil(t, cerr)
		assert.Equal(t, transporter.CompanyID, state.Owner)
		assert.Empty(t, state.Shipment)
	}
}

func TestCreateShipmentValidation(t *testing.T) {
	c, store := newTestContract()
	manufacturer, _, _, _ := registerTradeChain(t, c, store)

	batch1 := mustAddDrug(t, c, store, "Sun Pharma", "Paracetamol", "001", "2024-01-01", "2026-01-01", "MAN001")

	cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		_, cerr := c.CreatePO(es, "VG Pharma", "DIST001", "MAN001", "Paracetamol", 2)
		return cerr
	})
	require.Nil(t, cerr)

	t.Run("empty asset list", func(t *testing.T) {
		cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
			_, cerr := c.CreateShipment(es, "Sun Pharma", "DIST001", "Paracetamol", nil, "TRA001")
			return cerr
		})
		require.NotNil(t, cerr)
		assert.Equal(t, ledger.CodeValidation, cerr.Code)
	})

	t.Run("unknown asset key", func(t *testing.T) {
		cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
			_, cerr := c.CreateShipment(es, "Sun Pharma", "DIST001", "Paracetamol", []string{"no-such-key"}, "TRA001")
			return cerr
		})
		require.NotNil(t, cerr)
		assert.Equal(t, ledger.CodeNotFound, cerr.Code)
	})

	t.Run("asset count below order quantity", func(t *testing.T) {
		cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
			_, cerr := c.CreateShipment(es, "Sun Pharma", "DIST001", "Paracetamol", []string{batch1.ProductID}, "TRA001")
			return cerr
		})
		require.NotNil(t, cerr)
		assert.Equal(t, ledger.CodeValidation, cerr.Code)

		// The rejected shipment leaves no trace: no shipment record,
		// custody unchanged.
		stateErr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
			_, cerr := c.ShipmentState(es, "DIST001", "Paracetamol")
			return cerr
		})
		require.NotNil(t, stateErr)
		assert.Equal(t, ledger.CodeNotFound, stateErr.Code)

		var state *ledger.DrugBatch
		cerr = runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
			var cerr *ledger.ContractError
			state, cerr = c.DrugState(es, "Paracetamol", "001")
			return cerr
		})
		require.Nil(t, cerr)
		assert.Equal(t, manufacturer.CompanyID, state.Owner)
	})

	t.Run("unknown transporter", func(t *testing.T) {
		batch2 := mustAddDrug(t, c, store, "Sun Pharma", "Paracetamol", "002", "2024-01-01", "2026-01-01", "MAN001")
		cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
			_, cerr := c.CreateShipment(es, "Sun Pharma", "DIST001", "Paracetamol", []string{batch1.ProductID, batch2.ProductID}, "TRA404")
			return cerr
		})
		require.NotNil(t, cerr)
		assert.Equal(t, ledger.CodeNotFound, cerr.Code)
	})

	t.Run("missing purchase order", func(t *testing.T) {
		cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
			_, cerr := c.CreateShipment(es, "Sun Pharma", "DIST001", "Crocin", []string{batch1.ProductID}, "TRA001")
			return cerr
		})
		require.NotNil(t, cerr)
		assert.Equal(t, ledger.CodeNotFound, cerr.Code)
	})
}

func TestUpdateShipment(t *testing.T) {
	c, store := newTestContract()
	_, distributor, _, _ := registerTradeChain(t, c, store)

	batch1 := mustAddDrug(t, c, store, "Sun Pharma", "Paracetamol", "001", "2024-01-01", "2026-01-01", "MAN001")

	cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		_, cerr := c.CreatePO(es, "VG Pharma", "DIST001", "MAN001", "Paracetamol", 1)
		return cerr
	})
	require.Nil(t, cerr)
	cerr = runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		_, cerr := c.CreateShipment(es, "Sun Pharma", "DIST001", "Paracetamol", []string{batch1.ProductID}, "TRA001")
		return cerr
	})
	require.Nil(t, cerr)

	var shipment *ledger.Shipment
	cerr = runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		var cerr *ledger.ContractError
		shipment, cerr = c.UpdateShipment(es, "FedEx", "DIST001", "Paracetamol", "TRA001")
		return cerr
	})
	require.Nil(t, cerr)
	assert.Equal(t, ledger.ShipmentDelivered, shipment.Status)

	// Delivery hands custody to the buyer and stamps the shipment
	// reference on the batch.
	var state *ledger.DrugBatch
	cerr = runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		var cerr *ledger.ContractError
		state, cerr = c.DrugState(es, "Paracetamol", "001")
		return cerr
	})
	require.Nil(t, cerr)
	assert.Equal(t, distributor.CompanyID, state.Owner)
	assert.Equal(t, shipment.ShipmentID, state.Shipment)
}

func TestUpdateShipmentAuthorization(t *testing.T) {
	c, store := newTestContract()
	registerTradeChain(t, c, store)
	mustRegister(t, c, store, "TRA002", "BlueDart", "Chennai", "transporter")

	batch1 := mustAddDrug(t, c, store, "Sun Pharma", "Paracetamol", "001", "2024-01-01", "2026-01-01", "MAN001")

	cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		_, cerr := c.CreatePO(es, "VG Pharma", "DIST001", "MAN001", "Paracetamol", 1)
		return cerr
	})
	require.Nil(t, cerr)
	cerr = runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		_, cerr := c.CreateShipment(es, "Sun Pharma", "DIST001", "Paracetamol", []string{batch1.ProductID}, "TRA001")
		return cerr
	})
	require.Nil(t, cerr)

	t.Run("non-transporter caller", func(t *testing.T) {
		cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
			_, cerr := c.UpdateShipment(es, "upgrad", "DIST001", "Paracetamol", "RET001")
			return cerr
		})
		require.NotNil(t, cerr)
		assert.Equal(t, ledger.CodeAuthorization, cerr.Code)
	})

	t.Run("not the designated transporter", func(t *testing.T) {
		cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
			_, cerr := c.UpdateShipment(es, "BlueDart", "DIST001", "Paracetamol", "TRA002")
			return cerr
		})
		require.NotNil(t, cerr)
		assert.Equal(t, ledger.CodeAuthorization, cerr.Code)
	})

	t.Run("delivery happens exactly once", func(t *testing.T) {
		cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
			_, cerr := c.UpdateShipment(es, "FedEx", "DIST001", "Paracetamol", "TRA001")
			return cerr
		})
		require.Nil(t, cerr)

		cerr = runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
			_, cerr := c.UpdateShipment(es, "FedEx", "DIST001", "Paracetamol", "TRA001")
			return cerr
		})
		require.NotNil(t, cerr)
		assert.Equal(t, ledger.CodeConflict, cerr.Code)
	})
}

// TestSupplyChainLifecycle walks a batch through the whole chain:
// manufacture, sale to a distributor, resale to a retailer, retail to a
// consumer, with the history recording every custody change.
func TestSupplyChainLifecycle(t *testing.T) {
	c, store := newTestContract()
	manufacturer, distributor, retailer, transporter := registerTradeChain(t, c, store)

	batch := mustAddDrug(t, c, store, "Sun Pharma", "Paracetamol", "001", "2024-01-01", "2026-01-01", "MAN001")

	// Manufacturer -> distributor
	cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		_, cerr := c.CreatePO(es, "VG Pharma", "DIST001", "MAN001", "Paracetamol", 1)
		return cerr
	})
	require.Nil(t, cerr)
	cerr = runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		_, cerr := c.CreateShipment(es, "Sun Pharma", "DIST001", "Paracetamol", []string{batch.ProductID}, "TRA001")
		return cerr
	})
	require.Nil(t, cerr)
	cerr = runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		_, cerr := c.UpdateShipment(es, "FedEx", "DIST001", "Paracetamol", "TRA001")
		return cerr
	})
	require.Nil(t, cerr)

	// Distributor -> retailer
	cerr = runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		_, cerr := c.CreatePO(es, "upgrad", "RET001", "DIST001", "Paracetamol", 1)
		return cerr
	})
	require.Nil(t, cerr)
	cerr = runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		_, cerr := c.CreateShipment(es, "VG Pharma", "RET001", "Paracetamol", []string{batch.ProductID}, "TRA001")
		return cerr
	})
	require.Nil(t, cerr)
	cerr = runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		_, cerr := c.UpdateShipment(es, "FedEx", "RET001", "Paracetamol", "TRA001")
		return cerr
	})
	require.Nil(t, cerr)

	// Retailer -> consumer
	cerr = runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		_, cerr := c.RetailDrug(es, "upgrad", "Paracetamol", "001", "RET001", "AADHAR-42")
		return cerr
	})
	require.Nil(t, cerr)

	var history []ledger.DrugBatch
	cerr = runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		var cerr *ledger.ContractError
		history, cerr = c.DrugHistory(es, "Paracetamol", "001")
		return cerr
	})
	require.Nil(t, cerr)

	owners := make([]string, len(history))
	for i, snapshot := range history {
		owners[i] = snapshot.Owner
	}
	assert.Equal(t, []string{
		manufacturer.CompanyID,
		transporter.CompanyID,
		distributor.CompanyID,
		transporter.CompanyID,
		retailer.CompanyID,
		"AADHAR-42",
	}, owners)
}
