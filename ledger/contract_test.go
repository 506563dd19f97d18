package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abhim1509/pharmaContract/kvstore"
	"github.com/abhim1509/pharmaContract/ledger"
)

const testNamespace = "pharmanet"

func newTestContract() (*ledger.PharmaContract, *kvstore.Memory) {
	return ledger.NewPharmaContract(testNamespace), kvstore.NewMemory()
}

// runUpdate executes a contract operation inside a single store
// transaction and returns its contract error, nil on success.
func runUpdate(t *testing.T, store *kvstore.Memory, fn func(ledger.EntityStore) *ledger.ContractError) *ledger.ContractError {
	t.Helper()
	var cerr *ledger.ContractError
	err := store.Update(func(es ledger.EntityStore) error {
		cerr = fn(es)
		if cerr != nil {
			return cerr
		}
		return nil
	})
	if err != nil {
		require.NotNil(t, cerr, "store error without contract error: %v", err)
	}
	return cerr
}

func mustRegister(t *testing.T, c *ledger.PharmaContract, store *kvstore.Memory, crn, name, location, role string) *ledger.Company {
	t.Helper()
	var company *ledger.Company
	cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		var cerr *ledger.ContractError
		company, cerr = c.RegisterCompany(es, crn, name, location, role)
		return cerr
	})
	require.Nil(t, cerr)
	return company
}

func mustAddDrug(t *testing.T, c *ledger.PharmaContract, store *kvstore.Memory, caller, drugName, serialNo, mfgDate, expDate, companyCRN string) *ledger.DrugBatch {
	t.Helper()
	var batch *ledger.DrugBatch
	cerr := runUpdate(t, store, func(es ledger.EntityStore) *ledger.ContractError {
		var cerr *ledger.ContractError
		batch, cerr = c.AddDrug(es, caller, drugName, serialNo, mfgDate, expDate, companyCRN)
		return cerr
	})
	require.Nil(t, cerr)
	return batch
}

// registerTradeChain registers the four-party supply chain used by the
// order and shipment tests.
func registerTradeChain(t *testing.T, c *ledger.PharmaContract, store *kvstore.Memory) (manufacturer, distributor, retailer, transporter *ledger.Company) {
	t.Helper()
	manufacturer = mustRegister(t, c, store, "MAN001", "Sun Pharma", "Mumbai", "manufacturer")
	distributor = mustRegister(t, c, store, "DIST001", "VG Pharma", "Vizag", "distributor")
	retailer = mustRegister(t, c, store, "RET001", "upgrad", "Mumbai", "retailer")
	transporter = mustRegister(t, c, store, "TRA001", "FedEx", "Delhi", "transporter")
	return manufacturer, distributor, retailer, transporter
}
