package ledger

import (
	"fmt"
	"time"
)

// dateLayout is the wire format for manufacturing and expiry dates.
// Dates are stored as given so a record round-trips unchanged.
const dateLayout = "2006-01-02"

// AddDrug registers a new drug batch owned by the manufacturer that
// creates it. The caller is resolved via (companyCRN, caller) and must
// hold the manufacturer role. The expiry date must fall strictly after
// the manufacturing date.
func (c *PharmaContract) AddDrug(store EntityStore, caller, drugName, serialNo, mfgDate, expDate, companyCRN string) (*DrugBatch, *ContractError) {
	manufacturer, cerr := c.getCompany(store, companyCRN, caller)
	if cerr != nil {
		return nil, cerr
	}
	if manufacturer.Role != RoleManufacturer {
		return nil, NewAuthorizationError(
			"registered company is not a manufacturer",
			fmt.Sprintf("company %q has role %q, only a manufacturer may add drugs", manufacturer.Name, manufacturer.Role),
		)
	}

	mfg, err := time.Parse(dateLayout, mfgDate)
	if err != nil {
		return nil, NewValidationError("invalid manufacturing date", fmt.Sprintf("%q is not a %s date", mfgDate, dateLayout))
	}
	exp, err := time.Parse(dateLayout, expDate)
	if err != nil {
		return nil, NewValidationError("invalid expiry date", fmt.Sprintf("%q is not a %s date", expDate, dateLayout))
	}
	if !exp.After(mfg) {
		return nil, NewValidationError(
			"expiry date must be after manufacturing date",
			fmt.Sprintf("expiry %s is not after manufacture %s", expDate, mfgDate),
		)
	}

	batch := &DrugBatch{
		ProductID:         c.drugKey(serialNo, drugName),
		Name:              drugName,
		Manufacturer:      manufacturer.CompanyID,
		ManufacturingDate: mfgDate,
		ExpiryDate:        expDate,
		Owner:             manufacturer.CompanyID,
	}
	if cerr := putEntity(store, batch.ProductID, batch); cerr != nil {
		return nil, cerr
	}
	return batch, nil
}

// DrugState returns the current state of a drug batch.
func (c *PharmaContract) DrugState(store EntityStore, drugName, serialNo string) (*DrugBatch, *ContractError) {
	var batch DrugBatch
	if cerr := getEntity(store, c.drugKey(serialNo, drugName), "drug", &batch); cerr != nil {
		return nil, cerr
	}
	return &batch, nil
}

// transferOwnership stages an ownership change for a single batch.
// Only the shipment workflows and the retail sale reach this; it is not
// independently callable from outside those flows.
func transferOwnership(store EntityStore, batch *DrugBatch, newOwner, shipmentRef string) *ContractError {
	batch.Owner = newOwner
	batch.Shipment = shipmentRef
	return putEntity(store, batch.ProductID, batch)
}

// RetailDrug sells a batch to an end consumer. The caller is resolved
// via (retailerCRN, caller) and must hold the retailer role. The owner
// field becomes the opaque consumer identifier; this ends the corporate
// custody chain for the batch, no further transfer is defined.
func (c *PharmaContract) RetailDrug(store EntityStore, caller, drugName, serialNo, retailerCRN, customerID string) (*DrugBatch, *ContractError) {
	retailer, cerr := c.getCompany(store, retailerCRN, caller)
	if cerr != nil {
		return nil, cerr
	}
	if retailer.Role != RoleRetailer {
		return nil, NewAuthorizationError(
			"registered company is not a retailer",
			fmt.Sprintf("company %q has role %q, only a retailer may sell to consumers", retailer.Name, retailer.Role),
		)
	}

	batch, cerr := c.DrugState(store, drugName, serialNo)
	if cerr != nil {
		return nil, cerr
	}
	if cerr := transferOwnership(store, batch, customerID, batch.Shipment); cerr != nil {
		return nil, cerr
	}
	return batch, nil
}
