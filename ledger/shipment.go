package ledger

import "fmt"

// CreateShipment consolidates the listed drug batches into a shipment
// for the purchase order under (buyerCRN, drugName). Every asset is
// resolved and validated before any write is staged: the seller is
// derived from the first asset's current owner and resolved via
// (sellerCRN, caller), the buyer and transporter by CRN prefix, and the
// asset count must equal the order quantity exactly. On success the
// shipment is created in transit and custody of every batch passes
// provisionally to the transporter within the same transaction. The
// shipment reference on each batch stays unset until delivery.
func (c *PharmaContract) CreateShipment(store EntityStore, caller, buyerCRN, drugName string, assetKeys []string, transporterCRN string) (*Shipment, *ContractError) {
	if len(assetKeys) == 0 {
		return nil, NewValidationError("shipment has no assets", "list of asset keys is empty")
	}

	batches := make([]*DrugBatch, len(assetKeys))
	for i, key := range assetKeys {
		var batch DrugBatch
		if cerr := getEntity(store, key, "drug", &batch); cerr != nil {
			return nil, cerr
		}
		batches[i] = &batch
	}

	sellerCRN, ok := c.crnFromCompanyKey(batches[0].Owner)
	if !ok {
		return nil, NewValidationError(
			"asset is not in corporate custody",
			fmt.Sprintf("owner %q of asset %q is not a company key", batches[0].Owner, assetKeys[0]),
		)
	}
	seller, cerr := c.getCompany(store, sellerCRN, caller)
	if cerr != nil {
		return nil, cerr
	}
	buyer, cerr := c.getCompanyByCRN(store, buyerCRN)
	if cerr != nil {
		return nil, cerr
	}
	if !tradePairAllowed(buyer, seller) {
		return nil, NewAuthorizationError(
			"hierarchy for purchase is not followed",
			fmt.Sprintf("%s may not ship to %s", seller.Role, buyer.Role),
		)
	}
	transporter, cerr := c.getCompanyByCRN(store, transporterCRN)
	if cerr != nil {
		return nil, cerr
	}

	po, cerr := c.PurchaseOrderState(store, buyerCRN, drugName)
	if cerr != nil {
		return nil, cerr
	}
	if len(assetKeys) != po.Quantity {
		return nil, NewValidationError(
			"list of assets does not match the purchase order",
			fmt.Sprintf("shipment lists %d assets, purchase order is for %d", len(assetKeys), po.Quantity),
		)
	}

	shipment := &Shipment{
		ShipmentID:  c.shipmentKey(buyerCRN, drugName),
		Creator:     seller.CompanyID,
		Assets:      assetKeys,
		Transporter: transporter.CompanyID,
		Status:      ShipmentInTransit,
	}
	if cerr := putEntity(store, shipment.ShipmentID, shipment); cerr != nil {
		return nil, cerr
	}
	for _, batch := range batches {
		if cerr := transferOwnership(store, batch, transporter.CompanyID, batch.Shipment); cerr != nil {
			return nil, cerr
		}
	}
	return shipment, nil
}

// UpdateShipment marks the shipment under (buyerCRN, drugName) as
// delivered. The caller is resolved via (transporterCRN, caller), must
// hold the transporter role, and must be the transporter the shipment
// was created with. Delivery happens exactly once; a second call fails
// with a conflict and leaves the state unchanged. On success every
// asset's owner becomes the buyer and its shipment reference this
// shipment's key, all within the same transaction. This is the single
// point where goods formally change corporate custody.
func (c *PharmaContract) UpdateShipment(store EntityStore, caller, buyerCRN, drugName, transporterCRN string) (*Shipment, *ContractError) {
	transporter, cerr := c.getCompany(store, transporterCRN, caller)
	if cerr != nil {
		return nil, cerr
	}
	if transporter.Role != RoleTransporter {
		return nil, NewAuthorizationError(
			"organisation is not a transporter",
			fmt.Sprintf("company %q has role %q, only a transporter may deliver", transporter.Name, transporter.Role),
		)
	}

	var shipment Shipment
	if cerr := getEntity(store, c.shipmentKey(buyerCRN, drugName), "shipment", &shipment); cerr != nil {
		return nil, cerr
	}
	if shipment.Transporter != transporter.CompanyID {
		return nil, NewAuthorizationError(
			"caller is not the designated transporter",
			fmt.Sprintf("shipment %q is assigned to %q", shipment.ShipmentID, shipment.Transporter),
		)
	}
	if shipment.Status == ShipmentDelivered {
		return nil, NewConflictError(
			"shipment already delivered",
			fmt.Sprintf("shipment %q has already transitioned to %s", shipment.ShipmentID, ShipmentDelivered),
		)
	}

	buyer, cerr := c.getCompanyByCRN(store, buyerCRN)
	if cerr != nil {
		return nil, cerr
	}

	shipment.Status = ShipmentDelivered
	if cerr := putEntity(store, shipment.ShipmentID, &shipment); cerr != nil {
		return nil, cerr
	}
	for _, key := range shipment.Assets {
		var batch DrugBatch
		if cerr := getEntity(store, key, "drug", &batch); cerr != nil {
			return nil, cerr
		}
		if cerr := transferOwnership(store, &batch, buyer.CompanyID, shipment.ShipmentID); cerr != nil {
			return nil, cerr
		}
	}
	return &shipment, nil
}

// ShipmentState returns the current shipment under (buyerCRN, drugName).
func (c *PharmaContract) ShipmentState(store EntityStore, buyerCRN, drugName string) (*Shipment, *ContractError) {
	var shipment Shipment
	if cerr := getEntity(store, c.shipmentKey(buyerCRN, drugName), "shipment", &shipment); cerr != nil {
		return nil, cerr
	}
	return &shipment, nil
}
