package ledger

import "fmt"

// CreatePO creates a purchase order from buyer to seller. The buyer is
// resolved via (buyerCRN, caller) and the seller by CRN prefix. The
// buyer's hierarchy rank must sit exactly one above the seller's:
// a distributor buys from a manufacturer, a retailer from a
// distributor. Re-creation under the same (buyerCRN, drugName) key
// overwrites the previous order.
func (c *PharmaContract) CreatePO(store EntityStore, caller, buyerCRN, sellerCRN, drugName string, quantity int) (*PurchaseOrder, *ContractError) {
	if quantity <= 0 {
		return nil, NewValidationError(
			"quantity must be positive",
			fmt.Sprintf("got quantity %d", quantity),
		)
	}

	buyer, cerr := c.getCompany(store, buyerCRN, caller)
	if cerr != nil {
		return nil, cerr
	}
	seller, cerr := c.getCompanyByCRN(store, sellerCRN)
	if cerr != nil {
		return nil, cerr
	}
	if !tradePairAllowed(buyer, seller) {
		return nil, NewAuthorizationError(
			"hierarchy for purchase is not followed",
			fmt.Sprintf("%s may not buy from %s", buyer.Role, seller.Role),
		)
	}

	po := &PurchaseOrder{
		POID:     c.poKey(buyerCRN, drugName),
		DrugName: drugName,
		Quantity: quantity,
		Buyer:    buyer.CompanyID,
		Seller:   seller.CompanyID,
	}
	if cerr := putEntity(store, po.POID, po); cerr != nil {
		return nil, cerr
	}
	return po, nil
}

// PurchaseOrderState returns the current purchase order under
// (buyerCRN, drugName).
func (c *PharmaContract) PurchaseOrderState(store EntityStore, buyerCRN, drugName string) (*PurchaseOrder, *ContractError) {
	var po PurchaseOrder
	if cerr := getEntity(store, c.poKey(buyerCRN, drugName), "purchase order", &po); cerr != nil {
		return nil, cerr
	}
	return &po, nil
}
