package ledger

import "strings"

// Role is the organisation role of a registered company.
type Role string

const (
	RoleManufacturer Role = "manufacturer"
	RoleDistributor  Role = "distributor"
	RoleRetailer     Role = "retailer"
	RoleTransporter  Role = "transporter"
)

// hierarchyRanks is the total mapping from trade roles to hierarchy
// ranks. A transporter is a recognized role but holds no rank in the
// trade hierarchy, so it is absent here on purpose.
var hierarchyRanks = map[Role]int{
	RoleManufacturer: 1,
	RoleDistributor:  2,
	RoleRetailer:     3,
}

// ParseRole normalizes a role string and reports whether it names one
// of the four recognized roles. Unrecognized roles are rejected by the
// caller, never defaulted.
func ParseRole(s string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	switch role {
	case RoleManufacturer, RoleDistributor, RoleRetailer, RoleTransporter:
		return role, true
	}
	return "", false
}

// ShipmentStatus is the lifecycle state of a shipment.
type ShipmentStatus string

const (
	ShipmentInTransit ShipmentStatus = "in-transit"
	ShipmentDelivered ShipmentStatus = "delivered"
)

// Company is a registered participant of the network. Immutable after
// registration.
type Company struct {
	CompanyID     string `json:"companyID"`
	Name          string `json:"name"`
	Location      string `json:"location"`
	Role          Role   `json:"organisationRole"`
	HierarchyRank int    `json:"hierarchyKey,omitempty"`
}

// DrugBatch is a single serialized unit of a drug. Owner holds a
// company composite key until the retail sale, after which it holds the
// opaque consumer identifier. Shipment stays empty until delivery.
type DrugBatch struct {
	ProductID         string `json:"productID"`
	Name              string `json:"name"`
	Manufacturer      string `json:"manufacturer"`
	ManufacturingDate string `json:"manufacturingDate"`
	ExpiryDate        string `json:"expiryDate"`
	Owner             string `json:"owner"`
	Shipment          string `json:"shipment,omitempty"`
}

// PurchaseOrder is a buyer's commitment to acquire a quantity of a drug
// from a hierarchy-valid seller. Read-only once created.
type PurchaseOrder struct {
	POID     string `json:"poID"`
	DrugName string `json:"drugName"`
	Quantity int    `json:"quantity"`
	Buyer    string `json:"buyer"`
	Seller   string `json:"seller"`
}

// Shipment is a consolidated bundle of drug batches moving from seller
// to buyer custody via a transporter.
type Shipment struct {
	ShipmentID  string         `json:"shipmentID"`
	Creator     string         `json:"creator"`
	Assets      []string       `json:"assets"`
	Transporter string         `json:"transporter"`
	Status      ShipmentStatus `json:"status"`
}
