package ledger

import "strings"

// keySep separates the components of a composite key. U+0000 cannot
// appear in CRNs, names, or serial numbers, so component boundaries are
// unambiguous and key derivation is order-sensitive and stable.
const keySep = "\x00"

// Entity kind tags. The tag is part of every composite key so that two
// entity kinds sharing the same attribute tuple, such as a purchase
// order and a shipment both addressed by (buyerCRN, drugName), never
// collide in the store.
const (
	kindCompany  = "company"
	kindDrug     = "drug"
	kindPO       = "po"
	kindShipment = "shipment"
)

// MakeKey derives a deterministic composite key from the deployment
// namespace and the given attributes. Same attribute order always
// produces the same key.
func MakeKey(namespace string, attrs ...string) string {
	parts := make([]string, 0, len(attrs)+1)
	parts = append(parts, namespace)
	parts = append(parts, attrs...)
	return strings.Join(parts, keySep)
}

// ParseKey splits a composite key back into its components, the
// namespace first.
func ParseKey(key string) []string {
	return strings.Split(key, keySep)
}

func (c *PharmaContract) companyKey(crn, name string) string {
	return MakeKey(c.namespace, kindCompany, crn, name)
}

// companyPrefix covers every company registered under the given CRN,
// whatever name component completes the key.
func (c *PharmaContract) companyPrefix(crn string) string {
	return MakeKey(c.namespace, kindCompany, crn) + keySep
}

func (c *PharmaContract) drugKey(serialNo, drugName string) string {
	return MakeKey(c.namespace, kindDrug, serialNo, drugName)
}

func (c *PharmaContract) poKey(buyerCRN, drugName string) string {
	return MakeKey(c.namespace, kindPO, buyerCRN, drugName)
}

func (c *PharmaContract) shipmentKey(buyerCRN, drugName string) string {
	return MakeKey(c.namespace, kindShipment, buyerCRN, drugName)
}

// crnFromCompanyKey recovers the CRN component of a company composite
// key. Returns false if the key does not have the company shape.
func (c *PharmaContract) crnFromCompanyKey(key string) (string, bool) {
	parts := ParseKey(key)
	if len(parts) != 4 || parts[0] != c.namespace || parts[1] != kindCompany {
		return "", false
	}
	return parts[2], true
}
