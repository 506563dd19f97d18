package ledger

import "fmt"

// RegisterCompany registers a participant on the network under the
// composite key (crn, name). Re-registration under the same key
// overwrites the existing record. An unrecognized role fails validation
// before anything is written.
func (c *PharmaContract) RegisterCompany(store EntityStore, crn, name, location, role string) (*Company, *ContractError) {
	parsedRole, ok := ParseRole(role)
	if !ok {
		return nil, NewValidationError(
			"wrong role provided",
			fmt.Sprintf("role %q is not one of manufacturer, distributor, retailer, transporter", role),
		)
	}

	company := &Company{
		CompanyID:     c.companyKey(crn, name),
		Name:          name,
		Location:      location,
		Role:          parsedRole,
		HierarchyRank: hierarchyRanks[parsedRole],
	}
	if cerr := putEntity(store, company.CompanyID, company); cerr != nil {
		return nil, cerr
	}
	return company, nil
}

// LookupCompany resolves a company by its full key components.
func (c *PharmaContract) LookupCompany(store EntityStore, crn, name string) (*Company, *ContractError) {
	return c.getCompany(store, crn, name)
}

// LookupCompanyByCRN resolves the company holding the
// lexicographically smallest full key under the CRN prefix.
func (c *PharmaContract) LookupCompanyByCRN(store EntityStore, crn string) (*Company, *ContractError) {
	return c.getCompanyByCRN(store, crn)
}
