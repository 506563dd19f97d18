package models

// Company mirrors a committed company record for reporting
type Company struct {
	ID            string `gorm:"column:company_id;primaryKey;type:varchar(255)"`
	CRN           string `gorm:"column:crn;type:varchar(50);index;not null"`
	Name          string `gorm:"column:name;type:varchar(100);not null"`
	Location      string `gorm:"column:location;type:varchar(100)"`
	Role          string `gorm:"column:role;type:varchar(20);not null"`
	HierarchyRank int    `gorm:"column:hierarchy_rank"`

	// Relationships
	DrugBatches []DrugBatch `gorm:"foreignKey:ManufacturerID"`
}
