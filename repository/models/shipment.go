package models

// Shipment mirrors a committed shipment. Its assets are the DrugBatch
// rows pointing back at it once delivery links them.
type Shipment struct {
	ID            string   `gorm:"column:shipment_id;primaryKey;type:varchar(255)"`
	BuyerCRN      string   `gorm:"column:buyer_crn;type:varchar(50);index;not null"`
	DrugName      string   `gorm:"column:drug_name;type:varchar(100);index;not null"`
	CreatorID     string   `gorm:"column:creator_id;type:varchar(255);index"`
	Creator       *Company `gorm:"foreignKey:CreatorID"`
	TransporterID string   `gorm:"column:transporter_id;type:varchar(255);index"`
	Transporter   *Company `gorm:"foreignKey:TransporterID"`
	Status        string   `gorm:"column:status;type:varchar(20);not null"`
	AssetCount    int      `gorm:"column:asset_count;not null"`

	// Relationships
	Assets []DrugBatch `gorm:"foreignKey:ShipmentID"`
}
