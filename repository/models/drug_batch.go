package models

// DrugBatch mirrors the current state of a drug batch on the ledger.
// Owner holds a company key until the retail sale, then the opaque
// consumer identifier, so it carries no foreign key.
type DrugBatch struct {
	ID                string   `gorm:"column:product_id;primaryKey;type:varchar(255)"`
	SerialNo          string   `gorm:"column:serial_no;type:varchar(50);index"`
	Name              string   `gorm:"column:name;type:varchar(100);index;not null"`
	ManufacturerID    string   `gorm:"column:manufacturer_id;type:varchar(255);index"`
	Manufacturer      *Company `gorm:"foreignKey:ManufacturerID"`
	ManufacturingDate string   `gorm:"column:manufacturing_date;type:varchar(10)"`
	ExpiryDate        string   `gorm:"column:expiry_date;type:varchar(10)"`
	Owner             string   `gorm:"column:owner;type:varchar(255)"`
	ShipmentID        *string  `gorm:"column:shipment_id;type:varchar(255);index"`
	Shipment          *Shipment `gorm:"foreignKey:ShipmentID"`
}
