package models

// PurchaseOrder mirrors a committed purchase order
type PurchaseOrder struct {
	ID       string   `gorm:"column:po_id;primaryKey;type:varchar(255)"`
	BuyerCRN string   `gorm:"column:buyer_crn;type:varchar(50);index;not null"`
	DrugName string   `gorm:"column:drug_name;type:varchar(100);index;not null"`
	Quantity int      `gorm:"column:quantity;not null"`
	BuyerID  string   `gorm:"column:buyer_id;type:varchar(255);index"`
	Buyer    *Company `gorm:"foreignKey:BuyerID"`
	SellerID string   `gorm:"column:seller_id;type:varchar(255);index"`
	Seller   *Company `gorm:"foreignKey:SellerID"`
}
