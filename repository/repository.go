package repository

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	cmtrpc "github.com/cometbft/cometbft/rpc/client/local"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/abhim1509/pharmaContract/ledger"
	"github.com/abhim1509/pharmaContract/repository/models"
)

// PostgreSQL error codes as constants
const (
	// Class 23 — Integrity Constraint Violation
	PgErrForeignKeyViolation = "23503" // foreign_key_violation
	PgErrUniqueViolation     = "23505" // unique_violation
	PgErrCheckViolation      = "23514" // check_violation
	PgErrNotNullViolation    = "23502" // not_null_violation

	// Class 08 — Connection Exception
	PgErrConnectionException = "08000" // connection_exception
	PgErrConnectionFailure   = "08006" // connection_failure

	// Class 40 — Transaction Rollback
	PgErrTransactionRollback = "40000" // transaction_rollback
)

// RepositoryError represents an error in the read-model layer
type RepositoryError struct {
	Code    string
	Message string
	Detail  string
}

// Repository mirrors committed ledger state into Postgres for reporting
// queries. The KV ledger stays the source of truth: the mirror is
// rebuilt per node and never read back into contract logic.
type Repository struct {
	db        *gorm.DB
	rpcClient *cmtrpc.Local
}

func NewRepository() *Repository {
	return &Repository{}
}

// SetupRpcClient attaches the local CometBFT RPC client used to submit
// transactions to consensus.
func (r *Repository) SetupRpcClient(rpcClient *cmtrpc.Local) {
	r.rpcClient = rpcClient
}

// HasDB reports whether a Postgres connection is configured. Nodes can
// run without a read model; mirroring is skipped in that case.
func (r *Repository) HasDB() bool {
	return r.db != nil
}

// ConnectDB connects to Postgres, retrying while the database comes up.
func (r *Repository) ConnectDB(dsn string) error {
	var lastErr error
	for i := range 10 {
		log.Printf("Connection attempt %d...\n", i+1)
		db, err := gorm.Open(postgres.Open(dsn))
		if err == nil {
			r.db = db
			log.Println("Connected to Postgres")
			return nil
		}
		lastErr = err
		log.Printf("Connection attempt %d, failed: %v\n", i+1, err)
		time.Sleep(2 * time.Second)
	}
	return lastErr
}

// Migrate creates the read-model tables.
func (r *Repository) Migrate() {
	r.db.AutoMigrate(
		&models.Company{},
		&models.DrugBatch{},
		&models.PurchaseOrder{},
		&models.Shipment{},
		&models.LedgerTransaction{},
	)
	log.Println("Database migration completed successfully")
}

// save upserts a record by primary key inside a transaction.
func (r *Repository) save(record any) *RepositoryError {
	if r.db == nil {
		return errNoDB()
	}
	dbTx := r.db.Begin()
	if err := dbTx.Save(record).Error; err != nil {
		dbTx.Rollback()
		return wrapDBError(err)
	}
	if err := dbTx.Commit().Error; err != nil {
		return wrapDBError(err)
	}
	return nil
}

// MirrorCompany upserts the mirror row of a committed company.
func (r *Repository) MirrorCompany(crn string, company *ledger.Company) *RepositoryError {
	return r.save(&models.Company{
		ID:            displayKey(company.CompanyID),
		CRN:           crn,
		Name:          company.Name,
		Location:      company.Location,
		Role:          string(company.Role),
		HierarchyRank: company.HierarchyRank,
	})
}

// MirrorDrugBatch upserts the mirror row of a committed drug batch.
func (r *Repository) MirrorDrugBatch(batch *ledger.DrugBatch) *RepositoryError {
	row := &models.DrugBatch{
		ID:                displayKey(batch.ProductID),
		SerialNo:          keyComponent(batch.ProductID, 2),
		Name:              batch.Name,
		ManufacturerID:    displayKey(batch.Manufacturer),
		ManufacturingDate: batch.ManufacturingDate,
		ExpiryDate:        batch.ExpiryDate,
		Owner:             displayKey(batch.Owner),
	}
	if batch.Shipment != "" {
		shipmentID := displayKey(batch.Shipment)
		row.ShipmentID = &shipmentID
	}
	return r.save(row)
}

// MirrorPurchaseOrder upserts the mirror row of a committed purchase order.
func (r *Repository) MirrorPurchaseOrder(buyerCRN string, po *ledger.PurchaseOrder) *RepositoryError {
	return r.save(&models.PurchaseOrder{
		ID:       displayKey(po.POID),
		BuyerCRN: buyerCRN,
		DrugName: po.DrugName,
		Quantity: po.Quantity,
		BuyerID:  displayKey(po.Buyer),
		SellerID: displayKey(po.Seller),
	})
}

// MirrorShipment upserts the mirror row of a committed shipment.
func (r *Repository) MirrorShipment(buyerCRN, drugName string, shipment *ledger.Shipment) *RepositoryError {
	return r.save(&models.Shipment{
		ID:            displayKey(shipment.ShipmentID),
		BuyerCRN:      buyerCRN,
		DrugName:      drugName,
		CreatorID:     displayKey(shipment.Creator),
		TransporterID: displayKey(shipment.Transporter),
		Status:        string(shipment.Status),
		AssetCount:    len(shipment.Assets),
	})
}

// CreateTransactionRecord stores the blockchain reference of a
// committed request.
func (r *Repository) CreateTransactionRecord(txHash, requestID, method, path string, blockHeight int64, status string) *RepositoryError {
	return r.save(&models.LedgerTransaction{
		TxHash:      txHash,
		RequestID:   requestID,
		Method:      method,
		Path:        path,
		BlockHeight: blockHeight,
		Status:      status,
	})
}

// ListCompanies returns every mirrored company.
func (r *Repository) ListCompanies() ([]models.Company, *RepositoryError) {
	if r.db == nil {
		return nil, errNoDB()
	}
	var companies []models.Company
	if err := r.db.Order("crn").Find(&companies).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return companies, nil
}

// ListDrugBatches returns mirrored drug batches, optionally filtered by
// drug name.
func (r *Repository) ListDrugBatches(drugName string) ([]models.DrugBatch, *RepositoryError) {
	if r.db == nil {
		return nil, errNoDB()
	}
	query := r.db.Preload("Manufacturer").Order("serial_no")
	if drugName != "" {
		query = query.Where("name = ?", drugName)
	}
	var batches []models.DrugBatch
	if err := query.Find(&batches).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return batches, nil
}

// ListShipments returns mirrored shipments with their linked assets.
func (r *Repository) ListShipments() ([]models.Shipment, *RepositoryError) {
	if r.db == nil {
		return nil, errNoDB()
	}
	var shipments []models.Shipment
	if err := r.db.Preload("Assets").Order("shipment_id").Find(&shipments).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return shipments, nil
}

// ListTransactions returns the most recent ledger transaction records.
func (r *Repository) ListTransactions(limit int) ([]models.LedgerTransaction, *RepositoryError) {
	if r.db == nil {
		return nil, errNoDB()
	}
	if limit <= 0 {
		limit = 50
	}
	var txs []models.LedgerTransaction
	if err := r.db.Order("block_height desc").Limit(limit).Find(&txs).Error; err != nil {
		return nil, wrapDBError(err)
	}
	return txs, nil
}

// displayKey re-joins a composite ledger key with ":" separators.
// Postgres text columns reject the U+0000 separator the ledger uses, so
// mirrored key columns carry the display form.
func displayKey(key string) string {
	return strings.Join(ledger.ParseKey(key), ":")
}

// keyComponent returns one component of a composite ledger key, or ""
// when the key has fewer components.
func keyComponent(key string, index int) string {
	parts := ledger.ParseKey(key)
	if index >= len(parts) {
		return ""
	}
	return parts[index]
}

func errNoDB() *RepositoryError {
	return &RepositoryError{
		Code:    "NOT_CONFIGURED",
		Message: "No database connection configured",
		Detail:  "read model queries require a Postgres connection",
	}
}

func wrapDBError(err error) *RepositoryError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &RepositoryError{
			Code:    pgErr.Code,
			Message: pgErr.Message,
			Detail:  pgErr.Detail,
		}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &RepositoryError{
			Code:    "ENTITY_NOT_FOUND",
			Message: "Record does not exist",
			Detail:  err.Error(),
		}
	}
	return &RepositoryError{
		Code:    "DATABASE_ERROR",
		Message: "Database error occurred",
		Detail:  err.Error(),
	}
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
}
