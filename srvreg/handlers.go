package srvreg

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/abhim1509/pharmaContract/ledger"
)

var defaultHeaders = map[string]string{"Content-Type": "application/json"}

// callerHeader carries the invoking company's CRN. Contract operations
// receive it explicitly instead of reading ambient transaction identity.
const callerHeader = "X-Caller-Id"

func callerID(req *Request) string {
	return strings.TrimSpace(req.Headers[callerHeader])
}

// contractErrorResponse maps a failed contract operation to an HTTP response
func contractErrorResponse(cerr *ledger.ContractError) (*Response, error) {
	switch cerr.Code {
	case ledger.CodeNotFound:
		return &Response{
			StatusCode: http.StatusNotFound,
			Headers:    defaultHeaders,
			Body:       fmt.Sprintf(`{"error":"%s"}`, cerr.Message),
		}, fmt.Errorf("entity not found: %s", cerr.Message)
	case ledger.CodeValidation:
		return &Response{
			StatusCode: http.StatusBadRequest,
			Headers:    defaultHeaders,
			Body:       fmt.Sprintf(`{"error":"%s"}`, cerr.Message),
		}, fmt.Errorf("validation error: %s", cerr.Message)
	case ledger.CodeAuthorization:
		return &Response{
			StatusCode: http.StatusForbidden,
			Headers:    defaultHeaders,
			Body:       fmt.Sprintf(`{"error":"%s"}`, cerr.Message),
		}, fmt.Errorf("authorization error: %s", cerr.Message)
	case ledger.CodeConflict:
		return &Response{
			StatusCode: http.StatusConflict,
			Headers:    defaultHeaders,
			Body:       fmt.Sprintf(`{"error":"%s"}`, cerr.Message),
		}, fmt.Errorf("conflict: %s", cerr.Message)
	default:
		return &Response{
			StatusCode: http.StatusInternalServerError,
			Headers:    defaultHeaders,
			Body:       `{"error":"Internal server error"}`,
		}, nil
	}
}

func jsonResponse(statusCode int, payload any) (*Response, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return &Response{
			StatusCode: http.StatusInternalServerError,
			Headers:    defaultHeaders,
			Body:       `{"error":"Failed to encode response"}`,
		}, nil
	}
	return &Response{
		StatusCode: statusCode,
		Headers:    defaultHeaders,
		Body:       string(bodyBytes),
	}, nil
}

type registerCompanyHandlerBody struct {
	CompanyCRN       string `json:"companyCRN"`
	CompanyName      string `json:"companyName"`
	Location         string `json:"location"`
	OrganisationRole string `json:"organisationRole"`
}

func (sr *ServiceRegistry) RegisterCompanyHandler(req *Request) (*Response, error) {
	var body registerCompanyHandlerBody
	err := json.Unmarshal([]byte(req.Body), &body)
	if err != nil {
		sr.logger.Info("Failed to parse body", "error", err.Error())
		return &Response{
			StatusCode: http.StatusUnprocessableEntity,
			Headers:    defaultHeaders,
			Body:       fmt.Sprintf(`{"error":"Invalid body format: %s"}`, err.Error()),
		}, fmt.Errorf("invalid body format")
	}
	if body.CompanyCRN == "" || body.CompanyName == "" {
		return &Response{
			StatusCode: http.StatusBadRequest,
			Headers:    defaultHeaders,
			Body:       `{"error":"companyCRN and companyName are required"}`,
		}, fmt.Errorf("companyCRN and companyName are required")
	}

	var company *ledger.Company
	err = sr.store.Update(func(es ledger.EntityStore) error {
		var cerr *ledger.ContractError
		company, cerr = sr.contract.RegisterCompany(es, body.CompanyCRN, body.CompanyName, body.Location, body.OrganisationRole)
		if cerr != nil {
			return cerr
		}
		return nil
	})
	if err != nil {
		return contractErrorResponse(ledger.AsContractError(err))
	}

	sr.mirrorCompany(body.CompanyCRN, company)

	return jsonResponse(http.StatusCreated, company)
}

type addDrugHandlerBody struct {
	DrugName   string `json:"drugName"`
	SerialNo   string `json:"serialNo"`
	MfgDate    string `json:"mfgDate"`
	ExpDate    string `json:"expDate"`
	CompanyCRN string `json:"companyCRN"`
}

func (sr *ServiceRegistry) AddDrugHandler(req *Request) (*Response, error) {
	var body addDrugHandlerBody
	err := json.Unmarshal([]byte(req.Body), &body)
	if err != nil {
		sr.logger.Info("Failed to parse body", "error", err.Error())
		return &Response{
			StatusCode: http.StatusUnprocessableEntity,
			Headers:    defaultHeaders,
			Body:       fmt.Sprintf(`{"error":"Invalid body format: %s"}`, err.Error()),
		}, fmt.Errorf("invalid body format")
	}

	caller := callerID(req)
	if caller == "" {
		return &Response{
			StatusCode: http.StatusBadRequest,
			Headers:    defaultHeaders,
			Body:       fmt.Sprintf(`{"error":"%s header is required"}`, callerHeader),
		}, fmt.Errorf("missing caller identity")
	}

	var batch *ledger.DrugBatch
	err = sr.store.Update(func(es ledger.EntityStore) error {
		var cerr *ledger.ContractError
		batch, cerr = sr.contract.AddDrug(es, caller, body.DrugName, body.SerialNo, body.MfgDate, body.ExpDate, body.CompanyCRN)
		if cerr != nil {
			return cerr
		}
		return nil
	})
	if err != nil {
		return contractErrorResponse(ledger.AsContractError(err))
	}

	sr.mirrorDrugBatch(batch)

	return jsonResponse(http.StatusCreated, batch)
}

type retailDrugHandlerBody struct {
	DrugName    string `json:"drugName"`
	SerialNo    string `json:"serialNo"`
	RetailerCRN string `json:"retailerCRN"`
	CustomerID  string `json:"customerID"`
}

func (sr *ServiceRegistry) RetailDrugHandler(req *Request) (*Response, error) {
	var body retailDrugHandlerBody
	err := json.Unmarshal([]byte(req.Body), &body)
	if err != nil {
		sr.logger.Info("Failed to parse body", "error", err.Error())
		return &Response{
			StatusCode: http.StatusUnprocessableEntity,
			Headers:    defaultHeaders,
			Body:       fmt.Sprintf(`{"error":"Invalid body format: %s"}`, err.Error()),
		}, fmt.Errorf("invalid body format")
	}

	caller := callerID(req)
	if caller == "" {
		return &Response{
			StatusCode: http.StatusBadRequest,
			Headers:    defaultHeaders,
			Body:       fmt.Sprintf(`{"error":"%s header is required"}`, callerHeader),
		}, fmt.Errorf("missing caller identity")
	}

	var batch *ledger.DrugBatch
	err = sr.store.Update(func(es ledger.EntityStore) error {
		var cerr *ledger.ContractError
		batch, cerr = sr.contract.RetailDrug(es, caller, body.DrugName, body.SerialNo, body.RetailerCRN, body.CustomerID)
		if cerr != nil {
			return cerr
		}
		return nil
	})
	if err != nil {
		return contractErrorResponse(ledger.AsContractError(err))
	}

	sr.mirrorDrugBatch(batch)

	return jsonResponse(http.StatusOK, batch)
}

type createPOHandlerBody struct {
	BuyerCRN  string `json:"buyerCRN"`
	SellerCRN string `json:"sellerCRN"`
	DrugName  string `json:"drugName"`
	Quantity  int    `json:"quantity"`
}

func (sr *ServiceRegistry) CreatePOHandler(req *Request) (*Response, error) {
	var body createPOHandlerBody
	err := json.Unmarshal([]byte(req.Body), &body)
	if err != nil {
		sr.logger.Info("Failed to parse body", "error", err.Error())
		return &Response{
			StatusCode: http.StatusUnprocessableEntity,
			Headers:    defaultHeaders,
			Body:       fmt.Sprintf(`{"error":"Invalid body format: %s"}`, err.Error()),
		}, fmt.Errorf("invalid body format")
	}

	caller := callerID(req)
	if caller == "" {
		return &Response{
			StatusCode: http.StatusBadRequest,
			Headers:    defaultHeaders,
			Body:       fmt.Sprintf(`{"error":"%s header is required"}`, callerHeader),
		}, fmt.Errorf("missing caller identity")
	}

	var po *ledger.PurchaseOrder
	err = sr.store.Update(func(es ledger.EntityStore) error {
		var cerr *ledger.ContractError
		po, cerr = sr.contract.CreatePO(es, caller, body.BuyerCRN, body.SellerCRN, body.DrugName, body.Quantity)
		if cerr != nil {
			return cerr
		}
		return nil
	})
	if err != nil {
		return contractErrorResponse(ledger.AsContractError(err))
	}

	sr.mirrorPurchaseOrder(body.BuyerCRN, po)

	return jsonResponse(http.StatusCreated, po)
}

type createShipmentHandlerBody struct {
	BuyerCRN       string   `json:"buyerCRN"`
	DrugName       string   `json:"drugName"`
	ListOfAssets   []string `json:"listOfAssets"`
	TransporterCRN string   `json:"transporterCRN"`
}

func (sr *ServiceRegistry) CreateShipmentHandler(req *Request) (*Response, error) {
	var body createShipmentHandlerBody
	err := json.Unmarshal([]byte(req.Body), &body)
	if err != nil {
		sr.logger.Info("Failed to parse body", "error", err.Error())
		return &Response{
			StatusCode: http.StatusUnprocessableEntity,
			Headers:    defaultHeaders,
			Body:       fmt.Sprintf(`{"error":"Invalid body format: %s"}`, err.Error()),
		}, fmt.Errorf("invalid body format")
	}

	caller := callerID(req)
	if caller == "" {
		return &Response{
			StatusCode: http.StatusBadRequest,
			Headers:    defaultHeaders,
			Body:       fmt.Sprintf(`{"error":"%s header is required"}`, callerHeader),
		}, fmt.Errorf("missing caller identity")
	}

	var shipment *ledger.Shipment
	err = sr.store.Update(func(es ledger.EntityStore) error {
		var cerr *ledger.ContractError
		shipment, cerr = sr.contract.CreateShipment(es, caller, body.BuyerCRN, body.DrugName, body.ListOfAssets, body.TransporterCRN)
		if cerr != nil {
			return cerr
		}
		return nil
	})
	if err != nil {
		return contractErrorResponse(ledger.AsContractError(err))
	}

	sr.mirrorShipment(body.BuyerCRN, body.DrugName, shipment)
	sr.mirrorShipmentAssets(shipment)

	return jsonResponse(http.StatusCreated, shipment)
}

type updateShipmentHandlerBody struct {
	BuyerCRN       string `json:"buyerCRN"`
	DrugName       string `json:"drugName"`
	TransporterCRN string `json:"transporterCRN"`
}

func (sr *ServiceRegistry) UpdateShipmentHandler(req *Request) (*Response, error) {
	var body updateShipmentHandlerBody
	err := json.Unmarshal([]byte(req.Body), &body)
	if err != nil {
		sr.logger.Info("Failed to parse body", "error", err.Error())
		return &Response{
			StatusCode: http.StatusUnprocessableEntity,
			Headers:    defaultHeaders,
			Body:       fmt.Sprintf(`{"error":"Invalid body format: %s"}`, err.Error()),
		}, fmt.Errorf("invalid body format")
	}

	caller := callerID(req)
	if caller == "" {
		return &Response{
			StatusCode: http.StatusBadRequest,
			Headers:    defaultHeaders,
			Body:       fmt.Sprintf(`{"error":"%s header is required"}`, callerHeader),
		}, fmt.Errorf("missing caller identity")
	}

	var shipment *ledger.Shipment
	err = sr.store.Update(func(es ledger.EntityStore) error {
		var cerr *ledger.ContractError
		shipment, cerr = sr.contract.UpdateShipment(es, caller, body.BuyerCRN, body.DrugName, body.TransporterCRN)
		if cerr != nil {
			return cerr
		}
		return nil
	})
	if err != nil {
		return contractErrorResponse(ledger.AsContractError(err))
	}

	sr.mirrorShipment(body.BuyerCRN, body.DrugName, shipment)
	sr.mirrorShipmentAssets(shipment)

	return jsonResponse(http.StatusOK, shipment)
}

func (sr *ServiceRegistry) DrugStateHandler(req *Request) (*Response, error) {
	pathParts := strings.Split(req.Path, "/")
	if len(pathParts) != 5 {
		return &Response{
			StatusCode: http.StatusBadRequest,
			Headers:    defaultHeaders,
			Body:       `{"error":"Invalid path format"}`,
		}, fmt.Errorf("invalid path format")
	}
	serialNo := pathParts[3]
	drugName := pathParts[4]

	var batch *ledger.DrugBatch
	err := sr.store.View(func(es ledger.EntityStore) error {
		var cerr *ledger.ContractError
		batch, cerr = sr.contract.DrugState(es, drugName, serialNo)
		if cerr != nil {
			return cerr
		}
		return nil
	})
	if err != nil {
		return contractErrorResponse(ledger.AsContractError(err))
	}

	return jsonResponse(http.StatusOK, batch)
}

func (sr *ServiceRegistry) DrugHistoryHandler(req *Request) (*Response, error) {
	pathParts := strings.Split(req.Path, "/")
	if len(pathParts) != 5 {
		return &Response{
			StatusCode: http.StatusBadRequest,
			Headers:    defaultHeaders,
			Body:       `{"error":"Invalid path format"}`,
		}, fmt.Errorf("invalid path format")
	}
	serialNo := pathParts[3]
	drugName := pathParts[4]

	var history []ledger.DrugBatch
	err := sr.store.View(func(es ledger.EntityStore) error {
		var cerr *ledger.ContractError
		history, cerr = sr.contract.DrugHistory(es, drugName, serialNo)
		if cerr != nil {
			return cerr
		}
		return nil
	})
	if err != nil {
		return contractErrorResponse(ledger.AsContractError(err))
	}

	return jsonResponse(http.StatusOK, map[string]any{"history": history})
}

// Mirror helpers push committed ledger state into the off-chain read model.
// Mirroring is best-effort: a failed mirror never fails the transaction, the
// ledger remains the source of truth.

func (sr *ServiceRegistry) mirrorCompany(crn string, company *ledger.Company) {
	if sr.repository == nil || company == nil {
		return
	}
	if dbErr := sr.repository.MirrorCompany(crn, company); dbErr != nil {
		sr.logger.Info("Failed to mirror company", "error", dbErr.Message)
	}
}

func (sr *ServiceRegistry) mirrorDrugBatch(batch *ledger.DrugBatch) {
	if sr.repository == nil || batch == nil {
		return
	}
	if dbErr := sr.repository.MirrorDrugBatch(batch); dbErr != nil {
		sr.logger.Info("Failed to mirror drug batch", "error", dbErr.Message)
	}
}

func (sr *ServiceRegistry) mirrorPurchaseOrder(buyerCRN string, po *ledger.PurchaseOrder) {
	if sr.repository == nil || po == nil {
		return
	}
	if dbErr := sr.repository.MirrorPurchaseOrder(buyerCRN, po); dbErr != nil {
		sr.logger.Info("Failed to mirror purchase order", "error", dbErr.Message)
	}
}

func (sr *ServiceRegistry) mirrorShipment(buyerCRN, drugName string, shipment *ledger.Shipment) {
	if sr.repository == nil || shipment == nil {
		return
	}
	if dbErr := sr.repository.MirrorShipment(buyerCRN, drugName, shipment); dbErr != nil {
		sr.logger.Info("Failed to mirror shipment", "error", dbErr.Message)
	}
}

// mirrorShipmentAssets re-reads the shipment's batches after commit and
// mirrors their new custody state.
func (sr *ServiceRegistry) mirrorShipmentAssets(shipment *ledger.Shipment) {
	if sr.repository == nil || shipment == nil {
		return
	}
	for _, assetKey := range shipment.Assets {
		var batch ledger.DrugBatch
		err := sr.store.View(func(es ledger.EntityStore) error {
			raw, err := es.Get(assetKey)
			if err != nil {
				return err
			}
			return json.Unmarshal(raw, &batch)
		})
		if err != nil {
			sr.logger.Info("Failed to read shipment asset for mirroring", "error", err.Error())
			continue
		}
		sr.mirrorDrugBatch(&batch)
	}
}
