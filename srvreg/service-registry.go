package srvreg

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"encoding/hex"
	"encoding/json"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/abhim1509/pharmaContract/ledger"
	"github.com/abhim1509/pharmaContract/repository"
)

// Request represents the client's original HTTP request
type Request struct {
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	RemoteAddr string            `json:"remote_addr"`
	RequestID  string            `json:"request_id"` // Unique ID for the request
	Timestamp  time.Time         `json:"timestamp"`
}

// GenerateRequestID generates a deterministic ID for the request
func (r *Request) GenerateRequestID() {
	hasher := sha256.New()
	hasher.Write([]byte(fmt.Sprintf("%s-%s-%s-%s", r.Path, r.Method, r.Body, r.Timestamp)))
	r.RequestID = hex.EncodeToString(hasher.Sum(nil)[:16])
}

// Response represents the computed response from a node
type Response struct {
	StatusCode    int               `json:"status_code"`
	Headers       map[string]string `json:"headers"`
	Body          string            `json:"body"`
	Error         string            `json:"error,omitempty"`
	BodyInterface interface{}       `json:"body_interface"`
}

// ParseBody attempts to parse the Response's Body field as JSON
// and returns the structured data or nil if parsing fails.
func (r *Response) ParseBody() interface{} {
	// If Body is empty, return nil
	if r.Body == "" {
		return nil
	}

	// First try to unmarshal into a map (JSON object)
	var bodyMap map[string]interface{}
	err := json.Unmarshal([]byte(r.Body), &bodyMap)
	if err == nil {
		return bodyMap
	}

	// If that fails, try as a JSON array
	var bodyArray []interface{}
	err = json.Unmarshal([]byte(r.Body), &bodyArray)
	if err == nil {
		return bodyArray
	}

	// If not valid JSON, return nil
	log.Println("Invalid JSON")
	log.Println(err)
	return nil
}

// Transaction represents a complete transaction, pairing the Request and the Response
type Transaction struct {
	Request      Request  `json:"request"`
	Response     Response `json:"response"`
	OriginNodeID string   `json:"origin_node_id"` // ID of the node that originated the transaction
	BlockHeight  int64    `json:"block_height,omitempty"`
}

// ServiceHandler is a function type for service handlers
type ServiceHandler func(*Request) (*Response, error)

// RouteKey is used to uniquely identify a route
type RouteKey struct {
	Method string
	Path   string
}

// ServiceRegistry manages all service handlers. Each handler executes a
// pharma contract operation against the ledger store; the repository, when
// configured, mirrors committed state for off-chain reporting.
type ServiceRegistry struct {
	handlers    map[RouteKey]ServiceHandler
	exactRoutes map[RouteKey]bool // Whether a route is exact or pattern-based
	mu          sync.RWMutex
	store       ledger.StoreOpener
	contract    *ledger.PharmaContract
	repository  *repository.Repository
	logger      cmtlog.Logger
	isByzantine bool
}

// SerializeToBytes converts the transaction to a byte array for blockchain storage
func (t *Transaction) SerializeToBytes() ([]byte, error) {
	return json.Marshal(t)
}

// ConvertHttpRequestToConsensusRequest converts an http.Request to Request
func ConvertHttpRequestToConsensusRequest(r *http.Request, requestID string) (*Request, error) {
	// Extract headers
	headers := make(map[string]string)
	for name, values := range r.Header {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}

	// Read body if present
	body := ""
	if r.Body != nil {
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		raw := strings.TrimSpace(string(bodyBytes))
		body = compactJSON(raw)
	}

	return &Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		Headers:    headers,
		Body:       body,
		RemoteAddr: r.RemoteAddr,
		RequestID:  requestID,
		Timestamp:  time.Now(),
	}, nil
}

// NewServiceRegistry creates a new service registry
func NewServiceRegistry(
	store ledger.StoreOpener,
	contract *ledger.PharmaContract,
	repository *repository.Repository,
	logger cmtlog.Logger,
	isByzantine bool,
) *ServiceRegistry {
	return &ServiceRegistry{
		handlers:    make(map[RouteKey]ServiceHandler),
		exactRoutes: make(map[RouteKey]bool),
		store:       store,
		contract:    contract,
		repository:  repository,
		logger:      logger,
		isByzantine: isByzantine,
	}
}

// RegisterHandler registers a new service handler
func (sr *ServiceRegistry) RegisterHandler(method, path string, isExactPath bool, handler ServiceHandler) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	key := RouteKey{Method: strings.ToUpper(method), Path: path}
	sr.handlers[key] = handler
	sr.exactRoutes[key] = isExactPath
}

// GetHandlerForPath finds the appropriate handler for a given path and a boolean of whether or not the handler was found
func (sr *ServiceRegistry) GetHandlerForPath(method, path string) (ServiceHandler, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	// Try exact match first
	key := RouteKey{Method: strings.ToUpper(method), Path: path}
	if handler, ok := sr.handlers[key]; ok {
		if sr.exactRoutes[key] {
			return handler, true
		}
	}

	// Try pattern matching
	for routeKey, handler := range sr.handlers {
		if routeKey.Method != strings.ToUpper(method) {
			continue
		}

		// Skip exact routes in pattern matching
		if sr.exactRoutes[routeKey] {
			continue
		}

		// Simple pattern matching - can be enhanced
		if matchPath(routeKey.Path, path) {
			return handler, true
		}
	}

	return nil, false
}

// matchPath does simple pattern matching for routes.
// It supports patterns like "/drug/view/:serialNo/:drugName" matching "/drug/view/001/Paracetamol"
func matchPath(pattern, path string) bool {
	patternParts := strings.Split(pattern, "/")
	pathParts := strings.Split(path, "/")

	if len(patternParts) != len(pathParts) {
		return false
	}

	for i := range len(patternParts) {
		if strings.HasPrefix(patternParts[i], ":") {
			// This is a parameter part, it matches anything
			continue
		}

		if patternParts[i] != pathParts[i] {
			return false
		}
	}

	return true
}

// RegisterDefaultServices sets up
// the pharma network services for the BFT system
func (sr *ServiceRegistry) RegisterDefaultServices() {
	// Endpoints
	// Register Company Endpoint
	sr.RegisterHandler(
		"POST",
		"/company/register",
		true,
		sr.RegisterCompanyHandler,
	)
	// Add Drug Batch Endpoint
	sr.RegisterHandler(
		"POST",
		"/drug/add",
		true,
		sr.AddDrugHandler,
	)
	// Retail Drug Endpoint
	sr.RegisterHandler(
		"POST",
		"/drug/retail",
		true,
		sr.RetailDrugHandler,
	)
	// Create Purchase Order Endpoint
	sr.RegisterHandler(
		"POST",
		"/po/create",
		true,
		sr.CreatePOHandler,
	)
	// Create Shipment Endpoint
	sr.RegisterHandler(
		"POST",
		"/shipment/create",
		true,
		sr.CreateShipmentHandler,
	)
	// Deliver Shipment Endpoint
	sr.RegisterHandler(
		"POST",
		"/shipment/deliver",
		true,
		sr.UpdateShipmentHandler,
	)
	// View Drug Current State Endpoint
	sr.RegisterHandler(
		"GET",
		"/drug/view/:serialNo/:drugName",
		false,
		sr.DrugStateHandler,
	)
	// View Drug History Endpoint
	sr.RegisterHandler(
		"GET",
		"/drug/history/:serialNo/:drugName",
		false,
		sr.DrugHistoryHandler,
	)
}

// GenerateResponse executes the request and generates a response
func (req *Request) GenerateResponse(services *ServiceRegistry) (*Response, error) {
	// Find the appropriate service handler for this request
	handler, found := services.GetHandlerForPath(req.Method, req.Path)
	if !found {
		log.Println("service registry handler not found")
		return &Response{
			StatusCode: http.StatusNotFound,
			Headers:    map[string]string{"Content-Type": "text/plain"},
			Body:       fmt.Sprintf("Service not found for %s %s", req.Method, req.Path),
		}, nil
	}

	// Execute the handler
	response, err := handler(req)

	if services.isByzantine {
		if response.StatusCode == http.StatusOK || response.StatusCode == http.StatusCreated {
			response.Body = `{"message": "Byzantine node response - data corrupted"}`
			response.StatusCode = http.StatusInternalServerError
		}
		services.logger.Info("Byzantine Node Response", response.Body)
	}

	return response, err
}

func compactJSON(body string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(body)); err != nil {
		// If it's not JSON, return trimmed original
		return strings.TrimSpace(body)
	}
	return buf.String()
}
