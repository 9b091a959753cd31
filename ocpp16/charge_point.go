package ocpp16

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"
	"gopkg.in/go-playground/validator.v9"

	"github.com/Jaypatelbond/ocpp-client-go/ocpp"
	"github.com/Jaypatelbond/ocpp-client-go/ocppj"
	"github.com/Jaypatelbond/ocpp-client-go/ws"
)

var log = logrus.StandardLogger()

// SetLogger replaces the package logger.
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// CoreHandler serves the core-profile requests a central system may send to
// the charge point. Returning an error (or any nil confirmation) makes the
// request fail with a CallError instead of a confirmation.
type CoreHandler interface {
	OnChangeAvailability(request *ChangeAvailabilityRequest) (*ChangeAvailabilityConfirmation, error)
	OnChangeConfiguration(request *ChangeConfigurationRequest) (*ChangeConfigurationConfirmation, error)
	OnClearCache(request *ClearCacheRequest) (*ClearCacheConfirmation, error)
	OnDataTransfer(request *DataTransferRequest) (*DataTransferConfirmation, error)
	OnGetConfiguration(request *GetConfigurationRequest) (*GetConfigurationConfirmation, error)
	OnRemoteStartTransaction(request *RemoteStartTransactionRequest) (*RemoteStartTransactionConfirmation, error)
	OnRemoteStopTransaction(request *RemoteStopTransactionRequest) (*RemoteStopTransactionConfirmation, error)
	OnReset(request *ResetRequest) (*ResetConfirmation, error)
	OnUnlockConnector(request *UnlockConnectorRequest) (*UnlockConnectorConfirmation, error)
}

// ChargePoint is the typed OCPP 1.6 client of a single charge point.
type ChargePoint interface {
	// Start connects to the central system at csURL. Connection failures are
	// reported through the transport's state observable, not returned here.
	Start(csURL string) error
	// Stop disconnects and fails all pending requests.
	Stop()
	IsConnected() bool

	BootNotification(chargePointModel, chargePointVendor string, props ...func(*BootNotificationRequest)) (*BootNotificationConfirmation, error)
	Authorize(idTag string, props ...func(*AuthorizeRequest)) (*AuthorizeConfirmation, error)
	Heartbeat(props ...func(*HeartbeatRequest)) (*HeartbeatConfirmation, error)
	MeterValues(connectorId int, meterValues []MeterValue, props ...func(*MeterValuesRequest)) (*MeterValuesConfirmation, error)
	StartTransaction(connectorId int, idTag string, meterStart int, timestamp *DateTime, props ...func(*StartTransactionRequest)) (*StartTransactionConfirmation, error)
	StopTransaction(meterStop int, timestamp *DateTime, transactionId int, props ...func(*StopTransactionRequest)) (*StopTransactionConfirmation, error)
	StatusNotification(connectorId int, errorCode ChargePointErrorCode, status ChargePointStatus, props ...func(*StatusNotificationRequest)) (*StatusNotificationConfirmation, error)
	DataTransfer(vendorId string, props ...func(*DataTransferRequest)) (*DataTransferConfirmation, error)

	// SendRequest sends any charge-point-initiated request synchronously.
	SendRequest(request Request) (Response, error)
	// SendRequestAsync delivers the outcome to the callback instead.
	SendRequestAsync(request Request, callback func(response Response, err error)) error

	SetCoreHandler(handler CoreHandler)
}

type chargePoint struct {
	id          string
	endpoint    *ocpp.Client
	coreHandler CoreHandler
	validate    *validator.Validate
}

// NewChargePoint creates a typed client for the given charge point identity.
// A nil endpoint gets a fresh correlation client; a nil transport gets a
// default websocket client.
func NewChargePoint(id string, endpoint *ocpp.Client, transport ocpp.Transport) ChargePoint {
	if endpoint == nil {
		if transport == nil {
			transport = ws.NewClient(ws.DefaultConfig())
		}
		endpoint = ocpp.NewClient(transport)
	}
	cp := &chargePoint{
		id:       id,
		endpoint: endpoint,
		validate: validator.New(),
	}
	for action := range centralSystemFeatures {
		cp.endpoint.OnCall(action, cp.handleIncomingCall)
	}
	return cp
}

func (cp *chargePoint) Start(csURL string) error {
	return cp.endpoint.Start(csURL, cp.id)
}

func (cp *chargePoint) Stop() {
	if err := cp.endpoint.Stop(); err != nil {
		log.WithError(err).Warnln("ocpp16: error stopping charge point")
	}
}

func (cp *chargePoint) IsConnected() bool {
	return cp.endpoint.IsConnected()
}

func (cp *chargePoint) SetCoreHandler(handler CoreHandler) {
	cp.coreHandler = handler
}

func (cp *chargePoint) SendRequest(request Request) (Response, error) {
	action := request.GetFeatureName()
	f, ok := chargePointFeatures[action]
	if !ok {
		return nil, fmt.Errorf("ocpp16: unsupported action %s", action)
	}
	if err := cp.validate.Struct(request); err != nil {
		return nil, fmt.Errorf("ocpp16: invalid %s request: %w", action, err)
	}

	raw, err := cp.endpoint.SendCall(context.Background(), action, request)
	if err != nil {
		return nil, err
	}

	response := f.newResponse()
	if err := json.Unmarshal(raw, response); err != nil {
		return nil, fmt.Errorf("ocpp16: decode %s confirmation: %w", action, err)
	}
	if err := cp.validate.Struct(response); err != nil {
		return nil, fmt.Errorf("ocpp16: invalid %s confirmation: %w", action, err)
	}
	return response, nil
}

func (cp *chargePoint) SendRequestAsync(request Request, callback func(response Response, err error)) error {
	if _, ok := chargePointFeatures[request.GetFeatureName()]; !ok {
		return fmt.Errorf("ocpp16: unsupported action %s", request.GetFeatureName())
	}
	if callback == nil {
		return fmt.Errorf("ocpp16: callback is required")
	}
	go func() {
		callback(cp.SendRequest(request))
	}()
	return nil
}

// handleIncomingCall decodes a central-system request, dispatches it to the
// core handler and returns the typed confirmation as the CallResult payload.
func (cp *chargePoint) handleIncomingCall(call *ocppj.Call) (interface{}, error) {
	f, ok := centralSystemFeatures[call.Action]
	if !ok {
		return nil, ocpp.NewError(ocppj.NotSupported, fmt.Sprintf("Action '%s' is not supported", call.Action), call.UniqueID)
	}
	handler := cp.coreHandler
	if handler == nil {
		return nil, ocpp.NewError(ocppj.NotImplemented, fmt.Sprintf("Action '%s' is not implemented", call.Action), call.UniqueID)
	}

	request := f.newRequest()
	if err := json.Unmarshal(call.Payload, request); err != nil {
		return nil, ocpp.NewError(ocppj.FormationViolation, err.Error(), call.UniqueID)
	}
	if err := cp.validate.Struct(request); err != nil {
		return nil, ocpp.NewError(ocppj.PropertyConstraintViolation, err.Error(), call.UniqueID)
	}

	response, err := cp.dispatch(request)
	if err != nil {
		return nil, err
	}
	if response == nil {
		return nil, ocpp.NewError(ocppj.InternalError, "handler returned no confirmation", call.UniqueID)
	}
	if err := cp.validate.Struct(response); err != nil {
		return nil, ocpp.NewError(ocppj.InternalError, err.Error(), call.UniqueID)
	}
	return response, nil
}

func (cp *chargePoint) dispatch(request Request) (Response, error) {
	switch req := request.(type) {
	case *ChangeAvailabilityRequest:
		return responseOrNil(cp.coreHandler.OnChangeAvailability(req))
	case *ChangeConfigurationRequest:
		return responseOrNil(cp.coreHandler.OnChangeConfiguration(req))
	case *ClearCacheRequest:
		return responseOrNil(cp.coreHandler.OnClearCache(req))
	case *DataTransferRequest:
		return responseOrNil(cp.coreHandler.OnDataTransfer(req))
	case *GetConfigurationRequest:
		return responseOrNil(cp.coreHandler.OnGetConfiguration(req))
	case *RemoteStartTransactionRequest:
		return responseOrNil(cp.coreHandler.OnRemoteStartTransaction(req))
	case *RemoteStopTransactionRequest:
		return responseOrNil(cp.coreHandler.OnRemoteStopTransaction(req))
	case *ResetRequest:
		return responseOrNil(cp.coreHandler.OnReset(req))
	case *UnlockConnectorRequest:
		return responseOrNil(cp.coreHandler.OnUnlockConnector(req))
	default:
		return nil, fmt.Errorf("ocpp16: no dispatch for %s", request.GetFeatureName())
	}
}

// responseOrNil keeps a typed nil confirmation from leaking into a non-nil
// Response interface value.
func responseOrNil[T Response](response T, err error) (Response, error) {
	if err != nil {
		return nil, err
	}
	if v := reflect.ValueOf(response); v.Kind() == reflect.Ptr && v.IsNil() {
		return nil, nil
	}
	return response, nil
}

func (cp *chargePoint) BootNotification(chargePointModel, chargePointVendor string, props ...func(*BootNotificationRequest)) (*BootNotificationConfirmation, error) {
	request := NewBootNotificationRequest(chargePointModel, chargePointVendor)
	for _, fn := range props {
		fn(request)
	}
	response, err := cp.SendRequest(request)
	if err != nil {
		return nil, err
	}
	return response.(*BootNotificationConfirmation), nil
}

func (cp *chargePoint) Authorize(idTag string, props ...func(*AuthorizeRequest)) (*AuthorizeConfirmation, error) {
	request := NewAuthorizeRequest(idTag)
	for _, fn := range props {
		fn(request)
	}
	response, err := cp.SendRequest(request)
	if err != nil {
		return nil, err
	}
	return response.(*AuthorizeConfirmation), nil
}

func (cp *chargePoint) Heartbeat(props ...func(*HeartbeatRequest)) (*HeartbeatConfirmation, error) {
	request := &HeartbeatRequest{}
	for _, fn := range props {
		fn(request)
	}
	response, err := cp.SendRequest(request)
	if err != nil {
		return nil, err
	}
	return response.(*HeartbeatConfirmation), nil
}

func (cp *chargePoint) MeterValues(connectorId int, meterValues []MeterValue, props ...func(*MeterValuesRequest)) (*MeterValuesConfirmation, error) {
	request := &MeterValuesRequest{ConnectorId: connectorId, MeterValue: meterValues}
	for _, fn := range props {
		fn(request)
	}
	response, err := cp.SendRequest(request)
	if err != nil {
		return nil, err
	}
	return response.(*MeterValuesConfirmation), nil
}

func (cp *chargePoint) StartTransaction(connectorId int, idTag string, meterStart int, timestamp *DateTime, props ...func(*StartTransactionRequest)) (*StartTransactionConfirmation, error) {
	request := NewStartTransactionRequest(connectorId, idTag, meterStart, timestamp)
	for _, fn := range props {
		fn(request)
	}
	response, err := cp.SendRequest(request)
	if err != nil {
		return nil, err
	}
	return response.(*StartTransactionConfirmation), nil
}

func (cp *chargePoint) StopTransaction(meterStop int, timestamp *DateTime, transactionId int, props ...func(*StopTransactionRequest)) (*StopTransactionConfirmation, error) {
	request := NewStopTransactionRequest(meterStop, timestamp, transactionId)
	for _, fn := range props {
		fn(request)
	}
	response, err := cp.SendRequest(request)
	if err != nil {
		return nil, err
	}
	return response.(*StopTransactionConfirmation), nil
}

func (cp *chargePoint) StatusNotification(connectorId int, errorCode ChargePointErrorCode, status ChargePointStatus, props ...func(*StatusNotificationRequest)) (*StatusNotificationConfirmation, error) {
	request := &StatusNotificationRequest{ConnectorId: connectorId, ErrorCode: errorCode, Status: status}
	for _, fn := range props {
		fn(request)
	}
	response, err := cp.SendRequest(request)
	if err != nil {
		return nil, err
	}
	return response.(*StatusNotificationConfirmation), nil
}

func (cp *chargePoint) DataTransfer(vendorId string, props ...func(*DataTransferRequest)) (*DataTransferConfirmation, error) {
	request := &DataTransferRequest{VendorId: vendorId}
	for _, fn := range props {
		fn(request)
	}
	response, err := cp.SendRequest(request)
	if err != nil {
		return nil, err
	}
	return response.(*DataTransferConfirmation), nil
}
