package ocpp16

// The OCPP 1.6 core profile message catalog. Requests and confirmations are
// plain data schemas; the transport and correlation layers treat them as
// opaque JSON records.

const (
	AuthorizeFeatureName              = "Authorize"
	BootNotificationFeatureName       = "BootNotification"
	ChangeAvailabilityFeatureName     = "ChangeAvailability"
	ChangeConfigurationFeatureName    = "ChangeConfiguration"
	ClearCacheFeatureName             = "ClearCache"
	DataTransferFeatureName           = "DataTransfer"
	GetConfigurationFeatureName       = "GetConfiguration"
	HeartbeatFeatureName              = "Heartbeat"
	MeterValuesFeatureName            = "MeterValues"
	RemoteStartTransactionFeatureName = "RemoteStartTransaction"
	RemoteStopTransactionFeatureName  = "RemoteStopTransaction"
	ResetFeatureName                  = "Reset"
	StartTransactionFeatureName       = "StartTransaction"
	StatusNotificationFeatureName     = "StatusNotification"
	StopTransactionFeatureName        = "StopTransaction"
	UnlockConnectorFeatureName        = "UnlockConnector"
)

// Request is a typed OCPP message sent as a Call payload.
type Request interface {
	GetFeatureName() string
}

// Response is a typed OCPP message sent back as a CallResult payload.
type Response interface {
	GetFeatureName() string
}

// -------- Charge point initiated --------

type AuthorizeRequest struct {
	IdTag string `json:"idTag" validate:"required,max=20"`
}

type AuthorizeConfirmation struct {
	IdTagInfo *IdTagInfo `json:"idTagInfo" validate:"required"`
}

func (r *AuthorizeRequest) GetFeatureName() string      { return AuthorizeFeatureName }
func (r *AuthorizeConfirmation) GetFeatureName() string { return AuthorizeFeatureName }

func NewAuthorizeRequest(idTag string) *AuthorizeRequest {
	return &AuthorizeRequest{IdTag: idTag}
}

type BootNotificationRequest struct {
	ChargeBoxSerialNumber   string `json:"chargeBoxSerialNumber,omitempty" validate:"omitempty,max=25"`
	ChargePointModel        string `json:"chargePointModel" validate:"required,max=20"`
	ChargePointSerialNumber string `json:"chargePointSerialNumber,omitempty" validate:"omitempty,max=25"`
	ChargePointVendor       string `json:"chargePointVendor" validate:"required,max=20"`
	FirmwareVersion         string `json:"firmwareVersion,omitempty" validate:"omitempty,max=50"`
	Iccid                   string `json:"iccid,omitempty" validate:"omitempty,max=20"`
	Imsi                    string `json:"imsi,omitempty" validate:"omitempty,max=20"`
	MeterSerialNumber       string `json:"meterSerialNumber,omitempty" validate:"omitempty,max=25"`
	MeterType               string `json:"meterType,omitempty" validate:"omitempty,max=25"`
}

type BootNotificationConfirmation struct {
	CurrentTime *DateTime          `json:"currentTime" validate:"required"`
	Interval    int                `json:"interval" validate:"gte=0"`
	Status      RegistrationStatus `json:"status" validate:"required"`
}

func (r *BootNotificationRequest) GetFeatureName() string      { return BootNotificationFeatureName }
func (r *BootNotificationConfirmation) GetFeatureName() string { return BootNotificationFeatureName }

func NewBootNotificationRequest(chargePointModel, chargePointVendor string) *BootNotificationRequest {
	return &BootNotificationRequest{ChargePointModel: chargePointModel, ChargePointVendor: chargePointVendor}
}

type DataTransferStatus string

const (
	DataTransferStatusAccepted         DataTransferStatus = "Accepted"
	DataTransferStatusRejected         DataTransferStatus = "Rejected"
	DataTransferStatusUnknownMessageId DataTransferStatus = "UnknownMessageId"
	DataTransferStatusUnknownVendorId  DataTransferStatus = "UnknownVendorId"
)

type DataTransferRequest struct {
	VendorId  string      `json:"vendorId" validate:"required,max=255"`
	MessageId string      `json:"messageId,omitempty" validate:"omitempty,max=50"`
	Data      interface{} `json:"data,omitempty"`
}

type DataTransferConfirmation struct {
	Status DataTransferStatus `json:"status" validate:"required"`
	Data   interface{}        `json:"data,omitempty"`
}

func (r *DataTransferRequest) GetFeatureName() string      { return DataTransferFeatureName }
func (r *DataTransferConfirmation) GetFeatureName() string { return DataTransferFeatureName }

func NewDataTransferConfirmation(status DataTransferStatus) *DataTransferConfirmation {
	return &DataTransferConfirmation{Status: status}
}

type HeartbeatRequest struct{}

type HeartbeatConfirmation struct {
	CurrentTime *DateTime `json:"currentTime" validate:"required"`
}

func (r *HeartbeatRequest) GetFeatureName() string      { return HeartbeatFeatureName }
func (r *HeartbeatConfirmation) GetFeatureName() string { return HeartbeatFeatureName }

type MeterValuesRequest struct {
	ConnectorId   int          `json:"connectorId" validate:"gte=0"`
	TransactionId *int         `json:"transactionId,omitempty"`
	MeterValue    []MeterValue `json:"meterValue" validate:"required,min=1,dive"`
}

type MeterValuesConfirmation struct{}

func (r *MeterValuesRequest) GetFeatureName() string      { return MeterValuesFeatureName }
func (r *MeterValuesConfirmation) GetFeatureName() string { return MeterValuesFeatureName }

type StartTransactionRequest struct {
	ConnectorId   int       `json:"connectorId" validate:"gt=0"`
	IdTag         string    `json:"idTag" validate:"required,max=20"`
	MeterStart    int       `json:"meterStart" validate:"gte=0"`
	ReservationId *int      `json:"reservationId,omitempty"`
	Timestamp     *DateTime `json:"timestamp" validate:"required"`
}

type StartTransactionConfirmation struct {
	IdTagInfo     *IdTagInfo `json:"idTagInfo" validate:"required"`
	TransactionId int        `json:"transactionId"`
}

func (r *StartTransactionRequest) GetFeatureName() string      { return StartTransactionFeatureName }
func (r *StartTransactionConfirmation) GetFeatureName() string { return StartTransactionFeatureName }

func NewStartTransactionRequest(connectorId int, idTag string, meterStart int, timestamp *DateTime) *StartTransactionRequest {
	return &StartTransactionRequest{ConnectorId: connectorId, IdTag: idTag, MeterStart: meterStart, Timestamp: timestamp}
}

type StatusNotificationRequest struct {
	ConnectorId     int                  `json:"connectorId" validate:"gte=0"`
	ErrorCode       ChargePointErrorCode `json:"errorCode" validate:"required"`
	Info            string               `json:"info,omitempty" validate:"omitempty,max=50"`
	Status          ChargePointStatus    `json:"status" validate:"required"`
	Timestamp       *DateTime            `json:"timestamp,omitempty"`
	VendorId        string               `json:"vendorId,omitempty" validate:"omitempty,max=255"`
	VendorErrorCode string               `json:"vendorErrorCode,omitempty" validate:"omitempty,max=50"`
}

type StatusNotificationConfirmation struct{}

func (r *StatusNotificationRequest) GetFeatureName() string { return StatusNotificationFeatureName }
func (r *StatusNotificationConfirmation) GetFeatureName() string {
	return StatusNotificationFeatureName
}

type StopTransactionRequest struct {
	IdTag           string       `json:"idTag,omitempty" validate:"omitempty,max=20"`
	MeterStop       int          `json:"meterStop" validate:"gte=0"`
	Timestamp       *DateTime    `json:"timestamp" validate:"required"`
	TransactionId   int          `json:"transactionId"`
	Reason          Reason       `json:"reason,omitempty"`
	TransactionData []MeterValue `json:"transactionData,omitempty" validate:"omitempty,dive"`
}

type StopTransactionConfirmation struct {
	IdTagInfo *IdTagInfo `json:"idTagInfo,omitempty"`
}

func (r *StopTransactionRequest) GetFeatureName() string      { return StopTransactionFeatureName }
func (r *StopTransactionConfirmation) GetFeatureName() string { return StopTransactionFeatureName }

func NewStopTransactionRequest(meterStop int, timestamp *DateTime, transactionId int) *StopTransactionRequest {
	return &StopTransactionRequest{MeterStop: meterStop, Timestamp: timestamp, TransactionId: transactionId}
}

// -------- Central system initiated --------

type AvailabilityType string

const (
	AvailabilityTypeInoperative AvailabilityType = "Inoperative"
	AvailabilityTypeOperative   AvailabilityType = "Operative"
)

type AvailabilityStatus string

const (
	AvailabilityStatusAccepted  AvailabilityStatus = "Accepted"
	AvailabilityStatusRejected  AvailabilityStatus = "Rejected"
	AvailabilityStatusScheduled AvailabilityStatus = "Scheduled"
)

type ChangeAvailabilityRequest struct {
	ConnectorId int              `json:"connectorId" validate:"gte=0"`
	Type        AvailabilityType `json:"type" validate:"required"`
}

type ChangeAvailabilityConfirmation struct {
	Status AvailabilityStatus `json:"status" validate:"required"`
}

func (r *ChangeAvailabilityRequest) GetFeatureName() string { return ChangeAvailabilityFeatureName }
func (r *ChangeAvailabilityConfirmation) GetFeatureName() string {
	return ChangeAvailabilityFeatureName
}

func NewChangeAvailabilityConfirmation(status AvailabilityStatus) *ChangeAvailabilityConfirmation {
	return &ChangeAvailabilityConfirmation{Status: status}
}

type ConfigurationStatus string

const (
	ConfigurationStatusAccepted       ConfigurationStatus = "Accepted"
	ConfigurationStatusRejected       ConfigurationStatus = "Rejected"
	ConfigurationStatusRebootRequired ConfigurationStatus = "RebootRequired"
	ConfigurationStatusNotSupported   ConfigurationStatus = "NotSupported"
)

type ChangeConfigurationRequest struct {
	Key   string `json:"key" validate:"required,max=50"`
	Value string `json:"value" validate:"required,max=500"`
}

type ChangeConfigurationConfirmation struct {
	Status ConfigurationStatus `json:"status" validate:"required"`
}

func (r *ChangeConfigurationRequest) GetFeatureName() string { return ChangeConfigurationFeatureName }
func (r *ChangeConfigurationConfirmation) GetFeatureName() string {
	return ChangeConfigurationFeatureName
}

func NewChangeConfigurationConfirmation(status ConfigurationStatus) *ChangeConfigurationConfirmation {
	return &ChangeConfigurationConfirmation{Status: status}
}

type ClearCacheStatus string

const (
	ClearCacheStatusAccepted ClearCacheStatus = "Accepted"
	ClearCacheStatusRejected ClearCacheStatus = "Rejected"
)

type ClearCacheRequest struct{}

type ClearCacheConfirmation struct {
	Status ClearCacheStatus `json:"status" validate:"required"`
}

func (r *ClearCacheRequest) GetFeatureName() string      { return ClearCacheFeatureName }
func (r *ClearCacheConfirmation) GetFeatureName() string { return ClearCacheFeatureName }

func NewClearCacheConfirmation(status ClearCacheStatus) *ClearCacheConfirmation {
	return &ClearCacheConfirmation{Status: status}
}

type GetConfigurationRequest struct {
	Key []string `json:"key,omitempty" validate:"omitempty,dive,max=50"`
}

type GetConfigurationConfirmation struct {
	ConfigurationKey []ConfigurationKey `json:"configurationKey,omitempty" validate:"omitempty,dive"`
	UnknownKey       []string           `json:"unknownKey,omitempty" validate:"omitempty,dive,max=50"`
}

func (r *GetConfigurationRequest) GetFeatureName() string      { return GetConfigurationFeatureName }
func (r *GetConfigurationConfirmation) GetFeatureName() string { return GetConfigurationFeatureName }

type RemoteStartTransactionRequest struct {
	ConnectorId *int   `json:"connectorId,omitempty" validate:"omitempty,gt=0"`
	IdTag       string `json:"idTag" validate:"required,max=20"`
}

type RemoteStartTransactionConfirmation struct {
	Status RemoteStartStopStatus `json:"status" validate:"required"`
}

func (r *RemoteStartTransactionRequest) GetFeatureName() string {
	return RemoteStartTransactionFeatureName
}
func (r *RemoteStartTransactionConfirmation) GetFeatureName() string {
	return RemoteStartTransactionFeatureName
}

func NewRemoteStartTransactionConfirmation(status RemoteStartStopStatus) *RemoteStartTransactionConfirmation {
	return &RemoteStartTransactionConfirmation{Status: status}
}

type RemoteStopTransactionRequest struct {
	TransactionId int `json:"transactionId"`
}

type RemoteStopTransactionConfirmation struct {
	Status RemoteStartStopStatus `json:"status" validate:"required"`
}

func (r *RemoteStopTransactionRequest) GetFeatureName() string {
	return RemoteStopTransactionFeatureName
}
func (r *RemoteStopTransactionConfirmation) GetFeatureName() string {
	return RemoteStopTransactionFeatureName
}

func NewRemoteStopTransactionConfirmation(status RemoteStartStopStatus) *RemoteStopTransactionConfirmation {
	return &RemoteStopTransactionConfirmation{Status: status}
}

type ResetType string

const (
	ResetTypeHard ResetType = "Hard"
	ResetTypeSoft ResetType = "Soft"
)

type ResetStatus string

const (
	ResetStatusAccepted ResetStatus = "Accepted"
	ResetStatusRejected ResetStatus = "Rejected"
)

type ResetRequest struct {
	Type ResetType `json:"type" validate:"required"`
}

type ResetConfirmation struct {
	Status ResetStatus `json:"status" validate:"required"`
}

func (r *ResetRequest) GetFeatureName() string      { return ResetFeatureName }
func (r *ResetConfirmation) GetFeatureName() string { return ResetFeatureName }

func NewResetConfirmation(status ResetStatus) *ResetConfirmation {
	return &ResetConfirmation{Status: status}
}

type UnlockStatus string

const (
	UnlockStatusUnlocked     UnlockStatus = "Unlocked"
	UnlockStatusUnlockFailed UnlockStatus = "UnlockFailed"
	UnlockStatusNotSupported UnlockStatus = "NotSupported"
)

type UnlockConnectorRequest struct {
	ConnectorId int `json:"connectorId" validate:"gt=0"`
}

type UnlockConnectorConfirmation struct {
	Status UnlockStatus `json:"status" validate:"required"`
}

func (r *UnlockConnectorRequest) GetFeatureName() string      { return UnlockConnectorFeatureName }
func (r *UnlockConnectorConfirmation) GetFeatureName() string { return UnlockConnectorFeatureName }

func NewUnlockConnectorConfirmation(status UnlockStatus) *UnlockConnectorConfirmation {
	return &UnlockConnectorConfirmation{Status: status}
}

type feature struct {
	newRequest  func() Request
	newResponse func() Response
}

// chargePointFeatures are the actions a charge point may initiate.
var chargePointFeatures = map[string]feature{
	AuthorizeFeatureName:          {func() Request { return &AuthorizeRequest{} }, func() Response { return &AuthorizeConfirmation{} }},
	BootNotificationFeatureName:   {func() Request { return &BootNotificationRequest{} }, func() Response { return &BootNotificationConfirmation{} }},
	DataTransferFeatureName:       {func() Request { return &DataTransferRequest{} }, func() Response { return &DataTransferConfirmation{} }},
	HeartbeatFeatureName:          {func() Request { return &HeartbeatRequest{} }, func() Response { return &HeartbeatConfirmation{} }},
	MeterValuesFeatureName:        {func() Request { return &MeterValuesRequest{} }, func() Response { return &MeterValuesConfirmation{} }},
	StartTransactionFeatureName:   {func() Request { return &StartTransactionRequest{} }, func() Response { return &StartTransactionConfirmation{} }},
	StatusNotificationFeatureName: {func() Request { return &StatusNotificationRequest{} }, func() Response { return &StatusNotificationConfirmation{} }},
	StopTransactionFeatureName:    {func() Request { return &StopTransactionRequest{} }, func() Response { return &StopTransactionConfirmation{} }},
}

// centralSystemFeatures are the actions the central system may initiate.
var centralSystemFeatures = map[string]feature{
	ChangeAvailabilityFeatureName:     {func() Request { return &ChangeAvailabilityRequest{} }, func() Response { return &ChangeAvailabilityConfirmation{} }},
	ChangeConfigurationFeatureName:    {func() Request { return &ChangeConfigurationRequest{} }, func() Response { return &ChangeConfigurationConfirmation{} }},
	ClearCacheFeatureName:             {func() Request { return &ClearCacheRequest{} }, func() Response { return &ClearCacheConfirmation{} }},
	DataTransferFeatureName:           {func() Request { return &DataTransferRequest{} }, func() Response { return &DataTransferConfirmation{} }},
	GetConfigurationFeatureName:       {func() Request { return &GetConfigurationRequest{} }, func() Response { return &GetConfigurationConfirmation{} }},
	RemoteStartTransactionFeatureName: {func() Request { return &RemoteStartTransactionRequest{} }, func() Response { return &RemoteStartTransactionConfirmation{} }},
	RemoteStopTransactionFeatureName:  {func() Request { return &RemoteStopTransactionRequest{} }, func() Response { return &RemoteStopTransactionConfirmation{} }},
	ResetFeatureName:                  {func() Request { return &ResetRequest{} }, func() Response { return &ResetConfirmation{} }},
	UnlockConnectorFeatureName:        {func() Request { return &UnlockConnectorRequest{} }, func() Response { return &UnlockConnectorConfirmation{} }},
}
