package main

import (
	"github.com/Jaypatelbond/ocpp-client-go/ocpp16"
)

type ChargePointHandler struct{}

func (handler *ChargePointHandler) OnChangeAvailability(request *ocpp16.ChangeAvailabilityRequest) (confirmation *ocpp16.ChangeAvailabilityConfirmation, err error) {
	appLogger.Println("OnChangeAvailability", request.ConnectorId, request.Type)
	return ocpp16.NewChangeAvailabilityConfirmation(ocpp16.AvailabilityStatusAccepted), nil
}

func (handler *ChargePointHandler) OnClearCache(request *ocpp16.ClearCacheRequest) (confirmation *ocpp16.ClearCacheConfirmation, err error) {
	appLogger.Println("OnClearCache", request.GetFeatureName())
	return ocpp16.NewClearCacheConfirmation(ocpp16.ClearCacheStatusAccepted), nil
}

func (handler *ChargePointHandler) OnDataTransfer(request *ocpp16.DataTransferRequest) (confirmation *ocpp16.DataTransferConfirmation, err error) {
	appLogger.Println("OnDataTransfer", request.VendorId, request.MessageId, request.Data)
	return ocpp16.NewDataTransferConfirmation(ocpp16.DataTransferStatusAccepted), nil
}

func (handler *ChargePointHandler) OnReset(request *ocpp16.ResetRequest) (confirmation *ocpp16.ResetConfirmation, err error) {
	appLogger.Println("OnReset", request.Type)
	return ocpp16.NewResetConfirmation(ocpp16.ResetStatusAccepted), nil
}
