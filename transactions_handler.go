package main

import (
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/Jaypatelbond/ocpp-client-go/ocpp16"
)

func (handler *ChargePointHandler) OnRemoteStartTransaction(request *ocpp16.RemoteStartTransactionRequest) (confirmation *ocpp16.RemoteStartTransactionConfirmation, err error) {
	connectorId := request.ConnectorId
	if connectorId == nil {
		return ocpp16.NewRemoteStartTransactionConfirmation(
			ocpp16.RemoteStartStopStatusRejected), err
	}

	if isTxRunning() {
		appLogger.
			WithField("idTag", request.IdTag).
			WithField("connectorId", *connectorId).
			Println("Transaction already running")

		return ocpp16.NewRemoteStartTransactionConfirmation(
			ocpp16.RemoteStartStopStatusRejected), err
	}

	appLogger.Infoln("Starting Transaction", request.IdTag, connectorId)

	startEnergyValue := MustGetIntKey(EnergyKey)
	req := ocpp16.NewStartTransactionRequest(*connectorId,
		request.IdTag,
		startEnergyValue,
		ocpp16.NewDateTime(time.Now()))

	err = chargePoint.SendRequestAsync(req, func(resp ocpp16.Response, protoError error) {
		if conf, ok := resp.(*ocpp16.StartTransactionConfirmation); ok {
			tagInfo := conf.IdTagInfo

			switch tagInfo.Status {
			case ocpp16.AuthorizationStatusAccepted:
				setTxIdTag(request.IdTag)
				setTxId(conf.TransactionId, *connectorId)

				go handler.RunRemoteScenario()

				appLogger.Infoln("Transaction started", tagInfo.Status, conf.TransactionId)
				return
			default:
				appLogger.Println("Transaction won't start", tagInfo.Status)
			}
			return
		}

		appLogger.Println("StartTransactionConfirmation", resp, protoError)
	})

	return ocpp16.NewRemoteStartTransactionConfirmation(
		ocpp16.RemoteStartStopStatusAccepted), err
}

func (handler *ChargePointHandler) OnRemoteStopTransaction(request *ocpp16.RemoteStopTransactionRequest) (confirmation *ocpp16.RemoteStopTransactionConfirmation, err error) {
	appLogger.Infoln("OnRemoteStopTransaction", request.TransactionId)

	if !isTxRunning() {
		appLogger.Println("No transaction running")
		return ocpp16.NewRemoteStopTransactionConfirmation(ocpp16.RemoteStartStopStatusRejected), nil
	}

	txId := currentTxId()

	req := ocpp16.NewStopTransactionRequest(MustGetIntKey(EnergyKey),
		ocpp16.NewDateTime(time.Now()), request.TransactionId)

	req.Reason = ocpp16.ReasonEVDisconnected
	req.IdTag = currentTxIdTag()

	err = chargePoint.SendRequestAsync(req, func(resp ocpp16.Response, protoError error) {
		if conf, ok := resp.(*ocpp16.StopTransactionConfirmation); ok {
			tagInfo := conf.IdTagInfo
			if tagInfo == nil {
				tagInfo = &ocpp16.IdTagInfo{Status: ocpp16.AuthorizationStatusAccepted}
			}

			switch tagInfo.Status {
			case ocpp16.AuthorizationStatusAccepted:

				go func() {
					handler.StopRemoteScenario()
					resetCurrentTx()
				}()

				appLogger.Infoln("Transaction stopped", tagInfo.Status, request.TransactionId)
				return
			default:
				appLogger.Println("Transaction won't stop", txId, tagInfo.Status)
			}
			return

		}
		appLogger.Println("StopTransactionConfirmation", resp, protoError)
	})

	return ocpp16.NewRemoteStopTransactionConfirmation(ocpp16.RemoteStartStopStatusAccepted), err
}

func (handler *ChargePointHandler) OnUnlockConnector(request *ocpp16.UnlockConnectorRequest) (confirmation *ocpp16.UnlockConnectorConfirmation, err error) {
	connectorId := request.ConnectorId
	appLogger.Println("OnUnlockConnector", connectorId)

	go func() {
		setCurrentTxConnectorId(connectorId)
		statusNotification(ocpp16.ChargePointStatusPreparing, 0)
	}()

	go func() {
		time.Sleep(2 * time.Minute)
		if !isTxRunning() {
			setCurrentTxConnectorId(0)
			statusNotification(ocpp16.ChargePointStatusAvailable, 0)
			return
		}
	}()
	return ocpp16.NewUnlockConnectorConfirmation(ocpp16.UnlockStatusUnlocked), nil
}

func isTxRunning() bool {
	ext, _ := KeyExists("current_transaction_id")
	return ext
}

func currentTxConnectorId() int {
	id, _ := GetIntKey("current_transaction_connector_id")
	return id
}

func setCurrentTxConnectorId(id int) error {
	return db.Update(func(txn *badger.Txn) error {
		txn.Set([]byte("current_transaction_connector_id"), []byte(strconv.Itoa(id)))
		return nil
	})
}

func currentTxId() int {
	id, _ := GetIntKey("current_transaction_id")
	return id
}

func setTxId(id, connectorId int) error {
	return db.Update(func(txn *badger.Txn) error {
		txn.Set([]byte("current_transaction_id"), []byte(strconv.Itoa(id)))
		txn.Set([]byte("current_transaction_connector_id"), []byte(strconv.Itoa(connectorId)))
		return nil
	})
}

func resetCurrentTx() error {
	return db.Update(func(txn *badger.Txn) error {
		txn.Delete([]byte("current_transaction_id"))
		txn.Delete([]byte("current_transaction_connector_id"))
		txn.Delete([]byte("current_transaction_idTag"))
		for _, key := range flushableMeterValues {
			txn.Delete([]byte(key))
		}
		return nil
	})
}

func currentTxIdTag() string {
	tag, _ := GetKeyValue("current_transaction_idTag")
	return tag
}

func setTxIdTag(tag string) error {
	return db.Update(func(txn *badger.Txn) error {
		txn.Set([]byte("current_transaction_idTag"), []byte(tag))
		return nil
	})
}
