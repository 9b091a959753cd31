package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/Jaypatelbond/ocpp-client-go/ocpp16"
)

func (handler *ChargePointHandler) OnChangeConfiguration(request *ocpp16.ChangeConfigurationRequest) (confirmation *ocpp16.ChangeConfigurationConfirmation, err error) {
	key := request.Key
	value := request.Value
	appLogger.Println("OnChangeConfiguration", key)
	if _, ok := supportedConfigurationKeys[key]; !ok {
		return ocpp16.NewChangeConfigurationConfirmation(ocpp16.ConfigurationStatusNotSupported), nil
	}

	requiresReboot := false

	switch key {
	case "SecurityProfile":
		v, _ := strconv.Atoi(value)
		if err := db.View(func(txn *badger.Txn) error {
			val := MustGetIntKeyTX(txn, "SecurityProfile")
			if v < val {
				return errors.New("cannot set a lower security profile")
			}
			if v == BasicSecurityProfile {
				password, err := GetKeyValueTX(txn, "AuthorizationKey")
				if err != nil {
					return err
				}
				if password == "" {
					return errors.New("not all security profile keys are set")
				}

				requiresReboot = true
			}
			return nil
		}); err != nil {
			appLogger.WithError(err).
				WithField("key", key).
				WithField("value", value).
				Error("Error updating configuration")
			return ocpp16.NewChangeConfigurationConfirmation(ocpp16.ConfigurationStatusRejected), err
		}
	}

	if err := db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	}); err != nil {
		appLogger.WithError(err).
			WithField("key", key).
			WithField("value", value).
			Error("Error updating configuration")
		return ocpp16.NewChangeConfigurationConfirmation(ocpp16.ConfigurationStatusRejected), err
	}

	if requiresReboot {
		appLogger.Info("Security profile change requires reboot")

		go func() {
			time.Sleep(1500 * time.Millisecond)

			err := rebootCharger()
			if err != nil {
				appLogger.WithError(err).Error("Error rebooting charger")
			}
		}()

	}

	return ocpp16.NewChangeConfigurationConfirmation(ocpp16.ConfigurationStatusAccepted), nil
}

func (handler *ChargePointHandler) OnGetConfiguration(request *ocpp16.GetConfigurationRequest) (confirmation *ocpp16.GetConfigurationConfirmation, err error) {
	keys := request.Key
	appLogger.Println("OnGetConfiguration", keys)
	unknownKeys := make([]string, 0)
	for _, key := range keys {
		if _, ok := supportedConfigurationKeys[key]; !ok {
			unknownKeys = append(unknownKeys, key)
		}
	}
	cKeys := []ocpp16.ConfigurationKey{}
	if err := db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			if _, ok := supportedConfigurationKeys[key]; !ok {
				continue
			}
			value, err := GetKeyValueTX(txn, key)
			if err != nil || value == "" {
				unknownKeys = append(unknownKeys, key)
				continue
			}
			cKeys = append(cKeys, ocpp16.ConfigurationKey{
				Key:   key,
				Value: &value,
			})
		}
		return nil
	}); err != nil {
		appLogger.WithError(err).Error("Error getting configuration")

		return nil, err
	}
	return &ocpp16.GetConfigurationConfirmation{UnknownKey: unknownKeys, ConfigurationKey: cKeys}, nil
}
