package main

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-faker/faker/v4"
	"github.com/sirupsen/logrus"

	"github.com/Jaypatelbond/ocpp-client-go/ocpp16"
)

func (h *ChargePointHandler) RunRemoteScenario() error {
	appLogger.Info("Starting/Resuming remote charging scenario")
	statusNotification(ocpp16.ChargePointStatusCharging, 0)

	for {
		meterValueIntervalInSeconds := MustGetIntKey("MeterValueSampleInterval")
		if meterValueIntervalInSeconds == 0 {
			meterValueIntervalInSeconds = 60
		}
		time.Sleep(time.Duration(meterValueIntervalInSeconds) * time.Second)

		db.Update(func(txn *badger.Txn) error {
			IncrementKeyTX(txn, EnergyKey, fakeNumber(200, 1000))
			IncrementKeyTX(txn, InstantaneousTemperatureKey, fakeNumber(20, 50))
			IncrementKeyTX(txn, BatteryPercentageKey, fakeNumber(0, int(time.Now().Unix())%100))
			p, v, c := generateFakePAV()
			IncrementKeyTX(txn, InstantaneousPowerKey, p)
			IncrementKeyTX(txn, InstantaneousVoltageKey, v)
			IncrementKeyTX(txn, InstantaneousCurrentKey, c)
			return nil
		})

		if !isTxRunning() {
			break
		}
		logFields := genMeterValues()
		logFields["connector_id"] = currentTxConnectorId()
		logFields["transaction_id"] = currentTxId()
		logFields["interval"] = meterValueIntervalInSeconds

		if err := sendMeterValues(); err != nil {
			appLogger.WithError(err).
				WithFields(logFields).
				Error("Error sending Energy meter value")
		} else {
			appLogger.WithFields(logFields).Info("Energy meter value sent")
		}
	}
	return nil
}

func genMeterValues() logrus.Fields {
	fields := logrus.Fields{}
	db.View(func(txn *badger.Txn) error {
		fields["energy_meter_value"] = MustGetIntKeyTX(txn, EnergyKey)
		fields["instantaneous_power"] = MustGetIntKeyTX(txn, InstantaneousPowerKey)
		fields["instantaneous_voltage"] = MustGetIntKeyTX(txn, InstantaneousVoltageKey)
		fields["instantaneous_current"] = MustGetIntKeyTX(txn, InstantaneousCurrentKey)
		fields["instantaneous_temperature"] = MustGetIntKeyTX(txn, InstantaneousTemperatureKey)
		fields["battery_percentage"] = MustGetIntKeyTX(txn, BatteryPercentageKey)
		return nil
	})
	return fields
}

func (h *ChargePointHandler) StopRemoteScenario() error {
	statusNotification(ocpp16.ChargePointStatusFinishing, 0)
	time.Sleep(1 * time.Second)
	statusNotification(ocpp16.ChargePointStatusAvailable, 0)
	return nil
}

func bootNotification() error {
	result, err := chargePoint.BootNotification(
		faker.LastName(), faker.FirstName(),
		func(request *ocpp16.BootNotificationRequest) {
			request.ChargePointSerialNumber = faker.CCNumber()
			request.MeterSerialNumber = faker.CCNumber()
			request.MeterType = faker.CCNumber()
			request.Iccid = faker.CCNumber()
			request.FirmwareVersion = "v1.0.0"
		})
	if err != nil {
		return err
	}
	if result.Status != ocpp16.RegistrationStatusAccepted {
		appLogger.Println("BootNotification rejected", result.Status)
	}
	return db.Update(func(txn *badger.Txn) error {
		i := fmt.Sprintf("%d", result.Interval)
		return txn.Set([]byte("default_heartbeat_interval"), []byte(i))
	})
}

func statusNotification(s ocpp16.ChargePointStatus, connectorId int) error {
	if connectorId == 0 {
		connectorId = currentTxConnectorId()
	}
	_, err := chargePoint.StatusNotification(
		connectorId, ocpp16.NoError, s,
		func(request *ocpp16.StatusNotificationRequest) {
			request.Info = faker.MonthName()
			request.VendorId = "vendor_" + faker.CCNumber()
			request.Timestamp = ocpp16.NewDateTime(time.Now())
		},
	)
	return err
}

func sendMeterValues() error {
	sampledValues := []ocpp16.SampledValue{}

	var rawData string

	if err := db.View(func(txn *badger.Txn) error {
		data, err := GetKeyValueTX(txn, "MeterValuesSampledData")
		if err != nil {
			return err
		}
		rawData = data
		return nil
	}); err != nil {
		return err
	}

	meterValuesSampledData := strings.Split(rawData, ",")

	err := db.View(func(txn *badger.Txn) error {

		for _, k := range meterValuesSampledData {
			value := ocpp16.SampledValue{
				Format:   ocpp16.ValueFormatRaw,
				Context:  ocpp16.ReadingContextSamplePeriodic,
				Location: ocpp16.LocationOutlet,
				Phase:    ocpp16.PhaseL1,
			}

			switch ocpp16.Measurand(k) {
			case ocpp16.MeasurandEnergyActiveImportRegister:
				randomTrigger(func() {
					value.Value = fmt.Sprintf("%d", MustGetIntKeyTX(txn, EnergyKey))
					value.Unit = ocpp16.UnitOfMeasureWh
					value.Measurand = ocpp16.MeasurandEnergyActiveImportRegister
				})

			case ocpp16.MeasurandPowerActiveImport:
				randomTrigger(func() {
					value.Value = fmt.Sprintf("%d", MustGetIntKeyTX(txn, InstantaneousPowerKey))
					value.Unit = ocpp16.UnitOfMeasureW
					value.Measurand = ocpp16.MeasurandPowerActiveImport
				})

			case ocpp16.MeasurandCurrentImport:
				randomTrigger(func() {
					value.Value = fmt.Sprintf("%d", MustGetIntKeyTX(txn, InstantaneousCurrentKey))
					value.Unit = ocpp16.UnitOfMeasureA
					value.Measurand = ocpp16.MeasurandCurrentImport
				})

			case ocpp16.MeasurandVoltage:
				randomTrigger(func() {
					value.Value = fmt.Sprintf("%d", MustGetIntKeyTX(txn, InstantaneousVoltageKey))
					value.Unit = ocpp16.UnitOfMeasureV
					value.Measurand = ocpp16.MeasurandVoltage
				})

			case ocpp16.MeasurandTemperature:
				randomTrigger(func() {
					value.Value = fmt.Sprintf("%d", MustGetIntKeyTX(txn, InstantaneousTemperatureKey))
					value.Unit = ocpp16.UnitOfMeasureCelsius
					value.Measurand = ocpp16.MeasurandTemperature
				})

			case ocpp16.MeasurandSoC:
				randomTrigger(func() {
					value.Value = fmt.Sprintf("%d", MustGetIntKeyTX(txn, BatteryPercentageKey))
					value.Unit = ocpp16.UnitOfMeasurePercent
					value.Measurand = ocpp16.MeasurandSoC
				})
			}

			if value.Value == "" {
				continue
			}

			sampledValues = append(sampledValues, value)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if len(sampledValues) == 0 {
		return nil
	}

	cid := currentTxConnectorId()

	_, err = chargePoint.MeterValues(
		cid,
		[]ocpp16.MeterValue{
			{
				Timestamp:    ocpp16.NewDateTime(time.Now()),
				SampledValue: sampledValues,
			},
		},
		func(request *ocpp16.MeterValuesRequest) {
			currentTxId := currentTxId()
			request.TransactionId = &currentTxId
		},
	)
	return err
}

func generateFakePAV() (int, int, int) {
	var voltage int
	var current int
	power := fakeNumber(1_000, 360_000) // W
	if power < 3_300 {
		voltage = 120
		current = fakeNumber(1, 12)
	} else if power < 19_200 {
		voltage = fakeNumber(208, 240)
		current = fakeNumber(16, 80)
	} else {
		voltage = fakeNumber(380, 800)
		current = fakeNumber(80, 500)
	}
	return power, voltage, current
}

func fakeNumber(min, max int) int {
	v, _ := faker.RandomInt(min, max, 1)
	if len(v) == 0 {
		return 0
	}
	return v[0]
}

func randomTrigger(fn func()) {
	if randomBoolean() {
		fn()
	}
}

func randomBoolean() bool {
	return rand.Intn(2)%2 == 0
}
