package main

const (
	EnergyKey = "meter_value__energy"

	InstantaneousPowerKey       = "meter_value__instantaneous_power"
	InstantaneousCurrentKey     = "meter_value__instantaneous_current"
	InstantaneousVoltageKey     = "meter_value__instantaneous_voltage"
	InstantaneousTemperatureKey = "meter_value__instantaneous_temperature"
	BatteryPercentageKey        = "meter_value__battery_percentage"
)

const (
	NoSecurityProfile = iota
	BasicSecurityProfile
	BasicSecurityWithTLSProfile
)

var (
	flushableMeterValues = []string{
		InstantaneousPowerKey,
		InstantaneousCurrentKey,
		InstantaneousVoltageKey,
		InstantaneousTemperatureKey,
		BatteryPercentageKey,
	}

	supportedConfigurationKeys = map[string]struct{}{
		"AuthorizeRemoteTxRequests":         {},
		"ClockAlignedDataInterval":          {},
		"ConnectionTimeOut":                 {},
		"GetConfigurationMaxKeys":           {},
		"HeartbeatInterval":                 {},
		"LocalAuthorizeOffline":             {},
		"MeterValuesSampledData":            {},
		"MeterValueSampleInterval":          {},
		"NumberOfConnectors":                {},
		"ResetRetries":                      {},
		"StopTransactionOnEVSideDisconnect": {},
		"StopTransactionOnInvalidId":        {},
		"SupportedFeatureProfiles":          {},
		"TransactionMessageAttempts":        {},
		"TransactionMessageRetryInterval":   {},
		"UnlockConnectorOnEVSideDisconnect": {},
		"WebSocketPingInterval":             {},
		"SecurityProfile":                   {},
		"AuthorizationKey":                  {},
		"CpoName":                           {},
	}
)
