package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"

	"github.com/Jaypatelbond/ocpp-client-go/ocpp"
	"github.com/Jaypatelbond/ocpp-client-go/ocpp16"
	"github.com/Jaypatelbond/ocpp-client-go/ws"
)

const (
	appVersion = "1.0.0"

	connectWait = 15 * time.Second
)

var (
	csUrl, controlPort, dbPath string
	showVersion                bool

	db          *badger.DB
	wsClient    *ws.Client
	chargePoint ocpp16.ChargePoint
	handler     *ChargePointHandler
	stopC       chan struct{}

	ll        = log.StandardLogger()
	appLogger = ll.WithContext(context.Background())

	chargePointId string
)

func init() {
	time.Local = time.UTC
}

func main() {
	// listen to quit signals
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT)
	defer signal.Stop(signals)

	flag.StringVar(&chargePointId, "cp", "", "charge point id")
	flag.StringVar(&csUrl, "cs", "", "central system url")
	flag.StringVar(&controlPort, "control-port", "", "control server port (default: random)")
	flag.StringVar(&dbPath, "db", "db", "db path")
	flag.BoolVar(&showVersion, "version", false, "show version")

	flag.Parse()
	if showVersion {
		fmt.Println("Current App Version:", appVersion)
		os.Exit(0)
	}

	if chargePointId == "" {
		println("missing charge point id")
		flag.Usage()
		os.Exit(1)
	}
	if csUrl == "" {
		println("missing central system url")
		flag.Usage()
		os.Exit(1)
	}

	appLogger = appLogger.WithField("cp", chargePointId)

	dbPath := filepath.Join(dbPath, chargePointId)
	badgerDB, err := badger.Open(badger.DefaultOptions(dbPath))
	if err != nil {
		log.Fatal(err)
	}
	defer badgerDB.Close()
	db = badgerDB

	// store setup configuration
	if err := db.Update(func(txn *badger.Txn) error {
		txn.Set([]byte("started_at"), []byte(time.Now().Format(time.RFC3339)))
		txn.Set([]byte("charge_point_id"), []byte(chargePointId))
		txn.Set([]byte("cs_url"), []byte(csUrl))
		txn.Set([]byte("cp_version"), []byte(appVersion))
		txn.Set([]byte("db_path"), []byte(dbPath))
		SetIfNotExistsTX(txn, "SecurityProfile", fmt.Sprintf("%d", NoSecurityProfile))
		SetIfNotExistsTX(txn, "MeterValueSampleInterval", "300")
		SetIfNotExistsTX(txn, "MeterValuesSampledData", "Energy.Active.Import.Register")
		SetIfNotExistsTX(txn, "default_heartbeat_interval", "300")
		return nil
	}); err != nil {
		log.Fatal(err)
	}

	httpPort := startHttpServer()
	appLogger = appLogger.WithField("control_port", httpPort)

	ws.SetLogger(ll)
	ocpp.SetLogger(ll)
	ocpp16.SetLogger(ll)

	client, err := buildWsClient()
	if err != nil {
		appLogger.WithError(err).Fatalln("buildWsClient")
	}

	if err := startChargePoint(client); err != nil {
		appLogger.WithError(err).Fatalln("startChargePoint")
	}

	<-signals
	go func() {
		<-signals
		fmt.Println("Forcefully shutting down...")

		closeStopC()

		db.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte("stopped_at"), []byte(time.Now().Format(time.RFC3339)))
		})
		os.Exit(2)
	}()

	fmt.Println("Gracefully shutting down...")

	db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("stopped_at"), []byte(time.Now().Format(time.RFC3339)))
	})

	closeStopC()

	if chargePoint.IsConnected() {
		chargePoint.Stop()
	}
}

func closeStopC() {
	defer func() {
		recover()
	}()
	close(stopC)
}

// buildWsClient assembles a transport client for the configured security
// profile: none, basic auth, or basic auth over TLS with a pinned root CA.
func buildWsClient() (*ws.Client, error) {
	var client *ws.Client
	err := db.View(func(txn *badger.Txn) error {
		profile := MustGetIntKeyTX(txn, "SecurityProfile")

		switch profile {
		case NoSecurityProfile:
			client = ws.NewClient(ws.DefaultConfig())
			return nil

		case BasicSecurityProfile:
			password, err := GetKeyValueTX(txn, "AuthorizationKey")
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New("password is not set for this profile")
			}
			client = ws.NewClient(ws.DefaultConfig())
			client.SetBasicAuth(chargePointId, password)
			return nil

		case BasicSecurityWithTLSProfile:
			if !strings.HasPrefix(csUrl, "wss://") {
				return errors.New("central system url must be wss:// for this profile")
			}
			password, err := GetKeyValueTX(txn, "AuthorizationKey")
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New("password is not set for this profile")
			}
			rootCert, err := GetKeyValueTX(txn, "root_certificate")
			if err != nil {
				return err
			}
			certPool, err := x509.SystemCertPool()
			if err != nil {
				return err
			}
			if rootCert != "" && !certPool.AppendCertsFromPEM([]byte(rootCert)) {
				return errors.New("failed to append root certificate")
			}
			client = ws.NewTLSClient(ws.DefaultConfig(), &tls.Config{
				RootCAs: certPool,
			})
			client.SetBasicAuth(chargePointId, password)
			return nil

		default:
			return fmt.Errorf("security profile: %d not supported", profile)
		}
	})
	return client, err
}

func startChargePoint(client *ws.Client) error {
	wsClient = client
	chargePoint = ocpp16.NewChargePoint(chargePointId, nil, client)

	handler = &ChargePointHandler{}
	chargePoint.SetCoreHandler(handler)

	states := client.Subscribe()

	// Connects to central system. Dial errors surface through the state
	// observable, not the Start return value.
	if err := chargePoint.Start(csUrl); err != nil {
		return err
	}
	if err := waitForConnected(states, connectWait); err != nil {
		return err
	}

	// Charger Operation
	if err := bootNotification(); err != nil {
		return err
	}

	stopC = make(chan struct{})

	go func() {
		for {
			interval := MustGetIntKey("default_heartbeat_interval")
			time.Sleep(time.Duration(interval) * time.Second)

			select {
			case <-stopC:
				appLogger.Debugln("stop signal received in heartbeat")
				return
			default:
			}

			_, err := chargePoint.Heartbeat()
			if err != nil {
				appLogger.WithError(err).Debugln("Heartbeat error")
				continue
			}
			appLogger.Println("Heartbeat sent to central system")
		}
	}()

	go watchConnectionState(states)

	return nil
}

// waitForConnected blocks until the transport reports Connected, or gives up
// on a terminal Error or after the wait budget.
func waitForConnected(states <-chan ws.ConnectionState, wait time.Duration) error {
	deadline := time.After(wait)
	for {
		select {
		case state := <-states:
			switch state.Status {
			case ws.StatusConnected:
				return nil
			case ws.StatusError:
				if errors.Is(state.Err, ws.ErrReconnectExhausted) {
					return state.Err
				}
				appLogger.WithError(state.Err).Warnln("connection attempt failed, waiting for reconnect")
			case ws.StatusReconnecting:
				appLogger.WithField("attempt", state.Attempt).Infoln("reconnecting to central system")
			}
		case <-deadline:
			return errors.New("timed out waiting for central system connection")
		}
	}
}

func watchConnectionState(states <-chan ws.ConnectionState) {
	for state := range states {
		entry := appLogger.WithField("status", state.Status)
		switch state.Status {
		case ws.StatusReconnecting:
			entry.WithField("attempt", state.Attempt).
				WithField("max_attempts", state.MaxAttempts).
				Warnln("connection state changed")
		case ws.StatusError:
			entry.WithError(state.Err).Errorln("connection state changed")
		default:
			entry.Infoln("connection state changed")
		}
	}
}

func bootCharger() error {
	if chargePoint != nil && chargePoint.IsConnected() {
		return errors.New("charge point already connected")
	}
	client, err := buildWsClient()
	if err != nil {
		return err
	}
	return startChargePoint(client)
}

func stopCharger() error {
	if !chargePoint.IsConnected() {
		return errors.New("charge point not connected")
	}
	closeStopC()
	chargePoint.Stop()
	return nil
}

func rebootCharger() error {
	if chargePoint.IsConnected() {
		closeStopC()
		chargePoint.Stop()
	}
	appLogger.Infoln("Charge Point stopped")
	client, err := buildWsClient()
	if err != nil {
		return err
	}
	return startChargePoint(client)
}
