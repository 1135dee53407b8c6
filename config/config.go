package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tickwallet/tickwallet-daemon/pkg/hdpath"
	"github.com/tickwallet/tickwallet-daemon/pkg/ledger"
	"github.com/tickwallet/tickwallet-daemon/pkg/ledger/archiver"
)

const (
	// WalletListeningPortKey is the port where the local JSON API for the extension UI will listen on
	WalletListeningPortKey = "WALLET_LISTENING_PORT"
	// ArchiverEndpointKey is the endpoint where the ledger archiver REST API is listening
	ArchiverEndpointKey = "ARCHIVER_ENDPOINT"
	// ArchiverRequestTimeoutKey are the milliseconds to wait for HTTP responses before timeouts
	ArchiverRequestTimeoutKey = "ARCHIVER_REQUEST_TIMEOUT"
	// DatadirKey is the local data directory to store the internal state of the daemon
	DatadirKey = "DATA_DIR_PATH"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// TickIntervalKey is the interval in milliseconds to be used when polling the network tick
	TickIntervalKey = "TICK_INTERVAL"
	// TickRequestLimitKey represents the number of requests per second the tick watcher makes to the archiver
	TickRequestLimitKey = "TICK_REQUEST_LIMIT"
	// TickOffsetKey is the number of ticks added to the current one as the execution target of a transfer
	TickOffsetKey = "TICK_OFFSET"
	// BaseDerivationPathKey is the derivation path whose last component gets replaced by each address index
	BaseDerivationPathKey = "BASE_DERIVATION_PATH"
	// PriceFeedIntervalKey is the interval in milliseconds between price feed publications
	PriceFeedIntervalKey = "PRICE_FEED_INTERVAL"
	// DeviceBridgeURLKey is the WebSocket url of the local bridge relaying APDU frames to the hardware device
	DeviceBridgeURLKey = "DEVICE_BRIDGE_URL"
	// DemoModeKey starts the daemon without hardware device and broadcast, for UI development
	DemoModeKey = "DEMO_MODE"
	// DemoSeedKey makes demo identities deterministic across runs
	DemoSeedKey = "DEMO_SEED"

	DbLocation = "db"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("tickwallet-daemon", false)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("TICKWALLET")
	vip.AutomaticEnv()

	vip.SetDefault(WalletListeningPortKey, 9457)
	vip.SetDefault(ArchiverEndpointKey, "https://rpc.qubic.org")
	vip.SetDefault(ArchiverRequestTimeoutKey, 15000)
	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(TickIntervalKey, 10000)
	vip.SetDefault(TickRequestLimitKey, 10)
	vip.SetDefault(TickOffsetKey, 7)
	vip.SetDefault(BaseDerivationPathKey, "m/44'/83'/0'/0/0")
	vip.SetDefault(PriceFeedIntervalKey, 60000)
	vip.SetDefault(DeviceBridgeURLKey, "ws://127.0.0.1:9371")
	vip.SetDefault(DemoModeKey, false)
	vip.SetDefault(DemoSeedKey, "")

	if err := validate(); err != nil {
		log.WithError(err).Panic("error while validating config")
	}

	if err := initDatadir(); err != nil {
		log.WithError(err).Panic("error while creating datadir")
	}
}

//GetString ...
func GetString(key string) string {
	return vip.GetString(key)
}

//GetInt ...
func GetInt(key string) int {
	return vip.GetInt(key)
}

//GetDuration ...
func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

//GetBool ...
func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

//GetLedger returns the archiver client built from the configured endpoint
func GetLedger() (ledger.Service, error) {
	endpoint := GetString(ArchiverEndpointKey)
	reqTimeout := GetInt(ArchiverRequestTimeoutKey)
	return archiver.NewService(endpoint, reqTimeout)
}

// Set a value for the given key
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

// IsSet returns whether the give key is set
func IsSet(key string) bool {
	return vip.IsSet(key)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	if _, err := hdpath.Parse(GetString(BaseDerivationPathKey)); err != nil {
		return fmt.Errorf("base derivation path is not valid: %w", err)
	}

	if GetInt(TickIntervalKey) <= 0 {
		return fmt.Errorf("tick interval must be a positive amount of milliseconds")
	}

	if GetInt(TickOffsetKey) <= 0 {
		return fmt.Errorf("tick offset must be strictly positive")
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	return makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
