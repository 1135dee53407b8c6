package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tickwallet/tickwallet-daemon/config"
	"github.com/tickwallet/tickwallet-daemon/internal/core/application"
	httpinterface "github.com/tickwallet/tickwallet-daemon/internal/interfaces/http"
	"github.com/tickwallet/tickwallet-daemon/internal/infrastructure/notifier"
	dbbadger "github.com/tickwallet/tickwallet-daemon/internal/infrastructure/storage/db/badger"
	"github.com/tickwallet/tickwallet-daemon/pkg/device"
	"github.com/tickwallet/tickwallet-daemon/pkg/pricefeeder"
	"github.com/tickwallet/tickwallet-daemon/pkg/pricefeeder/kraken"
	"github.com/tickwallet/tickwallet-daemon/pkg/tickwatcher"
)

func main() {
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	ledgerSvc, err := config.GetLedger()
	if err != nil {
		log.WithError(err).Panic("error while connecting to ledger archiver")
	}

	dbDir := filepath.Join(config.GetDatadir(), config.DbLocation)
	dbManager, err := dbbadger.NewDbManager(dbDir, nil)
	if err != nil {
		log.WithError(err).Panic("error while opening db")
	}
	defer dbManager.Close()

	pendingTxRepo := dbbadger.NewPendingTransactionRepositoryImpl(dbManager)
	indexRepo := dbbadger.NewDerivationIndexRepositoryImpl(dbManager)
	publisher := notifier.NewNotificationPublisher()

	trackerSvc, err := application.NewTrackerService(application.TrackerServiceOpts{
		LedgerSvc: ledgerSvc,
		Repo:      pendingTxRepo,
		Publisher: publisher,
	})
	if err != nil {
		log.WithError(err).Panic("error while restoring transaction tracker")
	}

	var accountSvc application.AccountService
	var sendSvc application.SendService
	if config.GetBool(config.DemoModeKey) {
		log.Info("running in demo mode, no hardware device will be used")

		accountSvc, err = application.NewDemoAccountService(
			config.GetString(config.BaseDerivationPathKey),
			config.GetString(config.DemoSeedKey),
		)
		if err != nil {
			log.WithError(err).Panic("error while setting up demo account service")
		}
		sendSvc = application.NewDemoSendService(0, trackerSvc.CurrentTick)
	} else {
		transport := device.NewWsTransport(
			config.GetString(config.DeviceBridgeURLKey),
		)
		deviceSvc := device.NewSession(device.Opts{
			Transport: transport,
			OnDisconnect: func() {
				log.Warn("hardware device disconnected")
			},
		})

		accountSvc, err = application.NewAccountService(application.AccountServiceOpts{
			DeviceSvc: deviceSvc,
			LedgerSvc: ledgerSvc,
			IndexRepo: indexRepo,
			BasePath:  config.GetString(config.BaseDerivationPathKey),
		})
		if err != nil {
			log.WithError(err).Panic("error while setting up account service")
		}
		sendSvc = application.NewSendService(application.SendServiceOpts{
			DeviceSvc:   deviceSvc,
			LedgerSvc:   ledgerSvc,
			CurrentTick: trackerSvc.CurrentTick,
		})

		if _, err := deviceSvc.Connect(); err != nil {
			log.WithError(err).Warn(
				"hardware device not reachable yet, connect it and restart",
			)
		} else if err := accountSvc.Restore(context.Background()); err != nil {
			log.WithError(err).Warn("failed to restore derived addresses")
		}
	}
	balanceSvc := application.NewBalanceService(application.BalanceServiceOpts{
		AccountSvc: accountSvc,
		LedgerSvc:  ledgerSvc,
	})

	tickWatcherSvc := tickwatcher.NewService(tickwatcher.Opts{
		LedgerSvc:              ledgerSvc,
		IntervalInMilliseconds: config.GetInt(config.TickIntervalKey),
		RequestsPerSecond:      float64(config.GetInt(config.TickRequestLimitKey)),
		ErrorHandler: func(err error) {
			log.WithError(err).Warn("tick polling error")
		},
	})
	tickWatcherSvc.AddObservable(&tickwatcher.TickObservable{})

	go trackerSvc.Observe(context.Background(), tickWatcherSvc.GetEventChannel())
	go refreshBalancesOnTick(balanceSvc)
	go tickWatcherSvc.Start()
	defer tickWatcherSvc.Stop()

	feederSvc, err := kraken.NewService(config.GetInt(config.PriceFeedIntervalKey))
	if err != nil {
		log.WithError(err).Warn("price feeder unavailable, continuing without it")
	} else {
		if err := feederSvc.SubscribeMarkets(feederSvc.WellKnownMarkets()); err != nil {
			log.WithError(err).Warn("failed to subscribe price feeds")
		}
		go func() {
			if err := feederSvc.Start(); err != nil {
				log.WithError(err).Warn("price feeder stopped")
			}
		}()
		go logPriceFeeds(feederSvc)
		defer feederSvc.Stop()
	}

	walletHandler := httpinterface.NewWalletHandler(httpinterface.WalletHandlerOpts{
		AccountSvc: accountSvc,
		BalanceSvc: balanceSvc,
		SendSvc:    sendSvc,
		TrackerSvc: trackerSvc,
		Publisher:  publisher,
		TickOffset: uint32(config.GetInt(config.TickOffsetKey)),
	})
	walletAddress := fmt.Sprintf(
		"127.0.0.1:%d", config.GetInt(config.WalletListeningPortKey),
	)
	go func() {
		if err := http.ListenAndServe(
			walletAddress, walletHandler.Router(),
		); err != nil {
			log.WithError(err).Panic("error listening on wallet interface")
		}
	}()

	log.Info("wallet interface is listening on " + walletAddress)
	log.Info("daemon started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("exiting")
}

// refreshBalancesOnTick refreshes all balances on the same cadence the tick
// watcher polls with. The watcher event channel has a single consumer, the
// tracker, so the refresher runs its own ticker.
func refreshBalancesOnTick(balanceSvc application.BalanceService) {
	interval := time.Duration(config.GetInt(config.TickIntervalKey)) *
		time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		balanceSvc.RefreshAll(context.Background())
	}
}

func logPriceFeeds(feederSvc pricefeeder.PriceFeeder) {
	for feed := range feederSvc.FeedChan() {
		log.Debugf(
			"price feed: %s %s USD",
			feed.Market.Ticker, feed.Price.QuotePrice.String(),
		)
	}
}
