package tickwatcher

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/tickwallet/tickwallet-daemon/pkg/ledger"
)

const (
	eventQueueMaxSize = 100
	errorQueueMaxSize = 10
)

// Service is the interface of the tick watcher.
type Service interface {
	Start()
	Stop()
	AddObservable(observable Observable)
	RemoveObservable(observable Observable)
	GetEventChannel() chan Event
}

type tickWatcher struct {
	interval     int
	ledgerSvc    ledger.Service
	errChan      chan error
	eventChan    chan Event
	observables  map[string]*observableHandler
	errorHandler func(err error)
	rateLimiter  *rate.Limiter
	mutex        *sync.RWMutex
	wg           *sync.WaitGroup
}

// Opts defines the parameters needed for creating a tick watcher with
// NewService.
type Opts struct {
	LedgerSvc              ledger.Service
	IntervalInMilliseconds int
	RequestsPerSecond      float64
	ErrorHandler           func(err error)
}

// NewService returns a watcher ready to poll the remote ledger. Use Start
// and Stop to manage it.
func NewService(opts Opts) Service {
	return &tickWatcher{
		interval:     opts.IntervalInMilliseconds,
		ledgerSvc:    opts.LedgerSvc,
		errChan:      make(chan error, errorQueueMaxSize),
		eventChan:    make(chan Event, eventQueueMaxSize),
		observables:  map[string]*observableHandler{},
		errorHandler: opts.ErrorHandler,
		rateLimiter:  rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		mutex:        &sync.RWMutex{},
		wg:           &sync.WaitGroup{},
	}
}

// Start runs the watcher error loop until Stop is called. Observation
// goroutines are managed per observable by AddObservable/RemoveObservable.
func (t *tickWatcher) Start() {
	for err := range t.errChan {
		go t.errorHandler(err)
	}
}

// Stop stops all observation goroutines and closes the error loop.
func (t *tickWatcher) Stop() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for _, obsHandler := range t.observables {
		go obsHandler.stop()
	}
	t.wg.Wait()
	t.eventChan <- QuitEvent{}
	close(t.errChan)
}

// GetEventChannel returns the channel over which tick events are published.
func (t *tickWatcher) GetEventChannel() chan Event {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.eventChan
}

// AddObservable starts watching the given Observable unless it is already
// being watched.
func (t *tickWatcher) AddObservable(observable Observable) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.observables[observable.key()]; !ok {
		obsHandler := newObservableHandler(
			observable,
			t.ledgerSvc,
			t.wg,
			t.interval,
			t.eventChan,
			t.errChan,
			t.rateLimiter,
		)

		t.observables[observable.key()] = obsHandler
		go obsHandler.start()
	}
}

// RemoveObservable stops watching the given Observable.
func (t *tickWatcher) RemoveObservable(observable Observable) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if obsHandler, ok := t.observables[observable.key()]; ok {
		obsHandler.stop()
		delete(t.observables, observable.key())
	}
}
