package application

import (
	"fmt"

	"github.com/tickwallet/tickwallet-daemon/internal/core/domain"
	"github.com/tickwallet/tickwallet-daemon/pkg/device"
	"github.com/tickwallet/tickwallet-daemon/pkg/identity"
	"github.com/tickwallet/tickwallet-daemon/pkg/ledger"
	"github.com/tickwallet/tickwallet-daemon/pkg/txutil"
)

// SendHooks are optional interception points of the signing pipeline,
// invoked in a fixed order around each phase. A nil hook is skipped, a hook
// returning an error aborts the pipeline and the error is returned to the
// caller untouched.
type SendHooks struct {
	// PreBuild runs before the unsigned payload is assembled.
	PreBuild func() error
	// PreSign runs with the unsigned payload right before the device
	// is asked to sign it.
	PreSign func(payload []byte) error
	// PreBroadcast runs with the encoded signed transaction right
	// before it is submitted to the ledger.
	PreBroadcast func(encodedTx string) error
	// PostBroadcast runs after a successful broadcast.
	PostBroadcast func(result SendResult)
}

// SendOpts describes one transfer to be signed and broadcast.
type SendOpts struct {
	From         *domain.Address
	DestIdentity string
	Amount       int64
	// Tick is the target execution tick of the transfer. The tracker
	// will not look the transaction up before the network reaches it.
	Tick  uint32
	Hooks SendHooks
}

func (o SendOpts) validate() error {
	if o.From == nil {
		return ErrNoAddressSelected
	}
	if o.Amount <= 0 {
		return ErrInvalidAmount
	}
	if o.Tick <= 0 {
		return ErrNoCurrentTick
	}
	if _, err := identity.PublicKey(o.DestIdentity); err != nil {
		return fmt.Errorf("invalid destination identity: %w", err)
	}
	return nil
}

// SendResult is the outcome of a broadcast transfer, handed to the
// PostBroadcast hook and returned to the caller.
type SendResult struct {
	TxID          string
	SourceID      string
	DestID        string
	Amount        int64
	Tick          uint32
	CreatedAtTick uint32
}

// SendService signs transfers on the hardware device and broadcasts them to
// the ledger. The pipeline runs build, sign, encode and broadcast phases in
// order, with the caller's hooks in between.
type SendService interface {
	Send(opts SendOpts) (*SendResult, error)
}

type SendServiceOpts struct {
	DeviceSvc device.Session
	LedgerSvc ledger.Service
	// CurrentTick reports the latest network tick observed by the tick
	// watcher, false while none has been seen yet.
	CurrentTick func() (uint32, bool)
}

type sendService struct {
	deviceSvc   device.Session
	ledgerSvc   ledger.Service
	currentTick func() (uint32, bool)
}

func NewSendService(opts SendServiceOpts) SendService {
	return &sendService{
		deviceSvc:   opts.DeviceSvc,
		ledgerSvc:   opts.LedgerSvc,
		currentTick: opts.CurrentTick,
	}
}

func (s *sendService) Send(opts SendOpts) (*SendResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	createdAtTick, ok := s.currentTick()
	if !ok {
		return nil, ErrNoCurrentTick
	}

	if opts.Hooks.PreBuild != nil {
		if err := opts.Hooks.PreBuild(); err != nil {
			return nil, err
		}
	}

	destPubKey, _ := identity.PublicKey(opts.DestIdentity)
	payload, err := txutil.BuildUnsignedPayload(
		opts.From.PublicKey, destPubKey, opts.Amount, opts.Tick,
	)
	if err != nil {
		return nil, err
	}

	if opts.Hooks.PreSign != nil {
		if err := opts.Hooks.PreSign(payload); err != nil {
			return nil, err
		}
	}

	signature, err := s.deviceSvc.Sign(payload)
	if err != nil {
		return nil, err
	}
	encodedTx := txutil.Encode(append(payload, signature...))

	if opts.Hooks.PreBroadcast != nil {
		if err := opts.Hooks.PreBroadcast(encodedTx); err != nil {
			return nil, err
		}
	}

	broadcast, err := s.ledgerSvc.BroadcastTransaction(encodedTx)
	if err != nil {
		return nil, err
	}

	result := SendResult{
		TxID:          broadcast.TransactionID,
		SourceID:      opts.From.Identity,
		DestID:        opts.DestIdentity,
		Amount:        opts.Amount,
		Tick:          opts.Tick,
		CreatedAtTick: createdAtTick,
	}
	if opts.Hooks.PostBroadcast != nil {
		opts.Hooks.PostBroadcast(result)
	}
	return &result, nil
}
