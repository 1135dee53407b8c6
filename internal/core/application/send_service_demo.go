package application

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tickwallet/tickwallet-daemon/pkg/txutil"
)

type demoSendService struct {
	delay       time.Duration
	currentTick func() (uint32, bool)
}

// NewDemoSendService returns a SendService that fakes the device signature
// and the broadcast while still running every hook of the pipeline, so the
// UI flow can be exercised without hardware. Each send takes delay to
// complete, mimicking the on-device confirmation.
func NewDemoSendService(
	delay time.Duration, currentTick func() (uint32, bool),
) SendService {
	return &demoSendService{
		delay:       delay,
		currentTick: currentTick,
	}
}

func (s *demoSendService) Send(opts SendOpts) (*SendResult, error) {
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

	payload := make([]byte, txutil.UnsignedPayloadLen)
	if opts.Hooks.PreSign != nil {
		if err := opts.Hooks.PreSign(payload); err != nil {
			return nil, err
		}
	}

	time.Sleep(s.delay)

	encodedTx := txutil.Encode(payload)
	if opts.Hooks.PreBroadcast != nil {
		if err := opts.Hooks.PreBroadcast(encodedTx); err != nil {
			return nil, err
		}
	}

	result := SendResult{
		TxID:          strings.ReplaceAll(uuid.New().String(), "-", ""),
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
