package domain

const (
	// StatusPending is the initial status of every tracked transaction.
	StatusPending Status = "pending"
	// StatusSuccess is terminal: a lookup returned the transaction data.
	StatusSuccess Status = "success"
	// StatusFailed is terminal: the polling budget was exhausted after the
	// target tick passed.
	StatusFailed Status = "failed"
	// StatusUnknown is terminal: the lookup outcome stayed ambiguous.
	StatusUnknown Status = "unknown"
)

// MaxConsecutiveFailedLookups is the number of failed or not-found lookups
// tolerated for an eligible entry before it transitions to StatusFailed.
const MaxConsecutiveFailedLookups = 3

// Status represents the lifecycle state of a tracked transaction.
type Status string

// IsTerminal returns whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusUnknown
}

// PendingTransaction is one broadcast transaction tracked until the remote
// ledger confirms or the polling budget runs out.
type PendingTransaction struct {
	TxID          string
	SourceID      string
	DestID        string
	Amount        int64
	Tick          uint32
	CreatedAtTick uint32
	Status        Status
	FailedLookups int
}

// NewPendingTransaction returns a tracked entry in pending status.
func NewPendingTransaction(
	txID, sourceID, destID string, amount int64, tick, createdAtTick uint32,
) *PendingTransaction {
	return &PendingTransaction{
		TxID:          txID,
		SourceID:      sourceID,
		DestID:        destID,
		Amount:        amount,
		Tick:          tick,
		CreatedAtTick: createdAtTick,
		Status:        StatusPending,
	}
}

// IsEligibleForLookup returns whether the entry may be looked up during the
// polling cycle that observed currentTick. Entries are only queried once
// their target tick has been reached; terminal entries are never queried.
func (pt *PendingTransaction) IsEligibleForLookup(currentTick uint32) bool {
	return pt.Status == StatusPending && currentTick >= pt.Tick
}

// ConfirmSuccess transitions the entry to StatusSuccess.
func (pt *PendingTransaction) ConfirmSuccess() error {
	if pt.Status.IsTerminal() {
		return ErrTxStatusFinal
	}
	pt.Status = StatusSuccess
	return nil
}

// RegisterFailedLookup records one failed or not-found lookup. Once the
// budget of MaxConsecutiveFailedLookups tolerated failures is exceeded the
// entry transitions to StatusFailed; the returned flag reports whether that
// transition happened.
func (pt *PendingTransaction) RegisterFailedLookup() (bool, error) {
	if pt.Status.IsTerminal() {
		return false, ErrTxStatusFinal
	}

	pt.FailedLookups++
	if pt.FailedLookups > MaxConsecutiveFailedLookups {
		pt.Status = StatusFailed
		return true, nil
	}
	return false, nil
}

// ResetFailedLookups clears the consecutive-failure counter, used when a
// lookup succeeds at the transport level but the entry stays pending.
func (pt *PendingTransaction) ResetFailedLookups() {
	pt.FailedLookups = 0
}

// MarkUnknown transitions the entry to StatusUnknown.
func (pt *PendingTransaction) MarkUnknown() error {
	if pt.Status.IsTerminal() {
		return ErrTxStatusFinal
	}
	pt.Status = StatusUnknown
	return nil
}

// EstimatedProgress returns a display-only completion percentage in [0,100].
// It front-loads apparent progress and is monotonically non-decreasing for a
// non-decreasing currentTick; terminal entries always report 100.
func (pt *PendingTransaction) EstimatedProgress(currentTick uint32) int {
	if pt.Status.IsTerminal() {
		return 100
	}
	if currentTick <= pt.CreatedAtTick || pt.Tick <= pt.CreatedAtTick {
		return 25
	}
	if currentTick >= pt.Tick {
		return 95
	}

	span := int64(pt.Tick - pt.CreatedAtTick)
	elapsed := int64(currentTick - pt.CreatedAtTick)
	return 25 + int(70*elapsed/span)
}
