package archiver

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tickwallet/tickwallet-daemon/pkg/ledger"
)

// Raw response documents. Required fields are pointers so that a missing
// field is distinguishable from a zero value during validation.

type balanceResponse struct {
	Balance *struct {
		ID                         *string `json:"id"`
		Balance                    *string `json:"balance"`
		ValidForTick               *uint32 `json:"validForTick"`
		LatestIncomingTransferTick uint32  `json:"latestIncomingTransferTick"`
		LatestOutgoingTransferTick uint32  `json:"latestOutgoingTransferTick"`
		IncomingAmount             string  `json:"incomingAmount"`
		OutgoingAmount             string  `json:"outgoingAmount"`
		NumberOfIncomingTransfers  int     `json:"numberOfIncomingTransfers"`
		NumberOfOutgoingTransfers  int     `json:"numberOfOutgoingTransfers"`
	} `json:"balance"`
}

type latestTickResponse struct {
	LatestTick *uint32 `json:"latestTick"`
}

type transactionDocument struct {
	TxID      *string `json:"txId"`
	SourceID  *string `json:"sourceId"`
	DestID    *string `json:"destId"`
	Amount    *string `json:"amount"`
	Tick      *uint32 `json:"tickNumber"`
	InputType int     `json:"inputType"`
	InputSize int     `json:"inputSize"`
}

type transactionResponse struct {
	Transaction *transactionDocument `json:"transaction"`
}

type transferEntryDocument struct {
	Transaction *transactionDocument `json:"transaction"`
	Timestamp   string               `json:"timestamp"`
	MoneyFlew   bool                 `json:"moneyFlew"`
}

type transfersResponse struct {
	Transactions *[]struct {
		TickNumber *uint32                 `json:"tickNumber"`
		Identity   *string                 `json:"identity"`
		Transfers  []transferEntryDocument `json:"transactions"`
	} `json:"transactions"`
}

type broadcastResponse struct {
	EncodedTransaction *string `json:"encodedTransaction"`
	PeersBroadcasted   *int    `json:"peersBroadcasted"`
	TransactionID      *string `json:"transactionId"`
}

func parseBalance(body string) (*ledger.BalanceInfo, error) {
	var res balanceResponse
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return nil, invalidShape("balance", err)
	}
	b := res.Balance
	if b == nil || b.ID == nil || b.Balance == nil || b.ValidForTick == nil {
		return nil, invalidShape("balance", nil)
	}

	return &ledger.BalanceInfo{
		ID:                         *b.ID,
		Balance:                    *b.Balance,
		ValidForTick:               *b.ValidForTick,
		LatestIncomingTransferTick: b.LatestIncomingTransferTick,
		LatestOutgoingTransferTick: b.LatestOutgoingTransferTick,
		IncomingAmount:             b.IncomingAmount,
		OutgoingAmount:             b.OutgoingAmount,
		NumberOfIncomingTransfers:  b.NumberOfIncomingTransfers,
		NumberOfOutgoingTransfers:  b.NumberOfOutgoingTransfers,
	}, nil
}

func parseLatestTick(body string) (uint32, error) {
	var res latestTickResponse
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return 0, invalidShape("latestTick", err)
	}
	if res.LatestTick == nil {
		return 0, invalidShape("latestTick", nil)
	}
	return *res.LatestTick, nil
}

func parseTransactionDocument(doc *transactionDocument) (*ledger.TransactionDetail, error) {
	if doc == nil || doc.TxID == nil || doc.SourceID == nil ||
		doc.DestID == nil || doc.Amount == nil || doc.Tick == nil {
		return nil, invalidShape("transaction", nil)
	}

	amount, err := strconv.ParseInt(*doc.Amount, 10, 64)
	if err != nil {
		return nil, invalidShape("transaction amount", err)
	}

	return &ledger.TransactionDetail{
		TxID:      *doc.TxID,
		SourceID:  *doc.SourceID,
		DestID:    *doc.DestID,
		Amount:    amount,
		Tick:      *doc.Tick,
		InputType: doc.InputType,
		InputSize: doc.InputSize,
	}, nil
}

func parseTransaction(body string) (*ledger.TransactionDetail, error) {
	var res transactionResponse
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return nil, invalidShape("transaction", err)
	}
	return parseTransactionDocument(res.Transaction)
}

func parseTransfers(body string) (*ledger.TransferPage, error) {
	var res transfersResponse
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return nil, invalidShape("transfers", err)
	}
	if res.Transactions == nil {
		return nil, invalidShape("transfers", nil)
	}

	page := &ledger.TransferPage{
		Transactions: make([]ledger.TickTransfers, 0, len(*res.Transactions)),
	}
	for _, tick := range *res.Transactions {
		if tick.TickNumber == nil || tick.Identity == nil {
			return nil, invalidShape("transfers tick", nil)
		}

		transfers := make([]ledger.TransferEntry, 0, len(tick.Transfers))
		for _, entry := range tick.Transfers {
			detail, err := parseTransactionDocument(entry.Transaction)
			if err != nil {
				return nil, err
			}
			transfers = append(transfers, ledger.TransferEntry{
				Transaction: *detail,
				Timestamp:   entry.Timestamp,
				MoneyFlew:   entry.MoneyFlew,
			})
		}

		page.Transactions = append(page.Transactions, ledger.TickTransfers{
			TickNumber: *tick.TickNumber,
			Identity:   *tick.Identity,
			Transfers:  transfers,
		})
	}

	return page, nil
}

func parseBroadcast(body string) (*ledger.BroadcastResult, error) {
	var res broadcastResponse
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return nil, invalidShape("broadcast", err)
	}
	if res.TransactionID == nil || res.PeersBroadcasted == nil || res.EncodedTransaction == nil {
		return nil, invalidShape("broadcast", nil)
	}

	return &ledger.BroadcastResult{
		TransactionID:      *res.TransactionID,
		PeersBroadcasted:   *res.PeersBroadcasted,
		EncodedTransaction: *res.EncodedTransaction,
	}, nil
}

func invalidShape(what string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %s", ledger.ErrInvalidResponseShape, what, err)
	}
	return fmt.Errorf("%w: %s", ledger.ErrInvalidResponseShape, what)
}
