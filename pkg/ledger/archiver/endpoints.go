package archiver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tickwallet/tickwallet-daemon/pkg/ledger"
)

func (a *archiver) GetBalance(identity string) (*ledger.BalanceInfo, error) {
	url := fmt.Sprintf("%s/v1/balances/%s", a.apiURL, identity)
	status, resp, err := a.do("GET", url, "", nil)
	if err != nil {
		return nil, err
	}
	if !is2xx(status) {
		return nil, requestError(status, resp)
	}

	return parseBalance(resp)
}

func (a *archiver) GetLatestTick() (uint32, error) {
	url := fmt.Sprintf("%s/v1/latestTick", a.apiURL)
	status, resp, err := a.do("GET", url, "", nil)
	if err != nil {
		return 0, err
	}
	if !is2xx(status) {
		return 0, requestError(status, resp)
	}

	return parseLatestTick(resp)
}

func (a *archiver) GetTransfers(
	identity string, startTick, endTick uint32,
) (*ledger.TransferPage, error) {
	url := fmt.Sprintf(
		"%s/v2/identities/%s/transfers?startTick=%d&endTick=%d",
		a.apiURL, identity, startTick, endTick,
	)
	status, resp, err := a.do("GET", url, "", nil)
	if err != nil {
		return nil, err
	}
	if !is2xx(status) {
		return nil, requestError(status, resp)
	}

	return parseTransfers(resp)
}

func (a *archiver) GetTransaction(txID string) (*ledger.TransactionDetail, error) {
	url := fmt.Sprintf("%s/v2/transactions/%s", a.apiURL, txID)
	status, resp, err := a.do("GET", url, "", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ledger.ErrTransactionNotFound
	}
	if !is2xx(status) {
		return nil, requestError(status, resp)
	}

	return parseTransaction(resp)
}

func (a *archiver) BroadcastTransaction(encodedTx string) (*ledger.BroadcastResult, error) {
	url := fmt.Sprintf("%s/v1/broadcast-transaction", a.apiURL)
	payload := map[string]interface{}{"encodedTransaction": encodedTx}
	body, _ := json.Marshal(payload)
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	status, resp, err := a.do("POST", url, string(body), headers)
	if err != nil {
		return nil, err
	}
	if !is2xx(status) {
		return nil, requestError(status, resp)
	}

	return parseBroadcast(resp)
}
