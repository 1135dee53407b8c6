package httpinterface

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/tickwallet/tickwallet-daemon/internal/core/application"
	"github.com/tickwallet/tickwallet-daemon/internal/core/domain"
	"github.com/tickwallet/tickwallet-daemon/internal/core/ports"
	"github.com/tickwallet/tickwallet-daemon/pkg/device"
	"github.com/tickwallet/tickwallet-daemon/pkg/identity"
	"github.com/tickwallet/tickwallet-daemon/pkg/ledger"
)

// WalletHandler exposes the wallet services over a local JSON API, meant to
// be consumed by the browser extension UI.
type WalletHandler struct {
	accountSvc application.AccountService
	balanceSvc application.BalanceService
	sendSvc    application.SendService
	trackerSvc application.TrackerService
	publisher  ports.NotificationPublisher
	tickOffset uint32
}

type WalletHandlerOpts struct {
	AccountSvc application.AccountService
	BalanceSvc application.BalanceService
	SendSvc    application.SendService
	TrackerSvc application.TrackerService
	Publisher  ports.NotificationPublisher
	// TickOffset is added to the current tick as the execution target of
	// a transfer when the request does not name one.
	TickOffset uint32
}

func NewWalletHandler(opts WalletHandlerOpts) *WalletHandler {
	return &WalletHandler{
		accountSvc: opts.AccountSvc,
		balanceSvc: opts.BalanceSvc,
		sendSvc:    opts.SendSvc,
		trackerSvc: opts.TrackerSvc,
		publisher:  opts.Publisher,
		tickOffset: opts.TickOffset,
	}
}

func (h *WalletHandler) Router() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/addresses", h.AddressesHandler)
	mux.HandleFunc("/v1/addresses/select", h.SelectAddressHandler)
	mux.HandleFunc("/v1/addresses/unselect", h.UnselectAddressHandler)
	mux.HandleFunc("/v1/balances/refresh", h.RefreshBalancesHandler)
	mux.HandleFunc("/v1/tick", h.TickHandler)
	mux.HandleFunc("/v1/transfers", h.TransfersHandler)
	mux.HandleFunc("/v1/transactions", h.TransactionsHandler)
	mux.HandleFunc("/v1/transactions/", h.TransactionHandler)
	mux.HandleFunc("/v1/notifications", h.NotificationsHandler)
	mux.HandleFunc("/v1/session/reset", h.ResetSessionHandler)
	return mux
}

type addressResponse struct {
	Identity       string `json:"identity"`
	DerivationPath string `json:"derivationPath"`
	AddressIndex   int    `json:"addressIndex"`
	Balance        string `json:"balance"`
	Selected       bool   `json:"selected"`
}

func (h *WalletHandler) AddressesHandler(
	w http.ResponseWriter, req *http.Request,
) {
	switch req.Method {
	case http.MethodGet:
		selected, _ := h.accountSvc.SelectedAddress()
		list := h.accountSvc.ListAddresses()
		res := make([]addressResponse, 0, len(list))
		for _, addr := range list {
			res = append(res, addressResponse{
				Identity:       addr.Identity,
				DerivationPath: addr.DerivationPath,
				AddressIndex:   addr.AddressIndex,
				Balance:        addr.Balance,
				Selected:       selected != nil && selected.AddressIndex == addr.AddressIndex,
			})
		}
		writeJSON(w, http.StatusOK, res)
	case http.MethodPost:
		body := struct {
			Index *int `json:"index"`
		}{}
		if req.ContentLength > 0 && !decodeBody(w, req, &body) {
			return
		}
		addr, err := h.accountSvc.DeriveNext(req.Context(), body.Index)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, addressResponse{
			Identity:       addr.Identity,
			DerivationPath: addr.DerivationPath,
			AddressIndex:   addr.AddressIndex,
			Balance:        addr.Balance,
		})
	default:
		writeMethodNotAllowed(w)
	}
}

func (h *WalletHandler) SelectAddressHandler(
	w http.ResponseWriter, req *http.Request,
) {
	if req.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	body := struct {
		Index int `json:"index"`
	}{}
	if !decodeBody(w, req, &body) {
		return
	}
	if err := h.accountSvc.Select(body.Index); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *WalletHandler) UnselectAddressHandler(
	w http.ResponseWriter, req *http.Request,
) {
	if req.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	h.accountSvc.ClearSelection()
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *WalletHandler) RefreshBalancesHandler(
	w http.ResponseWriter, req *http.Request,
) {
	if req.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	ran := h.balanceSvc.RefreshAll(req.Context())
	writeJSON(w, http.StatusOK, struct {
		Refreshed bool `json:"refreshed"`
	}{ran})
}

func (h *WalletHandler) TickHandler(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	tick, known := h.trackerSvc.CurrentTick()
	if !known {
		writeError(w, application.ErrNoCurrentTick)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Tick uint32 `json:"tick"`
	}{tick})
}

func (h *WalletHandler) TransfersHandler(
	w http.ResponseWriter, req *http.Request,
) {
	if req.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	body := struct {
		Destination string `json:"destination"`
		Amount      int64  `json:"amount"`
		Tick        uint32 `json:"tick"`
	}{}
	if !decodeBody(w, req, &body) {
		return
	}

	from, ok := h.accountSvc.SelectedAddress()
	if !ok {
		writeError(w, application.ErrNoAddressSelected)
		return
	}
	targetTick := body.Tick
	if targetTick == 0 {
		if current, known := h.trackerSvc.CurrentTick(); known {
			targetTick = current + h.tickOffset
		}
	}

	result, err := h.sendSvc.Send(application.SendOpts{
		From:         from,
		DestIdentity: body.Destination,
		Amount:       body.Amount,
		Tick:         targetTick,
		Hooks: application.SendHooks{
			PostBroadcast: func(result application.SendResult) {
				tx := domain.NewPendingTransaction(
					result.TxID, result.SourceID, result.DestID,
					result.Amount, result.Tick, result.CreatedAtTick,
				)
				if err := h.trackerSvc.Add(req.Context(), tx); err != nil {
					log.WithError(err).Warn(
						"failed to track broadcast transaction",
					)
				}
			},
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		TxID string `json:"txId"`
		Tick uint32 `json:"tick"`
	}{result.TxID, result.Tick})
}

type transactionResponse struct {
	TxID     string `json:"txId"`
	DestID   string `json:"destination"`
	Amount   int64  `json:"amount"`
	Tick     uint32 `json:"tick"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

func (h *WalletHandler) TransactionsHandler(
	w http.ResponseWriter, req *http.Request,
) {
	if req.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	currentTick, _ := h.trackerSvc.CurrentTick()
	list := h.trackerSvc.List()
	res := make([]transactionResponse, 0, len(list))
	for i := range list {
		tx := list[i]
		res = append(res, transactionResponse{
			TxID:     tx.TxID,
			DestID:   tx.DestID,
			Amount:   tx.Amount,
			Tick:     tx.Tick,
			Status:   string(tx.Status),
			Progress: tx.EstimatedProgress(currentTick),
		})
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *WalletHandler) TransactionHandler(
	w http.ResponseWriter, req *http.Request,
) {
	if req.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}
	txID := strings.TrimPrefix(req.URL.Path, "/v1/transactions/")
	if txID == "" {
		writeError(w, domain.ErrTxNotFound)
		return
	}
	if err := h.trackerSvc.Remove(req.Context(), txID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *WalletHandler) NotificationsHandler(
	w http.ResponseWriter, req *http.Request,
) {
	if req.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, h.publisher.Active())
}

func (h *WalletHandler) ResetSessionHandler(
	w http.ResponseWriter, req *http.Request,
) {
	if req.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	h.accountSvc.Reset(req.Context())
	if err := h.trackerSvc.ResetSession(req.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func decodeBody(
	w http.ResponseWriter, req *http.Request, target interface{},
) bool {
	if err := json.NewDecoder(req.Body).Decode(target); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: "invalid request body",
		})
		return false
	}
	return true
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("failed to write http response")
	}
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
		Message: "method not allowed",
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrTxNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrIndexAlreadyUsed),
		errors.Is(err, domain.ErrIndexExhausted),
		errors.Is(err, domain.ErrIndexOutOfRange),
		errors.Is(err, domain.ErrNoAddressesGenerated),
		errors.Is(err, application.ErrInvalidAmount),
		errors.Is(err, application.ErrNoAddressSelected),
		errors.Is(err, identity.ErrInvalidIdentity),
		errors.Is(err, identity.ErrChecksumMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, application.ErrNoCurrentTick):
		status = http.StatusServiceUnavailable
	case errors.Is(err, device.ErrUserRejected):
		status = http.StatusConflict
	case errors.Is(err, device.ErrNotConnected),
		errors.Is(err, device.ErrTransportUnavailable):
		status = http.StatusFailedDependency
	case errors.Is(err, ledger.ErrRequestFailed):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResponse{Message: err.Error()})
}
