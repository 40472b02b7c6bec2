package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ovii/ledger-service/internal/ledger"
	"github.com/ovii/ledger-service/internal/model"
	"github.com/ovii/ledger-service/internal/repo"
	"github.com/ovii/ledger-service/internal/service"
	"github.com/shopspring/decimal"
)

func RegisterHandlers(r *gin.Engine, svc *service.WalletService) {
	v1 := r.Group("/v1")
	{
		v1.POST("/transfers", transferHandler(svc))
		v1.POST("/agents/cash-in", cashInHandler(svc))
		v1.POST("/agents/cash-out", cashOutHandler(svc))
		v1.POST("/merchants/payments", requestPaymentHandler(svc))
		v1.POST("/merchants/payments/:id/approve", approvePaymentHandler(svc))
		v1.GET("/wallets/:phone/balance", balanceHandler(svc))
		v1.GET("/wallets/:phone/allowance", allowanceHandler(svc))
		v1.GET("/wallets/:phone/transactions", historyHandler(svc))
		v1.GET("/charges/quote", chargeQuoteHandler(svc))
	}
}

// writeError maps the engine's typed errors onto HTTP statuses: validation
// and business-rule failures are the caller's problem, limit breaches get
// 422 so clients can distinguish them, anything else is internal.
func writeError(c *gin.Context, err error) {
	var limitErr *ledger.LimitExceededError
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrSameWallet),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrChargeNotCovered):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &limitErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": limitErr.Error(),
			"limit": limitErr.Limit.StringFixed(2),
		})
	case errors.Is(err, repo.ErrWalletNotFound),
		errors.Is(err, service.ErrPendingPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrReferenceGeneration):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "transfer temporarily unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type transactionResponse struct {
	Reference          string  `json:"reference"`
	Type               string  `json:"transaction_type"`
	Status             string  `json:"status"`
	Amount             string  `json:"amount"`
	ChargeAmount       string  `json:"charge_amount"`
	SenderIdentifier   string  `json:"sender_identifier"`
	ReceiverIdentifier *string `json:"receiver_identifier,omitempty"`
	Description        string  `json:"description,omitempty"`
}

func toResponse(t *model.Transaction) transactionResponse {
	return transactionResponse{
		Reference:          t.TransactionReference,
		Type:               string(t.Type),
		Status:             string(t.Status),
		Amount:             t.Amount.StringFixed(2),
		ChargeAmount:       t.ChargeAmount.StringFixed(2),
		SenderIdentifier:   t.SenderIdentifier,
		ReceiverIdentifier: t.ReceiverIdentifier,
		Description:        t.Description,
	}
}

type transferReq struct {
	SenderPhone   string `json:"sender_phone" binding:"required"`
	ReceiverPhone string `json:"receiver_phone" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	Description   string `json:"description"`
}

func transferHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transferReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		amt, err := decimal.NewFromString(req.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
			return
		}
		tx, err := svc.TransferToPhone(c, req.SenderPhone, req.ReceiverPhone, amt, req.Description)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, toResponse(tx))
	}
}

type agentReq struct {
	AgentPhone    string `json:"agent_phone" binding:"required"`
	CustomerPhone string `json:"customer_phone" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
}

func cashInHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req agentReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		amt, err := decimal.NewFromString(req.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
			return
		}
		tx, err := svc.AgentCashIn(c, req.AgentPhone, req.CustomerPhone, amt)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, toResponse(tx))
	}
}

func cashOutHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req agentReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		amt, err := decimal.NewFromString(req.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
			return
		}
		tx, err := svc.CustomerCashOut(c, req.CustomerPhone, req.AgentPhone, amt)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, toResponse(tx))
	}
}

type paymentReq struct {
	CustomerPhone string `json:"customer_phone" binding:"required"`
	MerchantPhone string `json:"merchant_phone" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	Description   string `json:"description"`
}

func requestPaymentHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req paymentReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		amt, err := decimal.NewFromString(req.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
			return
		}
		tx, err := svc.RequestMerchantPayment(c, req.CustomerPhone, req.MerchantPhone, amt, req.Description)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": tx.ID, "reference": tx.TransactionReference, "status": tx.Status})
	}
}

type approveReq struct {
	CustomerPhone string `json:"customer_phone" binding:"required"`
}

func approvePaymentHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req approveReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
			return
		}
		tx, err := svc.ApproveMerchantPayment(c, req.CustomerPhone, id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toResponse(tx))
	}
}

func balanceHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		bal, currency, err := svc.GetBalance(c, c.Param("phone"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"balance": bal.StringFixed(2), "currency": currency})
	}
}

func allowanceHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		remaining, err := svc.RemainingAllowance(c, c.Param("phone"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"remaining_allowance": remaining.StringFixed(2)})
	}
}

func historyHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		txs, err := svc.GetHistory(c, c.Param("phone"), limit)
		if err != nil {
			writeError(c, err)
			return
		}
		out := make([]transactionResponse, 0, len(txs))
		for i := range txs {
			out = append(out, toResponse(&txs[i]))
		}
		c.JSON(http.StatusOK, out)
	}
}

func chargeQuoteHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		phone := c.Query("phone")
		txType := model.TransactionType(c.Query("transaction_type"))
		amt, err := decimal.NewFromString(c.Query("amount"))
		if err != nil || phone == "" || txType == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "phone, transaction_type and amount are required"})
			return
		}
		charge, err := svc.QuoteCharge(c, phone, txType, amt)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"charge_amount": charge.StringFixed(2)})
	}
}
