package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/swapio-fi/clmm-adapter/internal/amm"
	"github.com/swapio-fi/clmm-adapter/internal/clmm"
	"github.com/swapio-fi/clmm-adapter/internal/http/httputil"
	"github.com/swapio-fi/clmm-adapter/internal/metrics"
	"github.com/swapio-fi/clmm-adapter/internal/scheduler"
)

type QuoteHandler struct {
	registry *scheduler.Registry
}

func NewQuoteHandler(registry *scheduler.Registry) *QuoteHandler {
	return &QuoteHandler{registry: registry}
}

func (h *QuoteHandler) SetRoutes(r *gin.Engine) {
	r.GET("/quote", h.getQuote)
	r.GET("/swap-accounts", h.getSwapAccounts)
	r.GET("/pools", h.getPools)
}

// QuoteRequest asks for a swap simulation against one registered pool.
type QuoteRequest struct {
	// Pool account address of the pool to quote against
	Pool string `form:"pool" binding:"required"`

	// Input token mint address (base58)
	InputMint string `form:"inputMint" binding:"required"`

	// Output token mint address (base58)
	OutputMint string `form:"outputMint" binding:"required"`

	// Amount in smallest token units; input amount for ExactIn, desired
	// output for ExactOut
	Amount string `form:"amount" binding:"required"`

	// "ExactIn" (default) or "ExactOut"
	SwapMode string `form:"swapMode"`
}

type QuoteResponse struct {
	Pool       string  `json:"pool"`
	InputMint  string  `json:"inputMint"`
	OutputMint string  `json:"outputMint"`
	SwapMode   string  `json:"swapMode"`
	InAmount   string  `json:"inAmount"`
	OutAmount  string  `json:"outAmount"`
	FeeAmount  string  `json:"feeAmount"`
	FeeMint    string  `json:"feeMint"`
	FeePct     float64 `json:"feePct"`
}

func (h *QuoteHandler) getQuote(c *gin.Context) {
	started := time.Now()

	var req QuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		metrics.QuoteRequests.WithLabelValues("bad_request").Inc()
		httputil.BadRequest(c, err.Error())
		return
	}

	pool, err := solana.PublicKeyFromBase58(req.Pool)
	if err != nil {
		metrics.QuoteRequests.WithLabelValues("bad_request").Inc()
		httputil.BadRequest(c, "invalid pool address")
		return
	}
	inputMint, err := solana.PublicKeyFromBase58(req.InputMint)
	if err != nil {
		metrics.QuoteRequests.WithLabelValues("bad_request").Inc()
		httputil.BadRequest(c, "invalid input mint")
		return
	}
	outputMint, err := solana.PublicKeyFromBase58(req.OutputMint)
	if err != nil {
		metrics.QuoteRequests.WithLabelValues("bad_request").Inc()
		httputil.BadRequest(c, "invalid output mint")
		return
	}
	amount, err := strconv.ParseUint(req.Amount, 10, 64)
	if err != nil {
		metrics.QuoteRequests.WithLabelValues("bad_request").Inc()
		httputil.BadRequest(c, "invalid amount")
		return
	}
	mode := amm.ParseSwapMode(req.SwapMode)

	quote, err := h.registry.Quote(pool, &amm.QuoteParams{
		InputMint:  inputMint,
		OutputMint: outputMint,
		Amount:     amount,
		SwapMode:   mode,
	})
	if err != nil {
		metrics.QuoteRequests.WithLabelValues(failureLabel(err)).Inc()
		httputil.Error(c, failureStatus(err), err.Error())
		return
	}

	metrics.QuoteRequests.WithLabelValues("ok").Inc()
	metrics.QuoteDuration.Observe(time.Since(started).Seconds())
	httputil.Success(c, QuoteResponse{
		Pool:       req.Pool,
		InputMint:  req.InputMint,
		OutputMint: req.OutputMint,
		SwapMode:   mode.String(),
		InAmount:   strconv.FormatUint(quote.InAmount, 10),
		OutAmount:  strconv.FormatUint(quote.OutAmount, 10),
		FeeAmount:  strconv.FormatUint(quote.FeeAmount, 10),
		FeeMint:    quote.FeeMint.String(),
		FeePct:     quote.FeePct,
	})
}

// SwapAccountsRequest asks for the assembled swap instruction of one pool.
type SwapAccountsRequest struct {
	Pool                    string `form:"pool" binding:"required"`
	SourceMint              string `form:"sourceMint" binding:"required"`
	DestinationMint         string `form:"destinationMint" binding:"required"`
	SourceTokenAccount      string `form:"sourceTokenAccount" binding:"required"`
	DestinationTokenAccount string `form:"destinationTokenAccount" binding:"required"`
	Authority               string `form:"authority" binding:"required"`
	Amount                  string `form:"amount" binding:"required"`
}

type AccountMetaResponse struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type SwapAccountsResponse struct {
	Swap      string                `json:"swap"`
	ProgramID string                `json:"programId"`
	Data      string                `json:"data"`
	Accounts  []AccountMetaResponse `json:"accounts"`
}

func (h *QuoteHandler) getSwapAccounts(c *gin.Context) {
	var req SwapAccountsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.BadRequest(c, err.Error())
		return
	}

	keys := make([]solana.PublicKey, 0, 6)
	for _, raw := range []string{
		req.Pool, req.SourceMint, req.DestinationMint,
		req.SourceTokenAccount, req.DestinationTokenAccount, req.Authority,
	} {
		key, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			httputil.BadRequest(c, "invalid address: "+raw)
			return
		}
		keys = append(keys, key)
	}
	amount, err := strconv.ParseUint(req.Amount, 10, 64)
	if err != nil {
		httputil.BadRequest(c, "invalid amount")
		return
	}

	swap, err := h.registry.SwapAccounts(keys[0], &amm.SwapParams{
		SourceMint:              keys[1],
		DestinationMint:         keys[2],
		SourceTokenAccount:      keys[3],
		DestinationTokenAccount: keys[4],
		TokenTransferAuthority:  keys[5],
		InAmount:                amount,
	})
	if err != nil {
		httputil.Error(c, failureStatus(err), err.Error())
		return
	}

	data, err := swap.Instruction.Data()
	if err != nil {
		httputil.InternalError(c, err.Error())
		return
	}
	accounts := make([]AccountMetaResponse, len(swap.AccountMetas))
	for i, meta := range swap.AccountMetas {
		accounts[i] = AccountMetaResponse{
			Pubkey:     meta.PublicKey.String(),
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
		}
	}
	httputil.Success(c, SwapAccountsResponse{
		Swap:      swap.Swap,
		ProgramID: swap.Instruction.ProgramID().String(),
		Data:      base64.StdEncoding.EncodeToString(data),
		Accounts:  accounts,
	})
}

func (h *QuoteHandler) getPools(c *gin.Context) {
	keys := h.registry.Keys()
	pools := make([]string, len(keys))
	for i, key := range keys {
		pools[i] = key.String()
	}
	httputil.Success(c, gin.H{"pools": pools})
}

func failureStatus(err error) int {
	switch {
	case errors.Is(err, scheduler.ErrPoolNotFound):
		return http.StatusNotFound
	case errors.Is(err, amm.ErrUnknownMint), errors.Is(err, clmm.ErrZeroAmount):
		return http.StatusBadRequest
	case errors.Is(err, clmm.ErrPoolNotSynchronized):
		return http.StatusServiceUnavailable
	case errors.Is(err, clmm.ErrInsufficientLiquidity):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func failureLabel(err error) string {
	switch {
	case errors.Is(err, scheduler.ErrPoolNotFound):
		return "not_found"
	case errors.Is(err, amm.ErrUnknownMint), errors.Is(err, clmm.ErrZeroAmount):
		return "bad_request"
	default:
		return "failed"
	}
}
