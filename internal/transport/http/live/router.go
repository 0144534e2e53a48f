package livehttp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"papertrade/internal/account"
	"papertrade/internal/logger"
	"papertrade/internal/market"
	"papertrade/internal/simulation"
	"papertrade/internal/store"

	"github.com/gin-gonic/gin"
)

// Service is what the HTTP layer needs from the simulation.
type Service interface {
	Market() []market.Instrument
	Subscribe(fn func(simulation.Snapshot))
	Login(ctx context.Context, username string) (*account.Account, error)
	Account(ctx context.Context, username string) (*account.Account, error)
	ManualTrade(ctx context.Context, username, symbol string, amount float64, side string) simulation.TradeResult
	UpdateBotRule(ctx context.Context, username, symbol string, patch account.BotRulePatch) (map[string]account.BotRule, error)
	ResetAccount(ctx context.Context, username string) (*account.Account, error)
}

type Router struct {
	svc Service
}

func NewRouter(svc Service) *Router {
	return &Router{svc: svc}
}

// Register mounts the API under group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/market", r.handleMarket)
	group.POST("/users/:username/login", r.handleLogin)
	group.GET("/users/:username", r.handleAccount)
	group.POST("/users/:username/trades", r.handleTrade)
	group.POST("/users/:username/bots/:symbol", r.handleBotRule)
	group.POST("/users/:username/reset", r.handleReset)
}

type tradeRequest struct {
	Symbol string  `json:"symbol"`
	Amount float64 `json:"amount"`
	Side   string  `json:"side"`
}

func (r *Router) handleMarket(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": r.svc.Market()})
}

func (r *Router) handleLogin(c *gin.Context) {
	a, err := r.svc.Login(c.Request.Context(), c.Param("username"))
	if err != nil {
		r.fail(c, "login", err)
		return
	}
	logger.Infof("[api] login ip=%s user=%s", c.ClientIP(), a.Username)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": r.view(a)})
}

func (r *Router) handleAccount(c *gin.Context) {
	a, err := r.svc.Account(c.Request.Context(), c.Param("username"))
	if err != nil {
		r.fail(c, "account", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": r.view(a)})
}

func (r *Router) handleTrade(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid trade body: " + err.Error()})
		return
	}
	res := r.svc.ManualTrade(c.Request.Context(), c.Param("username"), req.Symbol, req.Amount, req.Side)
	if !res.Success {
		r.fail(c, "trade", res.Err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": r.view(res.Account), "trade": res.Trade})
}

func (r *Router) handleBotRule(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	patch, err := parseBotRulePatch(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	cfg, err := r.svc.UpdateBotRule(c.Request.Context(), c.Param("username"), c.Param("symbol"), patch)
	if err != nil {
		r.fail(c, "bot rule", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": cfg})
}

func (r *Router) handleReset(c *gin.Context) {
	a, err := r.svc.ResetAccount(c.Request.Context(), c.Param("username"))
	if err != nil {
		r.fail(c, "reset", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": r.view(a)})
}

func (r *Router) fail(c *gin.Context, op string, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("[api] %s failed ip=%s user=%s err=%v", op, c.ClientIP(), c.Param("username"), err)
	} else {
		logger.Debugf("[api] %s rejected ip=%s user=%s err=%v", op, c.ClientIP(), c.Param("username"), err)
	}
	c.JSON(status, gin.H{"success": false, "message": err.Error()})
}

func statusFor(err error) int {
	switch {
	case store.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, account.ErrUnknownSymbol),
		errors.Is(err, account.ErrInsufficientBalance),
		errors.Is(err, account.ErrInsufficientShares),
		errors.Is(err, account.ErrInvalidAmount),
		errors.Is(err, account.ErrInvalidPrice),
		errors.Is(err, account.ErrInvalidSide),
		errors.Is(err, account.ErrInvalidUsername):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (r *Router) view(a *account.Account) AccountView {
	prices := make(map[string]float64)
	for _, inst := range r.svc.Market() {
		prices[strings.ToUpper(inst.Symbol)] = inst.Price
	}
	return NewAccountView(a, prices)
}
