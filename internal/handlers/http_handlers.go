package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"raffle/internal/bank"
	"raffle/internal/events"
	"raffle/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/gorilla/websocket"
)

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	service  *services.RaffleService
	ledger   *bank.Ledger
	bus      *events.Bus
	upgrader websocket.Upgrader
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(service *services.RaffleService, ledger *bank.Ledger, bus *events.Bus) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		ledger:  ledger,
		bus:     bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/enter", h.Enter)
	router.GET("/upkeep", h.CheckUpkeep)
	router.POST("/upkeep", h.PerformUpkeep)
	router.POST("/fulfill", h.Fulfill)
	router.GET("/raffle", h.GetRaffle)
	router.GET("/players", h.GetPlayers)
	router.GET("/players/:index", h.GetPlayer)
	router.GET("/winner", h.GetWinner)
	router.POST("/accounts/:id/deposit", h.Deposit)
	router.GET("/accounts/:id", h.GetAccount)
	router.GET("/events", h.StreamEvents)
}

type enterRequest struct {
	Player  string `json:"player" binding:"required"`
	Payment uint64 `json:"payment"`
}

// Enter handles POST /enter. The payment is withdrawn from the player's
// ledger account before the entry is recorded; a rejected entry is
// compensated with a re-deposit.
func (h *HTTPHandler) Enter(c *gin.Context) {
	var req enterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ledger.Withdraw(req.Player, req.Payment); err != nil {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.Enter(req.Player, req.Payment); err != nil {
		h.ledger.Deposit(req.Player, req.Payment)
		switch {
		case errors.Is(err, services.ErrInsufficientPayment):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrRaffleNotOpen):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"player":     req.Player,
		"numPlayers": h.service.NumPlayers(),
		"pot":        h.service.Pot(),
	})
}

// CheckUpkeep handles GET /upkeep.
func (h *HTTPHandler) CheckUpkeep(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"upkeepNeeded": h.service.CheckUpkeep()})
}

// PerformUpkeep handles POST /upkeep.
func (h *HTTPHandler) PerformUpkeep(c *gin.Context) {
	requestID, err := h.service.PerformUpkeep(c.Request.Context())
	if err != nil {
		var notNeeded *services.UpkeepNotNeededError
		if errors.As(err, &notNeeded) {
			c.JSON(http.StatusConflict, gin.H{
				"error":      notNeeded.Error(),
				"state":      notNeeded.State,
				"pot":        notNeeded.Pot,
				"numPlayers": notNeeded.NumPlayers,
			})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"requestId": requestID})
}

type fulfillRequest struct {
	RequestID   string   `json:"requestId" binding:"required"`
	RandomWords []uint64 `json:"randomWords" binding:"required"`
}

// Fulfill handles POST /fulfill, the callback surface for an external
// randomness coordinator.
func (h *HTTPHandler) Fulfill(c *gin.Context) {
	var req fulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.FulfillRandomWords(c.Request.Context(), req.RequestID, req.RandomWords); err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownRequest):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrPayoutFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"winner": h.service.RecentWinner()})
}

// GetRaffle handles GET /raffle.
func (h *HTTPHandler) GetRaffle(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Summary())
}

// GetPlayers handles GET /players.
func (h *HTTPHandler) GetPlayers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"players": h.service.Players()})
}

// GetPlayer handles GET /players/:index.
func (h *HTTPHandler) GetPlayer(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}

	player, err := h.service.Player(index)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": index, "player": player})
}

// GetWinner handles GET /winner.
func (h *HTTPHandler) GetWinner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"recentWinner": h.service.RecentWinner()})
}

type depositRequest struct {
	Amount uint64 `json:"amount" binding:"required"`
}

// Deposit handles POST /accounts/:id/deposit.
func (h *HTTPHandler) Deposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account := c.Param("id")
	h.ledger.Deposit(account, req.Amount)
	c.JSON(http.StatusOK, gin.H{"account": account, "balance": h.ledger.BalanceOf(account)})
}

// GetAccount handles GET /accounts/:id.
func (h *HTTPHandler) GetAccount(c *gin.Context) {
	account := c.Param("id")
	c.JSON(http.StatusOK, gin.H{"account": account, "balance": h.ledger.BalanceOf(account)})
}

// StreamEvents handles GET /events, streaming bus notifications over a
// websocket until the client disconnects.
func (h *HTTPHandler) StreamEvents(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warningf("upgrade events stream: %v", err)
		return
	}
	defer conn.Close()

	ch, cancel := h.bus.Subscribe(32)
	defer cancel()

	for evt := range ch {
		if err := conn.WriteJSON(evt); err != nil {
			logger.Infof("events stream closed: %v", err)
			return
		}
	}
}
