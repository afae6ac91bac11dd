package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stockwatch/services/quotes"
)

// QuoteController handles price and historical data requests
type QuoteController struct {
	quotes *quotes.Client
}

// NewQuoteController creates a new quote controller
func NewQuoteController(client *quotes.Client) *QuoteController {
	return &QuoteController{quotes: client}
}

// GetPrice returns the current quote for a symbol
// GET /price/:symbol
func (qc *QuoteController) GetPrice(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	quote, err := qc.quotes.Quote(c.Request.Context(), symbol)
	if err != nil {
		if errors.Is(err, quotes.ErrSymbolNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Stock not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch stock price",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, quote)
}

// GetPrices returns current quotes for a list of symbols in bulk.
// The lookup is best-effort; symbols the provider cannot resolve are
// omitted, and a provider failure yields an empty array.
// POST /prices
func (qc *QuoteController) GetPrices(c *gin.Context) {
	var request struct {
		Symbols []string `json:"symbols"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.Symbols == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid symbols array"})
		return
	}

	for i, s := range request.Symbols {
		request.Symbols[i] = strings.ToUpper(s)
	}

	fetched := qc.quotes.Quotes(c.Request.Context(), request.Symbols)

	results := make([]gin.H, 0, len(fetched))
	for _, q := range fetched {
		results = append(results, gin.H{
			"symbol":        q.Symbol,
			"price":         q.Price,
			"change":        q.Change,
			"changePercent": q.ChangePercent,
		})
	}

	c.JSON(http.StatusOK, results)
}

// GetHistorical returns daily bars for a symbol over a date range,
// defaulting to the trailing one month
// GET /historical/:symbol?start&end
func (qc *QuoteController) GetHistorical(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	var start, end time.Time
	if s := c.Query("start"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date"})
			return
		}
		start = parsed
	}
	if e := c.Query("end"); e != "" {
		parsed, err := time.Parse("2006-01-02", e)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date"})
			return
		}
		end = parsed
	}

	candles, err := qc.quotes.Historical(c.Request.Context(), symbol, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch historical data",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, candles)
}
