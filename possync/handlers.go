package possync

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/tickets_backend/config"
	"bitbucket.org/mmdatafocus/tickets_backend/models"
	"bitbucket.org/mmdatafocus/tickets_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const statsCacheKey = "possync:sales_stats"

// TriggerSyncHandler kicks off a sync pass for the batch type in the path.
// With async=true the pass is handed to Pub/Sub instead of running inline.
func TriggerSyncHandler(batchType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		triggeredBy := models.SyncTriggeredManual
		if userId, ok := utils.GetUserIdFromContext(c.Request.Context()); ok {
			triggeredBy = "user:" + strconv.Itoa(userId)
		}

		if c.Query("async") == "true" {
			if err := PublishSyncRun(c.Request.Context(), batchType, triggeredBy); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"queued": true, "batch_type": batchType})
			return
		}

		result := runSyncPass(c.Request.Context(), batchType, triggeredBy)
		if !result.Success {
			if result.Error == utils.ErrorSyncAlreadyRunning.Error() {
				c.JSON(http.StatusConflict, gin.H{"error": result.Error})
				return
			}
			c.JSON(http.StatusInternalServerError, result)
			return
		}
		invalidateStatsCache()
		c.JSON(http.StatusOK, result)
	}
}

func ListingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := models.ListingFilters{
			Search:    queryStringPtr(c, "search"),
			EventName: queryStringPtr(c, "event_name"),
			IsMatched: queryBoolPtr(c, "is_matched"),
			HasExtPO:  queryBoolPtr(c, "has_ext_po"),
			Page:      queryIntDefault(c, "page", 1),
			Limit:     queryIntDefault(c, "limit", config.SearchLimit),
		}

		page, err := GetListings(c.Request.Context(), filters)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// SalesStatsHandler serves the profit aggregation, cached in redis for a
// short window since the underlying query walks every sale.
func SalesStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if statsCacheEnabled() {
			var cached models.SalesStats
			if found, err := config.GetRedisObject(statsCacheKey, &cached); err == nil && found {
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		stats, err := models.GetSalesStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if statsCacheEnabled() {
			if err := config.SetRedisObject(statsCacheKey, stats, statsCacheTTL()); err != nil {
				config.LogError(config.GetLogger(), "possync", "SalesStatsHandler", "cache write", nil, err)
			}
		}
		c.JSON(http.StatusOK, stats)
	}
}

type updatePriceRequest struct {
	Price decimal.Decimal `json:"price" binding:"required"`
}

func UpdatePriceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		listingId, err := strconv.Atoi(c.Param("id"))
		if err != nil || listingId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
			return
		}

		var req updatePriceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		if req.Price.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price must not be negative"})
			return
		}

		result := UpdateListingPrice(c.Request.Context(), listingId, req.Price)
		if !result.Success {
			if result.Error == utils.ErrorRecordNotFound.Error() {
				c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
				return
			}
			c.JSON(http.StatusBadGateway, result)
			return
		}
		invalidateStatsCache()
		c.JSON(http.StatusOK, result)
	}
}

// ResolveEventHandler exposes the matcher directly, mainly for dashboard
// tooling that wants to preview what a sighting would resolve to.
func ResolveEventHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.EventMatchInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		if strings.TrimSpace(input.EventName) == "" && input.PosProductionId == nil && input.TmEventId == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event_name or an external id is required"})
			return
		}

		createIfNotFound := c.Query("create") == "true"
		result, err := models.FindOrCreateEvent(c.Request.Context(), input, createIfNotFound)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func SyncRunsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		batchType := strings.TrimSpace(c.Query("batch_type"))
		limit := queryIntDefault(c, "limit", config.SearchLimit)

		runs, err := models.GetSyncRuns(c.Request.Context(), batchType, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
	}
}

func SyncRunDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil || id == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}

		run, syncErrors, err := models.GetSyncRunWithErrors(c.Request.Context(), uint(id))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "sync run not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"run": run, "errors": syncErrors})
	}
}

// runSyncPass dispatches a batch type to its reconciler. Both the HTTP
// trigger and the Pub/Sub push path funnel through here.
func runSyncPass(ctx context.Context, batchType string, triggeredBy string) *SyncResult {
	switch batchType {
	case models.SyncEntityListing:
		return SyncListingsFromPos(ctx, triggeredBy)
	case models.SyncEntitySale:
		return SyncSalesFromPos(ctx, triggeredBy)
	case models.SyncEntityInvoice:
		return SyncInvoicesFromPos(ctx, triggeredBy)
	default:
		return &SyncResult{Success: false, Error: "unknown batch type: " + batchType}
	}
}

/* query helpers */

func queryStringPtr(c *gin.Context, key string) *string {
	return utils.CleanString(c.Query(key))
}

func queryBoolPtr(c *gin.Context, key string) *bool {
	switch strings.ToLower(strings.TrimSpace(c.Query(key))) {
	case "true", "1", "yes":
		return utils.NewTrue()
	case "false", "0", "no":
		return utils.NewFalse()
	default:
		return nil
	}
}

func queryIntDefault(c *gin.Context, key string, def int) int {
	if n, err := strconv.Atoi(c.Query(key)); err == nil && n > 0 {
		return n
	}
	return def
}

/* stats cache */

func statsCacheEnabled() bool {
	return envBoolDefault("ENABLE_STATS_CACHE", true)
}

func statsCacheTTL() time.Duration {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("STATS_CACHE_TTL_SECONDS"))); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return 120 * time.Second
}

func invalidateStatsCache() {
	if !statsCacheEnabled() {
		return
	}
	if err := config.RemoveRedisKey(statsCacheKey); err != nil {
		config.LogError(config.GetLogger(), "possync", "invalidateStatsCache", "cache drop", nil, err)
	}
}
