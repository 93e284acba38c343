package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/purchases_backend/logsync"
	"bitbucket.org/mmdatafocus/purchases_backend/models"
	"bitbucket.org/mmdatafocus/purchases_backend/workflow"
	"github.com/gin-gonic/gin"
)

type batchSaveRequest struct {
	Records   []workflow.RecordIntent `json:"records"`
	DeleteIds []int                   `json:"delete_ids"`

	// Bounds of the current posting period. Purchase dates outside the
	// range get their VAT folded into the base amount.
	PeriodStart time.Time `json:"period_start" binding:"required"`
	PeriodEnd   time.Time `json:"period_end" binding:"required"`
}

func SaveRecordBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req batchSaveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		inCurrentPeriod := func(d time.Time) bool {
			return !d.Before(req.PeriodStart) && !d.After(req.PeriodEnd)
		}

		outcomes, err := workflow.SaveRecordBatch(c.Request.Context(), &workflow.BatchSaveInput{
			Records:   req.Records,
			DeleteIds: req.DeleteIds,
		}, inCurrentPeriod)
		if err != nil {
			writeError(c, err)
			return
		}
		logsync.PublishSyncRunIfEnabled(c.Request.Context(), "batch_save")
		c.JSON(http.StatusOK, gin.H{"records": outcomes})
	}
}

type postRecordsRequest struct {
	Ids         []int     `json:"ids" binding:"required"`
	PostingDate time.Time `json:"posting_date" binding:"required"`
}

func PostRecordsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req postRecordsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		posted, err := workflow.PostRecords(c.Request.Context(), req.Ids, req.PostingDate)
		if err != nil {
			writeError(c, err)
			return
		}
		logsync.PublishSyncRunIfEnabled(c.Request.Context(), "posting")
		c.JSON(http.StatusOK, gin.H{"posted": posted})
	}
}

type deleteComponentRequest struct {
	ComponentKey string `json:"component_key" binding:"required"`
	Ids          []int  `json:"ids" binding:"required"`
}

func DeleteComponentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req deleteComponentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		deleted, err := workflow.DeleteComponent(c.Request.Context(), req.ComponentKey, req.Ids)
		if err != nil {
			writeError(c, err)
			return
		}
		logsync.PublishSyncRunIfEnabled(c.Request.Context(), "component_delete")
		c.JSON(http.StatusOK, gin.H{"deleted": deleted})
	}
}

func GetPurchaseRecordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
			return
		}

		rec, err := models.GetPurchaseRecord(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func ListPurchaseRecordsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var status *models.RecordStatus
		if v := strings.TrimSpace(c.Query("status")); v != "" {
			s := models.RecordStatus(v)
			if s != models.RecordStatusSaved && s != models.RecordStatusPosted {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
				return
			}
			status = &s
		}

		var vendorId *int
		if v := strings.TrimSpace(c.Query("vendor_id")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendor_id filter"})
				return
			}
			vendorId = &n
		}

		from, err := timeQuery(c, "from")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from filter"})
			return
		}
		to, err := timeQuery(c, "to")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to filter"})
			return
		}

		records, err := models.GetPurchaseRecords(c.Request.Context(), status, vendorId, from, to)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records})
	}
}

func GetComponentRecordsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		componentKey := strings.TrimSpace(c.Param("key"))
		if componentKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "component key is required"})
			return
		}

		records, err := models.GetComponentRecords(c.Request.Context(), componentKey)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records})
	}
}

func timeQuery(c *gin.Context, name string) (*time.Time, error) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		t, err = time.Parse("2006-01-02", v)
		if err != nil {
			return nil, err
		}
	}
	return &t, nil
}
