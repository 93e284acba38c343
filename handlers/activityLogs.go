package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/purchases_backend/models"
	"github.com/gin-gonic/gin"
)

// ListActivityLogsHandler exposes the append-only log, filterable by table,
// record and sync state.
func ListActivityLogsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var tableName *string
		if v := strings.TrimSpace(c.Query("table_name")); v != "" {
			tableName = &v
		}

		var recordId *int
		if v := strings.TrimSpace(c.Query("record_id")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record_id filter"})
				return
			}
			recordId = &n
		}

		var synced *bool
		if v := strings.TrimSpace(c.Query("synced")); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid synced filter"})
				return
			}
			synced = &b
		}

		logs, err := models.GetActivityLogs(c.Request.Context(), tableName, recordId, synced)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs})
	}
}
