package handlers

import (
	"net/http"
	"strconv"

	"github.com/ygtkoc/RMS/backend/database"
	"github.com/ygtkoc/RMS/backend/models"
)

type LogsResponse struct {
	Logs    []models.LogEntry `json:"logs"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	PerPage int               `json:"per_page"`
}

// GetLogs lists persisted log entries for the admin screen, newest first.
func GetLogs(w http.ResponseWriter, r *http.Request) {
	q := database.DB.Model(&models.LogEntry{}).Order("created_at DESC")

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	if level := r.URL.Query().Get("level"); level != "" {
		q = q.Where("level = ?", level)
	}
	if source := r.URL.Query().Get("source"); source != "" {
		q = q.Where("source = ?", source)
	}
	if username := r.URL.Query().Get("username"); username != "" {
		q = q.Where("username = ?", username)
	}
	if search := r.URL.Query().Get("search"); search != "" {
		q = q.Where("message LIKE ? OR data LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	q.Count(&total)

	var logs []models.LogEntry
	q.Offset((page - 1) * perPage).Limit(perPage).Find(&logs)

	writeData(w, LogsResponse{Logs: logs, Total: total, Page: page, PerPage: perPage})
}
