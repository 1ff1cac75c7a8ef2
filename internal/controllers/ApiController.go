package controllers

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/gookit/validate"

	"backupd/internal/backup"
	"backupd/internal/providers"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type ApiController struct {
	logger  providers.Logger
	service backup.BackupServiceInterface
}

type errorResponse struct {
	Error string `json:"error"`
}

type createResponse struct {
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp,omitempty"`
}

type clearResponse struct {
	Success bool `json:"success"`
}

type restoreRequest struct {
	Timestamp string `json:"timestamp"`
}

type preferencesRequest struct {
	AutoBackup      bool   `json:"autoBackup"`
	BackupFrequency string `json:"backupFrequency" validate:"required|in:hourly,daily,weekly,monthly"`
}

func NewApiController(logger providers.Logger, service backup.BackupServiceInterface) *ApiController {
	return &ApiController{
		logger:  logger,
		service: service,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	return json.NewDecoder(r.Body).Decode(v)
}

// restoreStatus maps a failed restore to the HTTP status the client sees.
func restoreStatus(res backup.RestoreResult) int {
	switch {
	case res.Success:
		return http.StatusOK
	case errors.Is(res.Err, backup.ErrNotFound),
		errors.Is(res.Err, backup.ErrNoBackup),
		errors.Is(res.Err, backup.ErrNoPreRestore):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (ac *ApiController) GetHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ac.service.GetBackupHistory())
}

func (ac *ApiController) GetLatest(w http.ResponseWriter, r *http.Request) {
	snap := ac.service.GetLatestBackup()
	if snap == nil {
		writeError(w, http.StatusNotFound, backup.ErrNoBackup.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (ac *ApiController) GetByTimestamp(w http.ResponseWriter, r *http.Request) {
	ts := r.URL.Query().Get("timestamp")
	if ts == "" {
		writeError(w, http.StatusBadRequest, "timestamp is required")
		return
	}
	snap := ac.service.GetBackupByTimestamp(ts)
	if snap == nil {
		writeError(w, http.StatusNotFound, backup.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (ac *ApiController) GetPreRestore(w http.ResponseWriter, r *http.Request) {
	snap := ac.service.GetPreRestoreBackup()
	if snap == nil {
		writeError(w, http.StatusNotFound, backup.ErrNoPreRestore.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (ac *ApiController) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ac.service.GetBackupStats())
}

func (ac *ApiController) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ac.service.Status())
}

func (ac *ApiController) CreateBackup(w http.ResponseWriter, r *http.Request) {
	if !ac.service.CreateBackup() {
		writeJSON(w, http.StatusInternalServerError, createResponse{Success: false})
		return
	}
	resp := createResponse{Success: true}
	if latest := ac.service.GetLatestBackup(); latest != nil {
		resp.Timestamp = latest.Timestamp
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (ac *ApiController) Restore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request")
		return
	}
	res := ac.service.RestoreBackup(req.Timestamp)
	writeJSON(w, restoreStatus(res), res)
}

func (ac *ApiController) Undo(w http.ResponseWriter, r *http.Request) {
	res := ac.service.UndoRestore()
	writeJSON(w, restoreStatus(res), res)
}

func (ac *ApiController) Clear(w http.ResponseWriter, r *http.Request) {
	if !ac.service.ClearBackups() {
		writeJSON(w, http.StatusInternalServerError, clearResponse{Success: false})
		return
	}
	writeJSON(w, http.StatusOK, clearResponse{Success: true})
}

func (ac *ApiController) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request")
		return
	}
	v := validate.Struct(&req)
	if !v.Validate() {
		writeError(w, http.StatusBadRequest, v.Errors.One())
		return
	}

	ac.service.UpdatePreferences(backup.Preferences{
		AutoBackup:      req.AutoBackup,
		BackupFrequency: backup.Frequency(req.BackupFrequency),
	})
	ac.logger.Infof(providers.TypePost, "Preferences updated: autoBackup=%t frequency=%s", req.AutoBackup, req.BackupFrequency)
	writeJSON(w, http.StatusOK, ac.service.Status())
}
