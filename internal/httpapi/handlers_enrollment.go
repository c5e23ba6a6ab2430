package httpapi

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/models"
	"github.com/vaultline/wallet-core/internal/problem"
)

type enrollChallengeRequest struct {
	DeviceName string `json:"deviceName,omitempty"`
}

func (a *API) handleEnrollChallenge(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	var req enrollChallengeRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	userID := UserIDFromContext(r.Context())
	var deviceName *string
	if req.DeviceName != "" {
		deviceName = &req.DeviceName
	}
	creation, challengeID, err := a.enrollment.Options(r.Context(), userID, clientIP(r), deviceName)
	if err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	problem.WriteData(w, http.StatusOK, challengeResponse{ChallengeID: challengeID, Options: creation})
}

type deviceResponse struct {
	ID           string `json:"id"`
	CredentialID string `json:"credentialId"`
	Label        string `json:"label,omitempty"`
	Active       bool   `json:"active"`
}

func toDeviceResponse(d *models.Device) deviceResponse {
	resp := deviceResponse{ID: d.ID, CredentialID: d.CredentialID, Active: d.Active}
	if d.Label != nil {
		resp.Label = *d.Label
	}
	return resp
}

type enrollVerifyResponse struct {
	CredentialID string `json:"credentialId"`
	DeviceID     string `json:"deviceId"`
}

func (a *API) handleEnrollVerify(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	var req credentialVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	device, err := a.enrollment.Verify(r.Context(), req.ChallengeID, bytes.NewReader(req.Credential))
	if err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	problem.WriteData(w, http.StatusOK, enrollVerifyResponse{
		CredentialID: device.CredentialID,
		DeviceID:     device.ID,
	})
}

func (a *API) handleListDevices(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	userID := UserIDFromContext(r.Context())
	list, err := a.devices.List(r.Context(), userID)
	if err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	items := make([]deviceResponse, 0, len(list))
	for i := range list {
		items = append(items, toDeviceResponse(&list[i]))
	}
	problem.WriteList(w, http.StatusOK, items, "", len(items))
}

func (a *API) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	userID := UserIDFromContext(r.Context())
	deviceID := chi.URLParam(r, "id")
	if deviceID == "" {
		problem.WriteError(w, traceID, apperr.New(apperr.CodeValidationFailed, "missing device id"))
		return
	}
	if err := a.devices.Remove(r.Context(), userID, deviceID); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseLimit(r *http.Request, def, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
