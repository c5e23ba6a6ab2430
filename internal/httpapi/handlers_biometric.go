package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/vaultline/wallet-core/internal/problem"
)

// credentialVerifyRequest is the documented body shape for every
// WebAuthn verify endpoint: the challenge id alongside the raw
// PublicKeyCredential JSON the authenticator produced.
type credentialVerifyRequest struct {
	ChallengeID string          `json:"challengeId"`
	Credential  json.RawMessage `json:"credential"`
}

type challengeRequest struct {
	Email  string `json:"email,omitempty"`
	UserID string `json:"userId,omitempty"`
}

type challengeResponse struct {
	ChallengeID string      `json:"challengeId"`
	Options     interface{} `json:"options"`
}

func (a *API) handleLoginChallenge(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	var req challengeRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	assertion, challengeID, err := a.biometric.LoginChallenge(r.Context(), req.Email, req.UserID, clientIP(r))
	if err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	problem.WriteData(w, http.StatusOK, challengeResponse{ChallengeID: challengeID, Options: assertion})
}

func (a *API) handleLoginVerify(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	var req credentialVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	user, access, refresh, exp, err := a.biometric.LoginVerify(r.Context(), req.ChallengeID, bytes.NewReader(req.Credential))
	if err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	problem.WriteData(w, http.StatusOK, authResponse{
		User: toUserResponse(user),
		Tokens: tokenPairResponse{
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresAt:    exp.UTC().Format(time.RFC3339),
		},
	})
}

type stepUpChallengeRequest struct {
	Purpose string `json:"purpose"`
}

func (a *API) handleStepUpChallenge(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	var req stepUpChallengeRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	userID := UserIDFromContext(r.Context())
	assertion, challengeID, err := a.biometric.StepUpChallenge(r.Context(), userID, req.Purpose, clientIP(r))
	if err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	problem.WriteData(w, http.StatusOK, challengeResponse{ChallengeID: challengeID, Options: assertion})
}

type stepUpTokenResponse struct {
	StepUpToken string `json:"stepUpToken"`
	ExpiresAt   string `json:"expiresAt"`
}

func (a *API) handleStepUpVerify(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	userID := UserIDFromContext(r.Context())
	var req credentialVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	token, exp, err := a.biometric.StepUpVerify(r.Context(), userID, req.ChallengeID, bytes.NewReader(req.Credential))
	if err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	problem.WriteData(w, http.StatusOK, stepUpTokenResponse{StepUpToken: token, ExpiresAt: exp.UTC().Format(time.RFC3339)})
}
