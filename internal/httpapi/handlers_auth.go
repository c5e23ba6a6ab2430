package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/vaultline/wallet-core/internal/apperr"
	"github.com/vaultline/wallet-core/internal/problem"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type userResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    string `json:"expiresAt"`
}

type authResponse struct {
	User   userResponse      `json:"user"`
	Tokens tokenPairResponse `json:"tokens"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	user, pair, err := a.passwordAuth.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	problem.WriteCreated(w, "/v1/users/"+user.ID, authResponse{User: toUserResponse(user), Tokens: toTokenPairResponse(pair)})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	user, pair, err := a.passwordAuth.Login(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	problem.WriteData(w, http.StatusOK, authResponse{User: toUserResponse(user), Tokens: toTokenPairResponse(pair)})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	pair, err := a.passwordAuth.Refresh(r.Context(), req.RefreshToken, clientIP(r))
	if err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	problem.WriteData(w, http.StatusOK, toTokenPairResponse(pair))
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	_ = decodeJSON(r, &req)
	a.passwordAuth.Logout(r.Context(), req.RefreshToken)
	problem.WriteData(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

type emailRequest struct {
	Email string `json:"email"`
}

func (a *API) handleRequestVerification(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	if err := a.passwordAuth.RequestVerification(r.Context(), req.Email); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	problem.WriteData(w, http.StatusOK, map[string]bool{"requested": true})
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (a *API) handleConfirmVerification(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	if err := a.passwordAuth.ConfirmVerification(r.Context(), req.Token); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	problem.WriteData(w, http.StatusOK, map[string]bool{"verified": true})
}

func (a *API) handleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	if err := a.passwordAuth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	problem.WriteData(w, http.StatusOK, map[string]bool{"requested": true})
}

type confirmPasswordResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (a *API) handleConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	var req confirmPasswordResetRequest
	if err := decodeJSON(r, &req); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	if err := a.passwordAuth.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		problem.WriteError(w, traceID, err)
		return
	}
	problem.WriteData(w, http.StatusOK, map[string]bool{"reset": true})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.New(apperr.CodeValidationFailed, "invalid request body")
	}
	return nil
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
