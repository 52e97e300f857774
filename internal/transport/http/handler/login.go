package handler

import (
	"encoding/json"
	"net/http"

	"github.com/auth-sms-api/internal/application/challenge"
	"github.com/auth-sms-api/internal/domain"
	"github.com/auth-sms-api/internal/pkg/validate"
)

// LoginHandler handles the challenge-aware login endpoints.
type LoginHandler struct {
	svc challenge.Service
}

func NewLoginHandler(svc challenge.Service) *LoginHandler {
	return &LoginHandler{svc: svc}
}

// Login handles POST /v1/sessions/login. Users without the SMS factor get
// tokens immediately; users with it get a code_required envelope and must
// follow up on the code endpoint.
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req challenge.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	outcome, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOutcome(w, outcome)
}

// SubmitCode handles POST /v1/sessions/login/code: the second leg of a
// challenged login.
func (h *LoginHandler) SubmitCode(w http.ResponseWriter, r *http.Request) {
	var req challenge.SubmitCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	outcome, err := h.svc.SubmitCode(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOutcome(w, outcome)
}

func writeOutcome(w http.ResponseWriter, o *domain.LoginOutcome) {
	switch o.Status {
	case domain.LoginSuccess:
		writeJSON(w, http.StatusOK, AuthEnvelope{
			AccessToken:  o.Bearer,
			RefreshToken: o.RefreshToken,
			Session:      toSafeSession(o.Session),
			User:         toSafeUser(o.Session.User),
		})
	case domain.LoginCodeRequired:
		writeJSON(w, http.StatusOK, ChallengeEnvelope{
			Status:    string(o.Status),
			SessionID: o.SessionID,
			Secret:    o.Secret,
			Message:   "an SMS code was sent, submit it together with the secret",
		})
	case domain.LoginWrongCode:
		// Same wording as a bad password: the response never reveals which
		// factor failed.
		writeError(w, http.StatusUnauthorized, domain.ErrInvalidCredentials.Error())
	case domain.LoginRateLimited:
		writeError(w, http.StatusTooManyRequests, domain.ErrRateLimited.Error())
	case domain.LoginDeliveryFailed:
		writeError(w, http.StatusBadGateway, domain.ErrDeliveryFailed.Error())
	default:
		writeError(w, http.StatusInternalServerError, "unknown login outcome")
	}
}
