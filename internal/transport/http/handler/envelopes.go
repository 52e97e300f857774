package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/auth-sms-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// SafeUser is the user view for the owner and admins: everything except
// the password hash.
type SafeUser struct {
	UserID              string `json:"id"`
	Username            string `json:"username"`
	Email               string `json:"email"`
	Mobile              string `json:"mobile,omitempty"`
	FirstName           string `json:"first_name,omitempty"`
	LastName            string `json:"last_name,omitempty"`
	Role                string `json:"role"`
	SecondFactorEnabled bool   `json:"second_factor_enabled"`
	Enable              bool   `json:"enable"`
}

// PublicUser is the view other users get: no contact details.
type PublicUser struct {
	UserID    string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// SafeSession is the session view without the refresh token.
type SafeSession struct {
	SessionID string `json:"id"`
	UserID    string `json:"user_id"`
	Enable    bool   `json:"enable"`
}

// AuthEnvelope wraps responses that establish a session.
type AuthEnvelope struct {
	AccessToken  string       `json:"access_token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	Session      *SafeSession `json:"session,omitempty"`
	User         *SafeUser    `json:"user,omitempty"`
	Message      string       `json:"message,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// ChallengeEnvelope tells the client a login is pending an SMS code. The
// secret must be round-tripped verbatim on the code submission: the server
// keeps only the obscured password, so without the secret the login cannot
// complete.
type ChallengeEnvelope struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	Secret    string `json:"secret"`
	Message   string `json:"message,omitempty"`
}

// SessionEnvelope wraps current-session responses.
type SessionEnvelope struct {
	Session *SafeSession `json:"session,omitempty"`
	User    *SafeUser    `json:"user,omitempty"`
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// PaginatedUsersEnvelope wraps cursor-paginated user list responses.
type PaginatedUsersEnvelope struct {
	Data       []*SafeUser `json:"data"`
	NextCursor string      `json:"next_cursor,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func toSafeUser(u *domain.User) *SafeUser {
	if u == nil {
		return nil
	}
	return &SafeUser{
		UserID:              u.UserID,
		Username:            u.Username,
		Email:               u.Email,
		Mobile:              u.Mobile,
		FirstName:           u.FirstName,
		LastName:            u.LastName,
		Role:                u.Role,
		SecondFactorEnabled: u.SecondFactorEnabled,
		Enable:              u.Enable,
	}
}

func toPublicUser(u *domain.User) *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		UserID:    u.UserID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func toSafeSession(s *domain.Session) *SafeSession {
	if s == nil {
		return nil
	}
	return &SafeSession{SessionID: s.SessionID, UserID: s.UserID, Enable: s.Enable}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain sentinel errors onto HTTP statuses.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrWrongCode):
		// Outside the login flow there is nothing to keep opaque: the caller
		// already holds a session.
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrNoCodeProvided):
		// Recoverable: the client must resubmit with the SMS code filled in.
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrDeliveryFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
