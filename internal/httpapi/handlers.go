package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/respond"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respond.Error(w, http.StatusBadRequest)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := goSession.StatusCode(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("httpapi: request failed")
	}
	respond.Error(w, status)
}

func currentSession(w http.ResponseWriter, r *http.Request) (*goSession.Session, bool) {
	sess, ok := goSession.SessionFromContext(r.Context())
	if !ok {
		zerolog.Ctx(r.Context()).Error().Msg("httpapi: route served without session middleware")
		respond.Error(w, http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.engine.Ping(ctx); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("httpapi: health check failed")
		respond.Error(w, http.StatusServiceUnavailable)
		return
	}
	respond.Success(w, http.StatusOK, map[string]string{"store": "ok"})
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	res, err := a.engine.Login(r.Context(), sess, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Success(w, http.StatusOK, res)
}

func (a *api) logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	if err := a.engine.Logout(r.Context(), sess); err != nil {
		writeError(w, r, err)
		return
	}
	respond.Success(w, http.StatusOK, nil)
}

func (a *api) renew(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	u, err := a.engine.RenewUser(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.engine.ClearRenewSignal(w)
	respond.Success(w, http.StatusOK, u)
}

func (a *api) signUp(w http.ResponseWriter, r *http.Request) {
	var in goSession.SignUpInput
	if !decode(w, r, &in) {
		return
	}
	pub, err := a.engine.SignUp(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Success(w, http.StatusCreated, pub)
}

func (a *api) me(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	respond.Success(w, http.StatusOK, sess.User())
}

func (a *api) revoke(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	n, err := a.engine.RevokeUserSessions(r.Context(), sess.User().ID, sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Success(w, http.StatusOK, map[string]int{"revoked": n})
}
