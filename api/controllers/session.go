package controllers

import (
	"net/http"

	"github.com/angelmondragon/plexo-core/api/responses"
	"github.com/angelmondragon/plexo-core/api/validators"
	"github.com/angelmondragon/plexo-core/internal/lifecycle"
	"github.com/angelmondragon/plexo-core/pkg/logger"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SessionSnapshot returns the full session mirror.
func SessionSnapshot(sess Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeState(w, sess, http.StatusOK, sess.Snapshot())
	}
}

// SessionStart restores the remembered user, if any.
func SessionStart(sess Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sess.Start(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeState(w, sess, http.StatusOK, sess.Snapshot())
	}
}

func AuthRegister(sess Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req lifecycle.RegisterInput
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := sess.Register(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeState(w, sess, http.StatusCreated, user)
	}
}

func AuthLogin(sess Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := sess.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeState(w, sess, http.StatusOK, user)
	}
}

func AuthLogout(sess Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess.Logout(r.Context())
		writeState(w, sess, http.StatusOK, map[string]bool{"signedOut": true})
	}
}

// ProfileUpdate applies a partial profile change to the signed-in user.
func ProfileUpdate(sess Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req lifecycle.ProfileUpdate
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := sess.UpdateProfile(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeState(w, sess, http.StatusOK, user)
	}
}
