// Package api exposes the controller's admin surface: node CRUD, health
// classification, and user synchronization.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"proxy-fleet/pkg/auth"
	"proxy-fleet/pkg/journal"
	"proxy-fleet/pkg/node"
	"proxy-fleet/pkg/store"
)

// Deps carries everything the handlers need. DB and Journal may be nil:
// persistence-backed endpoints then answer 503 and the journal listing is
// empty. Mirror must be non-nil; pass store.NewNoop() when mirroring is
// disabled.
type Deps struct {
	DB      *gorm.DB
	Nodes   *node.Manager
	Mirror  store.ConfigMirror
	Journal *journal.Journal
	Logger  *logrus.Entry
}

// RegisterRoutes wires the HTTP handlers on the provided mux. token, when
// non-empty, is accepted as a static bootstrap credential alongside JWT.
func RegisterRoutes(mux *http.ServeMux, d Deps, token string) {
	authed := d.authFunc(token)

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("proxy-fleet controller"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if d.DB != nil {
		a := &AuthHandler{DB: d.DB, Logger: d.Logger}
		a.RegisterRoutes(mux)
	}

	mux.HandleFunc("/api/v1/nodes", guard(authed, d.handleNodes))
	mux.HandleFunc("/api/v1/nodes/remove", guard(authed, d.handleNodeRemove))
	mux.HandleFunc("/api/v1/nodes/health", guard(authed, d.handleNodeHealth))
	mux.HandleFunc("/api/v1/users", guard(authed, d.handleUserUpsert))
	mux.HandleFunc("/api/v1/users/remove", guard(authed, d.handleUserRemove))
	mux.HandleFunc("/api/v1/users/sync", guard(authed, d.handleUserSync))
	mux.HandleFunc("/api/v1/journal", guard(authed, d.handleJournal))
}

func guard(authed func(*http.Request) bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// authFunc accepts either the static bootstrap token or a valid admin JWT.
// An empty token leaves JWT as the only credential.
func (d Deps) authFunc(token string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		h := r.Header.Get("Authorization")
		if strings.HasPrefix(h, "Bearer ") {
			bearer := strings.TrimPrefix(h, "Bearer ")
			if token != "" && bearer == token {
				return true
			}
			if _, err := auth.Parse(bearer); err == nil {
				return true
			}
		}
		if token != "" && r.Header.Get("X-Auth-Token") == token {
			return true
		}
		return false
	}
}

// requireDB rejects requests that need persistence when no database is
// configured.
func (d Deps) requireDB(w http.ResponseWriter) bool {
	if d.DB == nil {
		http.Error(w, "database not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (d Deps) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		d.Logger.WithError(err).Error("failed to write response")
	}
}
