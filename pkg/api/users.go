package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"proxy-fleet/pkg/db"
	"proxy-fleet/pkg/model"
)

func (d Deps) handleUserUpsert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !d.requireDB(w) {
		return
	}
	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	row := model.User{
		Username:      req.Username,
		ProxySettings: req.ProxySettings,
		Inbounds:      req.Inbounds,
		Enabled:       enabled,
	}
	if existing, err := db.GetUserByUsername(d.DB, req.Username); err == nil {
		row.ID = existing.ID
	}
	if err := db.UpsertUser(d.DB, &row); err != nil {
		http.Error(w, "failed to persist user", http.StatusInternalServerError)
		return
	}

	// The broadcast is best-effort; nodes that miss it catch up on the next
	// periodic sync.
	if enabled {
		d.Nodes.UpdateUser(r.Context(), row, row.Inbounds)
	} else {
		d.Nodes.RemoveUser(r.Context(), row)
	}

	d.writeJSON(w, http.StatusOK, row)
}

func (d Deps) handleUserRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !d.requireDB(w) {
		return
	}
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	row, err := db.GetUserByUsername(d.DB, req.Username)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to load user", http.StatusInternalServerError)
		return
	}
	if err := db.DeleteUser(d.DB, row.ID); err != nil {
		http.Error(w, "failed to delete user", http.StatusInternalServerError)
		return
	}
	d.Nodes.RemoveUser(r.Context(), row)

	d.writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (d Deps) handleUserSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !d.requireDB(w) {
		return
	}
	users, err := db.ListEnabledUsers(d.DB)
	if err != nil {
		http.Error(w, "failed to list users", http.StatusInternalServerError)
		return
	}
	d.Nodes.UpdateUsers(r.Context(), users)

	d.writeJSON(w, http.StatusOK, map[string]int{
		"users": len(users),
		"nodes": d.Nodes.Len(),
	})
}
