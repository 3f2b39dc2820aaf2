package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"proxy-fleet/pkg/db"
	"proxy-fleet/pkg/model"
	"proxy-fleet/pkg/node"
)

func (d Deps) handleNodes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		d.listNodes(w, r)
	case http.MethodPost:
		d.upsertNode(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (d Deps) listNodes(w http.ResponseWriter, r *http.Request) {
	if !d.requireDB(w) {
		return
	}
	rows, err := db.ListNodes(d.DB)
	if err != nil {
		http.Error(w, "failed to list nodes", http.StatusInternalServerError)
		return
	}
	out := make([]NodeView, 0, len(rows))
	for _, n := range rows {
		view := NodeView{Node: n, Health: "unregistered"}
		if b, ok := d.Nodes.GetNode(n.ID); ok {
			if h, err := b.GetHealth(r.Context()); err == nil {
				view.Health = h.String()
			} else {
				view.Health = "unknown"
			}
		}
		out = append(out, view)
	}
	d.writeJSON(w, http.StatusOK, out)
}

func (d Deps) upsertNode(w http.ResponseWriter, r *http.Request) {
	if !d.requireDB(w) {
		return
	}
	var req NodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Address == "" || req.Port == 0 {
		http.Error(w, "name, address and port are required", http.StatusBadRequest)
		return
	}
	if req.ConnectionKind != model.ConnectionREST && req.ConnectionKind != model.ConnectionRPC {
		http.Error(w, "unknown connection kind", http.StatusBadRequest)
		return
	}
	if req.MaxLogs <= 0 {
		req.MaxLogs = 1000
	}
	if req.UsageCoefficient <= 0 {
		req.UsageCoefficient = 1
	}

	row := model.Node{
		ID:               req.ID,
		Name:             req.Name,
		Address:          req.Address,
		Port:             req.Port,
		ConnectionKind:   req.ConnectionKind,
		ServerCA:         req.ServerCA,
		APIKey:           req.APIKey,
		MaxLogs:          req.MaxLogs,
		UsageCoefficient: req.UsageCoefficient,
	}
	if err := db.UpsertNode(d.DB, &row); err != nil {
		http.Error(w, "failed to persist node", http.StatusInternalServerError)
		return
	}
	if err := d.Mirror.SaveNode(row); err != nil {
		d.Logger.WithField("node", row.ID).WithError(err).Warn("config mirror save failed")
	}

	if _, err := d.Nodes.UpdateNode(r.Context(), node.ConfigFromNode(row)); err != nil {
		http.Error(w, "failed to install node handle", http.StatusInternalServerError)
		return
	}
	d.Journal.Record(r.Context(), row.ID, "registered", string(row.ConnectionKind))
	d.Logger.WithField("node", row.ID).WithField("name", row.Name).Info("node registered")

	d.writeJSON(w, http.StatusOK, NodeView{Node: row, Health: node.HealthNotConnected.String()})
}

func (d Deps) handleNodeRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !d.requireDB(w) {
		return
	}
	var req struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := db.DeleteNode(d.DB, req.ID); err != nil {
		http.Error(w, "failed to delete node", http.StatusInternalServerError)
		return
	}
	if err := d.Mirror.DeleteNode(req.ID); err != nil {
		d.Logger.WithField("node", req.ID).WithError(err).Warn("config mirror delete failed")
	}
	d.Nodes.RemoveNode(r.Context(), req.ID)
	d.Journal.Record(r.Context(), req.ID, "removed", "")

	d.writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (d Deps) handleNodeHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	summary := HealthSummary{
		Healthy:      entryIDs(d.Nodes.GetHealthyNodes(ctx)),
		Broken:       entryIDs(d.Nodes.GetBrokenNodes(ctx)),
		NotConnected: entryIDs(d.Nodes.GetNotConnectedNodes(ctx)),
	}
	d.writeJSON(w, http.StatusOK, summary)
}

func (d Deps) handleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if d.Journal == nil {
		d.writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	entries, err := d.Journal.Recent(r.Context(), 50)
	if err != nil {
		http.Error(w, "failed to read journal", http.StatusInternalServerError)
		return
	}
	d.writeJSON(w, http.StatusOK, entries)
}

func entryIDs(entries []node.Entry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
