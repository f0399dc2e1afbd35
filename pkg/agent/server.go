package agent

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/deviceclient"
	"liyu1981.xyz/relay-sync-service/pkg/models"
)

// NewRouter exposes the local surface the coordinator talks to: the wake
// endpoints, the three control tiers and the switch status.
func NewRouter(a *Agent) *mux.Router {
	r := mux.NewRouter()

	wake := func(w http.ResponseWriter, _ *http.Request) {
		a.RequestSync()
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
	r.HandleFunc("/script/sync", wake).Methods("GET")
	r.HandleFunc("/rpc/Agent.Sync", wake).Methods("GET")
	r.HandleFunc("/sync", wake).Methods("GET")

	r.HandleFunc(deviceclient.PathScriptControl, func(w http.ResponseWriter, r *http.Request) {
		action := models.ControlAction(r.URL.Query().Get("action"))
		command(a, w, r, action)
	}).Methods("GET")

	r.HandleFunc(deviceclient.PathSwitchSet, func(w http.ResponseWriter, r *http.Request) {
		on, err := strconv.ParseBool(r.URL.Query().Get("on"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "on must be true or false"})
			return
		}
		command(a, w, r, models.ControlFor(on))
	}).Methods("GET")

	r.HandleFunc(deviceclient.PathSwitchClear, func(w http.ResponseWriter, r *http.Request) {
		command(a, w, r, models.ControlClear)
	}).Methods("GET")

	r.HandleFunc(deviceclient.PathLegacyRelay, func(w http.ResponseWriter, r *http.Request) {
		action := models.ControlAction(r.URL.Query().Get("turn"))
		if action == "auto" {
			action = models.ControlClear
		}
		command(a, w, r, action)
	}).Methods("GET")

	r.HandleFunc(deviceclient.PathSwitchStatus, func(w http.ResponseWriter, _ *http.Request) {
		on, err := a.RelayState()
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, deviceclient.SwitchStatus{Output: on})
	}).Methods("GET")

	r.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, a.Status())
	}).Methods("GET")

	return r
}

func command(a *Agent, w http.ResponseWriter, r *http.Request, action models.ControlAction) {
	if err := a.Command(r.Context(), action); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, common.ErrValidation) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	on, _ := a.RelayState()
	writeJSON(w, http.StatusOK, deviceclient.SwitchStatus{Output: on})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
