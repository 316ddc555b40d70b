package rig

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"
)

// Command is the body of POST /api/actuators/{name}. Exactly one field is
// expected; speed wins over angle, angle over invert.
type Command struct {
	Speed  *float64 `json:"speed,omitempty"`
	Angle  *float64 `json:"angle,omitempty"`
	Invert *bool    `json:"invert,omitempty"`
}

func (r *Rig) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/actuators", r.handleList)
	mux.HandleFunc("GET /api/actuators/{name}", r.handleGet)
	mux.HandleFunc("POST /api/actuators/{name}", r.handleCommand)
	mux.HandleFunc("POST /api/actuators/{name}/stop", r.handleStopOne)
	mux.HandleFunc("POST /api/stop", r.handleStopAll)
	return mux
}

// Serve runs the HTTP control surface until ctx is done.
func (r *Rig) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: r.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Server running on http://%s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (r *Rig) handleList(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, r.Status())
}

func (r *Rig) handleGet(w http.ResponseWriter, req *http.Request) {
	s, err := r.status(req.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s)
}

func (r *Rig) handleCommand(w http.ResponseWriter, req *http.Request) {
	name := req.PathValue("name")
	var cmd Command
	if err := json.NewDecoder(req.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var err error
	switch {
	case cmd.Speed != nil:
		err = r.SetSpeed(name, *cmd.Speed)
	case cmd.Angle != nil:
		err = r.SetAngle(name, *cmd.Angle)
	case cmd.Invert != nil:
		err = r.SetDirection(name, *cmd.Invert)
	default:
		http.Error(w, "expected one of speed, angle, invert", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	r.handleGet(w, req)
}

func (r *Rig) handleStopOne(w http.ResponseWriter, req *http.Request) {
	if err := r.Stop(req.PathValue("name")); err != nil {
		writeError(w, err)
		return
	}
	r.handleGet(w, req)
}

func (r *Rig) handleStopAll(w http.ResponseWriter, req *http.Request) {
	r.StopAll()
	writeJSON(w, r.Status())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUnknownActuator):
		status = http.StatusNotFound
	case errors.Is(err, ErrUnsupported):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}
