package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-publish-agent/internal/errors"
	"github.com/jrsteele09/go-publish-agent/schedule"
)

type scheduleResponse struct {
	Config   schedule.Config           `json:"config"`
	Schedule map[string]schedule.Entry `json:"schedule"`
	Triggers []schedule.TriggerInfo    `json:"triggers"`
}

type updateConfigRequest struct {
	Config *schedule.Config `json:"config"`
}

type upsertTimeRequest struct {
	OldTime string          `json:"oldTime"`
	Time    string          `json:"time"`
	Record  json.RawMessage `json:"record"`
}

type timeRequest struct {
	Time string `json:"time"`
}

func (s *Server) GetScheduleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := s.scheduler.Document()
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeSuccess(w, "", scheduleResponse{
			Config:   doc.Config,
			Schedule: doc.Schedule,
			Triggers: s.scheduler.Triggers(),
		})
	}
}

func (s *Server) UpdateScheduleConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateConfigRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.Config == nil {
			writeError(w, r, fmt.Errorf("%w: config is required", apperrors.ErrValidation))
			return
		}
		if err := s.scheduler.UpdateConfig(*req.Config); err != nil {
			writeError(w, r, err)
			return
		}
		writeSuccess(w, "Config updated", nil)
	}
}

func (s *Server) UpsertScheduleTimeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req upsertTimeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.Time == "" || len(req.Record) == 0 {
			writeError(w, r, fmt.Errorf("%w: time and record are required", apperrors.ErrValidation))
			return
		}
		var entry schedule.Entry
		if err := json.Unmarshal(req.Record, &entry); err != nil {
			writeError(w, r, fmt.Errorf("%w: malformed record: %v", apperrors.ErrValidation, err))
			return
		}

		if err := s.scheduler.UpsertTimeEntry(req.OldTime, req.Time, entry); err != nil {
			writeError(w, r, err)
			return
		}
		writeSuccess(w, "Schedule updated", map[string]string{"time": req.Time})
	}
}

func (s *Server) DeleteScheduleTimeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req timeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.Time == "" {
			writeError(w, r, fmt.Errorf("%w: time is required", apperrors.ErrValidation))
			return
		}
		if err := s.scheduler.DeleteTimeEntry(req.Time); err != nil {
			writeError(w, r, err)
			return
		}
		writeSuccess(w, "Schedule entry deleted", map[string]string{"time": req.Time})
	}
}

// FireScheduleHandler runs one trigger immediately and waits for the post.
func (s *Server) FireScheduleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req timeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.scheduler.Fire(r.Context(), req.Time); err != nil {
			writeError(w, r, err)
			return
		}
		writeSuccess(w, "Trigger fired", map[string]string{"time": req.Time})
	}
}
