package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jordigilh/orch/internal/dto"
	"github.com/jordigilh/orch/internal/model"
	"github.com/jordigilh/orch/internal/orcherr"
	"github.com/jordigilh/orch/internal/store"
)

var validate = validator.New()

type indexResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, indexResponse{Service: "orch", Version: version})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListFlows(r.Context(), store.ListFilter{}); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"healthy": "yes"})
}

// requestNewFlow mirrors orch.schemas.RequestNewFlow.
type requestNewFlow struct {
	Name       string        `json:"name" validate:"required"`
	Args       model.JSONMap `json:"args"`
	WebhookURL *string       `json:"webhook_url" validate:"omitempty,url"`
	Priority   int           `json:"priority"`
}

func (s *Server) handleCreateFlow(w http.ResponseWriter, r *http.Request) {
	var req requestNewFlow
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}
	if req.Args == nil {
		req.Args = model.JSONMap{}
	}

	tmpl, err := s.registry.NewFlow(req.Name, req.Args)
	if err != nil {
		writeAppError(w, err)
		return
	}

	specs, err := tmpl.Tasks()
	if err != nil {
		writeAppError(w, err)
		return
	}

	tasks := make([]store.NewTask, 0, len(specs))
	for _, spec := range specs {
		tasks = append(tasks, store.NewTask{Name: spec.Name, Args: spec.Args})
	}

	flow, err := s.store.CreateFlow(r.Context(), req.Name, req.Args, req.WebhookURL, req.Priority, tasks)
	if err != nil {
		writeAppError(w, err)
		return
	}

	s.logger.Info("flow received")
	writeJSON(w, http.StatusCreated, dto.FlowFromModel(*flow))
}

func (s *Server) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	id, err := parseFlowID(r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	flow, err := s.store.GetFlowByID(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FlowFromModel(*flow))
}

func (s *Server) handleListFlows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ListFilter{}

	if name := q.Get("name"); name != "" {
		filter.Name = &name
	}
	if raw := q.Get("ids"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := uuid.Parse(strings.TrimSpace(part))
			if err != nil {
				writeError(w, http.StatusBadRequest, "malformed id in ids filter")
				return
			}
			filter.IDs = append(filter.IDs, id)
		}
	}
	if raw := q.Get("created_from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed created_from")
			return
		}
		filter.CreatedFrom = &t
	}
	if raw := q.Get("created_to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed created_to")
			return
		}
		filter.CreatedTo = &t
	}
	if raw := q.Get("priority"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed priority")
			return
		}
		filter.Priority = &p
	}

	flows, err := s.store.ListFlows(r.Context(), filter)
	if err != nil {
		writeAppError(w, err)
		return
	}

	resp := dto.ExecutedFlows{Count: len(flows), Flows: make([]dto.Flow, 0, len(flows))}
	for _, f := range flows {
		resp.Flows = append(resp.Flows, dto.FlowFromModel(f))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUnblockFlow(w http.ResponseWriter, r *http.Request) {
	id, err := parseFlowID(r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	if _, err := s.store.GetFlowByID(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}

	var payload model.JSONMap
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	s.logger.Info("flow webhook received")

	if err := s.advancer.Unblock(r.Context(), id, payload); err != nil {
		writeAppError(w, err)
		return
	}

	flow, err := s.store.GetFlowByID(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FlowFromModel(*flow))
}

func (s *Server) handleRetryFlow(w http.ResponseWriter, r *http.Request) {
	id, err := parseFlowID(r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	if _, err := s.store.GetFlowByID(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}

	s.logger.Info("retry failed tasks received")

	if err := s.advancer.RetryFailed(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}

	flow, err := s.store.GetFlowByID(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FlowFromModel(*flow))
}

func parseFlowID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "flowID"))
	if err != nil {
		return uuid.Nil, orcherr.NewValidationError("malformed flow id")
	}
	return id, nil
}

// errorResponse mirrors orch.schemas.ResponseError.
type errorResponse struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func writeAppError(w http.ResponseWriter, err error) {
	writeError(w, orcherr.GetStatusCode(err), orcherr.SafeErrorMessage(err))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{StatusCode: status, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
