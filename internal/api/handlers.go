package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/julianstephens/daychain/internal/constants"
	"github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/planner"
	"github.com/julianstephens/daychain/internal/utils"
)

const (
	defaultNext = 3
	maxNext     = 50
)

// GenerateRequest overrides stored settings for one generation. Empty fields use the
// settings.
type GenerateRequest struct {
	UserID            string `json:"user_id"`
	Date              string `json:"date"`
	WakeTime          string `json:"wake_time"`
	SleepTime         string `json:"sleep_time"`
	Timezone          string `json:"timezone"`
	Energy            string `json:"energy"`
	CurrentLocation   string `json:"current_location"`
	MedicationPending bool   `json:"medication_pending"`
	// Now is RFC 3339. It defaults to the server clock.
	Now string `json:"now"`
}

type SkipRequest struct {
	Reason string `json:"reason"`
}

type RevisionRequest struct {
	ExpectedRevision int `json:"expected_revision"`
}

type AddStepRequest struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	DurationMin      int    `json:"duration_min"`
	AfterStepID      string `json:"after_step_id"`
	IsRequired       bool   `json:"is_required"`
	Remember         bool   `json:"remember"`
	ExpectedRevision int    `json:"expected_revision"`
}

type EditStepRequest struct {
	Name             *string  `json:"name"`
	DurationMin      *float64 `json:"duration_min"`
	Remember         bool     `json:"remember"`
	ExpectedRevision int      `json:"expected_revision"`
}

type BlockResponse struct {
	Block *models.TimeBlock `json:"block"`
}

type BlocksResponse struct {
	Blocks []models.TimeBlock `json:"blocks"`
}

// decode reads an optional JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errors.Validationf("invalid request body: %v", err)
	}
	return nil
}

// revision prefers the body value and falls back to ?revision=.
func revision(r *http.Request, body int) (int, error) {
	if body != 0 {
		return body, nil
	}
	q := r.URL.Query().Get("revision")
	if q == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(q)
	if err != nil || n < 0 {
		return 0, errors.Validationf("invalid revision %q", q)
	}
	return n, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	in := planner.InputFromSettings(settings, req.Date)
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&in.UserID, req.UserID)
	override(&in.WakeTime, req.WakeTime)
	override(&in.SleepTime, req.SleepTime)
	override(&in.Timezone, req.Timezone)
	override(&in.CurrentLocation, req.CurrentLocation)
	if req.Energy != "" {
		in.Energy = models.EnergyLevel(req.Energy)
	}
	if in.UserID == "" {
		in.UserID = constants.DefaultUserID
	}
	in.MedicationPending = req.MedicationPending

	if req.Now != "" {
		now, err := time.Parse(time.RFC3339, req.Now)
		if err != nil {
			writeError(w, r, errors.Validationf("invalid now %q, expected RFC 3339", req.Now))
			return
		}
		in.Now = now
	}
	if in.Date == "" {
		now := in.Now
		if now.IsZero() {
			now = time.Now()
		}
		loc, err := utils.LoadLocation(in.Timezone)
		if err != nil {
			writeError(w, r, errors.Validationf("invalid timezone %q", in.Timezone))
			return
		}
		in.Date = now.In(loc).Format(constants.DateFormat)
	}

	plan, err := s.builder.Generate(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.store.GetPlan(r.Context(), mux.Vars(r)["planID"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleGetPlanByDate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	plan, err := s.store.GetPlanByDate(r.Context(), vars["userID"], vars["date"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	blk, ok, err := s.sequencer.Current(r.Context(), mux.Vars(r)["planID"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := BlockResponse{}
	if ok {
		resp.Block = &blk
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	n := defaultNext
	if q := r.URL.Query().Get("n"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 1 || v > maxNext {
			writeError(w, r, errors.Validationf("n must be between 1 and %d", maxNext))
			return
		}
		n = v
	}
	blocks, err := s.sequencer.Next(r.Context(), mux.Vars(r)["planID"], n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if blocks == nil {
		blocks = []models.TimeBlock{}
	}
	writeJSON(w, http.StatusOK, BlocksResponse{Blocks: blocks})
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	blk, err := s.sequencer.MarkComplete(r.Context(), vars["planID"], vars["blockID"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BlockResponse{Block: &blk})
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	var req SkipRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	blk, err := s.sequencer.MarkSkipped(r.Context(), vars["planID"], vars["blockID"], req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BlockResponse{Block: &blk})
}

func (s *Server) handleDegrade(w http.ResponseWriter, r *http.Request) {
	var req RevisionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rev, err := revision(r, req.ExpectedRevision)
	if err != nil {
		writeError(w, r, err)
		return
	}
	plan, err := s.builder.Degrade(r.Context(), mux.Vars(r)["planID"], rev)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleAddStep(w http.ResponseWriter, r *http.Request) {
	var req AddStepRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rev, err := revision(r, req.ExpectedRevision)
	if err != nil {
		writeError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	res, err := s.builder.AddChainStep(r.Context(), vars["planID"], vars["chainID"], planner.NewStep{
		ID:          req.ID,
		Name:        req.Name,
		DurationMin: req.DurationMin,
		AfterStepID: req.AfterStepID,
		IsRequired:  req.IsRequired,
		Remember:    req.Remember,
	}, rev)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res.Plan)
}

func (s *Server) handleEditStep(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.editStep(w, r, vars["planID"], vars["chainID"], vars["stepID"])
}

// handleEditBlockStep addresses the step by its block id. A block removed by
// regeneration answers STALE_BLOCK_REFERENCE.
func (s *Server) handleEditBlockStep(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	chainID, stepID, err := s.builder.ResolveChainStep(r.Context(), vars["planID"], vars["blockID"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.editStep(w, r, vars["planID"], chainID, stepID)
}

func (s *Server) editStep(w http.ResponseWriter, r *http.Request, planID, chainID, stepID string) {
	var req EditStepRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rev, err := revision(r, req.ExpectedRevision)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.builder.EditChainStep(r.Context(), planID, chainID, stepID, planner.StepEdit{
		Name:        req.Name,
		DurationMin: req.DurationMin,
		Remember:    req.Remember,
	}, rev)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Plan)
}

func (s *Server) handleDeleteStep(w http.ResponseWriter, r *http.Request) {
	rev, err := revision(r, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	remember, _ := strconv.ParseBool(r.URL.Query().Get("remember"))
	vars := mux.Vars(r)
	res, err := s.builder.DeleteChainStep(r.Context(), vars["planID"], vars["chainID"], vars["stepID"], remember, rev)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Plan)
}
