package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/crmkit/segmint/internal/auth"
	"github.com/crmkit/segmint/internal/errs"
	"github.com/crmkit/segmint/internal/rules"
	"github.com/crmkit/segmint/internal/store"
	"github.com/crmkit/segmint/internal/telemetry"
	"github.com/crmkit/segmint/internal/validation"
)

type generateRequest struct {
	Prompt string `json:"prompt"`
}

// generateResponse keeps the {"rules": ...} shape the HTTP bridge decodes.
type generateResponse struct {
	Rules       rules.Group `json:"rules"`
	ID          string      `json:"id,omitempty"`
	Fingerprint string      `json:"fingerprint"`
}

type historyResponse struct {
	Generations []store.Generation `json:"generations"`
	Count       int                `json:"count"`
}

type validateResponse struct {
	Valid       bool     `json:"valid"`
	Errors      []string `json:"errors"`
	JSONLogic   string   `json:"jsonlogic,omitempty"`
	Conditions  int      `json:"conditions"`
	Depth       int      `json:"depth"`
	Fingerprint string   `json:"fingerprint"`
}

func (s *Server) handleGenerateRules(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if result := validation.ValidatePrompt(req.Prompt); !result.Valid {
		ValidationError(w, r, "Validation failed", result.Errors)
		return
	}

	provider := s.gen.Name()
	start := time.Now()
	tree, err := s.gen.Generate(r.Context(), req.Prompt)
	if err == nil && s.strict {
		if verr := rules.Validate(tree); verr != nil {
			err = &errs.ServiceError{Op: "generate rules", Message: "generated rules rejected: " + verr.Error(), Err: verr}
		}
	}
	elapsed := time.Since(start)
	telemetry.ObserveGeneration(provider, err == nil, elapsed)

	rec, recErr := s.store.RecordGeneration(r.Context(), store.RecordParams{
		Prompt:   req.Prompt,
		Provider: provider,
		Rules:    tree,
		Err:      err,
		Duration: elapsed,
	})
	if recErr != nil {
		s.log.Warn().Err(recErr).Msg("failed to record generation")
	}

	entry := auth.NewAuditEntry(r, "generate_rules", "segmentrules")
	entry.Details = map[string]any{"provider": provider, "duration_ms": elapsed.Milliseconds()}

	if err != nil {
		entry.Status = http.StatusBadGateway
		auth.LogAudit(s.log, entry)
		s.log.Error().Err(err).Str("provider", provider).Msg("rule generation failed")
		ServiceError(w, r, serviceMessage(err))
		return
	}

	resp := generateResponse{Rules: tree, Fingerprint: rules.Fingerprint(tree)}
	if rec != nil {
		resp.ID = rec.ID.String()
	}
	entry.Status = http.StatusOK
	entry.Details["conditions"] = rules.Count(tree)
	auth.LogAudit(s.log, entry)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	gens, err := s.store.ListGenerations(r.Context(), parseLimit(r))
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list generations")
		InternalError(w, r, "Failed to load generation history")
		return
	}
	if gens == nil {
		gens = []store.Generation{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Generations: gens, Count: len(gens)})
}

func (s *Server) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		BadRequestError(w, r, ErrCodeInvalidID, "Generation ID must be a UUID")
		return
	}

	gen, err := s.store.GetGeneration(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		NotFoundError(w, r, "Generation not found")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("id", id.String()).Msg("failed to load generation")
		InternalError(w, r, "Failed to load generation")
		return
	}
	writeJSON(w, http.StatusOK, gen)
}

// handleValidateRules checks a tree without storing it. Invalid trees still
// get 200; the verdict is in the body.
func (s *Server) handleValidateRules(w http.ResponseWriter, r *http.Request) {
	var tree rules.Group
	if !decodeBody(w, r, &tree) {
		return
	}

	resp := validateResponse{
		Errors:      []string{},
		Conditions:  rules.Count(tree),
		Depth:       rules.Depth(tree),
		Fingerprint: rules.Fingerprint(tree),
	}
	if tree.Operator.IsKnown() {
		// unknown root logic is already reported by ValidateAll
		for _, msg := range validation.ValidateRuleShape(tree).Errors {
			resp.Errors = append(resp.Errors, msg)
		}
	}
	for _, err := range rules.ValidateAll(tree) {
		resp.Errors = append(resp.Errors, err.Error())
	}
	resp.Valid = len(resp.Errors) == 0

	if resp.Valid {
		expr, err := rules.CompileJSONLogic(tree)
		if err != nil {
			resp.Valid = false
			resp.Errors = append(resp.Errors, err.Error())
		} else {
			resp.JSONLogic = expr
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
