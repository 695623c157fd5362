package assess

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"company-risk-poc/registry"
	"company-risk-poc/report"
	"company-risk-poc/risk"
	"company-risk-poc/store"
)

// Router mounts the assessment API.
func Router(svc *Service) chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", healthHandler)
	r.Post("/assess", svc.assessHandler)
	r.Get("/assessments/{cnpj}", svc.latestHandler)
	r.Get("/report/{cnpj}", svc.reportHandler)
	r.Post("/typosquatting", typosquattingHandler)
	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) assessHandler(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.CNPJ) == "" {
		http.Error(w, "cnpj required", http.StatusBadRequest)
		return
	}

	result, err := s.Assess(r.Context(), req)
	if err != nil {
		log.Printf("[api] assessment failed for %q: %v", req.CNPJ, err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Service) latestHandler(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		http.Error(w, "persistence not configured", http.StatusServiceUnavailable)
		return
	}
	cnpj := chi.URLParam(r, "cnpj")
	rec, err := s.Store.LatestAssessment(r.Context(), cnpj)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "no assessment for this CNPJ", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[api] assessment lookup failed for %q: %v", cnpj, err)
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Service) reportHandler(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		http.Error(w, "persistence not configured", http.StatusServiceUnavailable)
		return
	}
	cnpj := chi.URLParam(r, "cnpj")
	rec, err := s.Store.LatestAssessment(r.Context(), cnpj)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "no assessment for this CNPJ", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[api] report lookup failed for %q: %v", cnpj, err)
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}

	var result Result
	if err := json.Unmarshal(rec.Payload, &result); err != nil {
		log.Printf("[api] stored assessment for %q is unreadable: %v", cnpj, err)
		http.Error(w, "stored assessment unreadable", http.StatusInternalServerError)
		return
	}

	xlsx, err := report.Generate(report.Input{
		Company:     result.Company,
		Location:    result.Location,
		Observation: result.Observation,
		Assessment:  result.Assessment,
		GeneratedAt: time.Now(),
	})
	if err != nil {
		log.Printf("[api] report generation failed for %q: %v", cnpj, err)
		http.Error(w, "report generation failed", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("risk_assessment_%s.xlsx", registry.CleanCNPJ(cnpj))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xlsx)
}

type typosquattingRequest struct {
	RegisteredDomain string   `json:"registered_domain"`
	ReferenceDomain  string   `json:"reference_domain"`
	Threshold        *float64 `json:"threshold,omitempty"`
}

func typosquattingHandler(w http.ResponseWriter, r *http.Request) {
	var req typosquattingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	threshold := risk.DefaultSimilarityThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	result := risk.DetectTyposquatting(req.RegisteredDomain, req.ReferenceDomain, threshold)
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] response encode failed: %v", err)
	}
}
