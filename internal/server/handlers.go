package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/revenue-intel/internal/backfill"
	"github.com/sells-group/revenue-intel/internal/crm"
	"github.com/sells-group/revenue-intel/internal/export"
	"github.com/sells-group/revenue-intel/internal/forecast"
	"github.com/sells-group/revenue-intel/internal/scenario"
	"github.com/sells-group/revenue-intel/internal/settings"
)

// maxBodyBytes bounds settings and scenario payloads.
const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if !s.requirePool(w) {
		return
	}
	respondData(w, http.StatusOK, settings.LoadResolved(r.Context(), s.pool, s.defaults))
}

func (s *Server) handleGetDefaults(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, s.defaults)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	if !s.requirePool(w) {
		return
	}
	doc, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidPayload, "unreadable request body")
		return
	}

	if err := settings.SaveDoc(r.Context(), s.pool, doc); err != nil {
		var obj map[string]json.RawMessage
		if json.Unmarshal(doc, &obj) != nil {
			respondError(w, http.StatusBadRequest, codeInvalidPayload, "settings document must be a JSON object")
			return
		}
		s.internalError(w, "save settings", err)
		return
	}
	respondData(w, http.StatusOK, settings.LoadResolved(r.Context(), s.pool, s.defaults))
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if !s.requirePool(w) {
		return
	}
	res, err := s.agg.Forecast(r.Context(), forecastOptions(r), time.Now())
	if err != nil {
		s.internalError(w, "forecast", err)
		return
	}
	respondData(w, http.StatusOK, res)
}

func (s *Server) handleForecastExport(w http.ResponseWriter, r *http.Request) {
	if !s.requirePool(w) {
		return
	}
	res, err := s.agg.Forecast(r.Context(), forecastOptions(r), time.Now())
	if err != nil {
		s.internalError(w, "forecast export", err)
		return
	}

	name := fmt.Sprintf("forecast-%s-%s.xlsx", res.Period, res.StartDate.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := export.ForecastXLSX(w, res); err != nil {
		// Headers are gone; all we can do is log.
		zap.L().Error("server: stream forecast workbook", zap.Error(err))
	}
}

func (s *Server) handleDealScore(w http.ResponseWriter, r *http.Request) {
	if !s.requirePool(w) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "dealID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidID, "dealID must be a UUID")
		return
	}

	deal, err := crm.GetDeal(r.Context(), s.pool, id)
	if err != nil {
		if eris.Is(err, crm.ErrNotFound) {
			respondError(w, http.StatusNotFound, codeNotFound, "deal not found")
			return
		}
		s.internalError(w, "get deal", err)
		return
	}

	scored, err := s.agg.ScoreOne(r.Context(), *deal, time.Now())
	if err != nil {
		s.internalError(w, "score deal", err)
		return
	}
	respondData(w, http.StatusOK, scored)
}

func (s *Server) handleRepPerformance(w http.ResponseWriter, r *http.Request) {
	if !s.requirePool(w) {
		return
	}
	stats, err := s.agg.RepPerformance(r.Context(), r.URL.Query().Get("period"), time.Now())
	if err != nil {
		s.internalError(w, "rep performance", err)
		return
	}
	respondData(w, http.StatusOK, stats)
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	if !s.requirePool(w) {
		return
	}
	var req scenario.Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidPayload, "invalid scenario payload")
		return
	}

	res, err := s.sim.Simulate(r.Context(), req, time.Now())
	if err != nil {
		s.internalError(w, "scenario", err)
		return
	}
	respondData(w, http.StatusOK, res)
}

func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	if !s.requirePool(w) {
		return
	}
	res, err := backfill.Run(r.Context(), s.pool)
	if err != nil {
		s.internalError(w, "backfill", err)
		return
	}
	respondData(w, http.StatusOK, res)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	zap.L().Error("server: "+op, zap.Error(err))
	respondError(w, http.StatusInternalServerError, codeInternal, "internal error")
}

// forecastOptions maps query parameters onto aggregation options.
func forecastOptions(r *http.Request) forecast.Options {
	q := r.URL.Query()
	return forecast.Options{
		Period:         q.Get("period"),
		StartDate:      q.Get("startDate"),
		EndDate:        q.Get("endDate"),
		OwnerID:        q.Get("ownerId"),
		ExcludeOverdue: q.Get("excludeOverdue") == "true",
	}
}
