// Package api is a thin HTTP wrapper around the report package: each request
// aggregates over a fresh snapshot of the record store and returns JSON. No
// state is held between requests.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/crashlens/internal/aggregate"
	"github.com/lox/crashlens/internal/metrics"
	"github.com/lox/crashlens/internal/report"
	"github.com/lox/crashlens/internal/store"
)

type Server struct {
	store *store.Store
	port  string
}

func NewServer(store *store.Store, port string) *Server {
	return &Server{store: store, port: port}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/report", s.handleReport)
	mux.HandleFunc("/api/risk", s.handleRisk)
	mux.HandleFunc("/api/factors", s.handleFactors)
	mux.HandleFunc("/api/crosstab", s.handleCrossTab)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.CountCrashes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "crashes": count})
}

type conditionRowView struct {
	Condition   string  `json:"condition"`
	CrashCount  int     `json:"crash_count"`
	Fatalities  int64   `json:"fatalities"`
	Injuries    int64   `json:"injuries"`
	AvgSeverity float64 `json:"avg_severity"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	cat := report.Category(r.URL.Query().Get("category"))

	records, err := s.store.GetAllCrashes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	rows, err := report.ByCategory(records, cat)
	if err != nil {
		if errors.Is(err, report.ErrUnknownCategory) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ReportsServed.WithLabelValues("category").Inc()

	views := make([]conditionRowView, 0, len(rows))
	for _, row := range rows {
		views = append(views, conditionRowView{
			Condition:   report.ConditionLabel(row.Condition),
			CrashCount:  row.CrashCount,
			Fatalities:  row.Fatalities,
			Injuries:    row.Injuries,
			AvgSeverity: row.AvgSeverity,
		})
	}
	writeJSON(w, views)
}

type riskRowView struct {
	RoadCondition    string  `json:"road_condition"`
	WeatherCondition string  `json:"weather_condition"`
	CrashCount       int     `json:"crash_count"`
	RiskScore        float64 `json:"risk_score"`
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.GetAllCrashes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	rows, err := report.RiskByConditions(records)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ReportsServed.WithLabelValues("risk").Inc()

	views := make([]riskRowView, 0, len(rows))
	for _, row := range rows {
		views = append(views, riskRowView{
			RoadCondition:    report.ConditionLabel(row.RoadCondition),
			WeatherCondition: report.ConditionLabel(row.WeatherCondition),
			CrashCount:       row.CrashCount,
			RiskScore:        row.RiskScore,
		})
	}
	writeJSON(w, views)
}

func (s *Server) handleFactors(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.GetAllCrashes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ReportsServed.WithLabelValues("factors").Inc()
	writeJSON(w, report.Prevalence(records, report.DefaultFactors))
}

type crossTabRowView struct {
	RoadCondition string `json:"road_condition"`
	Total         int    `json:"total"`
	Daylight      int    `json:"daylight"`
	Dark          int    `json:"dark"`
}

func (s *Server) handleCrossTab(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.GetAllCrashes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	rows, err := aggregate.CrossTab(records, aggregate.DimRoadCondition, aggregate.DaylightVsDark)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ReportsServed.WithLabelValues("crosstab").Inc()

	views := make([]crossTabRowView, 0, len(rows))
	for _, row := range rows {
		views = append(views, crossTabRowView{
			RoadCondition: report.ConditionLabel(row.Key),
			Total:         row.Total,
			Daylight:      row.Counts[0],
			Dark:          row.Counts[1],
		})
	}
	writeJSON(w, views)
}

type summaryRowView struct {
	Year             int     `json:"year"`
	Month            int     `json:"month"`
	RoadCondition    string  `json:"road_condition"`
	WeatherCondition string  `json:"weather_condition"`
	LightCondition   string  `json:"light_condition"`
	CrashCount       int64   `json:"crash_count"`
	Fatalities       int64   `json:"fatalities"`
	Injuries         int64   `json:"injuries"`
	AvgSeverity      float64 `json:"avg_severity"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.GetConditionSummary()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ReportsServed.WithLabelValues("summary").Inc()

	views := make([]summaryRowView, 0, len(rows))
	for _, row := range rows {
		views = append(views, summaryRowView{
			Year:             row.Year,
			Month:            row.Month,
			RoadCondition:    report.ConditionLabel(row.RoadCondition),
			WeatherCondition: report.ConditionLabel(row.WeatherCondition),
			LightCondition:   report.ConditionLabel(row.LightCondition),
			CrashCount:       row.CrashCount,
			Fatalities:       row.Fatalities,
			Injuries:         row.Injuries,
			AvgSeverity:      row.AvgSeverity,
		})
	}
	writeJSON(w, views)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}
