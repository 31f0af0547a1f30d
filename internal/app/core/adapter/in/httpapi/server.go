// Package httpapi 提供唯讀的帳戶查詢 API、健康檢查與 Prometheus 指標
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// AccountQuery 是查詢 API 需要的操作 (usecase.CoreUseCase 實作)
type AccountQuery interface {
	CheckBalance(ctx context.Context, accountNumber int64) (decimal.Decimal, error)
	GetAccountInfo(ctx context.Context, accountNumber int64) (*domain.Account, error)
	GetTransactionHistory(ctx context.Context, accountNumber int64) ([]domain.Transaction, error)
	GetAccountNumberForUser(ctx context.Context, userID string) (int64, error)
}

// HealthCheck 回傳 nil 表示後端可用
type HealthCheck func(ctx context.Context) error

// Server HTTP 查詢服務
type Server struct {
	query  AccountQuery
	health HealthCheck
	logger *zap.Logger
}

// NewServer 建立 Server，health 可為 nil (永遠健康)
func NewServer(query AccountQuery, health HealthCheck, logger *zap.Logger) *Server {
	return &Server{query: query, health: health, logger: logger}
}

// Handler 回傳掛好所有路由的 chi router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/accounts/{accountNumber}", s.handleAccountInfo)
		r.Get("/accounts/{accountNumber}/balance", s.handleBalance)
		r.Get("/accounts/{accountNumber}/transactions", s.handleHistory)
		r.Get("/users/{userID}/account", s.handleAccountForUser)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Warn("Health check failed", zap.Error(err))
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAccountInfo(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := s.accountParam(w, r)
	if !ok {
		return
	}
	account, err := s.query.GetAccountInfo(r.Context(), accountNumber)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newAccountView(account))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := s.accountParam(w, r)
	if !ok {
		return
	}
	balance, err := s.query.CheckBalance(r.Context(), accountNumber)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"account_number": accountNumber,
		"balance":        balance,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	accountNumber, ok := s.accountParam(w, r)
	if !ok {
		return
	}
	history, err := s.query.GetTransactionHistory(r.Context(), accountNumber)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	views := make([]transactionView, 0, len(history))
	for i := range history {
		views = append(views, newTransactionView(&history[i]))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"account_number": accountNumber,
		"transactions":   views,
	})
}

func (s *Server) handleAccountForUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	accountNumber, err := s.query.GetAccountNumberForUser(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"user_id":        userID,
		"account_number": accountNumber,
	})
}

func (s *Server) accountParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "accountNumber")
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid account number: "+raw)
		return 0, false
	}
	return n, true
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Query failed", zap.Error(err))
	}
	s.writeError(w, status, err.Error())
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeJSON writes a JSON response with the given status code.
// header 已送出，編碼或寫入失敗只能記 log
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Write response failed", zap.Int("status", status), zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"status":  status,
		},
	})
}
