package internal

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Handler HTTP 請求處理器
//
// 這個服務沒有值得一提的 REST 介面，只有健康檢查與統計端點。
type Handler struct {
	core   *Core
	logger *slog.Logger
}

// NewHandler 創建 HTTP 處理器
func NewHandler(core *Core, logger *slog.Logger) *Handler {
	return &Handler{
		core:   core,
		logger: logger,
	}
}

// Routes 設定路由
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// 中間件鏈
	wrap := func(handler http.HandlerFunc) http.HandlerFunc {
		return h.recoverer(h.loggerMiddleware(handler))
	}

	mux.HandleFunc("GET /health", wrap(h.health))
	mux.HandleFunc("GET /stats", wrap(h.stats))

	return mux
}

// health 健康檢查
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]any{
		"status": "healthy",
		"time":   time.Now().Unix(),
	}, http.StatusOK)
}

// stats 統計資訊
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.core.Stats(), http.StatusOK)
}

// jsonResponse 返回 JSON 響應
func (h *Handler) jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("編碼 JSON 失敗", "error", err)
	}
}

// loggerMiddleware 日誌中間件
func (h *Handler) loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next(ww, r)

		h.logger.Info("HTTP 請求",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.statusCode,
			"duration", time.Since(start))
	}
}

// recoverer panic 恢復中間件
func (h *Handler) recoverer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.logger.Error("處理請求時發生 panic",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path)

				h.jsonResponse(w, map[string]any{
					"error": "內部伺服器錯誤",
				}, http.StatusInternalServerError)
			}
		}()

		next(w, r)
	}
}

// responseWriter 包裝 ResponseWriter 以獲取狀態碼
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
