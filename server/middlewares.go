package server

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/rs/xid"

	"golang_saga/api"
	"golang_saga/log"
)

type Middleware func(h http.Handler) http.Handler

// ApplyMiddlewares 依次包装, 最后一个在最外层
func ApplyMiddlewares(handler http.Handler, middlewares ...Middleware) http.Handler {
	for _, m := range middlewares {
		handler = m(handler)
	}
	return handler
}

// RequestIDMiddleware 沿用调用方的 X-Request-ID, 没有则生成一个
func RequestIDMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(api.HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = xid.New().String()
		}
		rw.Header().Set(api.HeaderRequestID, id)
		handler.ServeHTTP(rw, r.WithContext(log.WithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func LoggingMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: rw, status: http.StatusOK}
		handler.ServeHTTP(rec, r)
		log.InfoContextf(r.Context(), "%s %s %d (%s)", r.Method, r.URL.RequestURI(), rec.status, time.Since(start))
	})
}

func RecoveryMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				log.ErrorContextf(r.Context(), "panic (recovered): %v %s", v, string(debug.Stack()))
				SendError(rw, http.StatusInternalServerError, "internal server error")
			}
		}()
		handler.ServeHTTP(rw, r)
	})
}
