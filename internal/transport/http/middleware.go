package http

import (
	"net/http"

	"github.com/MadAppGang/httplog"
	"github.com/rs/cors"
)

type Middleware func(next http.Handler) http.Handler

// Middlewares returns the chain wrapped around REST routes. Debug mode logs
// full requests and responses and accepts any origin.
func Middlewares(debug bool) []Middleware {
	if !debug {
		return []Middleware{
			cors.New(cors.Options{}).Handler,
		}
	}
	return []Middleware{
		cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}).Handler,
		httplog.LoggerWithConfig(httplog.LoggerConfig{
			RouterName: "QuizSession",
			Formatter: httplog.ChainLogFormatter(
				httplog.DefaultLogFormatter,
				httplog.RequestHeaderLogFormatter, httplog.RequestBodyLogFormatter,
				httplog.ResponseHeaderLogFormatter, httplog.ResponseBodyLogFormatter),
			CaptureBody: true,
		}),
	}
}

// Chain applies mws so the first one is outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
