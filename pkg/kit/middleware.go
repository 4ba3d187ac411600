package kit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// MaxLoggedBody caps how much of a request body Logging buffers.
const MaxLoggedBody = 1 << 20

// Recoverer turns a panic into the 500 fault envelope.
func Recoverer(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				log.Error("panic recovered",
					zap.Any("panic", rvr),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.Stack("stack"),
				)
				if r.Header.Get("Connection") != "Upgrade" {
					WriteFault(w, http.StatusInternalServerError, "")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDHeader echoes chi's request id back to the client.
func RequestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(middleware.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			fields := []zap.Field{
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.RequestURI()),
				zap.String("remote", r.RemoteAddr),
			}
			if r.Method == http.MethodPost || r.Method == http.MethodPut {
				fields = append(fields, bodyField(r))
			}

			next.ServeHTTP(ww, r)

			log.Info("request", append(fields,
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)...)
		})
	}
}

// bodyField reads the body for logging and puts it back for the handler.
func bodyField(r *http.Request) zap.Field {
	if r.Body == nil || r.Body == http.NoBody {
		return zap.Skip()
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, MaxLoggedBody+1))
	rest := r.Body
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(raw), rest), rest}
	if err != nil {
		return zap.NamedError("body_error", err)
	}
	if len(raw) > MaxLoggedBody {
		return zap.Int("body_truncated_at", MaxLoggedBody)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return zap.ByteString("body", raw)
	}
	return zap.Reflect("body", json.RawMessage(compact.Bytes()))
}
