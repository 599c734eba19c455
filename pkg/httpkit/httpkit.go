package httpkit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// HTTPError is an error that knows its HTTP status and keeps the detailed cause
type HTTPError interface {
	HTTPCode() int
	Cause() error
	error
}

const (
	contentTypeHeader  = "Content-Type"
	contentTypeOptions = "X-Content-Type-Options"
)

var (
	jsonContentType           = []string{"application/json; charset=utf-8"}
	nosniffContentTypeOptions = []string{"nosniff"}
)

func addHeaderIfNotSet(w http.ResponseWriter, key string, value []string) {
	header := w.Header()
	if val := header[key]; len(val) == 0 {
		header[key] = value
	}
}

// Request-scoped error tracking, read back by the logging middleware
type ctxKeyError struct{}

type errorHolder struct {
	err error
}

// WithErrorTracking returns ctx with an error slot, reusing an existing one
func WithErrorTracking(ctx context.Context) context.Context {
	if _, ok := ctx.Value(ctxKeyError{}).(*errorHolder); ok {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyError{}, &errorHolder{})
}

// SetError records err in the request context
func SetError(ctx context.Context, err error) {
	if holder, ok := ctx.Value(ctxKeyError{}).(*errorHolder); ok {
		holder.err = err
	}
}

// Error returns the error recorded in ctx, if any
func Error(ctx context.Context) error {
	if holder, ok := ctx.Value(ctxKeyError{}).(*errorHolder); ok {
		return holder.err
	}
	return nil
}

// HandlerFunc is a handler that returns the response writer to run
type HandlerFunc func(http.ResponseWriter, *http.Request) http.HandlerFunc

func (h HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r = r.WithContext(WithErrorTracking(r.Context()))

	if handler := h(w, r); handler != nil {
		handler(w, r)
	}
}

// JSON writes data with status 200
func JSON(data any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		addHeaderIfNotSet(w, contentTypeHeader, jsonContentType)
		addHeaderIfNotSet(w, contentTypeOptions, nosniffContentTypeOptions)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(data)
	}
}

// JsonError records err for the middleware and writes it with its status
func JsonError(err HTTPError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SetError(r.Context(), err)

		addHeaderIfNotSet(w, contentTypeHeader, jsonContentType)
		addHeaderIfNotSet(w, contentTypeOptions, nosniffContentTypeOptions)
		w.WriteHeader(err.HTTPCode())
		_ = json.NewEncoder(w).Encode(err)
	}
}

// Serve runs srv until ctx is done, then shuts it down, giving outstanding
// requests up to shutdownTimeout to complete.
func Serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
