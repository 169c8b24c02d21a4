package sessionstore

import (
	"net/http"
)

// LoadAndSave loads the request's session into the context (see
// FromContext) and saves it just before the response header goes out, so
// handlers that redirect still get their cookie written.
func (m *Manager) LoadAndSave(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.Load(r)
		if err != nil {
			m.logger.ErrorContext(r.Context(), "session.load_failed", "err", err)
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}

		cw := &commitWriter{ResponseWriter: w, commit: func() error {
			return m.Save(r.Context(), w, sess)
		}}
		next.ServeHTTP(cw, r.WithContext(NewContext(r.Context(), sess)))

		if !cw.wroteHeader {
			cw.WriteHeader(http.StatusOK)
		}
		if cw.err != nil {
			m.logger.ErrorContext(r.Context(), "session.save_failed", "err", cw.err)
		}
	})
}

// commitWriter saves the session the first time the header is written. A
// failed save turns the response into a 500.
type commitWriter struct {
	http.ResponseWriter
	commit      func() error
	wroteHeader bool
	failed      bool
	err         error
}

func (cw *commitWriter) WriteHeader(code int) {
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true

	if cw.err = cw.commit(); cw.err != nil {
		cw.failed = true
		cw.Header().Del("Location")
		cw.ResponseWriter.WriteHeader(http.StatusInternalServerError)
		return
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *commitWriter) Write(b []byte) (int, error) {
	if !cw.wroteHeader {
		cw.WriteHeader(http.StatusOK)
	}
	if cw.failed {
		// The handler's body belongs to a response that was never sent.
		return len(b), nil
	}
	return cw.ResponseWriter.Write(b)
}

func (cw *commitWriter) Unwrap() http.ResponseWriter { return cw.ResponseWriter }
