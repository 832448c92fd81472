// ABOUTME: Gemini protocol server built on go-gemini with certificate loading
// ABOUTME: Wraps the board handler with panic recovery and request logging

package gemini

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gmi "git.sr.ht/~adnano/go-gemini"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Response is a handler result. Body is only sent with StatusSuccess.
type Response struct {
	Status gmi.Status
	Meta   string
	Body   []byte
}

// write sends the response through w.
func (r *Response) write(w gmi.ResponseWriter) error {
	w.WriteHeader(r.Status, r.Meta)
	if r.Status != gmi.StatusSuccess {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}

// ServerOptions configures a Server.
type ServerOptions struct {
	Addr         string
	CertFile     string
	KeyFile      string
	Handler      gmi.Handler
	Logger       *slog.Logger
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves Gemini over TLS.
type Server struct {
	srv    *gmi.Server
	logger *slog.Logger
}

// NewServer loads the certificate pair and creates a Server.
func NewServer(opts ServerOptions) (*Server, error) {
	cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading certificate: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gemini")

	readTimeout := opts.ReadTimeout
	if readTimeout == 0 {
		readTimeout = defaultReadTimeout
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = defaultWriteTimeout
	}

	return &Server{
		srv: &gmi.Server{
			Addr:         opts.Addr,
			Handler:      recoverHandler(opts.Handler, logger),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			GetCertificate: func(hostname string) (*tls.Certificate, error) {
				return &cert, nil
			},
		},
		logger: logger,
	}, nil
}

// Run listens on the configured address and serves until ctx is canceled.
// In-flight requests get a grace period to finish.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("gemini server listening", "addr", s.srv.Addr)
		errc <- s.srv.ListenAndServe(ctx)
	}()

	select {
	case err := <-errc:
		if ctx.Err() != nil {
			break
		}
		return fmt.Errorf("serving gemini: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("context canceled, initiating shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutting down gemini server: %w", err)
	}
	return nil
}

// recoverHandler logs each request and turns a handler panic into a
// temporary failure instead of a dropped connection.
func recoverHandler(next gmi.Handler, logger *slog.Logger) gmi.Handler {
	return gmi.HandlerFunc(func(ctx context.Context, w gmi.ResponseWriter, req *gmi.Request) {
		start := time.Now()
		defer func() {
			if p := recover(); p != nil {
				logger.Error("handler panic", "path", req.URL.Path, "panic", p)
				w.WriteHeader(gmi.StatusTemporaryFailure, "temporary failure")
				return
			}
			logger.Debug("request served", "path", req.URL.Path, "duration", time.Since(start))
		}()
		next.ServeGemini(ctx, w, req)
	})
}
