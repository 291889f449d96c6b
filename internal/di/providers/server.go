package providers

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/bughive/bughive-server/internal/api"
	"github.com/bughive/bughive-server/internal/config"
	"github.com/bughive/bughive-server/internal/logger"
	"github.com/bughive/bughive-server/internal/ratelimit"
	"github.com/bughive/bughive-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	limiter *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable. In-flight requests get
// shutdownTimeout to finish.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.limiter.Stop()
	return err
}

// ProvideHTTPServer builds the API server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	metricsHandle := do.MustInvoke[*MetricsHandle](i)
	limiter := do.MustInvoke[*ratelimit.KeyedRateLimiter](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Auth: do.MustInvoke[*service.AuthService](i),
		User: do.MustInvoke[*service.UserService](i),
		Bug:  do.MustInvoke[*service.BugService](i),
		Tag:  do.MustInvoke[*service.TagService](i),
	}

	handler := api.NewServer(storeHandle.Store, services, api.Options{
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		AuthLimiter:    limiter,
		Metrics:        metricsHandle.Recorder,
		MetricsHandler: metricsHandle.Handler,
	}, log.Component("http"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Bind before returning so that a busy port fails bootstrap.
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, err
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, limiter: limiter}, nil
}
