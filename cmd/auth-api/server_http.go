package main

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	config "github.com/NordCoder/Warden/internal/config/auth-api"
	"github.com/NordCoder/Warden/internal/httpx"
	"github.com/NordCoder/Warden/internal/obs"
	authsvc "github.com/NordCoder/Warden/internal/services/auth-api/auth"
	"github.com/NordCoder/Warden/internal/services/auth-api/gate"
)

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, ctrl *authsvc.Controller, g *gate.Gate) (*http.Server, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(cfg.Server.GRPCAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	gw := runtime.NewServeMux(runtime.WithHealthzEndpoint(healthpb.NewHealthClient(conn)))

	pages, err := pagesHandler(cfg.Pages.Upstream, logger)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	r := mux.NewRouter()
	r.Use(httpx.Metrics)
	ctrl.Register(r)
	r.Handle("/metrics", obs.MetricsHandler()).Methods(http.MethodGet)
	r.Handle("/healthz", gw).Methods(http.MethodGet)
	r.NotFoundHandler = pages

	var h http.Handler = g.Middleware(r)
	h = httpx.CORS(cfg.Server.CORSOrigins)(h)
	h = httpx.SecurityHeaders(h)
	h = httpx.Logging(logger)(h)
	h = httpx.Recover(logger)(h)
	h = obs.HTTPHandler(h, "auth-api")

	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           h,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}, conn, nil
}

// pagesHandler forwards requests the gate let through to the page upstream.
func pagesHandler(upstream string, logger *zap.Logger) (http.Handler, error) {
	if upstream == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			httpx.WriteFailure(w, http.StatusNotFound, "Not found")
		}), nil
	}
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, err
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		obs.WithTrace(r.Context(), logger).Warn("pages upstream", zap.String("path", r.URL.Path), zap.Error(err))
		httpx.WriteFailure(w, http.StatusBadGateway, "Upstream unavailable")
	}
	return proxy, nil
}

func serveHTTP(srv *http.Server, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", srv.Addr))
	return srv.ListenAndServe()
}

func shutdownHTTP(ctx context.Context, srv *http.Server) error { return srv.Shutdown(ctx) }
