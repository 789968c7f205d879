/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	socketio "github.com/googollee/go-socket.io"
	"github.com/julienschmidt/httprouter"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/Seednode/moviematch/catalog"
	"github.com/Seednode/moviematch/rooms"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveVersion(cfg *Config, log *zap.Logger, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("moviematch v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		log.Debug("served version",
			zap.String("size", humanReadableSize(int64(written))),
			zap.String("remote", realIP(r)),
			zap.Duration("elapsed", time.Since(startTime).Round(time.Microsecond)),
		)
	}
}

// newCatalogSource picks where room candidates come from. The returned
// cleanup func releases any cache resources.
func newCatalogSource(cfg *Config, log *zap.Logger) (catalog.Source, func(), error) {
	noop := func() {}

	switch {
	case cfg.tmdbAPIKey != "":
		var src catalog.Source = catalog.NewTMDB(catalog.TMDBOptions{
			APIKey:   cfg.tmdbAPIKey,
			BaseURL:  cfg.tmdbBaseURL,
			Pages:    cfg.tmdbPages,
			Region:   cfg.tmdbRegion,
			Provider: cfg.tmdbProvider,
			Timeout:  cfg.catalogTimeout,
		})

		if cfg.redisAddr == "" {
			log.Info("using tmdb catalog", zap.String("region", cfg.tmdbRegion), zap.Int("provider", cfg.tmdbProvider))

			return catalog.Shuffled(src), noop, nil
		}

		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})

		key := fmt.Sprintf("moviematch:catalog:%s:%d:%d", cfg.tmdbRegion, cfg.tmdbProvider, cfg.tmdbPages)

		cache, err := catalog.Cached(src, client, key, cfg.cacheTTL, log)
		if err != nil {
			_ = client.Close()

			return nil, noop, err
		}

		log.Info("using tmdb catalog with redis cache",
			zap.String("redis", cfg.redisAddr),
			zap.String("key", key),
			zap.Duration("ttl", cfg.cacheTTL),
		)

		return catalog.Shuffled(cache), func() {
			cache.Close()
			_ = client.Close()
		}, nil
	case cfg.catalogFile != "":
		log.Info("using catalog file", zap.String("path", cfg.catalogFile))

		return catalog.Shuffled(catalog.NewFile(cfg.catalogFile)), noop, nil
	}

	log.Info("using built-in catalog")

	return catalog.Shuffled(catalog.Static(catalog.Fallback())), noop, nil
}

func newRegistry(cfg *Config, src catalog.Source, log *zap.Logger) (*rooms.Registry, error) {
	policy, err := rooms.ParseSeatPolicy(cfg.seatPolicy)
	if err != nil {
		return nil, err
	}

	return rooms.New(rooms.Options{
		Source: src,
		Fallback: func() []catalog.Movie {
			return catalog.Shuffle(catalog.Fallback())
		},
		FetchTimeout: cfg.catalogTimeout,
		ReapDelay:    cfg.reapDelay,
		Seating:      policy,
		Logger:       log,
	}), nil
}

// newHandler builds the router. The caller runs and closes the returned
// socket.io server.
func newHandler(ctx context.Context, cfg *Config, reg *rooms.Registry, log *zap.Logger, errs chan<- error) (http.Handler, *socketio.Server) {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		log.Error("handler panic", zap.Any("panic", i), zap.String("path", r.URL.Path))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		io.WriteString(w, newPage("Server Error", "An error has occurred. Please try again."))
	}

	gw := log.Named("gateway")

	sio := newSocketServer(ctx, cfg, reg, gw.With(zap.String("transport", "socket.io")))

	mux.GET(cfg.prefix+"/", serveHomePage(cfg, errs))

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, reg, errs))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, errs))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, log, errs))

	mux.GET(cfg.prefix+"/ws", serveWebsocket(cfg, reg, gw.With(zap.String("transport", "websocket"))))

	mux.Handler("GET", cfg.prefix+"/socket.io/*any", sio)
	mux.Handler("POST", cfg.prefix+"/socket.io/*any", sio)

	mux.GET(cfg.prefix+"/api/rooms/:code", serveRoomStatus(cfg, reg, errs))

	mux.GET(cfg.prefix+"/room/:code/qr", serveRoomQR(cfg, reg, log, errs))

	if cfg.profile {
		registerProfileHandlers(cfg, mux, log)
	}

	origins := cfg.allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}).Handler(mux), sio
}

func ServePage(ctx context.Context, cfg *Config, args []string) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	serve := log.Named("serve")

	serve.Info("starting", zap.String("version", releaseVersion))

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	src, cleanup, err := newCatalogSource(cfg, log.Named("catalog"))
	if err != nil {
		return err
	}
	defer cleanup()

	reg, err := newRegistry(cfg, src, log.Named("rooms"))
	if err != nil {
		return err
	}
	defer reg.Close()

	errs := make(chan error, 64)
	go drainErrors(serve, errs)

	handler, sio := newHandler(ctx, cfg, reg, log, errs)

	go func() {
		if err := sio.Serve(); err != nil {
			serve.Error("socket.io server stopped", zap.Error(err))
		}
	}()
	defer func() { _ = sio.Close() }()

	// No WriteTimeout: long-polling responses are held open past any fixed
	// write deadline.
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           handler,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
	}

	listenErr := make(chan error, 1)

	go func() {
		serve.Info("listening", zap.String("url", fmt.Sprintf("%s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)))

		var err error
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	serve.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
