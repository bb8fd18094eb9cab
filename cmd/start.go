package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/lodestone/auth"
	"github.com/luma/lodestone/internal/env"
	"github.com/luma/lodestone/internal/metrics"
	"github.com/luma/lodestone/protocol"
	"github.com/luma/lodestone/session"
	"github.com/luma/lodestone/storage"
	"github.com/luma/lodestone/transport"
)

var (
	// The host to listen on
	host string

	// The port to listen for http requests on
	httpPort string

	// The port to listen for game clients on
	port int

	// Log every packet at debug level
	trace bool
)

func init() {
	flags := StartCmd.PersistentFlags()

	flags.IntVarP(&port, "port", "p", 25565, "The port to listen client connections on")
	flags.StringVar(&httpPort, "http-port", "7362", "The port to listen to HTTP requests on")
	flags.StringVarP(&host, "host", "a", "0.0.0.0", "The host to listen on")
	flags.BoolVar(&trace, "trace", false, "Log every packet, only useful in local debugging")
}

var StartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start up the lodestone server",
	Long: `Start up the lodestone server

Configuration is read from LODESTONE_ environment variables and .env.local.

Usage
	lodestone start -p 25565

`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer signalStop()

		conf, err := env.LoadConfig(ctx)
		if err != nil {
			return err
		}

		log, err := env.MakeLogger(trace)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		fileLimit, err := setFileLimit()
		if err != nil {
			return err
		}

		log.Info("Set file limit", zap.Uint64("fileLimit", fileLimit))

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m := metrics.New(reg)

		connOpts := protocol.Options{
			Authenticate: conf.Authenticate,
			ServerID:     conf.ServerID,
			Threshold:    conf.CompressionThreshold,
		}

		if conf.Authenticate {
			log.Info("Generating server key pair", zap.Int("bits", conf.KeyBits))

			keys, err := auth.GenerateKeyPair(conf.KeyBits)
			if err != nil {
				return err
			}

			connOpts.Keys = keys
			connOpts.Authenticator = auth.NewSessionServer(conf.SessionServer, nil, log.Named("auth"))
		}

		favicon, err := conf.LoadFavicon()
		if err != nil {
			return err
		}

		store := storage.NewInmemoryStore()
		defer store.Close()

		lobby := session.NewLobby(session.Options{
			Store:       store,
			Description: conf.Description,
			MaxPlayers:  conf.MaxPlayers,
			Favicon:     favicon,
			Log:         log.Named("session"),
		})

		router := setupRouter(conf.DebugHTTP, log)

		// Ping test
		router.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

		// The same document a game client gets in the server list
		router.GET("/status", func(c *gin.Context) {
			doc, err := protocol.StatusJSON(lobby.Info())
			if err != nil {
				c.AbortWithError(http.StatusInternalServerError, err) //nolint:errcheck
				return
			}

			c.Data(http.StatusOK, "application/json", []byte(doc))
		})

		router.GET("/players", func(c *gin.Context) {
			players, err := store.Get(c.Request.Context(), "players")
			if err != nil {
				c.AbortWithError(http.StatusInternalServerError, err) //nolint:errcheck
				return
			}

			if players == nil {
				players = []byte("{}")
			}

			c.Data(http.StatusOK, "application/json", players)
		})

		s := &http.Server{
			Addr:    net.JoinHostPort(host, httpPort),
			Handler: router,
		}

		// Initializing the server in a goroutine so that
		// it won't block the graceful shutdown handling below
		go func() {
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Http server errored", zap.Error(err))
			}
		}()

		tcp := transport.NewTCP(transport.Options{
			Host:           host,
			Port:           port,
			Reuseport:      true,
			Trace:          trace,
			NumListeners:   conf.NumListeners,
			MaxConnections: conf.MaxConnections,
			Store:          store,
			Handler:        lobby,
			Conn:           connOpts,
			Metrics:        m,
			Log:            log.Named("transport"),
		})

		if err := tcp.Start(ctx); err != nil {
			return err
		}

		log.Info("Listening",
			zap.Any("config", conf),
			zap.String("host", host),
			zap.Int("port", port),
			zap.String("httpPort", httpPort))

		// Listen for the interrupt signal.
		<-ctx.Done()

		// Restore default behavior on the interrupt signal and notify user of shutdown.
		signalStop()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")

		// Players get 5 seconds to receive their disconnect
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.SetKeepAlivesEnabled(false)

		if err := s.Shutdown(ctx); err != nil {
			log.Error("Http server forced to shutdown", zap.Error(err))
		}

		if err := tcp.Shutdown(ctx); err != nil {
			log.Error("TCP server forced to shutdown", zap.Error(err))
		}

		log.Info("Exiting")
		return nil
	},
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Add a ginzap middleware, which:
	//   - Logs all requests, like a combined access and error log.
	//   - RFC3339 with UTC time format.
	//   - Skips the scrape endpoint.
	r.Use(ginzap.GinzapWithConfig(log.Named("http"), &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping", "/metrics"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}

func setFileLimit() (uint64, error) {
	var rLimit syscall.Rlimit

	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	rLimit.Cur = rLimit.Max
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	return rLimit.Cur, nil
}
