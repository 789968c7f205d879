package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/Seednode/moviematch/catalog"
	"github.com/Seednode/moviematch/rooms"
)

type Config struct {
	allowedOrigins []string
	bind           string
	cacheTTL       time.Duration
	catalogFile    string
	catalogTimeout time.Duration
	logLevel       string
	messageBurst   int
	messageRate    float64
	port           int
	prefix         string
	profile        bool
	reapDelay      time.Duration
	redisAddr      string
	redisDB        int
	redisPassword  string
	seatPolicy     string
	tlsCert        string
	tlsKey         string
	tmdbAPIKey     string
	tmdbBaseURL    string
	tmdbPages      int
	tmdbProvider   int
	tmdbRegion     string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.reapDelay <= 0 {
		return fmt.Errorf("invalid reap delay (must be positive): %s", c.reapDelay)
	}
	if c.catalogTimeout <= 0 {
		return fmt.Errorf("invalid catalog timeout (must be positive): %s", c.catalogTimeout)
	}
	if c.tmdbPages < 1 {
		return fmt.Errorf("invalid tmdb page count (must be at least 1): %d", c.tmdbPages)
	}
	if c.messageRate < 0 || c.messageBurst < 0 {
		return errors.New("--message-rate and --message-burst must not be negative")
	}
	if _, err := rooms.ParseSeatPolicy(c.seatPolicy); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.logLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.logLevel, err)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("MOVIEMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "moviematch",
		Short:         "Pairs two people in a room to swipe on movies until they agree on one.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringSliceVar(&cfg.allowedOrigins, "allowed-origins", nil, "origins allowed to call the api and open websockets; empty allows any (env: MOVIEMATCH_ALLOWED_ORIGINS)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: MOVIEMATCH_BIND)")
	fs.DurationVar(&cfg.cacheTTL, "catalog-cache-ttl", time.Hour, "how long fetched catalogs stay in redis (env: MOVIEMATCH_CATALOG_CACHE_TTL)")
	fs.StringVar(&cfg.catalogFile, "catalog-file", "", "yaml or json(c) movie list to use instead of tmdb (env: MOVIEMATCH_CATALOG_FILE)")
	fs.DurationVar(&cfg.catalogTimeout, "catalog-timeout", rooms.DefaultFetchTimeout, "time allowed for fetching a new room's movies before falling back (env: MOVIEMATCH_CATALOG_TIMEOUT)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "minimum log level: debug, info, warn, error (env: MOVIEMATCH_LOG_LEVEL)")
	fs.IntVar(&cfg.messageBurst, "message-burst", 20, "inbound websocket messages allowed in a burst (env: MOVIEMATCH_MESSAGE_BURST)")
	fs.Float64Var(&cfg.messageRate, "message-rate", 0, "inbound websocket messages per second per connection, 0 for unlimited (env: MOVIEMATCH_MESSAGE_RATE)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: MOVIEMATCH_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: MOVIEMATCH_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: MOVIEMATCH_PROFILE)")
	fs.DurationVar(&cfg.reapDelay, "reap-delay", rooms.DefaultReapDelay, "time an empty room is kept before deletion (env: MOVIEMATCH_REAP_DELAY)")
	fs.StringVar(&cfg.redisAddr, "redis-addr", "", "redis address for caching the tmdb catalog (env: MOVIEMATCH_REDIS_ADDR)")
	fs.IntVar(&cfg.redisDB, "redis-db", 0, "redis database number (env: MOVIEMATCH_REDIS_DB)")
	fs.StringVar(&cfg.redisPassword, "redis-password", "", "redis password (env: MOVIEMATCH_REDIS_PASSWORD)")
	fs.StringVar(&cfg.seatPolicy, "seat-policy", "visitor", "how reconnects pick a seat: visitor or vacancy (env: MOVIEMATCH_SEAT_POLICY)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: MOVIEMATCH_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: MOVIEMATCH_TLS_KEY)")
	fs.StringVar(&cfg.tmdbAPIKey, "tmdb-api-key", "", "tmdb api key; without one the built-in catalog is used (env: MOVIEMATCH_TMDB_API_KEY)")
	fs.StringVar(&cfg.tmdbBaseURL, "tmdb-base-url", catalog.DefaultTMDBBaseURL, "tmdb api base url (env: MOVIEMATCH_TMDB_BASE_URL)")
	fs.IntVar(&cfg.tmdbPages, "tmdb-pages", 5, "number of tmdb discover pages per fetch (env: MOVIEMATCH_TMDB_PAGES)")
	fs.IntVar(&cfg.tmdbProvider, "tmdb-provider", 8, "tmdb watch provider id (env: MOVIEMATCH_TMDB_PROVIDER)")
	fs.StringVar(&cfg.tmdbRegion, "tmdb-region", "US", "tmdb watch region (env: MOVIEMATCH_TMDB_REGION)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "log at debug level (env: MOVIEMATCH_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: MOVIEMATCH_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("moviematch v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
