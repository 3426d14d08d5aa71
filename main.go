package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/chesszebra/lidraughts-oauth-server/internal/audit"
	"github.com/chesszebra/lidraughts-oauth-server/internal/authcheck"
	"github.com/chesszebra/lidraughts-oauth-server/internal/common"
	"github.com/chesszebra/lidraughts-oauth-server/internal/config"
	"github.com/chesszebra/lidraughts-oauth-server/internal/handlers/web"
	"github.com/chesszebra/lidraughts-oauth-server/internal/middlewares"
	"github.com/chesszebra/lidraughts-oauth-server/internal/oauth"
	"github.com/chesszebra/lidraughts-oauth-server/internal/storage/gormstore"
	"github.com/chesszebra/lidraughts-oauth-server/internal/storage/redisstore"
	"github.com/chesszebra/lidraughts-oauth-server/model"
	"github.com/chesszebra/lidraughts-oauth-server/params"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/storage/redis/v3"
	"github.com/gofiber/template/html/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	app       *cli.App
	gitCommit string
	gitDate   string
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML config file",
		Value: "config.yaml",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Enable debug logging",
	}
)

func init() {
	app = cli.NewApp()
	app.EnableBashCompletion = true
	app.Usage = "OAuth2 authorization server for the draughts platform"
	app.Flags = []cli.Flag{
		configFileFlag,
		debugFlag,
	}
	app.Commands = []*cli.Command{
		{
			Name: "version",
			Action: func(ctx *cli.Context) error {
				fmt.Println(params.VersionWithCommit(gitCommit, gitDate))
				return nil
			},
		},
	}
	app.Action = run
}

func mustInitLogger(debug bool) {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}

func mustInitDatabase(dbConfig config.MySQLConfig) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dbConfig.Dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   dbConfig.TablePrefix,
			SingularTable: true,
		},
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := model.AutoMigrate(db); err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}

	return db
}

func mustInitRedisStorage(redisCfg config.RedisConfig) *redis.Storage {
	return redis.New(redis.Config{
		URL:           redisCfg.URL,
		PoolSize:      redisCfg.PoolSize,
		IsClusterMode: redisCfg.ClusterMode,
	})
}

func mustInitHtmlEngine(templateDir string) *html.Engine {
	var htmlEngine *html.Engine
	if templateDir != "" {
		htmlEngine = html.NewFileSystem(http.Dir(templateDir), ".html")
	} else {
		renderFS, _ := fs.Sub(templateFS, "templates")
		htmlEngine = html.NewFileSystem(http.FS(renderFS), ".html")
	}
	return htmlEngine
}

func mustInitSigningKey(path string) []byte {
	key, err := os.ReadFile(path)
	if err != nil {
		slog.Error("Failed to read private key", "path", path, "error", err)
		os.Exit(1)
	}
	return key
}

func mustInitScopeCatalog(overrides map[string]string) *oauth.ScopeCatalog {
	labels := oauth.DefaultScopeCatalog
	if len(overrides) > 0 {
		labels = overrides
	}
	catalog, err := oauth.NewScopeCatalog(labels)
	if err != nil {
		slog.Error("Invalid scope catalog", "error", err)
		os.Exit(1)
	}
	return catalog
}

func run(ctx *cli.Context) error {
	cfg, err := config.LoadConfig(ctx.String(configFileFlag.Name))
	if err != nil {
		slog.Error("Could not load config file.", "error", err)
		return err
	}

	mustInitLogger(cfg.Debug || ctx.IsSet(debugFlag.Name))

	ttl, err := cfg.TTL.Parse()
	if err != nil {
		slog.Error("Invalid token ttl configuration", "error", err)
		return err
	}

	catalog := mustInitScopeCatalog(cfg.Scopes)
	signKey := mustInitSigningKey(cfg.PrivateKeyPath)

	var (
		db    *gorm.DB
		rdb   goredis.UniversalClient
		repos oauth.Repositories
	)
	switch cfg.Storage.Backend {
	case "mysql":
		db = mustInitDatabase(cfg.Storage.MySQL)
		repos = gormstore.New(db, catalog)
		audit.Initialize(audit.NewAuditEventRepository(db))
	case "redis":
		rdb = mustInitRedisStorage(cfg.Storage.Redis).Conn()
		repos = redisstore.New(rdb, catalog)
		audit.Initialize(audit.NewSlogAuditRepository())
	default:
		return fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}

	oauthServer := oauth.NewServer(repos, oauth.TTLPolicy{
		AuthCode:     ttl.AuthCode,
		AccessToken:  ttl.AccessToken,
		RefreshToken: ttl.RefreshToken,
	}, signKey, oauth.GrantConfig{
		AuthorizationCode: cfg.Grants.AuthorizationCode,
		ClientCredentials: cfg.Grants.ClientCredentials,
		RefreshToken:      cfg.Grants.RefreshToken,
	})

	probe := authcheck.NewRemoteProbe(cfg.Authentication.CheckURL, cfg.Authentication.CookieName)

	var (
		authorizeHandler = web.NewAuthorizeHandler(oauthServer, probe, catalog, cfg.Authentication.LoginURL, cfg.Authentication.CookieName)
		tokenHandler     = web.NewTokenHandler(oauthServer)
	)

	router := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		BodyLimit:     params.ServerBodyLimit,
		IdleTimeout:   params.ServerIdleTimeout,
		ReadTimeout:   params.ServerReadTimeout,
		WriteTimeout:  params.ServerWriteTimeout,
		Views:         mustInitHtmlEngine(cfg.TemplateDir),
		ErrorHandler:  middlewares.ErrorHandler,
	})

	router.Use(recover.New())
	router.Use(logger.New())
	router.Use(cors.New())
	router.Use(middlewares.InjectGlobalVars(fiber.Map{
		"siteName": cfg.SiteName,
		"version":  params.Version,
	}))

	router.Get("/authorize", authorizeHandler.GetAuthorize)
	router.Post("/authorize", authorizeHandler.PostAuthorize)
	router.Post("/token", tokenHandler.PostToken)

	healthCheckDone := make(chan struct{})
	go common.StartHealthCheckServer(context.Background(), healthCheckDone, rdb, db)

	slog.Info("Starting OAuth server", "listenAddr", cfg.ListenAddr, "storage", cfg.Storage.Backend)
	return router.Listen(cfg.ListenAddr)
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
