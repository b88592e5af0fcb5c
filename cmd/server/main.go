package main

import (
	"context"
	"database/sql"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	rbac "github.com/goliatone/go-rbac"
	"github.com/goliatone/go-rbac/config"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config *gconfig.Container[*config.BaseConfig]
	bunDB  *bun.DB
	auth   rbac.Authenticator
	auther rbac.HTTPAuthenticator
	repo   rbac.RepositoryManager
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("rbac"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithAuth(ctx, app); err != nil {
		panic(err)
	}

	WithHTTPServer(app)

	app.srv.Serve(app.Config().GetServer().GetAddr())

	WaitExitSignal()

	if app.bunDB != nil {
		app.bunDB.Close()
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := sql.Open(sqliteshim.ShimName, app.Config().GetPersistence().GetDSN())
	if err != nil {
		log.Fatal(err)
		return err
	}

	persistence.RegisterModel((*rbac.User)(nil))
	persistence.RegisterModel((*rbac.Report)(nil))

	pcfg := app.Config().GetPersistence()
	dialect := sqlitedialect.New()
	client, err := persistence.New(pcfg, db, dialect)
	if err != nil {
		log.Fatal(err)
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(rbac.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = rbac.NewRepositoryManager(client.DB())

	return nil
}

func WithAuth(_ context.Context, app *App) error {
	acfg := app.Config().GetAuth()

	if err := app.repo.Validate(); err != nil {
		return err
	}

	users := app.repo.Users()

	provider := rbac.NewUserProvider(users).
		WithLogger(app.GetLogger("identity"))

	sessions := rbac.NewSessionBinder(users).
		WithLogger(app.GetLogger("sessions"))

	auther := rbac.NewAuthenticator(provider, sessions, users, acfg).
		WithLogger(app.GetLogger("auth"))

	httpAuth, err := rbac.NewHTTPAuthenticator(auther, acfg)
	if err != nil {
		return err
	}
	httpAuth.WithLogger(app.GetLogger("http-auth"))

	app.auth = auther
	app.auther = httpAuth

	return nil
}

func WithHTTPServer(app *App) {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: app.Config().GetServer().GetDebug(),
			StrictRouting:     false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	rbac.RegisterRoutes(
		srv.Router(),
		func(c *rbac.APIController) *rbac.APIController {
			c.Debug = app.Config().GetServer().GetDebug()
			c.Repo = app.repo
			c.Auther = app.auther
			c.Config = app.Config().GetAuth()
			return c.WithLogger(app.GetLogger("api"))
		},
	)

	app.srv = srv
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
