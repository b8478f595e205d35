package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"os"
	"time"

	echoapi "github.com/allii5/TextInsight/apps/api/echo"
	"github.com/allii5/TextInsight/core"
	"github.com/allii5/TextInsight/core/analysis"
	"github.com/allii5/TextInsight/core/essay"
	"github.com/allii5/TextInsight/core/school"
	"github.com/allii5/TextInsight/core/user"
	emailsvc "github.com/allii5/TextInsight/services/email"
	sendgridmail "github.com/allii5/TextInsight/services/email/sendgrid"
	embedsvc "github.com/allii5/TextInsight/services/embedder"
	logsvc "github.com/allii5/TextInsight/services/logger"
	notifsvc "github.com/allii5/TextInsight/services/notifier"
	rendersvc "github.com/allii5/TextInsight/services/renderer"
	"github.com/allii5/TextInsight/storage/database"
	inmemdb "github.com/allii5/TextInsight/storage/database/inmem"
	sqlxrepos "github.com/allii5/TextInsight/storage/database/sqlx"
)

// build is set during build with ldflags
var build = "dev"

const shutdownTimeout = 20 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig(build)

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up repositories
	var (
		usrRepo    user.Repository
		schoolRepo school.Repository
		essayRepo  essay.Repository
	)
	if conf.Debug {
		db := inmemdb.NewDB()
		usrRepo = inmemdb.NewUserRepository(db)
		schoolRepo = inmemdb.NewSchoolRepository(db)
		essayRepo = inmemdb.NewEssayRepository(db)
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			logger.Error(fmt.Sprintf("setting up database: %v", err), err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		usrRepo = sqlxrepos.NewUserRepository(db)
		schoolRepo = sqlxrepos.NewSchoolRepository(db)
		essayRepo = sqlxrepos.NewEssayRepository(db)
	}

	// set up external collaborators
	var (
		embedder analysis.Embedder
		renderer analysis.Renderer
	)
	if conf.Debug {
		embedder = embedsvc.NewDummyEmbedder()
		renderer = rendersvc.NewDummyRenderer()
	} else {
		embedder = embedsvc.NewClient(conf.Embedder)
		renderer = rendersvc.NewClient(conf.Renderer)
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = sendgridmail.NewService(conf, logger)
	}

	// set up services
	usrSvc := user.NewService(usrRepo)
	schoolSvc := school.NewService(schoolRepo)
	essaySvc := essay.NewService(
		essayRepo,
		schoolRepo,
		analysis.NewScorer(embedder),
		renderer,
		notifsvc.NewEmailNotifier(usrRepo, mailSvc, logger),
		logger,
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:      conf,
			Logger:    logger,
			UserSvc:   usrSvc,
			SchoolSvc: schoolSvc,
			EssaySvc:  essaySvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)
		os.Exit(1)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
				os.Exit(1)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
