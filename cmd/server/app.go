package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/lyfeumbria/manager/drive"
	"github.com/lyfeumbria/manager/gauth"
	"github.com/lyfeumbria/manager/identity"
	"github.com/lyfeumbria/manager/internal/clock"
	"github.com/lyfeumbria/manager/internal/config"
	"github.com/lyfeumbria/manager/internal/metrics"
	"github.com/lyfeumbria/manager/kvstore"
	"github.com/lyfeumbria/manager/popup"
	"github.com/lyfeumbria/manager/records"
	"github.com/lyfeumbria/manager/server"
	"github.com/lyfeumbria/manager/server/loginsession"
	"github.com/lyfeumbria/manager/session"
	"github.com/lyfeumbria/manager/users"
)

// app owns every long-lived component and tears them down in reverse order.
type app struct {
	server   *server.Server
	sessions *session.Manager
	db       *sql.DB
}

func newApp(ctx context.Context, c config.Config) (*app, error) {
	a := &app{}

	kv, err := kvstore.Open(c)
	if err != nil {
		return nil, fmt.Errorf("[newApp] open key-value store: %w", err)
	}

	recordStore, err := a.openRecords(c)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	repo := users.NewRecordRepo(recordStore)
	local, err := identity.NewLocal(c, kv, repo, repo.Credentials())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("[newApp] identity provider: %w", err)
	}

	a.sessions = session.NewManager(c, local, repo, clock.Real(), collector)
	if err := a.sessions.Start(ctx); err != nil {
		log.Warn().Err(err).Msg("could not restore the previous session")
	}

	relay := popup.NewRelay()
	google := gauth.NewManager(gauth.ConfigFrom(c, c.GetBaseURL()), kv, relay, gauth.WithMetrics(collector))
	if err := google.InitFromStorage(ctx); err != nil {
		log.Warn().Err(err).Msg("could not restore google tokens")
	}
	driveClient := drive.NewClient(google.TokenSource(ctx), drive.OptionsFrom(c))

	a.server, err = server.New(c, server.Services{
		Sessions: a.sessions,
		Logins:   loginsession.NewKVRepo(kv),
		Accounts: local,
		Profiles: repo,
		Google:   google,
		Relay:    relay,
		Popups:   popup.NewRegistry(),
		Drive:    driveClient,
		Gatherer: registry,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// openRecords uses postgres when DATABASE_URL is set and an in-process store otherwise.
func (a *app) openRecords(c config.Config) (records.Store, error) {
	url := c.GetDatabaseURL()
	if url == "" {
		log.Warn().Msg("DATABASE_URL not set, user records are kept in memory")
		return records.NewMemory(), nil
	}
	if err := records.RunMigrations(url); err != nil {
		return nil, fmt.Errorf("[newApp] run migrations: %w", err)
	}
	db, err := records.OpenPostgres(url)
	if err != nil {
		return nil, fmt.Errorf("[newApp] open postgres: %w", err)
	}
	a.db = db
	return records.NewPostgres(db), nil
}

func (a *app) Close() {
	if a.server != nil {
		a.server.Close()
	}
	if a.sessions != nil {
		a.sessions.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close database")
		}
	}
}
