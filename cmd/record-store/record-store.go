package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/diwise/record-mirror/internal/pkg/application/registry"
	"github.com/diwise/record-mirror/internal/pkg/infrastructure/router"
	"github.com/diwise/record-mirror/internal/pkg/presentation/api/records"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	appName string = "record-store"
)

func main() {
	appVersion := buildinfo.SourceVersion()

	ctx, log, cleanup := o11y.Init(context.Background(), appName, appVersion, "json")
	defer cleanup()

	cfg, err := loadRegistryConfig(ctx)
	if err != nil {
		log.Error("failed to load registry configuration", "err", err.Error())
		os.Exit(1)
	}

	app, err := newRegistry(ctx, cfg)
	if err != nil {
		log.Error("failed to create record registry", "err", err.Error())
		os.Exit(1)
	}

	policies, err := openPolicyDocument(ctx)
	if err != nil {
		log.Error("failed to open authorization policies", "err", err.Error())
		os.Exit(1)
	}

	r := router.New(appName)

	err = records.RegisterHandlers(ctx, r, policies, app)
	if err != nil {
		log.Error("failed to register handlers", "err", err.Error())
		os.Exit(1)
	}

	port := env.GetVariableOrDefault(ctx, "SERVICE_PORT", "8080")

	log.Info("starting to listen for connections", "port", port)

	err = http.ListenAndServe(":"+port, r)
	if err != nil {
		log.Error("failed to listen for connections", "err", err.Error())
		os.Exit(1)
	}
}

func loadRegistryConfig(ctx context.Context) (*registry.Config, error) {
	configPath := env.GetVariableOrDefault(ctx, "REGISTRY_CONFIG_PATH", "")
	if configPath == "" {
		return registry.DefaultConfiguration(), nil
	}

	f, err := os.Open(configPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return registry.LoadConfiguration(f)
}

func newRegistry(ctx context.Context, cfg *registry.Config) (registry.RecordRegistry, error) {
	host := env.GetVariableOrDefault(ctx, "POSTGRES_HOST", "")
	if host == "" {
		return registry.NewMemoryRegistry(cfg), nil
	}

	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		env.GetVariableOrDefault(ctx, "POSTGRES_USER", ""),
		env.GetVariableOrDefault(ctx, "POSTGRES_PASSWORD", ""),
		host,
		env.GetVariableOrDefault(ctx, "POSTGRES_PORT", "5432"),
		env.GetVariableOrDefault(ctx, "POSTGRES_DBNAME", "diwise"),
		env.GetVariableOrDefault(ctx, "POSTGRES_SSLMODE", "disable"),
	)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	err = pool.Ping(ctx)
	if err != nil {
		return nil, err
	}

	return registry.NewDatabaseRegistry(ctx, cfg, pool)
}

const defaultPolicyDocument string = `package datastore.authz

default allow := false

allow = response {
    response := {"tenant": input.tenant}
}
`

func openPolicyDocument(ctx context.Context) (io.Reader, error) {
	policyPath := env.GetVariableOrDefault(ctx, "AUTHZ_POLICY_PATH", "")
	if policyPath == "" {
		return bytes.NewBufferString(defaultPolicyDocument), nil
	}

	f, err := os.Open(policyPath)
	if err != nil {
		return nil, err
	}

	// handlers only need the contents, not the file handle
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return bytes.NewBuffer(buf), nil
}
