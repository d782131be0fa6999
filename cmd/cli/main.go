package main

import (
	"github.com/alecthomas/kong"
	"github.com/nimasrn/momo-analyzer/internal/config"
	"github.com/nimasrn/momo-analyzer/pkg/logger"
	"github.com/nimasrn/momo-analyzer/pkg/pg"
)

var cli struct {
	Env string `help:"Path to a .env file." default:".env" type:"path"`

	Migrate migrateCmd `cmd:"" default:"1" help:"Apply pending database migrations."`
}

type migrateCmd struct {
	Dir string `help:"Directory holding goose migrations." default:"./migrations" type:"existingdir"`
}

func (m *migrateCmd) Run() error {
	return pg.Migrate(config.Get().PostgresWrite(), m.Dir)
}

func main() {
	ctx := kong.Parse(&cli, kong.Description("Database maintenance for the MoMo analyzer."))

	if err := config.Load(envPath(cli.Env)); err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	defer logger.Sync()

	ctx.FatalIfErrorf(ctx.Run())
}
