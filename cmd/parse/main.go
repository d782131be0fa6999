package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/nimasrn/momo-analyzer/internal/ingest"
	"github.com/nimasrn/momo-analyzer/internal/parser"
	"github.com/nimasrn/momo-analyzer/internal/store"
	"github.com/pkg/errors"
)

type parseCmd struct {
	In  string `help:"SMS backup XML to read." default:"modified_sms_v2.xml" type:"path"`
	Out string `help:"Where to write the transactions JSON." default:"data/processed/transactions.json" type:"path"`
	Tz  string `help:"IANA zone for timestamps, e.g. Africa/Kigali. Defaults to the local zone."`
}

func (c *parseCmd) Run(stdout io.Writer) error {
	loc := time.Local
	if c.Tz != "" {
		l, err := time.LoadLocation(c.Tz)
		if err != nil {
			return errors.Wrapf(err, "invalid --tz %q", c.Tz)
		}
		loc = l
	}

	entries, err := ingest.ReadFile(c.In)
	if err != nil {
		return err
	}

	res := parser.NewParser(parser.WithLocation(loc)).Parse(entries)
	if err := store.NewJSONFile(c.Out).Save(res.Records); err != nil {
		return errors.Wrapf(err, "write %s", c.Out)
	}

	fmt.Fprintf(stdout, "Parsed %d transactions -> %s\n", res.Count, c.Out)
	fmt.Fprintf(stdout, "Skipped %d one-time password messages, %d without an amount (%d entries read)\n",
		res.Dropped[parser.DropReasonOTP], res.Dropped[parser.DropReasonNoAmount], res.Entries)
	return nil
}

func main() {
	var cli parseCmd
	ctx := kong.Parse(&cli,
		kong.Name("parse"),
		kong.Description("Parse a MoMo SMS backup into transaction records."),
		kong.BindTo(os.Stdout, (*io.Writer)(nil)),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
