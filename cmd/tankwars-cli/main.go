// Command tankwars-cli exports recorded matches from the SQL store and
// writes the wire protocol JSON schema.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/abporter521/CS3500-TankWars/internal/config"
	"github.com/abporter521/CS3500-TankWars/internal/database"
	"github.com/abporter521/CS3500-TankWars/internal/logging"
	"github.com/abporter521/CS3500-TankWars/internal/protocol"
	gormstorage "github.com/abporter521/CS3500-TankWars/internal/storage/gorm"
	"github.com/abporter521/CS3500-TankWars/internal/storage/memory"
	v1 "github.com/abporter521/CS3500-TankWars/internal/storage/memory/export/v1"
	"github.com/abporter521/CS3500-TankWars/internal/util"
)

const usage = `usage:
  tankwars-cli export [-config dir] [-sqlite file] [-out dir] [-format json|msgpack] [-gzip] <matchID>...
  tankwars-cli schema -out path`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	switch args[0] {
	case "export":
		return runExport(args[1:], stdout)
	case "schema":
		return runSchema(args[1:], stdout)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func runExport(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	sqlitePath := fs.String("sqlite", "", "read from this SQLite file instead of Postgres")
	outDir := fs.String("out", ".", "output directory")
	format := fs.String("format", memory.FormatJSON, "json or msgpack")
	compress := fs.Bool("gzip", false, "gzip the output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no match IDs provided")
	}
	if *format != memory.FormatJSON && *format != memory.FormatMsgpack {
		return fmt.Errorf("unknown export format %q", *format)
	}

	ids := make([]uint, 0, fs.NArg())
	for _, arg := range fs.Args() {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil || id == 0 {
			return fmt.Errorf("invalid match ID %q", arg)
		}
		ids = append(ids, uint(id))
	}

	log := logging.NewZerolog(os.Stderr, "info", "cli")
	db, closeDB, err := openDB(*configDir, *sqlitePath, log)
	if err != nil {
		return err
	}
	defer closeDB()

	paths, err := exportMatches(db, ids, *outDir, *format, *compress)
	for _, p := range paths {
		fmt.Fprintln(stdout, p)
	}
	if err != nil {
		return err
	}
	log.Info().Str("written", util.Plural(len(paths), "file")).Msg("Export finished")
	return nil
}

func openDB(configDir, sqlitePath string, log zerolog.Logger) (*gorm.DB, func(), error) {
	if sqlitePath != "" {
		db, err := database.OpenSQLite(sqlitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", sqlitePath, err)
		}
		return db, func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil
	}

	if err := config.Load(configDir); err != nil {
		return nil, nil, err
	}
	m := database.NewManager(log)
	if err := m.Connect(config.GetDBConfig(), ""); err != nil {
		return nil, nil, err
	}
	return m.DB, func() { _ = m.Close() }, nil
}

// exportMatches writes one file per match and returns the paths written
// before the first failure.
func exportMatches(db *gorm.DB, ids []uint, outDir, format string, compress bool) ([]string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	var paths []string
	for _, id := range ids {
		data, err := gormstorage.LoadMatch(db, id)
		if err != nil {
			return paths, err
		}
		export := v1.Build(data)

		name := fmt.Sprintf("%s_%d.%s", util.SafeFileName(data.Match.ServerName), id, format)
		if compress {
			name += ".gz"
		}
		path := filepath.Join(outDir, name)
		if err := memory.WriteExport(path, format, compress, export); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func runSchema(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("schema", flag.ContinueOnError)
	outPath := fs.String("out", "", "path to write the JSON schema, - for stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *outPath == "" {
		return errors.New("-out is required")
	}

	data, err := json.MarshalIndent(protocol.Schema(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	data = append(data, '\n')

	if *outPath == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}
	tmpPath := *outPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmpPath, *outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
