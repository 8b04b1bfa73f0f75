package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/abporter521/CS3500-TankWars/internal/util"
	v1 "github.com/abporter521/CS3500-TankWars/internal/storage/memory/export/v1"
	"github.com/abporter521/CS3500-TankWars/pkg/core"
)

// Export formats.
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// export writes the current match to the output dir. Callers hold b.mu.
func (b *Backend) export() error {
	m := &b.data.Match
	if m.EndTime.IsZero() {
		m.EndTime = time.Now()
	}
	export := v1.Build(b.data)

	format := b.cfg.Format
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatMsgpack {
		return fmt.Errorf("unknown export format %q", format)
	}

	filename := fmt.Sprintf("%s_%s.%s", util.SafeFileName(m.ServerName), m.StartTime.UTC().Format("20060102_150405"), format)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := WriteExport(outputPath, format, b.cfg.CompressOutput, export); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	b.lastExportMetadata = core.UploadMetadata{
		MatchName: m.ServerName,
		ArenaSize: m.ArenaSize,
		Duration:  m.Duration().Seconds(),
		Tag:       m.Tag,
	}
	return nil
}

// WriteExport encodes export to path as json or msgpack, optionally gzipped.
func WriteExport(path, format string, compress bool, export v1.Export) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close export file: %w", cerr)
		}
	}()

	var w io.Writer = f
	if compress {
		gz := gzip.NewWriter(f)
		defer func() {
			if cerr := gz.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("failed to finish gzip stream: %w", cerr)
			}
		}()
		w = gz
	}

	switch format {
	case FormatMsgpack:
		err = msgpack.NewEncoder(w).Encode(export)
	default:
		err = json.NewEncoder(w).Encode(export)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s export: %w", format, err)
	}
	return nil
}

// ReadExport decodes an export written by a memory backend. The format is
// taken from the file extension.
func ReadExport(path string) (v1.Export, error) {
	var export v1.Export
	f, err := os.Open(path)
	if err != nil {
		return export, err
	}
	defer f.Close()

	var r io.Reader = f
	name := path
	if filepath.Ext(name) == ".gz" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return export, fmt.Errorf("open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
		name = name[:len(name)-len(".gz")]
	}

	switch filepath.Ext(name) {
	case "." + FormatMsgpack:
		err = msgpack.NewDecoder(r).Decode(&export)
	case "." + FormatJSON:
		err = json.NewDecoder(r).Decode(&export)
	default:
		return export, fmt.Errorf("unknown export extension in %s", path)
	}
	if err != nil {
		return export, fmt.Errorf("decode %s: %w", path, err)
	}
	return export, nil
}
