package memory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	v1 "github.com/OCAP2/acmi/internal/storage/memory/export/v1"
	"github.com/OCAP2/acmi/pkg/core"
	"github.com/fxamacker/cbor/v2"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("memory: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("memory: CBOR decoder initialization failed: " + err.Error())
	}
}

func formatExt(format string) (string, error) {
	switch format {
	case "", "json":
		return ".json", nil
	case "cbor":
		return ".cbor", nil
	default:
		return "", fmt.Errorf("unknown export format: %s", format)
	}
}

func compressionExt(compression string) (string, error) {
	switch compression {
	case "", "none":
		return "", nil
	case "gzip":
		return ".gz", nil
	case "zstd":
		return ".zst", nil
	case "snappy":
		return ".sz", nil
	default:
		return "", fmt.Errorf("unknown export compression: %s", compression)
	}
}

// ExportFileName builds the file name for a recording export
func ExportFileName(info *core.RecordingInfo, format, compression string) (string, error) {
	fext, err := formatExt(format)
	if err != nil {
		return "", err
	}
	cext, err := compressionExt(compression)
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(info.Name), filepath.Ext(info.Name))
	if base == "" || base == "." {
		base = "recording"
	}
	base = strings.NewReplacer(" ", "_", ":", "_").Replace(base)
	timestamp := info.StartedAt.UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s%s%s", base, timestamp, fext, cext), nil
}

// export writes the recording to the configured output directory
func (b *Backend) export(warnings []core.Warning) error {
	export := v1.Build(b.info, b.rec)
	export.AddWarnings(warnings)

	filename, err := ExportFileName(b.info, b.cfg.Format, b.cfg.Compression)
	if err != nil {
		return err
	}

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := Encode(f, export, b.cfg.Format, b.cfg.Compression); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", outputPath, err)
	}

	b.lastExportPath = outputPath
	return nil
}

// Encode writes export to w in the given format and compression
func Encode(w io.Writer, export v1.Export, format, compression string) error {
	var payload bytes.Buffer
	switch format {
	case "", "json":
		if err := json.NewEncoder(&payload).Encode(export); err != nil {
			return err
		}
	case "cbor":
		if err := cborEnc.NewEncoder(&payload).Encode(export); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown export format: %s", format)
	}

	switch compression {
	case "", "none":
		_, err := w.Write(payload.Bytes())
		return err
	case "gzip":
		gz := gzip.NewWriter(w)
		if _, err := gz.Write(payload.Bytes()); err != nil {
			return err
		}
		return gz.Close()
	case "zstd":
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if _, err := zw.Write(payload.Bytes()); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	case "snappy":
		_, err := w.Write(snappy.Encode(nil, payload.Bytes()))
		return err
	default:
		return fmt.Errorf("unknown export compression: %s", compression)
	}
}

// ReadExport decodes an export file, picking format and compression from
// its extensions
func ReadExport(path string) (*v1.Export, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	name := path
	switch ext := filepath.Ext(name); ext {
	case ".gz":
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		if raw, err = io.ReadAll(gz); err != nil {
			return nil, err
		}
		name = strings.TrimSuffix(name, ext)
	case ".zst":
		zr, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		if raw, err = zr.DecodeAll(raw, nil); err != nil {
			return nil, err
		}
		name = strings.TrimSuffix(name, ext)
	case ".sz":
		if raw, err = snappy.Decode(nil, raw); err != nil {
			return nil, err
		}
		name = strings.TrimSuffix(name, ext)
	}

	var export v1.Export
	switch filepath.Ext(name) {
	case ".json":
		err = json.Unmarshal(raw, &export)
	case ".cbor":
		err = cborDec.Unmarshal(raw, &export)
	default:
		err = fmt.Errorf("unknown export format: %s", filepath.Ext(name))
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &export, nil
}
