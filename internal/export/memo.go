package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"sales-dashboard/internal/cache"
	"sales-dashboard/internal/filter"
	"sales-dashboard/internal/observability"
)

// Payload is a ready-to-serve export.
type Payload struct {
	Data        []byte
	Format      Format
	FileName    string
	ContentType string
	Rows        int
	Cached      bool
}

// Exporter memoizes encoded payloads on the content of the table, so
// repeated downloads of unchanged data skip the conversion.
type Exporter struct {
	cache   *cache.LRUCache[[]byte]
	metrics *observability.Metrics
	logger  *slog.Logger
}

func NewExporter(c *cache.LRUCache[[]byte], metrics *observability.Metrics, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{cache: c, metrics: metrics, logger: logger}
}

// Export encodes t in format f under the given file name.
func (e *Exporter) Export(ctx context.Context, t filter.Table, f Format, name string) (*Payload, error) {
	ctx, span := observability.StartSpan(ctx, "export.Encode",
		attribute.String("format", string(f)),
		attribute.Int("rows", len(t.Rows)))
	defer span.End()

	encode := func() ([]byte, error) { return Encode(t, f) }

	var (
		data   []byte
		cached bool
		err    error
	)
	if e.cache != nil {
		data, cached, err = e.cache.GetOrCompute(ContentKey(t, f), encode)
	} else {
		data, err = encode()
	}
	if err != nil {
		observability.SetError(span, err)
		observability.LoggerFrom(ctx, e.logger).Error("export failed", "format", f, "rows", len(t.Rows), "error", err)
		return nil, err
	}

	span.SetAttributes(attribute.Bool("cached", cached), attribute.Int("bytes", len(data)))
	e.metrics.Export(ctx, string(f), len(data), cached)

	return &Payload{
		Data:        data,
		Format:      f,
		FileName:    FileName(name, f),
		ContentType: f.ContentType(),
		Rows:        len(t.Rows),
		Cached:      cached,
	}, nil
}

// ContentKey hashes the format, header and cell text of t.
func ContentKey(t filter.Table, f Format) string {
	h := sha256.New()
	h.Write([]byte(f))
	h.Write([]byte{0x1e})
	for _, c := range t.Columns {
		h.Write([]byte(c))
		h.Write([]byte{0x1f})
	}
	for _, record := range t.Records() {
		h.Write([]byte{0x1e})
		for _, v := range record {
			h.Write([]byte(v))
			h.Write([]byte{0x1f})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
