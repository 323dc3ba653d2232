package retriever

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/pkg/logger"
)

// Catalog is the on-disk shape of a file-backed record source.
type Catalog struct {
	Source  string                    `yaml:"source"`
	Records []model.OpportunityRecord `yaml:"records"`
}

// FileRetriever serves records from a YAML catalog loaded once at
// construction. A record is returned when it matches at least one query.
type FileRetriever struct {
	records []model.OpportunityRecord
	logger  logger.Logger
}

// FileOption configures a FileRetriever.
type FileOption func(*FileRetriever)

// WithFileLogger sets a custom logger.
func WithFileLogger(l logger.Logger) FileOption {
	return func(f *FileRetriever) {
		if l != nil {
			f.logger = l
		}
	}
}

// LoadCatalog reads and parses a catalog file.
func LoadCatalog(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := ParseCatalog(raw)
	if err != nil {
		return Catalog{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(raw []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	return c, nil
}

// NewFile loads the catalog at path.
func NewFile(path string, opts ...FileOption) (*FileRetriever, error) {
	c, err := LoadCatalog(path)
	if err != nil {
		return nil, model.WrapKind("retriever.file", model.ErrRetrieval, err)
	}
	return NewFromCatalog(c, opts...), nil
}

// NewFromCatalog builds a retriever over an in-memory catalog.
func NewFromCatalog(c Catalog, opts ...FileOption) *FileRetriever {
	f := &FileRetriever{logger: logger.Get().Named("retriever.file")}
	for _, opt := range opts {
		opt(f)
	}
	records, dropped := Normalize(c.Records, c.Source)
	if dropped > 0 {
		f.logger.Warn(context.Background(), "catalog records dropped during normalization",
			logger.Int("dropped", dropped),
		)
	}
	f.records = records
	return f
}

// Len returns the number of usable catalog records.
func (f *FileRetriever) Len() int { return len(f.records) }

// Retrieve returns the records matching any of the plan's queries. A plan
// without queries returns the whole catalog.
func (f *FileRetriever) Retrieve(ctx context.Context, plan model.Plan) ([]model.OpportunityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.WrapKind("retriever.file", model.ErrRetrieval, err)
	}
	out := make([]model.OpportunityRecord, 0, len(f.records))
	for _, r := range f.records {
		if len(plan.Queries) == 0 || matchesAny(r, plan.Queries) {
			out = append(out, r)
		}
	}
	f.logger.Debug(ctx, "catalog search finished",
		logger.Int("queries", len(plan.Queries)),
		logger.Int("records", len(out)),
	)
	return out, nil
}

func matchesAny(r model.OpportunityRecord, queries []string) bool { //nolint:gocritic // hugeParam: read-only
	for _, q := range queries {
		if matches(r, q) {
			return true
		}
	}
	return false
}
