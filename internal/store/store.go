package store

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/roster/internal/record"
)

// Store provides unique-keyed CRUD over a Backend.
type Store struct {
	mu      sync.Mutex
	backend Backend
	ids     OpIDGenerator
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithOpIDGenerator sets the operation ID generator. Defaults to UUIDv7.
func WithOpIDGenerator(g OpIDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// New wraps backend in a Store.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		ids:     UUIDv7Generator{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens a backend of the given kind and wraps it in a Store.
func Open(kind, path string, cols record.Columns, opts ...Option) (*Store, error) {
	b, err := OpenBackend(kind, path, cols)
	if err != nil {
		return nil, err
	}
	return New(b, opts...), nil
}

// Close closes the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Close(); err != nil {
		return ioErr("close", s.backend.Location(), err)
	}
	return nil
}

// Columns returns the persisted header.
func (s *Store) Columns() record.Columns { return s.backend.Columns() }

// Location describes where records are persisted.
func (s *Store) Location() string { return s.backend.Location() }

// Patch lists the fields an Update or Upsert should change. Nil fields are
// left untouched. A non-nil Score with Valid=false clears that field.
type Patch struct {
	Name   *string
	Field1 *record.Score
	Field2 *record.Score
}

// WithName returns p with Name set.
func (p Patch) WithName(name string) Patch {
	p.Name = &name
	return p
}

// WithField1 returns p with Field1 set.
func (p Patch) WithField1(s record.Score) Patch {
	p.Field1 = &s
	return p
}

// WithField2 returns p with Field2 set.
func (p Patch) WithField2(s record.Score) Patch {
	p.Field2 = &s
	return p
}

func (p Patch) apply(r *record.Record) {
	if p.Name != nil {
		r.Name = strings.TrimSpace(*p.Name)
	}
	if p.Field1 != nil {
		r.Field1 = *p.Field1
	}
	if p.Field2 != nil {
		r.Field2 = *p.Field2
	}
}

// Add appends a new record. Fails with *ValidationError when the trimmed ID
// is empty and *DuplicateKeyError when it is already present; in both cases
// the store is unchanged.
func (s *Store) Add(ctx context.Context, rec record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec = rec.Normalize()
	log := s.opLogger(ctx, "add", rec.ID)

	if err := validateID(rec.ID); err != nil {
		return err
	}

	records, err := s.backend.Load(ctx)
	if err != nil {
		log.Warn("load failed", "error", err)
		return err
	}
	if indexOf(records, rec.ID) >= 0 {
		return &DuplicateKeyError{ID: rec.ID}
	}

	records = append(records, rec)
	if err := s.backend.Save(ctx, records); err != nil {
		log.Warn("save failed", "error", err)
		return err
	}
	log.Info("record added", "count", len(records))
	return nil
}

// Get returns the record with the given ID. A missing key yields
// (zero, false, nil).
func (s *Store) Get(ctx context.Context, id string) (record.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = record.NormalizeID(id)
	log := s.opLogger(ctx, "get", id)

	records, err := s.backend.Load(ctx)
	if err != nil {
		log.Warn("load failed", "error", err)
		return record.Record{}, false, err
	}
	i := indexOf(records, id)
	if i < 0 {
		log.Debug("record not found")
		return record.Record{}, false, nil
	}
	return records[i], true, nil
}

// List returns every record in a new slice stably sorted by ID.
func (s *Store) List(ctx context.Context) ([]record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.opLogger(ctx, "list", "")

	records, err := s.backend.Load(ctx)
	if err != nil {
		log.Warn("load failed", "error", err)
		return nil, err
	}
	sorted := slices.Clone(records)
	if sorted == nil {
		sorted = []record.Record{}
	}
	slices.SortStableFunc(sorted, func(a, b record.Record) int {
		return strings.Compare(a.ID, b.ID)
	})
	log.Debug("records listed", "count", len(sorted))
	return sorted, nil
}

// Update applies p to the first record matching id. Returns false, without
// writing, when no record matches.
func (s *Store) Update(ctx context.Context, id string, p Patch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = record.NormalizeID(id)
	log := s.opLogger(ctx, "update", id)

	records, err := s.backend.Load(ctx)
	if err != nil {
		log.Warn("load failed", "error", err)
		return false, err
	}
	i := indexOf(records, id)
	if i < 0 {
		log.Debug("record not found")
		return false, nil
	}

	p.apply(&records[i])
	if err := s.backend.Save(ctx, records); err != nil {
		log.Warn("save failed", "error", err)
		return false, err
	}
	log.Info("record updated")
	return true, nil
}

// Delete removes every record matching id. Returns false, without writing,
// when nothing matched.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = record.NormalizeID(id)
	log := s.opLogger(ctx, "delete", id)

	records, err := s.backend.Load(ctx)
	if err != nil {
		log.Warn("load failed", "error", err)
		return false, err
	}
	kept := slices.DeleteFunc(slices.Clone(records), func(r record.Record) bool {
		return record.NormalizeID(r.ID) == id
	})
	if len(kept) == len(records) {
		log.Debug("record not found")
		return false, nil
	}

	if err := s.backend.Save(ctx, kept); err != nil {
		log.Warn("save failed", "error", err)
		return false, err
	}
	log.Info("record deleted", "removed", len(records)-len(kept))
	return true, nil
}

// Upsert adds a record built from p when id is absent, otherwise applies p
// to the existing record. Reports whether a record was created.
func (s *Store) Upsert(ctx context.Context, id string, p Patch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = record.NormalizeID(id)
	log := s.opLogger(ctx, "upsert", id)

	if err := validateID(id); err != nil {
		return false, err
	}

	records, err := s.backend.Load(ctx)
	if err != nil {
		log.Warn("load failed", "error", err)
		return false, err
	}

	created := false
	if i := indexOf(records, id); i >= 0 {
		p.apply(&records[i])
	} else {
		rec := record.Record{ID: id}
		p.apply(&rec)
		records = append(records, rec)
		created = true
	}

	if err := s.backend.Save(ctx, records); err != nil {
		log.Warn("save failed", "error", err)
		return false, err
	}
	log.Info("record upserted", "created", created)
	return created, nil
}

func (s *Store) opLogger(ctx context.Context, op, id string) *slog.Logger {
	opID, ok := OpIDFromContext(ctx)
	if !ok {
		opID = s.ids.Generate()
	}
	attrs := []any{"op", op, "op_id", opID, "backend", s.backend.Location()}
	if id != "" {
		attrs = append(attrs, "id", id)
	}
	return s.logger.With(attrs...)
}

func validateID(id string) error {
	if id == "" {
		return &ValidationError{Field: "id", Reason: "cannot be empty"}
	}
	return nil
}

func indexOf(records []record.Record, id string) int {
	return slices.IndexFunc(records, func(r record.Record) bool {
		return record.NormalizeID(r.ID) == id
	})
}
