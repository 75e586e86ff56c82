// Package migrations exposes the embedded onesub schema migrations in a
// form that host applications can hand to their migration runner. The
// schema covers the webhook replay ledger (onesub_webhook_events) and the
// subscription snapshot cache (onesub_subscription_snapshots).
package migrations

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"strings"

	onesub "github.com/goliatone/go-onesub"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DefaultSourceLabel is the name migrations are attributed to in the
// host's migration table unless overridden.
const DefaultSourceLabel = "go-onesub"

// coreSchemaName is the migration pair that creates onesub_webhook_events
// and onesub_subscription_snapshots. Both dialect trees must carry it.
const coreSchemaName = "00001_onesub_core_schema"

// DialectFS pairs a SQL dialect with the filesystem holding its
// migration files.
type DialectFS struct {
	Dialect string
	FS      fs.FS
}

// Registration reports what was handed to the host's migration runner.
type Registration struct {
	SourceLabel       string
	ValidationTargets []string
}

// RegisterFunc receives one dialect filesystem at a time. Implementations
// typically forward to persistence.Client.RegisterSQLMigrations.
type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

// WithDialectSourceLabel overrides the label migrations are attributed to
// in the host's migration table.
func WithDialectSourceLabel(label string) Option {
	return func(r *Registration) {
		trimmed := strings.TrimSpace(label)
		if trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

// WithValidationTargets restricts registration to the named dialects.
// Hosts that only run one engine register just that dialect's files.
func WithValidationTargets(targets ...string) Option {
	return func(r *Registration) {
		next := make([]string, 0, len(targets))
		for _, target := range targets {
			trimmed := strings.TrimSpace(strings.ToLower(target))
			if trimmed == "" {
				continue
			}
			next = append(next, trimmed)
		}
		if len(next) == 0 {
			return
		}
		r.ValidationTargets = dedupe(next)
	}
}

// Filesystems resolves the postgres and sqlite migration filesystems from
// the embedded tree and verifies each one carries the core schema pair.
func Filesystems() ([]DialectFS, error) {
	base, err := fs.Sub(onesub.GetCoreMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve embedded tree: %w", err)
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite filesystem: %w", err)
	}

	filesystems := []DialectFS{
		{Dialect: DialectPostgres, FS: base},
		{Dialect: DialectSQLite, FS: sqliteFS},
	}
	for _, entry := range filesystems {
		if err := verifyCoreSchema(entry); err != nil {
			return nil, err
		}
	}
	return filesystems, nil
}

func verifyCoreSchema(entry DialectFS) error {
	for _, name := range []string{coreSchemaName + ".up.sql", coreSchemaName + ".down.sql"} {
		content, err := fs.ReadFile(entry.FS, name)
		if err != nil {
			return fmt.Errorf("migrations: %s tree is missing %s: %w", entry.Dialect, name, err)
		}
		if len(bytes.TrimSpace(content)) == 0 {
			return fmt.Errorf("migrations: %s %s is empty", entry.Dialect, name)
		}
	}
	return nil
}

// Register invokes registerFn once per dialect named in the validation
// targets, handing it the matching migration filesystem. Unknown dialects
// are an error rather than a silent skip.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel:       DefaultSourceLabel,
		ValidationTargets: []string{DialectPostgres, DialectSQLite},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&reg)
	}

	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}
	if strings.TrimSpace(reg.SourceLabel) == "" {
		return reg, fmt.Errorf("migrations: source label is required")
	}
	if len(reg.ValidationTargets) == 0 {
		return reg, fmt.Errorf("migrations: validation targets are required")
	}

	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}

	for _, target := range reg.ValidationTargets {
		fsys, found := lookupDialect(filesystems, target)
		if !found {
			return reg, fmt.Errorf("migrations: unsupported dialect %q", target)
		}
		if err := registerFn(ctx, target, reg.SourceLabel, fsys); err != nil {
			return reg, fmt.Errorf("migrations: register %s: %w", target, err)
		}
	}

	return reg, nil
}

func lookupDialect(filesystems []DialectFS, dialect string) (fs.FS, bool) {
	for _, entry := range filesystems {
		if entry.Dialect == dialect {
			return entry.FS, true
		}
	}
	return nil, false
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
