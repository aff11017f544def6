package catalog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/acksell/datalake"
	"github.com/acksell/datalake/awsiface"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
)

const databaseDescription = "Database for the landing zones in the data lake"

type Option func(*Provisioner)

// WithLogger sets the logger outcomes are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provisioner) { p.logger = l }
}

// WithCatalogID targets a specific account's catalog instead of the caller's.
func WithCatalogID(id string) Option {
	return func(p *Provisioner) { p.catalogID = id }
}

// Provisioner registers databases and tables in the Glue Data Catalog.
type Provisioner struct {
	glue      awsiface.GlueAPI
	catalogID string
	logger    *slog.Logger
}

func New(g awsiface.GlueAPI, opts ...Option) *Provisioner {
	p := &Provisioner{glue: g, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "catalog")
	return p
}

func (p *Provisioner) catalog() *string {
	if p.catalogID == "" {
		return nil
	}
	return aws.String(p.catalogID)
}

// EnsureDatabase creates the database. An existing database is not an error.
func (p *Provisioner) EnsureDatabase(ctx context.Context, name string) datalake.Outcome {
	_, err := p.glue.CreateDatabase(ctx, &glue.CreateDatabaseInput{
		CatalogId: p.catalog(),
		DatabaseInput: &gluetypes.DatabaseInput{
			Name:        aws.String(name),
			Description: aws.String(databaseDescription),
		},
	})
	var exists *gluetypes.AlreadyExistsException
	switch {
	case err == nil:
		p.logger.Info("glue database created", "database", name)
		return datalake.Succeeded(datalake.KindDatabase, name)
	case errors.As(err, &exists):
		p.logger.Info("glue database already exists", "database", name)
		return datalake.AlreadyExists(datalake.KindDatabase, name)
	default:
		p.logger.Error("create glue database failed", "database", name, "error", err)
		return datalake.Failed(datalake.KindDatabase, name, err)
	}
}

// RegisterTable creates one external table. A table that already exists is
// reported and left as it is; registration never updates a definition.
func (p *Provisioner) RegisterTable(ctx context.Context, database string, t TableSpec) datalake.Outcome {
	_, err := p.glue.CreateTable(ctx, &glue.CreateTableInput{
		CatalogId:    p.catalog(),
		DatabaseName: aws.String(database),
		TableInput:   TableInput(t),
	})
	var exists *gluetypes.AlreadyExistsException
	switch {
	case err == nil:
		p.logger.Info("glue table created",
			"database", database,
			"table", t.Name,
			"zone", t.Zone,
			"columns", len(t.Schema),
			"location", t.Location,
		)
		return datalake.Succeeded(datalake.KindTable, t.Name)
	case errors.As(err, &exists):
		p.logger.Info("glue table already exists", "database", database, "table", t.Name)
		return datalake.AlreadyExists(datalake.KindTable, t.Name)
	default:
		p.logger.Error("create glue table failed", "database", database, "table", t.Name, "error", err)
		return datalake.Failed(datalake.KindTable, t.Name, err)
	}
}

// Provision ensures the database and registers every table of the plan in
// order. A failed table does not stop the ones after it, and a failed
// database still lets each table report its own cause.
func (p *Provisioner) Provision(ctx context.Context, database string, plan []TableSpec) datalake.Report {
	var r datalake.Report
	r.Add(p.EnsureDatabase(ctx, database))
	for _, t := range plan {
		r.Add(p.RegisterTable(ctx, database, t))
	}
	return r
}
