package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/acksell/datalake"
	"github.com/acksell/datalake/awsiface"
	"github.com/acksell/datalake/config"
	"github.com/acksell/datalake/lakestore"
	"github.com/acksell/datalake/ledger"
	"github.com/acksell/datalake/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// memoryStore selects the in-memory emulator for --local.
const memoryStore = ":memory:"

// runtime is everything one command invocation works with.
type runtime struct {
	project config.Project
	clients awsiface.Clients
	// account is the caller's account ID, empty when it could not be resolved.
	account string
	logger  *slog.Logger
	ledger  *ledger.Ledger
	strict  bool

	meta    datalake.RunMeta
	closers []func() error
}

// open loads configuration and builds the service clients, either for AWS or
// for the local emulator. Missing credentials fail here, before any call.
func (o *rootOptions) open(ctx context.Context, command string) (*runtime, error) {
	project, err := o.loadProject()
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		project: project,
		strict:  o.v.GetBool("strict"),
		meta: datalake.RunMeta{
			ID:      uuid.NewString(),
			Command: command,
			Started: time.Now().UTC(),
		},
	}
	rt.logger = o.logger.With("run", rt.meta.ID, "command", command)

	if dir := o.v.GetString("local"); dir != "" {
		err = rt.openLocal(dir)
	} else {
		err = rt.openAWS(ctx)
	}
	if err != nil {
		rt.close()
		return nil, err
	}

	if rt.clients.STS != nil {
		rt.account = rt.resolveAccount(ctx)
	}
	if project.LedgerTable != "" {
		if rt.clients.Dynamo == nil {
			rt.logger.Warn("run ledger is not available with the local emulator", "table", project.LedgerTable)
		} else {
			rt.ledger = ledger.New(rt.clients.Dynamo, project.LedgerTable, rt.logger).
				WithRetention(o.v.GetDuration("ledger-retention"))
		}
	}
	return rt, nil
}

func (rt *runtime) openAWS(ctx context.Context) error {
	credsPath := rt.project.Resolve(rt.project.Credentials)
	creds, err := config.LoadCredentials(credsPath)
	if err != nil {
		return err
	}
	cfg, err := config.AWSConfig(ctx, rt.project.Region, creds)
	if err != nil {
		return err
	}

	rt.clients = awsiface.Clients{
		S3:     s3.NewFromConfig(cfg, config.S3Options(rt.project.Endpoint)...),
		Glue:   glue.NewFromConfig(cfg),
		Athena: athena.NewFromConfig(cfg),
	}
	// An S3-compatible endpoint has no STS to ask for the account.
	if rt.project.Endpoint == "" {
		rt.clients.STS = sts.NewFromConfig(cfg)
	}
	if rt.project.LedgerTable != "" {
		rt.clients.Dynamo = dynamodb.NewFromConfig(cfg)
	}
	rt.logger.Debug("using aws", "region", rt.project.Region, "endpoint", rt.project.Endpoint)
	return nil
}

func (rt *runtime) openLocal(dir string) error {
	opts := lakestore.Options{Region: rt.project.Region}
	if dir == memoryStore {
		opts.InMemory = true
	} else {
		opts.Path = dir
	}
	store, err := lakestore.New(opts)
	if err != nil {
		return fmt.Errorf("open local store %s: %w", dir, err)
	}
	rt.closers = append(rt.closers, store.Close)
	rt.clients = store.Clients()
	rt.logger.Debug("using local store", "dir", dir)
	return nil
}

// resolveAccount asks STS who the caller is. Failure only costs the
// expected-owner checks, so it is logged and otherwise ignored.
func (rt *runtime) resolveAccount(ctx context.Context) string {
	out, err := rt.clients.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		rt.logger.Warn("could not resolve caller account, bucket owner checks disabled", "error", err)
		return ""
	}
	account := aws.ToString(out.Account)
	rt.logger.Debug("resolved caller", "account", account, "arn", aws.ToString(out.Arn))
	return account
}

func (rt *runtime) storage() *storage.Client {
	return storage.New(rt.clients.S3,
		storage.WithLogger(rt.logger),
		storage.WithExpectedOwner(rt.account),
	)
}

// finish logs the result, records the run in the ledger if one is
// configured, and turns failures into an error under --strict.
func (rt *runtime) finish(ctx context.Context, report datalake.Report) error {
	rt.meta.Ended = time.Now().UTC()
	if report.OK() {
		rt.logger.Info("done", "result", report.Summary())
	} else {
		rt.logger.Warn("done with failures", "result", report.Summary())
	}

	if rt.ledger != nil {
		// Still record a run that was interrupted.
		err := rt.ledger.Record(context.WithoutCancel(ctx), datalake.Run{Meta: rt.meta, Report: report})
		if err != nil {
			rt.logger.Error("record run failed", "error", err)
		}
	}

	if rt.strict {
		return report.Err()
	}
	return nil
}

func (rt *runtime) close() {
	for _, c := range rt.closers {
		if err := c(); err != nil {
			rt.logger.Warn("close failed", "error", err)
		}
	}
}

// runFunc does the work of one command. An error means the command could
// not start; per-resource failures belong in the report.
type runFunc func(ctx context.Context, rt *runtime) (datalake.Report, error)

func (o *rootOptions) run(cmd *cobra.Command, fn runFunc) error {
	ctx := cmd.Context()
	rt, err := o.open(ctx, cmd.Name())
	if err != nil {
		return err
	}
	defer rt.close()

	report, err := fn(ctx, rt)
	if err != nil {
		return err
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		rt.logger.Warn("interrupted")
	}
	return rt.finish(ctx, report)
}
