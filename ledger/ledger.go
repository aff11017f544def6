// Package ledger records provisioning runs in a DynamoDB table so the
// outcome of every run can be inspected after the fact.
//
// Each run is stored in its own partition:
//
//	pk=run#<id>  sk=run                 run header (command, times, summary)
//	pk=run#<id>  sk=outcome#<00000>     one item per outcome, in run order
//
// Items are written with attribute_not_exists(pk) so a run is never
// overwritten. With a retention set, every item carries a "ttl" attribute
// (epoch seconds) for DynamoDB's time-to-live expiry.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/acksell/datalake"
	"github.com/acksell/datalake/awsiface"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	partitionKey  = "pk"
	sortKey       = "sk"
	headerSortKey = "run"
	outcomePrefix = "outcome#"
)

type runItem struct {
	PK        string    `dynamodbav:"pk"`
	SK        string    `dynamodbav:"sk"`
	Command   string    `dynamodbav:"command"`
	Started   time.Time `dynamodbav:"started"`
	Ended     time.Time `dynamodbav:"ended"`
	Summary   string    `dynamodbav:"summary"`
	Total     int       `dynamodbav:"total"`
	Failed    int       `dynamodbav:"failed"`
	Succeeded bool      `dynamodbav:"succeeded"`
	TTL       int64     `dynamodbav:"ttl,omitempty"`
}

type outcomeItem struct {
	PK     string `dynamodbav:"pk"`
	SK     string `dynamodbav:"sk"`
	Kind   string `dynamodbav:"kind"`
	Name   string `dynamodbav:"name"`
	Status string `dynamodbav:"status"`
	Error  string `dynamodbav:"error,omitempty"`
	TTL    int64  `dynamodbav:"ttl,omitempty"`
}

func runPK(runID string) string {
	return "run#" + runID
}

func outcomeSK(i int) string {
	return fmt.Sprintf("%s%05d", outcomePrefix, i)
}

// Ledger writes runs to a DynamoDB table keyed by (pk, sk) strings.
type Ledger struct {
	ddb       awsiface.DynamoAPI
	table     string
	retention time.Duration
	logger    *slog.Logger
}

func New(ddb awsiface.DynamoAPI, table string, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{ddb: ddb, table: table, logger: logger.With("component", "ledger")}
}

// WithRetention makes recorded items expire d after the run ended.
// Zero keeps them forever.
func (l *Ledger) WithRetention(d time.Duration) *Ledger {
	l.retention = d
	return l
}

func (l *Ledger) expiry(run datalake.RunMeta) int64 {
	if l.retention <= 0 {
		return 0
	}
	return run.Ended.Add(l.retention).Unix()
}

// Record stores the run header followed by each outcome. It stops at the
// first failed write.
func (l *Ledger) Record(ctx context.Context, run datalake.Run) error {
	if run.Meta.ID == "" {
		return fmt.Errorf("run id is required")
	}
	pk := runPK(run.Meta.ID)
	ttl := l.expiry(run.Meta)
	header := runItem{
		PK:        pk,
		SK:        headerSortKey,
		Command:   run.Meta.Command,
		Started:   run.Meta.Started,
		Ended:     run.Meta.Ended,
		Summary:   run.Report.Summary(),
		Total:     len(run.Report.Outcomes),
		Failed:    len(run.Report.Failed()),
		Succeeded: run.Report.OK(),
		TTL:       ttl,
	}
	if err := l.put(ctx, header); err != nil {
		return fmt.Errorf("record run %s: %w", run.Meta.ID, err)
	}
	for i, o := range run.Report.Outcomes {
		item := outcomeItem{
			PK:     pk,
			SK:     outcomeSK(i),
			Kind:   string(o.Kind),
			Name:   o.Name,
			Status: string(o.Status),
			TTL:    ttl,
		}
		if o.Err != nil {
			item.Error = o.Err.Error()
		}
		if err := l.put(ctx, item); err != nil {
			return fmt.Errorf("record outcome %d of run %s: %w", i, run.Meta.ID, err)
		}
	}
	l.logger.Info("run recorded", "table", l.table, "run", run.Meta.ID, "outcomes", len(run.Report.Outcomes))
	return nil
}

func (l *Ledger) put(ctx context.Context, v any) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("failed to marshal item to dynamodb map: %w", err)
	}
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(partitionKey))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build condition: %w", err)
	}
	_, err = l.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(l.table),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	var exists *types.ConditionalCheckFailedException
	if errors.As(err, &exists) {
		return fmt.Errorf("item already recorded: %w", err)
	}
	return err
}

// Outcomes reads back the outcomes of a run in the order they happened.
func (l *Ledger) Outcomes(ctx context.Context, runID string) ([]datalake.Outcome, error) {
	keyCond := expression.Key(partitionKey).Equal(expression.Value(runPK(runID))).
		And(expression.Key(sortKey).BeginsWith(outcomePrefix))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build key condition: %w", err)
	}

	in := &dynamodb.QueryInput{
		TableName:                 aws.String(l.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	}
	var outcomes []datalake.Outcome
	for {
		res, err := l.ddb.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("query run %s: %w", runID, err)
		}
		var items []outcomeItem
		if err := attributevalue.UnmarshalListOfMaps(res.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal outcomes: %w", err)
		}
		for _, it := range items {
			o := datalake.Outcome{
				Kind:   datalake.Kind(it.Kind),
				Name:   it.Name,
				Status: datalake.Status(it.Status),
			}
			if it.Error != "" {
				o.Err = errors.New(it.Error)
			}
			outcomes = append(outcomes, o)
		}
		if len(res.LastEvaluatedKey) == 0 {
			return outcomes, nil
		}
		in.ExclusiveStartKey = res.LastEvaluatedKey
	}
}
