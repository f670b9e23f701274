package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/lshvec/kvstore"
	"github.com/hupe1980/lshvec/resource"
)

// DynamoDB request limits.
const (
	maxBatchGet   = 100
	maxBatchWrite = 25
)

// ErrUnprocessed is returned when DynamoDB keeps returning unprocessed
// keys or items after all continuation attempts.
var ErrUnprocessed = errors.New("dynamodb: unprocessed items remain")

// Client is the subset of the DynamoDB API used by Store.
// *dynamodb.Client satisfies it.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Options configures a Store.
type Options struct {
	// ConsistentRead requests strongly consistent reads.
	ConsistentRead bool

	// Concurrency bounds parallel batch requests. Default 8.
	Concurrency int

	// MaxAttempts bounds BatchGetItem/BatchWriteItem continuations for
	// unprocessed keys. Default 10.
	MaxAttempts int

	// MaxBackoff caps the delay between continuations. Default 2s.
	MaxBackoff time.Duration

	// Controller limits in-flight requests and read and write throughput.
	// One read unit is taken per requested key, one write unit per item
	// written. Optional.
	Controller *resource.Controller
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 2 * time.Second
	}
	return o
}

// Store is a kvstore.Store backed by one DynamoDB table.
type Store struct {
	client  Client
	table   string
	opts    Options
	backoff *retry.ExponentialJitterBackoff
}

// NewStore creates a store for table.
func NewStore(client Client, table string, optFns ...func(*Options)) *Store {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	opts = opts.withDefaults()

	return &Store{
		client:  client,
		table:   table,
		opts:    opts,
		backoff: retry.NewExponentialJitterBackoff(opts.MaxBackoff),
	}
}

// TableName returns the DynamoDB table name.
func (s *Store) TableName() string { return s.table }

// Get returns the record for id.
func (s *Store) Get(ctx context.Context, id string) (kvstore.Record, error) {
	release, err := s.acquire(ctx, 1, 0)
	if err != nil {
		return kvstore.Record{}, err
	}
	defer release()

	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            keyOf(id),
		ConsistentRead: aws.Bool(s.opts.ConsistentRead),
	})
	if err != nil {
		return kvstore.Record{}, fmt.Errorf("failed to get item %q from %s: %w", id, s.table, err)
	}
	if len(resp.Item) == 0 {
		return kvstore.Record{}, kvstore.ErrNotFound
	}
	return decodeItem(resp.Item)
}

// GetBulk fetches ids in chunks of 100, in parallel.
func (s *Store) GetBulk(ctx context.Context, ids []string) ([]kvstore.Record, error) {
	ids = kvstore.UniqueIDs(ids)
	if len(ids) == 0 {
		return []kvstore.Record{}, nil
	}

	var (
		mu    sync.Mutex
		found = make(map[string]kvstore.Record, len(ids))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for start := 0; start < len(ids); start += maxBatchGet {
		chunk := ids[start:min(start+maxBatchGet, len(ids))]
		g.Go(func() error {
			items, err := s.batchGet(gctx, chunk)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, item := range items {
				r, err := decodeItem(item)
				if err != nil {
					return err
				}
				found[r.ID] = r
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return kvstore.InOrder(ids, found), nil
}

func (s *Store) batchGet(ctx context.Context, ids []string) ([]map[string]types.AttributeValue, error) {
	keys := make([]map[string]types.AttributeValue, len(ids))
	for i, id := range ids {
		keys[i] = keyOf(id)
	}

	var items []map[string]types.AttributeValue
	for attempt := 0; len(keys) > 0; attempt++ {
		if attempt >= s.opts.MaxAttempts {
			return nil, fmt.Errorf("%w: %d keys in %s", ErrUnprocessed, len(keys), s.table)
		}
		if attempt > 0 {
			if err := s.sleep(ctx, attempt); err != nil {
				return nil, err
			}
		}

		resp, err := s.doBatchGet(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("failed to batch get from %s: %w", s.table, err)
		}
		items = append(items, resp.Responses[s.table]...)

		keys = nil
		if up, ok := resp.UnprocessedKeys[s.table]; ok {
			keys = up.Keys
		}
	}
	return items, nil
}

func (s *Store) doBatchGet(ctx context.Context, keys []map[string]types.AttributeValue) (*dynamodb.BatchGetItemOutput, error) {
	release, err := s.acquire(ctx, len(keys), 0)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
		RequestItems: map[string]types.KeysAndAttributes{
			s.table: {
				Keys:           keys,
				ConsistentRead: aws.Bool(s.opts.ConsistentRead),
			},
		},
	})
}

// Put writes the full record with PutItem.
func (s *Store) Put(ctx context.Context, r kvstore.Record) error {
	item, err := encodeItem(r)
	if err != nil {
		return err
	}

	release, err := s.acquire(ctx, 0, 1)
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to put item %q into %s: %w", r.ID, s.table, err)
	}
	return nil
}

// PutBatch writes records in chunks of 25.
// Duplicate ids are collapsed first since DynamoDB rejects them within a batch.
func (s *Store) PutBatch(ctx context.Context, rs []kvstore.Record) error {
	rs = kvstore.LastWins(rs)
	reqs := make([]types.WriteRequest, len(rs))
	for i, r := range rs {
		item, err := encodeItem(r)
		if err != nil {
			return err
		}
		reqs[i] = types.WriteRequest{PutRequest: &types.PutRequest{Item: item}}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for start := 0; start < len(reqs); start += maxBatchWrite {
		chunk := reqs[start:min(start+maxBatchWrite, len(reqs))]
		g.Go(func() error {
			return s.batchWrite(gctx, chunk)
		})
	}
	return g.Wait()
}

func (s *Store) batchWrite(ctx context.Context, reqs []types.WriteRequest) error {
	for attempt := 0; len(reqs) > 0; attempt++ {
		if attempt >= s.opts.MaxAttempts {
			return fmt.Errorf("%w: %d items in %s", ErrUnprocessed, len(reqs), s.table)
		}
		if attempt > 0 {
			if err := s.sleep(ctx, attempt); err != nil {
				return err
			}
		}

		resp, err := s.doBatchWrite(ctx, reqs)
		if err != nil {
			return fmt.Errorf("failed to batch write to %s: %w", s.table, err)
		}
		reqs = resp.UnprocessedItems[s.table]
	}
	return nil
}

func (s *Store) doBatchWrite(ctx context.Context, reqs []types.WriteRequest) (*dynamodb.BatchWriteItemOutput, error) {
	release, err := s.acquire(ctx, 0, len(reqs))
	if err != nil {
		return nil, err
	}
	defer release()

	return s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{s.table: reqs},
	})
}

// UnionColumn adds values to a string-set attribute with "ADD #col :vals".
func (s *Store) UnionColumn(ctx context.Context, key, column string, values []string) error {
	if key == "" {
		return kvstore.ErrInvalidID
	}
	if err := kvstore.ValidateColumn(column); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	release, err := s.acquire(ctx, 0, 1)
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.table),
		Key:              keyOf(key),
		UpdateExpression: aws.String("ADD #col :vals"),
		ExpressionAttributeNames: map[string]string{
			"#col": column,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			// String sets must not contain duplicates.
			":vals": &types.AttributeValueMemberSS{Value: kvstore.UnionSorted(values, nil)},
		},
	}); err != nil {
		return fmt.Errorf("failed to update %s.%s in %s: %w", key, column, s.table, err)
	}
	return nil
}

// acquire waits for read and write units, then takes a request slot.
func (s *Store) acquire(ctx context.Context, reads, writes int) (func(), error) {
	rc := s.opts.Controller
	if err := rc.WaitReads(ctx, reads); err != nil {
		return nil, err
	}
	if err := rc.WaitWrites(ctx, writes); err != nil {
		return nil, err
	}
	return rc.Acquire(ctx)
}

func (s *Store) sleep(ctx context.Context, attempt int) error {
	d, err := s.backoff.BackoffDelay(attempt, ErrUnprocessed)
	if err != nil {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Provider maps table names to DynamoDB tables named prefix+name.
type Provider struct {
	client Client
	prefix string
	optFns []func(*Options)
}

// NewProvider creates a provider. Every table it opens shares optFns.
func NewProvider(client Client, prefix string, optFns ...func(*Options)) *Provider {
	return &Provider{client: client, prefix: prefix, optFns: optFns}
}

// Table returns the store for prefix+name. Tables must already exist.
func (p *Provider) Table(_ context.Context, name string) (kvstore.Store, error) {
	return NewStore(p.client, p.prefix+name, p.optFns...), nil
}

var (
	_ kvstore.Store    = (*Store)(nil)
	_ kvstore.Provider = (*Provider)(nil)
)
