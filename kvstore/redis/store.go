package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/hupe1980/lshvec/kvstore"
)

const (
	fieldMarker   = "_"
	maxTxAttempts = 16
)

// ErrTxContention is returned when optimistic transactions keep failing.
var ErrTxContention = errors.New("redis: transaction contention")

// Store is a kvstore.Store stored in one Redis keyspace.
type Store struct {
	client redis.UniversalClient
	base   string
	// perRow splits PutBatch into one transaction per row. Set for cluster
	// clients, where WATCH and MULTI cannot span hash slots.
	perRow bool
}

// NewStore creates a store for table, namespacing its keys with prefix.
func NewStore(client redis.UniversalClient, prefix, table string) (*Store, error) {
	if _, err := kvstore.TableKeyPrefix(table); err != nil {
		return nil, err
	}
	_, cluster := client.(*redis.ClusterClient)
	return &Store{client: client, base: prefix + table, perRow: cluster}, nil
}

// idKey returns the key prefix shared by all keys of id. The hash tag puts
// them in one cluster slot and the length prefix keeps ids containing ':'
// or '}' from colliding.
func (s *Store) idKey(id string) string {
	return s.base + ":{" + strconv.Itoa(len(id)) + ":" + id + "}"
}

func (s *Store) rowKey(id string) string  { return s.idKey(id) + ":r" }
func (s *Store) colsKey(id string) string { return s.idKey(id) + ":c" }

func (s *Store) setKey(id, col string) string {
	return s.idKey(id) + ":s:" + col
}

// Get returns the record for id.
func (s *Store) Get(ctx context.Context, id string) (kvstore.Record, error) {
	rs, err := s.GetBulk(ctx, []string{id})
	if err != nil {
		return kvstore.Record{}, err
	}
	if len(rs) == 0 {
		return kvstore.Record{}, kvstore.ErrNotFound
	}
	return rs[0], nil
}

type setRead struct {
	rec int
	col string
	cmd *redis.StringSliceCmd
}

// GetBulk reads rows and their set columns in two pipelines.
func (s *Store) GetBulk(ctx context.Context, ids []string) ([]kvstore.Record, error) {
	ids = kvstore.UniqueIDs(ids)
	if len(ids) == 0 {
		return []kvstore.Record{}, nil
	}

	rows := make([]*redis.StringStringMapCmd, len(ids))
	cols := make([]*redis.StringSliceCmd, len(ids))
	if _, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			rows[i] = pipe.HGetAll(ctx, s.rowKey(id))
			cols[i] = pipe.SMembers(ctx, s.colsKey(id))
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	out := make([]kvstore.Record, 0, len(ids))
	var reads []setRead
	for i, id := range ids {
		fields := rows[i].Val()
		if len(fields) == 0 {
			continue
		}
		r, err := decodeFields(id, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
		for _, col := range cols[i].Val() {
			reads = append(reads, setRead{rec: len(out) - 1, col: col})
		}
	}
	if len(reads) == 0 {
		return out, nil
	}

	if _, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i := range reads {
			reads[i].cmd = pipe.SMembers(ctx, s.setKey(out[reads[i].rec].ID, reads[i].col))
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to read set columns: %w", err)
	}
	for _, sr := range reads {
		members := sr.cmd.Val()
		if len(members) == 0 {
			continue
		}
		r := &out[sr.rec]
		if r.Sets == nil {
			r.Sets = make(map[string][]string)
		}
		r.Sets[sr.col] = kvstore.UnionSorted(members, nil)
	}
	return out, nil
}

// Put replaces a record.
func (s *Store) Put(ctx context.Context, r kvstore.Record) error {
	return s.PutBatch(ctx, []kvstore.Record{r})
}

type putRow struct {
	id     string
	fields map[string]interface{}
	sets   map[string][]string
}

// PutBatch replaces records in one MULTI/EXEC, watching their column
// registries so that a concurrent UnionColumn forces a retry. On a cluster
// client every row gets its own transaction.
func (s *Store) PutBatch(ctx context.Context, rs []kvstore.Record) error {
	rs = kvstore.LastWins(rs)
	if len(rs) == 0 {
		return nil
	}

	rows := make([]putRow, len(rs))
	for i, r := range rs {
		if err := kvstore.ValidateRecord(r); err != nil {
			return err
		}
		fields, err := encodeFields(r)
		if err != nil {
			return err
		}
		rows[i] = putRow{id: r.ID, fields: fields, sets: kvstore.NormalizeSets(r.Sets)}
	}

	if !s.perRow {
		return s.putRows(ctx, rows)
	}
	for i := range rows {
		if err := s.putRows(ctx, rows[i:i+1]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) putRows(ctx context.Context, rows []putRow) error {
	watch := make([]string, len(rows))
	for i, rw := range rows {
		watch[i] = s.colsKey(rw.id)
	}

	txf := func(tx *redis.Tx) error {
		old := make([]*redis.StringSliceCmd, len(rows))
		if _, err := tx.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, rw := range rows {
				old[i] = pipe.SMembers(ctx, s.colsKey(rw.id))
			}
			return nil
		}); err != nil {
			return err
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, rw := range rows {
				stale := []string{s.rowKey(rw.id), s.colsKey(rw.id)}
				for _, col := range old[i].Val() {
					stale = append(stale, s.setKey(rw.id, col))
				}
				pipe.Del(ctx, stale...)
				pipe.HSet(ctx, s.rowKey(rw.id), rw.fields)
				for col, vals := range rw.sets {
					pipe.SAdd(ctx, s.colsKey(rw.id), col)
					pipe.SAdd(ctx, s.setKey(rw.id, col), toArgs(vals)...)
				}
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, watch...)
		if !errors.Is(err, redis.TxFailedErr) {
			if err != nil {
				return fmt.Errorf("failed to write rows: %w", err)
			}
			return nil
		}
	}
	return ErrTxContention
}

// UnionColumn adds members with SADD inside MULTI/EXEC.
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

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.rowKey(key), fieldMarker, "1")
		pipe.SAdd(ctx, s.colsKey(key), column)
		pipe.SAdd(ctx, s.setKey(key, column), toArgs(values)...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to union %s.%s: %w", key, column, err)
	}
	return nil
}

func toArgs(vals []string) []interface{} {
	args := make([]interface{}, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return args
}

func encodeFields(r kvstore.Record) (map[string]interface{}, error) {
	fields := map[string]interface{}{fieldMarker: "1"}
	if r.Vector != nil {
		fields[kvstore.AttrVector] = kvstore.EncodeVector(r.Vector)
	}
	if r.Metadata != nil {
		b, err := kvstore.EncodeMetadata(r.Metadata)
		if err != nil {
			return nil, err
		}
		fields[kvstore.AttrMetadata] = b
	}
	if r.Data != nil {
		fields[kvstore.AttrData] = r.Data
	}
	return fields, nil
}

func decodeFields(id string, fields map[string]string) (kvstore.Record, error) {
	r := kvstore.Record{ID: id}
	var err error
	if v, ok := fields[kvstore.AttrVector]; ok {
		if r.Vector, err = kvstore.DecodeVector([]byte(v)); err != nil {
			return kvstore.Record{}, err
		}
	}
	if v, ok := fields[kvstore.AttrMetadata]; ok {
		if r.Metadata, err = kvstore.DecodeMetadata([]byte(v)); err != nil {
			return kvstore.Record{}, err
		}
	}
	if v, ok := fields[kvstore.AttrData]; ok {
		r.Data = []byte(v)
	}
	return r, nil
}

// Provider opens tables in one Redis keyspace.
type Provider struct {
	client redis.UniversalClient
	prefix string
}

// NewProvider creates a provider namespacing all keys with prefix.
func NewProvider(client redis.UniversalClient, prefix string) *Provider {
	return &Provider{client: client, prefix: prefix}
}

// Table returns the store for name.
func (p *Provider) Table(_ context.Context, name string) (kvstore.Store, error) {
	return NewStore(p.client, p.prefix, name)
}

var (
	_ kvstore.Store    = (*Store)(nil)
	_ kvstore.Provider = (*Provider)(nil)
)
