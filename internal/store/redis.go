package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/drover-io/drover/internal/config"
	"github.com/drover-io/drover/pkg/api"
)

// RedisStore implements Store over Redis. Each flow is one JSON document.
// Two indexes are maintained alongside the documents: a per-agent sorted
// set scored by creation time for newest-first listing, and a global set
// of non-terminal flows for the timeout sweep
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(
	ctx context.Context, cfg config.StoreConfig,
) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return &RedisStore{
		client: client,
		prefix: cfg.Prefix,
	}, nil
}

// Ping reports whether the underlying Redis connection is healthy
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

func (s *RedisStore) Get(
	ctx context.Context, agentID api.AgentID, flowID api.FlowID,
) (*api.Flow, error) {
	data, err := s.client.Get(ctx, s.flowKey(agentID, flowID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return decodeFlow(data)
}

func (s *RedisStore) Put(ctx context.Context, flow *api.Flow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	member := memberKey(flow.AgentID, flow.ID)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.flowKey(flow.AgentID, flow.ID), data, 0)
	pipe.ZAdd(ctx, s.agentKey(flow.AgentID), redis.Z{
		Score:  float64(flow.CreatedAt.UnixMilli()),
		Member: string(flow.ID),
	})
	if flow.Status.Terminal() {
		pipe.SRem(ctx, s.nonTerminalKey(), member)
	} else {
		pipe.SAdd(ctx, s.nonTerminalKey(), member)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

func (s *RedisStore) List(
	ctx context.Context, agentID api.AgentID,
) ([]*api.Flow, error) {
	ids, err := s.client.ZRevRange(
		ctx, s.agentKey(agentID), 0, -1,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.flowKey(agentID, api.FlowID(id))
	}
	return s.fetchFlows(ctx, keys)
}

func (s *RedisStore) ListNonTerminal(
	ctx context.Context,
) ([]*api.Flow, error) {
	members, err := s.client.SMembers(ctx, s.nonTerminalKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(members))
	for _, m := range members {
		agentID, flowID, ok := splitMemberKey(m)
		if !ok {
			continue
		}
		keys = append(keys, s.flowKey(agentID, flowID))
	}

	flows, err := s.fetchFlows(ctx, keys)
	if err != nil {
		return nil, err
	}

	// The index can lag a concurrent terminal write; the snapshot must
	// still only contain non-terminal records
	res := flows[:0]
	for _, f := range flows {
		if !f.Status.Terminal() {
			res = append(res, f)
		}
	}
	return res, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) fetchFlows(
	ctx context.Context, keys []string,
) ([]*api.Flow, error) {
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	flows := make([]*api.Flow, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue // deleted between index read and fetch
		}
		flow, err := decodeFlow([]byte(str))
		if err != nil {
			return nil, err
		}
		flows = append(flows, flow)
	}
	return flows, nil
}

func (s *RedisStore) flowKey(agentID api.AgentID, flowID api.FlowID) string {
	return fmt.Sprintf("%s:flow:%s:%s", s.prefix, agentID, flowID)
}

func (s *RedisStore) agentKey(agentID api.AgentID) string {
	return fmt.Sprintf("%s:agent-flows:%s", s.prefix, agentID)
}

func (s *RedisStore) nonTerminalKey() string {
	return s.prefix + ":nonterminal"
}

func decodeFlow(data []byte) (*api.Flow, error) {
	var flow api.Flow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return &flow, nil
}

func memberKey(agentID api.AgentID, flowID api.FlowID) string {
	return fmt.Sprintf("%s/%s", agentID, flowID)
}

func splitMemberKey(member string) (api.AgentID, api.FlowID, bool) {
	agent, flow, ok := strings.Cut(member, "/")
	if !ok || agent == "" || flow == "" {
		return "", "", false
	}
	return api.AgentID(agent), api.FlowID(flow), true
}
