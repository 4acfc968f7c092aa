// internal/attendance/recorder.go
package attendance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// ErrAlreadyCheckedIn is returned for a second check-in of the same member
// at the same event.
var ErrAlreadyCheckedIn = errors.New("member already checked in for this event")

// DefaultRetention is how long check-ins are remembered.
const DefaultRetention = 7 * 24 * time.Hour

// CheckIn is one accepted attendance scan.
type CheckIn struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	MemberID  string    `json:"member_id"`
	CheckedIn time.Time `json:"checked_in_at"`
}

// Recorder allows one check-in per member per event.
type Recorder interface {
	Record(ctx context.Context, c CheckIn) error
	Get(ctx context.Context, eventID, memberID string) (*CheckIn, error)
	Count(ctx context.Context, eventID string) (int64, error)
	Members(ctx context.Context, eventID string) ([]string, error)
}

type RedisRecorder struct {
	client    *redis.Client
	logger    *zap.Logger
	prefix    string
	retention time.Duration
}

func NewRedisRecorder(client *redis.Client, logger *zap.Logger, retention time.Duration) *RedisRecorder {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRecorder{
		client:    client,
		logger:    logger,
		prefix:    "sinoman:attendance:",
		retention: retention,
	}
}

func (r *RedisRecorder) memberKey(eventID, memberID string) string {
	return r.prefix + eventID + ":" + memberID
}

func (r *RedisRecorder) setKey(eventID string) string {
	return r.prefix + eventID + ":members"
}

// Record stores c unless the member already checked in. SET NX makes the
// check and the write a single step.
func (r *RedisRecorder) Record(ctx context.Context, c CheckIn) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal check-in: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.memberKey(c.EventID, c.MemberID), raw, r.retention).Result()
	if err != nil {
		return fmt.Errorf("record check-in: %w", err)
	}
	if !ok {
		return ErrAlreadyCheckedIn
	}

	setKey := r.setKey(c.EventID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, setKey, c.MemberID)
		pipe.Expire(ctx, setKey, r.retention)
		return nil
	})
	if err != nil {
		// the check-in itself is stored; only the counter is behind
		r.logger.Warn("failed to update attendance set",
			zap.String("event_id", c.EventID),
			zap.String("member_id", c.MemberID),
			zap.Error(err),
		)
	}
	return nil
}

// Get returns the stored check-in, or nil if there is none.
func (r *RedisRecorder) Get(ctx context.Context, eventID, memberID string) (*CheckIn, error) {
	raw, err := r.client.Get(ctx, r.memberKey(eventID, memberID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get check-in: %w", err)
	}
	var c CheckIn
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode check-in: %w", err)
	}
	return &c, nil
}

func (r *RedisRecorder) Count(ctx context.Context, eventID string) (int64, error) {
	n, err := r.client.SCard(ctx, r.setKey(eventID)).Result()
	if err != nil {
		return 0, fmt.Errorf("count attendees: %w", err)
	}
	return n, nil
}

// Members lists the members checked in to an event, sorted.
func (r *RedisRecorder) Members(ctx context.Context, eventID string) ([]string, error) {
	members, err := r.client.SMembers(ctx, r.setKey(eventID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	sort.Strings(members)
	return members, nil
}

// MemoryRecorder is the Recorder used when no Redis is configured.
type MemoryRecorder struct {
	mu       sync.Mutex
	checkIns map[string]map[string]CheckIn
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{checkIns: make(map[string]map[string]CheckIn)}
}

func (m *MemoryRecorder) Record(_ context.Context, c CheckIn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	event, ok := m.checkIns[c.EventID]
	if !ok {
		event = make(map[string]CheckIn)
		m.checkIns[c.EventID] = event
	}
	if _, dup := event[c.MemberID]; dup {
		return ErrAlreadyCheckedIn
	}
	event[c.MemberID] = c
	return nil
}

func (m *MemoryRecorder) Get(_ context.Context, eventID, memberID string) (*CheckIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.checkIns[eventID][memberID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *MemoryRecorder) Count(_ context.Context, eventID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.checkIns[eventID])), nil
}

func (m *MemoryRecorder) Members(_ context.Context, eventID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := make([]string, 0, len(m.checkIns[eventID]))
	for id := range m.checkIns[eventID] {
		members = append(members, id)
	}
	sort.Strings(members)
	return members, nil
}
