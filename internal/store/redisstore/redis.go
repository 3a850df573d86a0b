// Package redisstore keeps slots in redis: a sorted set of slot ids scored by
// id plus one hash per slot. Transitions run as Lua scripts so the check and
// the write happen atomically on the server.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"

	"parking-occupancy/internal/parking"
)

const DefaultPrefix = "parking"

const (
	fieldNumber   = "slot_number"
	fieldOccupied = "occupied"
	fieldVehicle  = "vehicle_number"
	fieldEntry    = "entry_time"
)

// Script results: 1 applied, 0 missing slot, -1 slot in the wrong state.
var occupyScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
if redis.call('HGET', KEYS[1], 'occupied') == '1' then
  return -1
end
redis.call('HSET', KEYS[1], 'occupied', '1', 'vehicle_number', ARGV[1], 'entry_time', ARGV[2])
return 1
`)

var releaseScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
if redis.call('HGET', KEYS[1], 'occupied') ~= '1' then
  return -1
end
redis.call('HSET', KEYS[1], 'occupied', '0')
redis.call('HDEL', KEYS[1], 'vehicle_number', 'entry_time')
return 1
`)

type Store struct {
	rdb    redis.Cmdable
	prefix string
}

func New(rdb redis.Cmdable, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{rdb: rdb, prefix: prefix}
}

// NewClient parses a redis:// URL and pings until the server answers.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	_, err = backoff.Retry(ctx, func() (string, error) {
		return client.Ping(ctx).Result()
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(5),
	)
	if err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (s *Store) indexKey() string {
	return s.prefix + ":slots"
}

func (s *Store) slotKey(id int) string {
	return s.prefix + ":slot:" + strconv.Itoa(id)
}

// Seed creates free slots with ids 1..len(labels); existing slots are kept.
func (s *Store) Seed(ctx context.Context, labels []string) error {
	pipe := s.rdb.TxPipeline()
	for i, label := range labels {
		id := i + 1
		pipe.ZAddNX(ctx, s.indexKey(), redis.Z{Score: float64(id), Member: strconv.Itoa(id)})
		pipe.HSetNX(ctx, s.slotKey(id), fieldNumber, label)
		pipe.HSetNX(ctx, s.slotKey(id), fieldOccupied, "0")
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("seed slots: %w", err)
	}
	return nil
}

func (s *Store) ListSlots(ctx context.Context) ([]parking.Slot, error) {
	ids, err := s.rdb.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", parking.ErrStoreUnavailable, err)
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, raw := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.prefix+":slot:"+raw)
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", parking.ErrStoreUnavailable, err)
		}
	}

	slots := make([]parking.Slot, 0, len(ids))
	for i, raw := range ids {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: bad slot id %q", parking.ErrStoreUnavailable, raw)
		}
		slot, err := decodeSlot(id, cmds[i].Val())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", parking.ErrStoreUnavailable, err)
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func (s *Store) Occupy(ctx context.Context, slotID int, vehicleNumber string, entryTime time.Time) (parking.Slot, error) {
	code, err := occupyScript.Run(ctx, s.rdb,
		[]string{s.slotKey(slotID)},
		vehicleNumber, entryTime.UTC().Format(time.RFC3339Nano),
	).Int()
	if err != nil {
		return parking.Slot{}, fmt.Errorf("%w: %w", parking.ErrStoreUnavailable, err)
	}
	if err := transitionError(code, parking.ErrSlotAlreadyOccupied); err != nil {
		return parking.Slot{}, err
	}
	return s.get(ctx, slotID)
}

func (s *Store) Release(ctx context.Context, slotID int) (parking.Slot, error) {
	code, err := releaseScript.Run(ctx, s.rdb, []string{s.slotKey(slotID)}).Int()
	if err != nil {
		return parking.Slot{}, fmt.Errorf("%w: %w", parking.ErrStoreUnavailable, err)
	}
	if err := transitionError(code, parking.ErrSlotNotOccupied); err != nil {
		return parking.Slot{}, err
	}
	return s.get(ctx, slotID)
}

func (s *Store) get(ctx context.Context, slotID int) (parking.Slot, error) {
	fields, err := s.rdb.HGetAll(ctx, s.slotKey(slotID)).Result()
	if err != nil {
		return parking.Slot{}, fmt.Errorf("%w: %w", parking.ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return parking.Slot{}, parking.ErrSlotNotFound
	}
	slot, err := decodeSlot(slotID, fields)
	if err != nil {
		return parking.Slot{}, fmt.Errorf("%w: %w", parking.ErrStoreUnavailable, err)
	}
	return slot, nil
}

func transitionError(code int, conflict error) error {
	switch code {
	case 1:
		return nil
	case 0:
		return parking.ErrSlotNotFound
	case -1:
		return conflict
	default:
		return fmt.Errorf("%w: unexpected script result %d", parking.ErrStoreUnavailable, code)
	}
}

var errMissingNumber = errors.New("slot hash has no slot_number")

func decodeSlot(id int, fields map[string]string) (parking.Slot, error) {
	number, ok := fields[fieldNumber]
	if !ok {
		return parking.Slot{}, fmt.Errorf("slot %d: %w", id, errMissingNumber)
	}

	slot := parking.NewSlot(id, number)
	if fields[fieldOccupied] != "1" {
		return slot, nil
	}

	var entry time.Time
	if raw := fields[fieldEntry]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return parking.Slot{}, fmt.Errorf("slot %d entry time: %w", id, err)
		}
		entry = t
	}
	return slot.Park(fields[fieldVehicle], entry), nil
}
