// Package statedb publishes committed topology state to Redis and provides
// the cross-process writer lock of a topology.
//
// Each committed state is written as hashes keyed "TABLE|<topology>|<key>",
// replacing everything previously published for the topology, and a commit
// event is published on the topology channel. The lock is a hash at
// "NEWTSIM_LOCK|<topology>" managed by Lua scripts so acquisition and release
// are atomic.
package statedb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/router"
	"github.com/newtron-network/newtsim/pkg/util"
)

// Tables written per topology
const (
	TableDevice   = "DEVICE_TABLE"
	TablePort     = "PORT_TABLE"
	TableRoute    = "ROUTE_TABLE"
	TableNeighbor = "OSPF_NEIGHBOR_TABLE"
	TableLease    = "DHCP_LEASE_TABLE"
)

// Tables lists every published table.
var Tables = []string{TableDevice, TablePort, TableRoute, TableNeighbor, TableLease}

// DefaultDB is the Redis database the publisher writes to.
const DefaultDB = 6

// DefaultLockTTL bounds how long a crashed holder blocks a topology.
const DefaultLockTTL = 30 * time.Minute

const publishTimeout = 2 * time.Second

// Channel returns the pub/sub channel carrying the commit events of topology.
func Channel(topology string) string {
	return "newtsim:commits:" + topology
}

// Key returns the Redis key of an entry.
func Key(table, topology, key string) string {
	return table + "|" + topology + "|" + key
}

// Event is the message published for every commit.
type Event struct {
	Topology      string    `json:"topology"`
	Device        string    `json:"device,omitempty"`
	Command       string    `json:"command,omitempty"`
	Accepted      bool      `json:"accepted"`
	Backend       string    `json:"backend,omitempty"`
	Routes        int       `json:"routes"`
	LeasesExpired int       `json:"leases_expired"`
	Timestamp     time.Time `json:"timestamp"`
}

// Client writes topology state to Redis.
type Client struct {
	client *redis.Client
	now    func() time.Time
}

// New creates a client for the Redis at addr, database db.
func New(addr string, db int) *Client {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, DB: db}))
}

// NewWithClient wraps an existing Redis client.
func NewWithClient(c *redis.Client) *Client {
	return &Client{client: c, now: time.Now}
}

// Connect tests the connection.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connecting to redis %s: %w", c.client.Options().Addr, err)
	}
	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Entries renders devices as table entries, keyed by Redis key.
func Entries(topology string, devices []*model.Device) map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{})
	for _, d := range devices {
		out[Key(TableDevice, topology, d.ID)] = map[string]interface{}{
			"hostname": d.Hostname,
			"type":     d.Type,
			"vendor":   d.Vendor,
			"model":    d.Model,
			"view":     d.CLI.View.String(),
			"routes":   strconv.Itoa(len(d.Routes)),
		}
		for _, p := range d.Ports {
			status := "down"
			if p.Config.Enabled {
				status = "up"
			}
			out[Key(TablePort, topology, d.ID+"|"+p.ID)] = map[string]interface{}{
				"name":         p.Name,
				"admin_status": status,
				"mode":         string(p.Config.Mode),
				"address":      cidr(p),
				"vlan":         strconv.Itoa(p.NativeVLAN()),
				"description":  p.Config.Description,
			}
		}
		for _, r := range d.Routes.Sorted() {
			out[Key(TableRoute, topology, d.ID+"|"+r.Destination)] = map[string]interface{}{
				"protocol":   r.Protocol,
				"nexthop":    r.NextHop,
				"nexthop_ip": r.NextHopIP,
				"interface":  r.Interface,
				"cost":       strconv.Itoa(r.Cost),
				"preference": strconv.Itoa(r.Preference()),
			}
		}
		for _, n := range d.OSPF.Neighbors {
			out[Key(TableNeighbor, topology, d.ID+"|"+n.DeviceID)] = map[string]interface{}{
				"router_id": n.RouterID,
				"address":   n.Address,
				"interface": n.Interface,
				"state":     n.State,
				"cost":      strconv.Itoa(n.Cost),
			}
		}
		for _, pool := range d.DHCP.Pools {
			for addr, l := range pool.Leases {
				out[Key(TableLease, topology, d.ID+"|"+addr)] = map[string]interface{}{
					"pool":     pool.Name,
					"client":   l.ClientID,
					"hostname": l.Hostname,
					"expires":  l.Expires.UTC().Format(time.RFC3339),
				}
			}
		}
	}
	return out
}

func cidr(p *model.Port) string {
	if !p.HasAddress() {
		return ""
	}
	return p.CIDR()
}

// Publish replaces the published state of topology with devices and
// announces the commit on the topology channel.
func (c *Client) Publish(ctx context.Context, topology string, devices []*model.Device, ev Event) error {
	var stale []string
	for _, table := range Tables {
		keys, err := scanKeys(ctx, c.client, Key(table, topology, "*"), 100)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", table, err)
		}
		stale = append(stale, keys...)
	}

	entries := Entries(topology, devices)
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(stale) > 0 {
			pipe.Del(ctx, stale...)
		}
		for _, k := range keys {
			pipe.HSet(ctx, k, entries[k])
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing state of %s: %w", topology, err)
	}

	ev.Topology = topology
	if ev.Timestamp.IsZero() {
		ev.Timestamp = c.now().UTC()
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := c.client.Publish(ctx, Channel(topology), msg).Err(); err != nil {
		return fmt.Errorf("publishing commit of %s: %w", topology, err)
	}
	return nil
}

// Committed implements router.Observer. Failures are logged; the router
// never waits on Redis beyond a short timeout.
func (c *Client) Committed(cm router.Commit) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	ev := Event{Routes: cm.Summary.Routes, LeasesExpired: cm.Summary.LeasesExpired}
	if o := cm.Outcome; o != nil {
		ev.Device, ev.Command, ev.Accepted, ev.Backend = o.DeviceID, o.Command, o.Accepted, o.Backend
	}
	if err := c.Publish(ctx, cm.Topology, cm.Devices, ev); err != nil {
		util.WithTopology(cm.Topology).WithError(err).Warn("state publication failed")
	}
}

// Subscribe delivers the commit events of topology until ctx is done.
func (c *Client) Subscribe(ctx context.Context, topology string, fn func(Event)) error {
	sub := c.client.Subscribe(ctx, Channel(topology))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", Channel(topology), err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				util.WithTopology(topology).WithError(err).Debug("ignoring malformed commit event")
				continue
			}
			fn(ev)
		}
	}
}

// GetEntry reads a single entry. Returns (nil, nil) if it does not exist.
func (c *Client) GetEntry(ctx context.Context, table, topology, key string) (map[string]string, error) {
	vals, err := c.client.HGetAll(ctx, Key(table, topology, key)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return vals, nil
}

// Count returns the number of entries of table published for topology.
func (c *Client) Count(ctx context.Context, table, topology string) (int, error) {
	keys, err := scanKeys(ctx, c.client, Key(table, topology, "*"), 100)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func scanKeys(ctx context.Context, client *redis.Client, pattern string, countHint int64) ([]string, error) {
	var cursor uint64
	var keys []string
	for {
		batch, nextCursor, err := client.Scan(ctx, cursor, pattern, countHint).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

// ============================================================================
// Topology writer lock
// ============================================================================

// acquireLockScript returns 1 on success, 0 if already locked by another holder.
// A holder re-acquiring its own lock refreshes the TTL.
var acquireLockScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 and redis.call("HGET", key, "holder") ~= ARGV[1] then
	return 0
end
redis.call("HSET", key, "holder", ARGV[1], "acquired", ARGV[2], "ttl", ARGV[3])
redis.call("EXPIRE", key, tonumber(ARGV[3]))
return 1
`)

// releaseLockScript returns 1 on success, 0 if holder mismatch, -1 if key doesn't exist.
var releaseLockScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
	return -1
end
local current = redis.call("HGET", key, "holder")
if current ~= ARGV[1] then
	return 0
end
redis.call("DEL", key)
return 1
`)

// LockKey returns the Redis key of the writer lock of topology.
func LockKey(topology string) string {
	return "NEWTSIM_LOCK|" + topology
}

// AcquireLock makes holder the single writer of topology. It returns a
// *util.LockedError naming the current holder when another process holds it.
func (c *Client) AcquireLock(ctx context.Context, topology, holder string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	now := c.now().UTC().Format(time.RFC3339)
	secs := strconv.Itoa(int(ttl / time.Second))

	result, err := acquireLockScript.Run(ctx, c.client, []string{LockKey(topology)}, holder, now, secs).Int()
	if err != nil {
		return fmt.Errorf("acquiring lock for %s: %w", topology, err)
	}
	if result == 0 {
		current, _, err := c.LockHolder(ctx, topology)
		if err != nil {
			return err
		}
		return &util.LockedError{Topology: topology, Holder: current}
	}
	return nil
}

// ReleaseLock releases the writer lock. Releasing a lock that does not exist
// succeeds; releasing another holder's lock fails.
func (c *Client) ReleaseLock(ctx context.Context, topology, holder string) error {
	result, err := releaseLockScript.Run(ctx, c.client, []string{LockKey(topology)}, holder).Int()
	if err != nil {
		return fmt.Errorf("releasing lock for %s: %w", topology, err)
	}
	if result == 0 {
		return fmt.Errorf("lock holder mismatch for %s", topology)
	}
	return nil
}

// LockHolder returns the current lock holder and acquisition time.
// Returns ("", zero, nil) if no lock is held.
func (c *Client) LockHolder(ctx context.Context, topology string) (string, time.Time, error) {
	vals, err := c.client.HGetAll(ctx, LockKey(topology)).Result()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("getting lock holder for %s: %w", topology, err)
	}
	if len(vals) == 0 {
		return "", time.Time{}, nil
	}
	acquired := time.Time{}
	if ts, ok := vals["acquired"]; ok {
		acquired, _ = time.Parse(time.RFC3339, ts)
	}
	return vals["holder"], acquired, nil
}

// Holder builds the lock holder id of this process ("user@host:pid").
func Holder(user, host string, pid int) string {
	return fmt.Sprintf("%s@%s:%d", user, host, pid)
}
