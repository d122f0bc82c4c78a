// Package stats tracks per-user usage counters, both globally and per guild.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/sneezeparty/soupy/log"
	"github.com/sneezeparty/soupy/store"
)

// Stat identifies a tracked counter.
type Stat string

const (
	ImagesGenerated Stat = "images_generated"
	ChatResponses   Stat = "chat_responses"
	Mentions        Stat = "mentions"
)

const (
	// GlobalScope collects counters across every guild.
	GlobalScope = "global"

	recordPrefix = "stats:user:"
	indexKey     = "stats:index"
)

// Counters holds the per-scope counter values.
type Counters struct {
	ImagesGenerated int `json:"images_generated"`
	ChatResponses   int `json:"chat_responses"`
	Mentions        int `json:"mentions"`
}

func (c *Counters) add(stat Stat) {
	switch stat {
	case ImagesGenerated:
		c.ImagesGenerated++
	case ChatResponses:
		c.ChatResponses++
	case Mentions:
		c.Mentions++
	}
}

func (c *Counters) value(stat Stat) int {
	switch stat {
	case ImagesGenerated:
		return c.ImagesGenerated
	case ChatResponses:
		return c.ChatResponses
	case Mentions:
		return c.Mentions
	}
	return 0
}

// Record is the stored shape for a single user.
type Record struct {
	Username string               `json:"username"`
	Servers  map[string]*Counters `json:"servers"`
}

// legacyRecord is the flat shape used before per-guild counters existed.
type legacyRecord struct {
	Username        string `json:"username"`
	ImagesGenerated int    `json:"images_generated"`
	ChatResponses   int    `json:"chat_responses"`
	Mentions        int    `json:"mentions"`
}

// Entry pairs a user with their counters in a given scope.
type Entry struct {
	UserId   string
	Username string
	Counters Counters
}

// Tracker persists user statistics in an external store.
type Tracker struct {
	store store.External
	log   log.Logger

	mu sync.Mutex
}

func NewTracker(st store.External, logger log.Logger) *Tracker {
	return &Tracker{
		store: st,
		log:   logger.WithPrefix("stats"),
	}
}

// Increment bumps a counter for the user in the global scope and, when
// guildId is not empty, in the guild's scope too.
func (t *Tracker) Increment(ctx context.Context, userId string, username string, guildId string, stat Stat) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, err := t.load(ctx, userId)
	if err != nil {
		return err
	}
	if rec == nil {
		rec = &Record{Username: username, Servers: map[string]*Counters{GlobalScope: {}}}
	}
	if username != "" {
		rec.Username = username
	}
	if rec.Servers == nil {
		rec.Servers = map[string]*Counters{}
	}
	if rec.Servers[GlobalScope] == nil {
		rec.Servers[GlobalScope] = &Counters{}
	}
	rec.Servers[GlobalScope].add(stat)
	if guildId != "" {
		if rec.Servers[guildId] == nil {
			rec.Servers[guildId] = &Counters{}
		}
		rec.Servers[guildId].add(stat)
	}
	if err := t.save(ctx, userId, rec); err != nil {
		return err
	}
	if err := t.index(ctx, userId); err != nil {
		return err
	}
	t.log.Debugf("updated '%s' for user %s (guild: %s)", stat, userId, guildId)
	return nil
}

// Guild returns the counters of every user with activity in the given scope.
func (t *Tracker) Guild(ctx context.Context, guildId string) ([]Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids, err := t.userIds(ctx)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, id := range ids {
		rec, err := t.load(ctx, id)
		if err != nil {
			t.log.Errorf("failed to read stats for user %s: %s", id, err)
			continue
		}
		if rec == nil {
			continue
		}
		counters, ok := rec.Servers[guildId]
		if !ok || counters == nil {
			continue
		}
		entries = append(entries, Entry{UserId: id, Username: rec.Username, Counters: *counters})
	}
	return entries, nil
}

// Top returns the highest ranked users for a counter in the given scope,
// most active first.
func (t *Tracker) Top(ctx context.Context, guildId string, stat Stat, limit int) ([]Entry, error) {
	entries, err := t.Guild(ctx, guildId)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Counters.value(stat) > entries[j].Counters.value(stat)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (t *Tracker) load(ctx context.Context, userId string) (*Record, error) {
	data, err := t.store.Get(ctx, recordPrefix+userId)
	if err != nil {
		var notFound store.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil || rec.Servers == nil {
		// Old flat records carried the counters at the top level.
		var legacy legacyRecord
		if legacyErr := json.Unmarshal(data, &legacy); legacyErr != nil {
			if err != nil {
				return nil, err
			}
			return nil, legacyErr
		}
		username := legacy.Username
		if username == "" {
			username = "Unknown"
		}
		rec = Record{
			Username: username,
			Servers: map[string]*Counters{
				GlobalScope: {
					ImagesGenerated: legacy.ImagesGenerated,
					ChatResponses:   legacy.ChatResponses,
					Mentions:        legacy.Mentions,
				},
			},
		}
	}
	return &rec, nil
}

func (t *Tracker) save(ctx context.Context, userId string, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return t.store.Set(ctx, recordPrefix+userId, data, 0)
}

func (t *Tracker) userIds(ctx context.Context) ([]string, error) {
	data, err := t.store.Get(ctx, indexKey)
	if err != nil {
		var notFound store.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (t *Tracker) index(ctx context.Context, userId string) error {
	ids, err := t.userIds(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == userId {
			return nil
		}
	}
	ids = append(ids, userId)
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return t.store.Set(ctx, indexKey, data, 0)
}
