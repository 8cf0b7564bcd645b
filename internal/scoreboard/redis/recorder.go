// Package redis provides a Redis-backed scoreboard recorder for deployments
// where several ingest instances share one leaderboard.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/enozdev/storytelling-goesan-sub000/internal/model"
)

// Recorder keeps per-team counters in Redis hashes:
//
//	SADD  {prefix}:teams {teamID}
//	HINCRBY {prefix}:team:{teamID} found|correct|attempts 1
//	HSET  {prefix}:team:{teamID} last_activity {unix nanos}
//
// Appends are atomic per field; CountsByTeam reads may trail concurrent
// writers, which the leaderboard tolerates.
type Recorder struct {
	client *redis.Client
	prefix string
}

// NewRecorder creates a recorder with the given key prefix ("storyquiz"
// when empty).
func NewRecorder(client *redis.Client, prefix string) *Recorder {
	if prefix == "" {
		prefix = "storyquiz"
	}
	return &Recorder{client: client, prefix: prefix}
}

// RecordScan increments the team's found counter.
func (r *Recorder) RecordScan(ctx context.Context, teamID, markerID string, at time.Time) error {
	if teamID == "" {
		return model.ErrEmptyTeam
	}
	if at.IsZero() {
		at = time.Now()
	}
	pipe := r.client.Pipeline()
	pipe.SAdd(ctx, r.teamsKey(), teamID)
	pipe.HIncrBy(ctx, r.teamKey(teamID), "found", 1)
	pipe.HSet(ctx, r.teamKey(teamID), "last_activity", at.UnixNano())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record scan for %s: %w", teamID, err)
	}
	return nil
}

// RecordAttempt increments the team's attempt (and correct) counters.
func (r *Recorder) RecordAttempt(ctx context.Context, teamID, questionID string, correct bool, at time.Time) error {
	if teamID == "" {
		return model.ErrEmptyTeam
	}
	if at.IsZero() {
		at = time.Now()
	}
	pipe := r.client.Pipeline()
	pipe.SAdd(ctx, r.teamsKey(), teamID)
	pipe.HIncrBy(ctx, r.teamKey(teamID), "attempts", 1)
	if correct {
		pipe.HIncrBy(ctx, r.teamKey(teamID), "correct", 1)
	}
	pipe.HSet(ctx, r.teamKey(teamID), "last_activity", at.UnixNano())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record attempt for %s: %w", teamID, err)
	}
	return nil
}

// CountsByTeam reads every registered team's counters.
func (r *Recorder) CountsByTeam(ctx context.Context) (map[string]model.TeamCounts, error) {
	teamIDs, err := r.client.SMembers(ctx, r.teamsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	counts := make(map[string]model.TeamCounts, len(teamIDs))
	for _, teamID := range teamIDs {
		fields, err := r.client.HGetAll(ctx, r.teamKey(teamID)).Result()
		if err != nil {
			return nil, fmt.Errorf("read counters for %s: %w", teamID, err)
		}
		if len(fields) == 0 {
			continue
		}
		c := model.TeamCounts{
			Found:    atoiField(fields, "found"),
			Correct:  atoiField(fields, "correct"),
			Attempts: atoiField(fields, "attempts"),
		}
		if raw, ok := fields["last_activity"]; ok {
			if nanos, err := strconv.ParseInt(raw, 10, 64); err == nil {
				c.LastActivity = time.Unix(0, nanos)
			}
		}
		counts[teamID] = c
	}
	return counts, nil
}

func (r *Recorder) teamsKey() string {
	return r.prefix + ":teams"
}

func (r *Recorder) teamKey(teamID string) string {
	return r.prefix + ":team:" + teamID
}

func atoiField(fields map[string]string, key string) int {
	n, _ := strconv.Atoi(fields[key])
	return n
}
