package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"placeprep_backend/internal/model"
	"placeprep_backend/internal/util"
	"placeprep_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

type LeaderboardEntry struct {
	Rank           int        `json:"rank"`
	UserID         uint       `json:"userId"`
	FullName       string     `json:"fullName"`
	Email          string     `json:"email"`
	TotalQuestions int        `json:"totalQuestions"`
	Attempted      int        `json:"attempted"`
	Correct        int        `json:"correct"`
	Percentage     float64    `json:"percentage"`
	Accuracy       float64    `json:"accuracy"`
	TimeTaken      float64    `json:"timeTaken"`
	SubmittedAt    *time.Time `json:"submittedAt"`
}

// TimeTaken returns the minutes a participant spent, rounded to two decimals. It walks
// progressively weaker time pairs and falls back to 0 when none is usable.
func TimeTaken(p *model.Participation, contestStart time.Time) float64 {
	if p == nil {
		return 0
	}
	start := &p.StartTime
	cs := &contestStart
	pairs := [][2]*time.Time{
		{start, p.EndTime},
		{start, p.SubmittedAt},
		{cs, p.SubmittedAt},
		{cs, p.EndTime},
	}
	for _, pair := range pairs {
		from, to := pair[0], pair[1]
		if from == nil || to == nil || from.IsZero() || to.IsZero() || to.Before(*from) {
			continue
		}
		return round2(to.Sub(*from).Minutes())
	}
	return 0
}

// BuildLeaderboard aggregates the latest answer of every user per contest question.
// Participants without any activity still appear with zero scores.
func BuildLeaderboard(ts *model.TestSeries, participations []model.Participation, activities []model.StudentActivity, users []model.User) []LeaderboardEntry {
	total := len(ts.Questions)
	correctByQ := make(map[uint]string, total)
	for _, q := range ts.Questions {
		correctByQ[q.ID] = q.CorrectAns
	}

	latestPart := make(map[uint]*model.Participation)
	for i := range participations {
		p := &participations[i]
		if cur, ok := latestPart[p.UserID]; !ok || p.ID > cur.ID {
			latestPart[p.UserID] = p
		}
	}

	byUser := make(map[uint][]model.StudentActivity)
	for _, a := range activities {
		if _, ok := correctByQ[a.QuestionID]; !ok {
			continue
		}
		byUser[a.UserID] = append(byUser[a.UserID], a)
	}

	userIDs := make(map[uint]struct{}, len(latestPart)+len(byUser))
	for id := range latestPart {
		userIDs[id] = struct{}{}
	}
	for id := range byUser {
		userIDs[id] = struct{}{}
	}

	profiles := make(map[uint]model.User, len(users))
	for _, u := range users {
		profiles[u.ID] = u
	}

	entries := make([]LeaderboardEntry, 0, len(userIDs))
	for uid := range userIDs {
		entry := LeaderboardEntry{UserID: uid, TotalQuestions: total}
		if u, ok := profiles[uid]; ok {
			entry.FullName = u.FullName
			entry.Email = u.Email
		}
		for qid, ans := range LatestAnswers(byUser[uid]) {
			if !IsAttempted(ans) {
				continue
			}
			entry.Attempted++
			if *ans == correctByQ[qid] {
				entry.Correct++
			}
		}
		entry.Percentage = PercentageExact(entry.Correct, total)
		entry.Accuracy = Accuracy(entry.Correct, entry.Attempted)
		if p, ok := latestPart[uid]; ok {
			entry.SubmittedAt = p.SubmittedAt
			entry.TimeTaken = TimeTaken(p, ts.StartTime)
		}
		entries = append(entries, entry)
	}

	RankEntries(entries)
	return entries
}

// RankEntries sorts by correct answers, then earliest submission (missing last), then user id,
// and assigns 1-based sequential ranks.
func RankEntries(entries []LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Correct != b.Correct {
			return a.Correct > b.Correct
		}
		switch {
		case a.SubmittedAt != nil && b.SubmittedAt != nil:
			if !a.SubmittedAt.Equal(*b.SubmittedAt) {
				return a.SubmittedAt.Before(*b.SubmittedAt)
			}
		case a.SubmittedAt != nil:
			return true
		case b.SubmittedAt != nil:
			return false
		}
		return a.UserID < b.UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

// LeaderboardCache stores computed leaderboards between submissions.
type LeaderboardCache interface {
	Get(ctx context.Context, testSeriesID uint) ([]LeaderboardEntry, bool)
	Set(ctx context.Context, testSeriesID uint, entries []LeaderboardEntry)
	Delete(ctx context.Context, testSeriesID uint)
}

type RedisLeaderboardCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewRedisLeaderboardCache(rdb *redis.Client, ttl time.Duration) *RedisLeaderboardCache {
	return &RedisLeaderboardCache{Redis: rdb, TTL: ttl}
}

func leaderboardKey(testSeriesID uint) string {
	return fmt.Sprintf("leaderboard:testseries:%d", testSeriesID)
}

func (c *RedisLeaderboardCache) Get(ctx context.Context, testSeriesID uint) ([]LeaderboardEntry, bool) {
	raw, err := c.Redis.Get(ctx, leaderboardKey(testSeriesID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("Leaderboard cache read failed", zap.Error(err), zap.Uint("testSeriesId", testSeriesID))
		}
		return nil, false
	}
	var entries []LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (c *RedisLeaderboardCache) Set(ctx context.Context, testSeriesID uint, entries []LeaderboardEntry) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := c.Redis.Set(ctx, leaderboardKey(testSeriesID), raw, c.TTL).Err(); err != nil {
		logger.Log.Warn("Leaderboard cache write failed", zap.Error(err), zap.Uint("testSeriesId", testSeriesID))
	}
}

func (c *RedisLeaderboardCache) Delete(ctx context.Context, testSeriesID uint) {
	if err := c.Redis.Del(ctx, leaderboardKey(testSeriesID)).Err(); err != nil {
		logger.Log.Warn("Leaderboard cache invalidation failed", zap.Error(err), zap.Uint("testSeriesId", testSeriesID))
	}
}

type LeaderboardService struct {
	Contests       TestSeriesStore
	Participations ParticipationStore
	Activities     ActivityStore
	Users          UserStore
	Cache          LeaderboardCache
	group          singleflight.Group
}

func NewLeaderboardService(contests TestSeriesStore, participations ParticipationStore, activities ActivityStore, users UserStore, cache LeaderboardCache) *LeaderboardService {
	return &LeaderboardService{
		Contests:       contests,
		Participations: participations,
		Activities:     activities,
		Users:          users,
		Cache:          cache,
	}
}

// Get returns the ranked leaderboard of a contest, served from cache when fresh.
func (s *LeaderboardService) Get(ctx context.Context, testSeriesID uint) ([]LeaderboardEntry, error) {
	if s.Cache != nil {
		if entries, ok := s.Cache.Get(ctx, testSeriesID); ok {
			return entries, nil
		}
	}
	v, err, _ := s.group.Do(leaderboardKey(testSeriesID), func() (interface{}, error) {
		ts, err := s.Contests.FindByID(ctx, testSeriesID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, util.ErrNotFound
			}
			return nil, err
		}
		return s.compute(ctx, ts)
	})
	if err != nil {
		return nil, err
	}
	return v.([]LeaderboardEntry), nil
}

// ForContest computes the leaderboard of an already loaded contest, bypassing the cache.
func (s *LeaderboardService) ForContest(ctx context.Context, ts *model.TestSeries) ([]LeaderboardEntry, error) {
	return s.build(ctx, ts)
}

func (s *LeaderboardService) compute(ctx context.Context, ts *model.TestSeries) ([]LeaderboardEntry, error) {
	entries, err := s.build(ctx, ts)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.Set(ctx, ts.ID, entries)
	}
	return entries, nil
}

func (s *LeaderboardService) build(ctx context.Context, ts *model.TestSeries) ([]LeaderboardEntry, error) {
	participations, err := s.Participations.ListByTestSeries(ctx, ts.ID)
	if err != nil {
		return nil, err
	}
	activities, err := s.Activities.ListByTestSeries(ctx, ts.ID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]bool)
	var ids []uint
	for _, p := range participations {
		if !seen[p.UserID] {
			seen[p.UserID] = true
			ids = append(ids, p.UserID)
		}
	}
	for _, a := range activities {
		if !seen[a.UserID] {
			seen[a.UserID] = true
			ids = append(ids, a.UserID)
		}
	}
	users, err := s.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return BuildLeaderboard(ts, participations, activities, users), nil
}

// Invalidate drops the cached leaderboard so the next read recomputes it.
func (s *LeaderboardService) Invalidate(ctx context.Context, testSeriesID uint) {
	if s.Cache != nil {
		s.Cache.Delete(ctx, testSeriesID)
	}
}
