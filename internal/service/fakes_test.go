package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"placeprep_backend/internal/model"
	"placeprep_backend/internal/repository"

	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func uintPtr(v uint) *uint { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func syncRun(f func()) { f() }

type fakeUsers struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]*model.User
	logins map[uint]time.Time
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{byID: map[uint]*model.User{}, logins: map[uint]time.Time{}}
	for i := range users {
		u := users[i]
		f.byID[u.ID] = &u
		if u.ID > f.nextID {
			f.nextID = u.ID
		}
	}
	return f
}

func (f *fakeUsers) find(match func(*model.User) bool) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	c := *user
	f.byID[user.ID] = &c
	return nil
}

func (f *fakeUsers) FindByID(ctx context.Context, id uint) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == id })
}

func (f *fakeUsers) FindByIDs(ctx context.Context, ids []uint) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Email == email })
}

func (f *fakeUsers) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.GoogleID != nil && *u.GoogleID == googleID })
}

func (f *fakeUsers) FindByVerificationToken(ctx context.Context, token string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.VerificationToken != "" && u.VerificationToken == token })
}

func (f *fakeUsers) FindByResetToken(ctx context.Context, token string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ResetToken != "" && u.ResetToken == token })
}

func (f *fakeUsers) Update(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	c := *user
	f.byID[user.ID] = &c
	return nil
}

func (f *fakeUsers) TouchLastLogin(ctx context.Context, userID uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins[userID] = at
	return nil
}

func (f *fakeUsers) ListVerifiedUserIDs(ctx context.Context) ([]uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uint
	for id, u := range f.byID {
		if u.IsVerified {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type fakeQuestions struct {
	mu       sync.Mutex
	nextID   uint
	byID     map[uint]*model.Question
	restored int64
	batches  int
	// contests, when set, answers which questions are still referenced
	contests *fakeContests
}

func newFakeQuestions(questions ...model.Question) *fakeQuestions {
	f := &fakeQuestions{byID: map[uint]*model.Question{}}
	for i := range questions {
		q := questions[i]
		f.byID[q.ID] = &q
		if q.ID > f.nextID {
			f.nextID = q.ID
		}
	}
	return f
}

func (f *fakeQuestions) Create(ctx context.Context, q *model.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	q.ID = f.nextID
	c := *q
	f.byID[q.ID] = &c
	return nil
}

func (f *fakeQuestions) CreateBatch(ctx context.Context, questions []model.Question) error {
	f.mu.Lock()
	f.batches++
	f.mu.Unlock()
	for i := range questions {
		if err := f.Create(ctx, &questions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeQuestions) FindByID(ctx context.Context, id uint) (*model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *q
	return &c, nil
}

func (f *fakeQuestions) FindByIDs(ctx context.Context, ids []uint) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Question
	for _, id := range ids {
		if q, ok := f.byID[id]; ok {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeQuestions) Update(ctx context.Context, q *model.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *q
	f.byID[q.ID] = &c
	return nil
}

func (f *fakeQuestions) Delete(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

func (f *fakeQuestions) matching(filter repository.QuestionFilter) []model.Question {
	var out []model.Question
	for _, q := range f.byID {
		if filter.Category != "" && q.Category != filter.Category {
			continue
		}
		if filter.Subcategory != "" && q.Subcategory != filter.Subcategory {
			continue
		}
		if filter.Level != "" && q.Level != filter.Level {
			continue
		}
		if filter.Visibility != nil && q.Visibility != *filter.Visibility {
			continue
		}
		out = append(out, *q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeQuestions) List(ctx context.Context, filter repository.QuestionFilter, page, limit int) ([]model.Question, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.matching(filter)
	return all, int64(len(all)), nil
}

func (f *fakeQuestions) RandomVisible(ctx context.Context, filter repository.QuestionFilter, n int) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	visible := true
	filter.Visibility = &visible
	all := f.matching(filter)
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (f *fakeQuestions) Categories(ctx context.Context) ([]repository.CategoryRow, error) {
	return nil, nil
}

func (f *fakeQuestions) SetVisibility(ctx context.Context, ids []uint, visible bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if q, ok := f.byID[id]; ok {
			q.Visibility = visible
		}
	}
	return nil
}

func (f *fakeQuestions) InContest(ctx context.Context, id uint) (bool, error) {
	if f.contests == nil {
		return false, nil
	}
	return f.contests.references(id, nil), nil
}

func (f *fakeQuestions) ReleaseQuestions(ctx context.Context, ids []uint, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		q, ok := f.byID[id]
		if !ok || q.Visibility {
			continue
		}
		if f.contests != nil && f.contests.references(id, &now) {
			continue
		}
		q.Visibility = true
		n++
	}
	return n, nil
}

func (f *fakeQuestions) RestoreEndedContestQuestions(ctx context.Context, now time.Time) (int64, error) {
	return f.restored, nil
}

type fakeBookmarks struct {
	items []model.Bookmark
}

func (f *fakeBookmarks) Exists(ctx context.Context, userID, questionID uint) (bool, error) {
	for _, b := range f.items {
		if b.UserID == userID && b.QuestionID == questionID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBookmarks) Create(ctx context.Context, b *model.Bookmark) error {
	b.ID = uint(len(f.items) + 1)
	f.items = append(f.items, *b)
	return nil
}

func (f *fakeBookmarks) Delete(ctx context.Context, userID, questionID uint) (bool, error) {
	for i, b := range f.items {
		if b.UserID == userID && b.QuestionID == questionID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBookmarks) ListByUser(ctx context.Context, userID uint) ([]model.Bookmark, error) {
	var out []model.Bookmark
	for _, b := range f.items {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeContests struct {
	mu       sync.Mutex
	nextID   uint
	byID     map[uint]*model.TestSeries
	due      []model.TestSeries
	reminded map[uint]bool
	finds    int
}

func newFakeContests(items ...model.TestSeries) *fakeContests {
	f := &fakeContests{byID: map[uint]*model.TestSeries{}, reminded: map[uint]bool{}}
	for i := range items {
		ts := items[i]
		f.byID[ts.ID] = &ts
		if ts.ID > f.nextID {
			f.nextID = ts.ID
		}
	}
	return f
}

// references reports whether a contest holds the question. With now set, only contests that
// have not ended count.
func (f *fakeContests) references(questionID uint, now *time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ts := range f.byID {
		if now != nil && ts.HasEnded(*now) {
			continue
		}
		for _, q := range ts.Questions {
			if q.ID == questionID {
				return true
			}
		}
	}
	return false
}

func (f *fakeContests) Create(ctx context.Context, ts *model.TestSeries) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ts.ID = f.nextID
	c := *ts
	f.byID[ts.ID] = &c
	return nil
}

func (f *fakeContests) FindByID(ctx context.Context, id uint) (*model.TestSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	ts, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *ts
	return &c, nil
}

func (f *fakeContests) CodeInUse(ctx context.Context, code string, excludeID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ts := range f.byID {
		if id != excludeID && ts.ContestCode != nil && *ts.ContestCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeContests) Update(ctx context.Context, ts *model.TestSeries) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *ts
	f.byID[ts.ID] = &c
	return nil
}

func (f *fakeContests) Delete(ctx context.Context, ts *model.TestSeries) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, ts.ID)
	return nil
}

func (f *fakeContests) List(ctx context.Context, status model.ContestStatus, now time.Time, page, limit int) ([]model.TestSeries, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TestSeries
	for _, ts := range f.byID {
		if status == "" || ts.Status(now) == status {
			out = append(out, *ts)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeContests) ListExpiredWithOpenParticipations(ctx context.Context, now time.Time) ([]model.TestSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TestSeries
	for _, ts := range f.byID {
		if ts.HasEnded(now) {
			out = append(out, *ts)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeContests) ListDueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]model.TestSeries, error) {
	return f.due, nil
}

func (f *fakeContests) MarkReminderSent(ctx context.Context, id uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reminded[id] {
		return false, nil
	}
	f.reminded[id] = true
	return true, nil
}

type fakeParticipations struct {
	mu         sync.Mutex
	nextID     uint
	byID       map[uint]*model.Participation
	activities *fakeActivities
	claimErr   map[uint]error
}

func newFakeParticipations(activities *fakeActivities, items ...model.Participation) *fakeParticipations {
	f := &fakeParticipations{byID: map[uint]*model.Participation{}, activities: activities, claimErr: map[uint]error{}}
	for i := range items {
		p := items[i]
		f.byID[p.ID] = &p
		if p.ID > f.nextID {
			f.nextID = p.ID
		}
	}
	return f
}

func (f *fakeParticipations) Create(ctx context.Context, p *model.Participation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	c := *p
	f.byID[p.ID] = &c
	return nil
}

func (f *fakeParticipations) FindByID(ctx context.Context, id uint) (*model.Participation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakeParticipations) latest(match func(*model.Participation) bool) (*model.Participation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *model.Participation
	for _, p := range f.byID {
		if match(p) && (best == nil || p.ID > best.ID) {
			best = p
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	c := *best
	return &c, nil
}

func (f *fakeParticipations) FindLatestForContest(ctx context.Context, userID, testSeriesID uint) (*model.Participation, error) {
	return f.latest(func(p *model.Participation) bool {
		return p.UserID == userID && p.TestSeriesID != nil && *p.TestSeriesID == testSeriesID
	})
}

func (f *fakeParticipations) FindForPractice(ctx context.Context, userID, freePracticeID uint) (*model.Participation, error) {
	return f.latest(func(p *model.Participation) bool {
		return p.UserID == userID && p.FreePracticeID != nil && *p.FreePracticeID == freePracticeID
	})
}

func (f *fakeParticipations) ClaimForClose(ctx context.Context, id uint, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.claimErr[id]; err != nil {
		return false, err
	}
	p, ok := f.byID[id]
	if !ok || p.SubmittedAt != nil {
		return false, nil
	}
	p.EndTime = timePtr(at)
	p.SubmittedAt = timePtr(at)
	return true, nil
}

func (f *fakeParticipations) CloseWithActivities(ctx context.Context, id uint, at time.Time, activities []model.StudentActivity) (bool, error) {
	claimed, err := f.ClaimForClose(ctx, id, at)
	if err != nil || !claimed {
		return claimed, err
	}
	if f.activities != nil {
		if err := f.activities.CreateBatch(ctx, activities); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (f *fakeParticipations) IncrementViolations(ctx context.Context, id uint) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	p.Violations++
	return p.Violations, nil
}

func (f *fakeParticipations) list(match func(*model.Participation) bool) []model.Participation {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Participation
	for _, p := range f.byID {
		if match(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeParticipations) ListByTestSeries(ctx context.Context, testSeriesID uint) ([]model.Participation, error) {
	return f.list(func(p *model.Participation) bool {
		return p.TestSeriesID != nil && *p.TestSeriesID == testSeriesID
	}), nil
}

func (f *fakeParticipations) ListOpenByTestSeries(ctx context.Context, testSeriesID uint) ([]model.Participation, error) {
	return f.list(func(p *model.Participation) bool {
		return p.TestSeriesID != nil && *p.TestSeriesID == testSeriesID && p.IsOpen()
	}), nil
}

func (f *fakeParticipations) ListClosedByUser(ctx context.Context, userID uint, page, limit int) ([]model.Participation, int64, error) {
	out := f.list(func(p *model.Participation) bool { return p.UserID == userID && !p.IsOpen() })
	return out, int64(len(out)), nil
}

type fakeActivities struct {
	mu      sync.Mutex
	nextID  uint
	rows    []model.StudentActivity
	userErr error
}

func (f *fakeActivities) CreateBatch(ctx context.Context, activities []model.StudentActivity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range activities {
		f.nextID++
		activities[i].ID = f.nextID
		f.rows = append(f.rows, activities[i])
	}
	return nil
}

func (f *fakeActivities) add(rows ...model.StudentActivity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		if r.ID == 0 {
			f.nextID++
			r.ID = f.nextID
		} else if r.ID > f.nextID {
			f.nextID = r.ID
		}
		f.rows = append(f.rows, r)
	}
}

func (f *fakeActivities) filter(match func(model.StudentActivity) bool) []model.StudentActivity {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.StudentActivity
	for _, a := range f.rows {
		if match(a) {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeActivities) ListByTestSeries(ctx context.Context, testSeriesID uint) ([]model.StudentActivity, error) {
	return f.filter(func(a model.StudentActivity) bool {
		return a.TestSeriesID != nil && *a.TestSeriesID == testSeriesID
	}), nil
}

func (f *fakeActivities) ListByUserAndTestSeries(ctx context.Context, userID, testSeriesID uint) ([]model.StudentActivity, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	return f.filter(func(a model.StudentActivity) bool {
		return a.UserID == userID && a.TestSeriesID != nil && *a.TestSeriesID == testSeriesID
	}), nil
}

func (f *fakeActivities) ListByUserAndPractice(ctx context.Context, userID, freePracticeID uint) ([]model.StudentActivity, error) {
	return f.filter(func(a model.StudentActivity) bool {
		return a.UserID == userID && a.FreePracticeID != nil && *a.FreePracticeID == freePracticeID
	}), nil
}

func (f *fakeActivities) ListPracticeByUser(ctx context.Context, userID uint) ([]model.StudentActivity, error) {
	return f.filter(func(a model.StudentActivity) bool {
		return a.UserID == userID && a.FreePracticeID != nil
	}), nil
}

type fakePractices struct {
	mu             sync.Mutex
	nextID         uint
	byID           map[uint]*model.FreePractice
	participations *fakeParticipations
}

func newFakePractices(participations *fakeParticipations) *fakePractices {
	return &fakePractices{byID: map[uint]*model.FreePractice{}, participations: participations}
}

func (f *fakePractices) Create(ctx context.Context, fp *model.FreePractice, p *model.Participation) error {
	f.mu.Lock()
	f.nextID++
	fp.ID = f.nextID
	c := *fp
	f.byID[fp.ID] = &c
	f.mu.Unlock()
	p.FreePracticeID = uintPtr(fp.ID)
	return f.participations.Create(ctx, p)
}

func (f *fakePractices) FindByID(ctx context.Context, id uint) (*model.FreePractice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fp, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *fp
	return &c, nil
}

func (f *fakePractices) SetEndTime(ctx context.Context, id uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fp, ok := f.byID[id]; ok {
		fp.EndTime = timePtr(at)
	}
	return nil
}

func (f *fakePractices) ListByUser(ctx context.Context, userID uint, page, limit int) ([]model.FreePractice, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.FreePractice
	for _, fp := range f.byID {
		if fp.CreatedBy == userID {
			out = append(out, *fp)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakePractices) ListSubmittedWithQuestions(ctx context.Context, userID uint) ([]model.FreePractice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.FreePractice
	for _, fp := range f.byID {
		if fp.CreatedBy == userID && fp.EndTime != nil {
			out = append(out, *fp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeNotifications struct {
	mu     sync.Mutex
	nextID uint
	items  []model.Notification
}

func (f *fakeNotifications) Create(ctx context.Context, n *model.Notification) error {
	return f.CreateBatch(ctx, []model.Notification{*n})
}

func (f *fakeNotifications) CreateBatch(ctx context.Context, items []model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range items {
		f.nextID++
		items[i].ID = f.nextID
		f.items = append(f.items, items[i])
	}
	return nil
}

func (f *fakeNotifications) ListByUser(ctx context.Context, userID uint, page, limit int) ([]model.Notification, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	for _, n := range f.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeNotifications) CountUnread(ctx context.Context, userID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, item := range f.items {
		if item.UserID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) MarkRead(ctx context.Context, userID, id uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id && f.items[i].UserID == userID {
			f.items[i].IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNotifications) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.items {
		if f.items[i].UserID == userID && !f.items[i].IsRead {
			f.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) Delete(ctx context.Context, userID, id uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id && f.items[i].UserID == userID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// recordingNotifier captures the events services emit.
type recordingNotifier struct {
	mu        sync.Mutex
	results   []*ContestResult
	announced []uint
	reminders []uint
	practices []*PracticeResult
}

func (r *recordingNotifier) ContestResult(ctx context.Context, user *model.User, ts *model.TestSeries, result *ContestResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

func (r *recordingNotifier) ContestAnnounced(ctx context.Context, ts *model.TestSeries) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.announced = append(r.announced, ts.ID)
	return nil
}

func (r *recordingNotifier) ContestReminder(ctx context.Context, ts *model.TestSeries) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reminders = append(r.reminders, ts.ID)
	return nil
}

func (r *recordingNotifier) PracticeResult(ctx context.Context, userID uint, fp *model.FreePractice, result *PracticeResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.practices = append(r.practices, result)
	return nil
}

type sentMail struct {
	To, Subject, Body string
}

type captureSender struct {
	mu   sync.Mutex
	sent []sentMail
}

func (c *captureSender) Send(to, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

// recordingMailer counts Mailer calls without rendering.
type recordingMailer struct {
	mu            sync.Mutex
	verifications []string
	resets        []string
	results       int
	announcements int
}

func (m *recordingMailer) SendVerification(user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications = append(m.verifications, user.VerificationToken)
	return nil
}

func (m *recordingMailer) SendPasswordReset(user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, user.ResetToken)
	return nil
}

func (m *recordingMailer) SendContestResult(user *model.User, ts *model.TestSeries, result *ContestResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results++
	return nil
}

func (m *recordingMailer) SendContestAnnouncement(user *model.User, ts *model.TestSeries, reminder bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.announcements++
	return nil
}

var (
	_ UserStore          = (*fakeUsers)(nil)
	_ QuestionStore      = (*fakeQuestions)(nil)
	_ BookmarkStore      = (*fakeBookmarks)(nil)
	_ TestSeriesStore    = (*fakeContests)(nil)
	_ ParticipationStore = (*fakeParticipations)(nil)
	_ ActivityStore      = (*fakeActivities)(nil)
	_ FreePracticeStore  = (*fakePractices)(nil)
	_ NotificationStore  = (*fakeNotifications)(nil)
	_ ResultNotifier     = (*recordingNotifier)(nil)
	_ Mailer             = (*recordingMailer)(nil)
	_ MailSender         = (*captureSender)(nil)
)

// mcq builds a four-option question whose correct key is answer.
func mcq(id uint, answer string) model.Question {
	return model.Question{
		BaseModel:  model.BaseModel{ID: id},
		Category:   "Aptitude",
		Level:      "easy",
		Question:   "Question text",
		Options:    map[string]interface{}{"A": "one", "B": "two", "C": "three", "D": "four"},
		CorrectAns: answer,
		Visibility: true,
	}
}
