// internal/database/memory.go
package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"bayou-board/internal/models"
	"bayou-board/internal/utils"

	"github.com/google/uuid"
)

type voteKey struct {
	VoterID    uuid.UUID
	TargetID   uuid.UUID
	TargetKind models.TargetKind
}

// MemoryDB is the in-memory adapter used by tests and local development.
// Every mutation runs under the single table lock, which stands in for the
// store-level transactions of the other adapters. Reads hand out copies so
// callers can never alias internal state.
type MemoryDB struct {
	mu sync.RWMutex

	users       map[uuid.UUID]*models.User
	usersByMail map[string]uuid.UUID
	subreddits  map[uuid.UUID]*models.Subreddit
	subsByName  map[string]uuid.UUID
	posts       map[uuid.UUID]*models.Post
	comments    map[uuid.UUID]*models.Comment
	votes       map[voteKey]*models.Vote
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:       make(map[uuid.UUID]*models.User),
		usersByMail: make(map[string]uuid.UUID),
		subreddits:  make(map[uuid.UUID]*models.Subreddit),
		subsByName:  make(map[string]uuid.UUID),
		posts:       make(map[uuid.UUID]*models.Post),
		comments:    make(map[uuid.UUID]*models.Comment),
		votes:       make(map[voteKey]*models.Vote),
	}
}

func (m *MemoryDB) Close(ctx context.Context) error {
	return nil
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Subreddits = append([]uuid.UUID(nil), u.Subreddits...)
	return &c
}

func copyPost(p *models.Post) *models.Post {
	c := *p
	c.CurrentUserVote = nil
	return &c
}

func copyComment(c *models.Comment) *models.Comment {
	out := *c
	out.CurrentUserVote = nil
	if c.ParentID != nil {
		parent := *c.ParentID
		out.ParentID = &parent
	}
	return &out
}

func copySubreddit(s *models.Subreddit) *models.Subreddit {
	c := *s
	return &c
}

// --- User Methods ---

func (m *MemoryDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, utils.NewAppError(utils.ErrNotFound, "user not found", nil)
	}
	return copyUser(u), nil
}

func (m *MemoryDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.usersByMail[email]
	if !ok {
		return nil, utils.NewAppError(utils.ErrNotFound, "user not found", nil)
	}
	return copyUser(m.users[id]), nil
}

func (m *MemoryDB) SaveUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.usersByMail[user.Email]; exists {
		return utils.NewAppError(utils.ErrUserAlreadyExists, "user already exists", nil)
	}
	now := time.Now()
	user.UpdatedAt = now
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	m.users[user.ID] = copyUser(user)
	m.usersByMail[user.Email] = user.ID
	return nil
}

func (m *MemoryDB) UpdateUserKarma(ctx context.Context, id uuid.UUID, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return utils.NewAppError(utils.ErrNotFound, "user not found for karma update", nil)
	}
	u.Karma += delta
	u.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryDB) UpdateUserSubreddits(ctx context.Context, userID uuid.UUID, subID uuid.UUID, join bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return utils.NewAppError(utils.ErrNotFound, "user not found", nil)
	}
	if join {
		for _, s := range u.Subreddits {
			if s == subID {
				return nil
			}
		}
		u.Subreddits = append(u.Subreddits, subID)
		return nil
	}
	filtered := u.Subreddits[:0]
	for _, s := range u.Subreddits {
		if s != subID {
			filtered = append(filtered, s)
		}
	}
	u.Subreddits = filtered
	return nil
}

// --- Subreddit Methods ---

func (m *MemoryDB) CreateSubreddit(ctx context.Context, sub *models.Subreddit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.subsByName[sub.Name]; exists {
		return utils.NewAppError(utils.ErrSubredditExists, "subreddit already exists", nil)
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	m.subreddits[sub.ID] = copySubreddit(sub)
	m.subsByName[sub.Name] = sub.ID
	return nil
}

func (m *MemoryDB) GetSubredditByID(ctx context.Context, id uuid.UUID) (*models.Subreddit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subreddits[id]
	if !ok {
		return nil, utils.NewAppError(utils.ErrSubredditNotFound, "subreddit not found", nil)
	}
	return copySubreddit(s), nil
}

func (m *MemoryDB) GetSubredditByName(ctx context.Context, name string) (*models.Subreddit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.subsByName[name]
	if !ok {
		return nil, utils.NewAppError(utils.ErrSubredditNotFound, "subreddit not found", nil)
	}
	return copySubreddit(m.subreddits[id]), nil
}

func (m *MemoryDB) GetAllSubreddits(ctx context.Context) ([]*models.Subreddit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	subs := make([]*models.Subreddit, 0, len(m.subreddits))
	for _, s := range m.subreddits {
		subs = append(subs, copySubreddit(s))
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].CreatedAt.After(subs[j].CreatedAt) })
	return subs, nil
}

func (m *MemoryDB) UpdateSubredditMemberCount(ctx context.Context, subID uuid.UUID, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subreddits[subID]
	if !ok {
		return utils.NewAppError(utils.ErrSubredditNotFound, "subreddit not found when updating member count", nil)
	}
	s.Members += delta
	if s.Members < 0 {
		s.Members = 0
	}
	return nil
}

// --- Post Methods ---

func (m *MemoryDB) SavePost(ctx context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	post.UpdatedAt = now
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	if post.PostType == "" {
		post.PostType = models.TextPost
	}
	m.posts[post.ID] = copyPost(post)
	return nil
}

func (m *MemoryDB) GetPost(ctx context.Context, postID uuid.UUID, requestingUserID uuid.UUID) (*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[postID]
	if !ok {
		return nil, utils.NewAppError(utils.ErrNotFound, "post not found", nil)
	}
	out := copyPost(p)
	m.attachStanceLocked(out, requestingUserID)
	return out, nil
}

// attachStanceLocked requires m.mu held (read or write).
func (m *MemoryDB) attachStanceLocked(p *models.Post, requestingUserID uuid.UUID) {
	if requestingUserID == uuid.Nil {
		return
	}
	key := voteKey{VoterID: requestingUserID, TargetID: p.ID, TargetKind: models.PostTarget}
	if v, ok := m.votes[key]; ok {
		stance := v.Stance
		p.CurrentUserVote = &stance
	}
}

func sortPosts(posts []*models.Post, order SortOrder) {
	if order == SortTop {
		sort.Slice(posts, func(i, j int) bool {
			if posts[i].Upvotes != posts[j].Upvotes {
				return posts[i].Upvotes > posts[j].Upvotes
			}
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		})
		return
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (m *MemoryDB) GetRecentPosts(ctx context.Context, limit, offset int, sortOrder SortOrder, requestingUserID uuid.UUID) ([]*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	posts := make([]*models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		posts = append(posts, copyPost(p))
	}
	sortPosts(posts, sortOrder)
	posts = paginate(posts, limit, offset)
	for _, p := range posts {
		m.attachStanceLocked(p, requestingUserID)
	}
	return posts, nil
}

func (m *MemoryDB) GetPostsBySubreddit(ctx context.Context, subredditID uuid.UUID, limit, offset int, sortOrder SortOrder) ([]*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	posts := []*models.Post{}
	for _, p := range m.posts {
		if p.SubredditID == subredditID {
			posts = append(posts, copyPost(p))
		}
	}
	sortPosts(posts, sortOrder)
	return paginate(posts, limit, offset), nil
}

// --- Vote Ledger ---

// CastVote holds the table lock for the whole read-branch-write sequence, so
// concurrent casts serialize and no double-submit can double-apply deltas.
func (m *MemoryDB) CastVote(ctx context.Context, voterID, targetID uuid.UUID, kind models.TargetKind, stance models.Stance) (models.VoteCounts, error) {
	var counts models.VoteCounts

	m.mu.Lock()
	defer m.mu.Unlock()

	up, down, authorID, err := m.targetCountersLocked(targetID, kind)
	if err != nil {
		return counts, err
	}

	key := voteKey{VoterID: voterID, TargetID: targetID, TargetKind: kind}
	existing, hasVote := m.votes[key]

	var upDelta, downDelta int
	switch {
	case !hasVote:
		m.votes[key] = &models.Vote{
			ID:         uuid.New(),
			VoterID:    voterID,
			TargetID:   targetID,
			TargetKind: kind,
			Stance:     stance,
			CreatedAt:  time.Now(),
		}
		if stance == models.Upvote {
			upDelta = 1
		} else {
			downDelta = 1
		}

	case existing.Stance == stance:
		delete(m.votes, key)
		if stance == models.Upvote {
			upDelta = -1
		} else {
			downDelta = -1
		}

	default:
		existing.Stance = stance
		existing.CreatedAt = time.Now()
		if stance == models.Upvote {
			upDelta, downDelta = 1, -1
		} else {
			upDelta, downDelta = -1, 1
		}
	}

	counts.Upvotes = floorZero(*up + upDelta)
	counts.Downvotes = floorZero(*down + downDelta)
	*up = counts.Upvotes
	*down = counts.Downvotes
	m.refreshTargetKarmaLocked(targetID, kind)

	if karmaDelta := upDelta - downDelta; karmaDelta != 0 {
		if author, ok := m.users[authorID]; ok {
			author.Karma += karmaDelta
		}
	}

	return counts, nil
}

func floorZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// targetCountersLocked resolves the live counter fields for a vote target.
// Requires m.mu held.
func (m *MemoryDB) targetCountersLocked(targetID uuid.UUID, kind models.TargetKind) (up, down *int, authorID uuid.UUID, err error) {
	switch kind {
	case models.PostTarget:
		p, ok := m.posts[targetID]
		if !ok {
			return nil, nil, uuid.Nil, utils.NewAppError(utils.ErrNotFound, "post not found", nil)
		}
		p.UpdatedAt = time.Now()
		return &p.Upvotes, &p.Downvotes, p.AuthorID, nil
	case models.CommentTarget:
		c, ok := m.comments[targetID]
		if !ok {
			return nil, nil, uuid.Nil, utils.NewAppError(utils.ErrNotFound, "comment not found", nil)
		}
		c.UpdatedAt = time.Now()
		return &c.Upvotes, &c.Downvotes, c.AuthorID, nil
	default:
		return nil, nil, uuid.Nil, utils.NewValidationError("unknown target kind " + string(kind))
	}
}

// refreshTargetKarmaLocked recomputes the denormalized karma field after a
// counter change. Requires m.mu held.
func (m *MemoryDB) refreshTargetKarmaLocked(targetID uuid.UUID, kind models.TargetKind) {
	switch kind {
	case models.PostTarget:
		if p, ok := m.posts[targetID]; ok {
			p.Karma = p.Upvotes - p.Downvotes
		}
	case models.CommentTarget:
		if c, ok := m.comments[targetID]; ok {
			c.Karma = c.Upvotes - c.Downvotes
		}
	}
}

func (m *MemoryDB) GetUserVote(ctx context.Context, voterID, targetID uuid.UUID, kind models.TargetKind) (*models.Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.votes[voteKey{VoterID: voterID, TargetID: targetID, TargetKind: kind}]
	if !ok {
		return nil, nil
	}
	out := *v
	return &out, nil
}

// --- Comment Tree ---

func (m *MemoryDB) CreateComment(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	comment.UpdatedAt = now
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now
	}

	post, ok := m.posts[comment.PostID]
	if !ok {
		return utils.NewAppError(utils.ErrNotFound, "post not found", nil)
	}

	if comment.ParentID != nil {
		parent, ok := m.comments[*comment.ParentID]
		if !ok {
			return utils.NewAppError(utils.ErrNotFound, "parent comment not found", nil)
		}
		if parent.PostID != comment.PostID {
			return utils.NewValidationError("parent comment belongs to a different post")
		}
		parent.ReplyCount++
		parent.UpdatedAt = now
	} else {
		post.CommentCount++
		post.UpdatedAt = now
	}

	m.comments[comment.ID] = copyComment(comment)
	return nil
}

func (m *MemoryDB) GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, utils.NewAppError(utils.ErrNotFound, "comment not found", nil)
	}
	return copyComment(c), nil
}

func (m *MemoryDB) listCommentsLocked(match func(*models.Comment) bool, limit, offset int) *models.CommentPage {
	all := []*models.Comment{}
	for _, c := range m.comments {
		if match(c) {
			all = append(all, copyComment(c))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	return &models.CommentPage{Comments: paginate(all, limit, offset), Total: total}
}

func (m *MemoryDB) ListTopLevelComments(ctx context.Context, postID uuid.UUID, limit, offset int) (*models.CommentPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCommentsLocked(func(c *models.Comment) bool {
		return c.PostID == postID && c.ParentID == nil
	}, limit, offset), nil
}

func (m *MemoryDB) ListReplies(ctx context.Context, parentID uuid.UUID, limit, offset int) (*models.CommentPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCommentsLocked(func(c *models.Comment) bool {
		return c.ParentID != nil && *c.ParentID == parentID
	}, limit, offset), nil
}
