// internal/database/mongo.go
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bayou-board/internal/models"
	"bayou-board/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB is the document-store adapter. Counter updates use server-side
// update pipelines ($max floor around $add), so the read-modify-write race
// of a client-side increment never occurs.
type MongoDB struct {
	Client     *mongo.Client
	Users      *mongo.Collection
	Posts      *mongo.Collection
	Comments   *mongo.Collection
	Subreddits *mongo.Collection
	Votes      *mongo.Collection
}

// Document shapes. IDs are stored as canonical UUID strings.
type userDocument struct {
	ID             string    `bson:"_id"`
	Username       string    `bson:"username"`
	Email          string    `bson:"email"`
	HashedPassword string    `bson:"passwordHash"`
	AvatarURL      string    `bson:"avatarUrl,omitempty"`
	Karma          int       `bson:"karma"`
	Subreddits     []string  `bson:"subreddits"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

type subredditDocument struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	IconURL     string    `bson:"iconUrl,omitempty"`
	CreatorID   string    `bson:"creatorId"`
	Members     int       `bson:"memberCount"`
	CreatedAt   time.Time `bson:"createdAt"`
}

type postDocument struct {
	ID           string    `bson:"_id"`
	Title        string    `bson:"title"`
	Content      string    `bson:"content"`
	PostType     string    `bson:"postType"`
	ImageURL     string    `bson:"imageUrl,omitempty"`
	AuthorID     string    `bson:"authorId"`
	SubredditID  string    `bson:"subredditId"`
	Upvotes      int       `bson:"upvotes"`
	Downvotes    int       `bson:"downvotes"`
	Karma        int       `bson:"karma"`
	CommentCount int       `bson:"commentCount"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

type commentDocument struct {
	ID         string    `bson:"_id"`
	Content    string    `bson:"content"`
	AuthorID   string    `bson:"authorId"`
	PostID     string    `bson:"postId"`
	ParentID   *string   `bson:"parentCommentId,omitempty"`
	Upvotes    int       `bson:"upvotes"`
	Downvotes  int       `bson:"downvotes"`
	Karma      int       `bson:"karma"`
	ReplyCount int       `bson:"replyCount"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

type voteDocument struct {
	ID         string    `bson:"_id"`
	VoterID    string    `bson:"voterId"`
	TargetID   string    `bson:"targetId"`
	TargetKind string    `bson:"targetKind"`
	Stance     string    `bson:"stance"`
	CreatedAt  time.Time `bson:"createdAt"`
}

// NewMongoDB connects, verifies the connection and sets up the indexes the
// vote ledger depends on.
func NewMongoDB(ctx context.Context, uri, dbName string) (*MongoDB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	if err := client.Database("admin").RunCommand(connectCtx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	db := client.Database(dbName)
	m := &MongoDB{
		Client:     client,
		Users:      db.Collection("users"),
		Posts:      db.Collection("posts"),
		Comments:   db.Collection("comments"),
		Subreddits: db.Collection("subreddits"),
		Votes:      db.Collection("votes"),
	}

	if err := m.ensureIndexes(connectCtx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MongoDB) ensureIndexes(ctx context.Context) error {
	// One vote per (voter, target, kind). A genuine uniqueness constraint,
	// not an application-level check.
	_, err := m.Votes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "voterId", Value: 1}, {Key: "targetId", Value: 1}, {Key: "targetKind", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create vote uniqueness index: %v", err)
	}

	_, err = m.Comments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "postId", Value: 1}, {Key: "parentCommentId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create comment listing index: %v", err)
	}

	_, err = m.Users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create user email index: %v", err)
	}

	_, err = m.Subreddits.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create subreddit name index: %v", err)
	}

	return nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// --- converters ---

func (d *userDocument) toModel() *models.User {
	subs := make([]uuid.UUID, 0, len(d.Subreddits))
	for _, s := range d.Subreddits {
		subs = append(subs, parseID(s))
	}
	return &models.User{
		ID:             parseID(d.ID),
		Username:       d.Username,
		Email:          d.Email,
		HashedPassword: d.HashedPassword,
		AvatarURL:      d.AvatarURL,
		Karma:          d.Karma,
		Subreddits:     subs,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func (d *postDocument) toModel() *models.Post {
	return &models.Post{
		ID:           parseID(d.ID),
		Title:        d.Title,
		Content:      d.Content,
		PostType:     models.PostType(d.PostType),
		ImageURL:     d.ImageURL,
		AuthorID:     parseID(d.AuthorID),
		SubredditID:  parseID(d.SubredditID),
		Upvotes:      d.Upvotes,
		Downvotes:    d.Downvotes,
		Karma:        d.Karma,
		CommentCount: d.CommentCount,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (d *commentDocument) toModel() *models.Comment {
	c := &models.Comment{
		ID:         parseID(d.ID),
		Content:    d.Content,
		AuthorID:   parseID(d.AuthorID),
		PostID:     parseID(d.PostID),
		Upvotes:    d.Upvotes,
		Downvotes:  d.Downvotes,
		Karma:      d.Karma,
		ReplyCount: d.ReplyCount,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	if d.ParentID != nil {
		parent := parseID(*d.ParentID)
		c.ParentID = &parent
	}
	return c
}

func (d *subredditDocument) toModel() *models.Subreddit {
	return &models.Subreddit{
		ID:          parseID(d.ID),
		Name:        d.Name,
		Description: d.Description,
		IconURL:     d.IconURL,
		CreatorID:   parseID(d.CreatorID),
		Members:     d.Members,
		CreatedAt:   d.CreatedAt,
	}
}

func (d *voteDocument) toModel() *models.Vote {
	return &models.Vote{
		ID:         parseID(d.ID),
		VoterID:    parseID(d.VoterID),
		TargetID:   parseID(d.TargetID),
		TargetKind: models.TargetKind(d.TargetKind),
		Stance:     models.Stance(d.Stance),
		CreatedAt:  d.CreatedAt,
	}
}

// --- User Methods ---

func (m *MongoDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var doc userDocument
	err := m.Users.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewAppError(utils.ErrNotFound, "user not found", err)
		}
		return nil, utils.NewStoreError("query user by id", err)
	}
	return doc.toModel(), nil
}

func (m *MongoDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var doc userDocument
	err := m.Users.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewAppError(utils.ErrNotFound, "user not found", err)
		}
		return nil, utils.NewStoreError("query user by email", err)
	}
	return doc.toModel(), nil
}

func (m *MongoDB) SaveUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.UpdatedAt = now
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}

	doc := userDocument{
		ID:             user.ID.String(),
		Username:       user.Username,
		Email:          user.Email,
		HashedPassword: user.HashedPassword,
		AvatarURL:      user.AvatarURL,
		Karma:          user.Karma,
		Subreddits:     []string{},
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
	_, err := m.Users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewAppError(utils.ErrUserAlreadyExists, "user already exists", err)
		}
		return utils.NewStoreError("save user", err)
	}
	return nil
}

func (m *MongoDB) UpdateUserKarma(ctx context.Context, id uuid.UUID, delta int) error {
	result, err := m.Users.UpdateByID(ctx, id.String(), bson.M{
		"$inc": bson.M{"karma": delta},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return utils.NewStoreError("update user karma", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewAppError(utils.ErrNotFound, "user not found for karma update", nil)
	}
	return nil
}

func (m *MongoDB) UpdateUserSubreddits(ctx context.Context, userID uuid.UUID, subID uuid.UUID, join bool) error {
	var update bson.M
	if join {
		update = bson.M{"$addToSet": bson.M{"subreddits": subID.String()}}
	} else {
		update = bson.M{"$pull": bson.M{"subreddits": subID.String()}}
	}
	_, err := m.Users.UpdateByID(ctx, userID.String(), update)
	if err != nil {
		return utils.NewStoreError("update user subreddit membership", err)
	}
	return nil
}

// --- Subreddit Methods ---

func (m *MongoDB) CreateSubreddit(ctx context.Context, sub *models.Subreddit) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	doc := subredditDocument{
		ID:          sub.ID.String(),
		Name:        sub.Name,
		Description: sub.Description,
		IconURL:     sub.IconURL,
		CreatorID:   sub.CreatorID.String(),
		Members:     sub.Members,
		CreatedAt:   sub.CreatedAt,
	}
	_, err := m.Subreddits.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewAppError(utils.ErrSubredditExists, "subreddit already exists", err)
		}
		return utils.NewStoreError("create subreddit", err)
	}
	return nil
}

func (m *MongoDB) GetSubredditByID(ctx context.Context, id uuid.UUID) (*models.Subreddit, error) {
	var doc subredditDocument
	err := m.Subreddits.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewAppError(utils.ErrSubredditNotFound, "subreddit not found", err)
		}
		return nil, utils.NewStoreError("query subreddit by id", err)
	}
	return doc.toModel(), nil
}

func (m *MongoDB) GetSubredditByName(ctx context.Context, name string) (*models.Subreddit, error) {
	var doc subredditDocument
	err := m.Subreddits.FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewAppError(utils.ErrSubredditNotFound, "subreddit not found", err)
		}
		return nil, utils.NewStoreError("query subreddit by name", err)
	}
	return doc.toModel(), nil
}

func (m *MongoDB) GetAllSubreddits(ctx context.Context) ([]*models.Subreddit, error) {
	cursor, err := m.Subreddits.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, utils.NewStoreError("query all subreddits", err)
	}
	defer cursor.Close(ctx)

	subs := []*models.Subreddit{}
	for cursor.Next(ctx) {
		var doc subredditDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, utils.NewStoreError("decode subreddit", err)
		}
		subs = append(subs, doc.toModel())
	}
	return subs, cursor.Err()
}

func (m *MongoDB) UpdateSubredditMemberCount(ctx context.Context, subID uuid.UUID, delta int) error {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"memberCount": bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{"$memberCount", delta}}}},
		}}},
	}
	result, err := m.Subreddits.UpdateByID(ctx, subID.String(), pipeline)
	if err != nil {
		return utils.NewStoreError("update subreddit member count", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewAppError(utils.ErrSubredditNotFound, "subreddit not found when updating member count", nil)
	}
	return nil
}

// --- Post Methods ---

func (m *MongoDB) SavePost(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = time.Now()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = post.UpdatedAt
	}
	if post.PostType == "" {
		post.PostType = models.TextPost
	}

	doc := postDocument{
		ID:           post.ID.String(),
		Title:        post.Title,
		Content:      post.Content,
		PostType:     string(post.PostType),
		ImageURL:     post.ImageURL,
		AuthorID:     post.AuthorID.String(),
		SubredditID:  post.SubredditID.String(),
		Upvotes:      post.Upvotes,
		Downvotes:    post.Downvotes,
		Karma:        post.Karma,
		CommentCount: post.CommentCount,
		CreatedAt:    post.CreatedAt,
		UpdatedAt:    post.UpdatedAt,
	}
	if _, err := m.Posts.InsertOne(ctx, doc); err != nil {
		return utils.NewStoreError("save post", err)
	}
	return nil
}

func (m *MongoDB) GetPost(ctx context.Context, postID uuid.UUID, requestingUserID uuid.UUID) (*models.Post, error) {
	var doc postDocument
	err := m.Posts.FindOne(ctx, bson.M{"_id": postID.String()}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewAppError(utils.ErrNotFound, "post not found", err)
		}
		return nil, utils.NewStoreError("query post by id", err)
	}
	post := doc.toModel()

	if requestingUserID != uuid.Nil {
		vote, err := m.GetUserVote(ctx, requestingUserID, postID, models.PostTarget)
		if err == nil && vote != nil {
			stance := vote.Stance
			post.CurrentUserVote = &stance
		}
	}
	return post, nil
}

func mongoPostSort(sort SortOrder) bson.D {
	if sort == SortTop {
		return bson.D{{Key: "upvotes", Value: -1}, {Key: "createdAt", Value: -1}}
	}
	return bson.D{{Key: "createdAt", Value: -1}}
}

func (m *MongoDB) findPosts(ctx context.Context, filter bson.M, limit, offset int, sort SortOrder) ([]*models.Post, error) {
	opts := options.Find().
		SetSort(mongoPostSort(sort)).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := m.Posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.NewStoreError("query posts", err)
	}
	defer cursor.Close(ctx)

	posts := []*models.Post{}
	for cursor.Next(ctx) {
		var doc postDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, utils.NewStoreError("decode post", err)
		}
		posts = append(posts, doc.toModel())
	}
	return posts, cursor.Err()
}

func (m *MongoDB) GetRecentPosts(ctx context.Context, limit, offset int, sort SortOrder, requestingUserID uuid.UUID) ([]*models.Post, error) {
	posts, err := m.findPosts(ctx, bson.M{}, limit, offset, sort)
	if err != nil {
		return nil, err
	}
	m.attachUserVotes(ctx, posts, requestingUserID)
	return posts, nil
}

func (m *MongoDB) GetPostsBySubreddit(ctx context.Context, subredditID uuid.UUID, limit, offset int, sort SortOrder) ([]*models.Post, error) {
	return m.findPosts(ctx, bson.M{"subredditId": subredditID.String()}, limit, offset, sort)
}

// attachUserVotes decorates a post batch with the requesting user's stances.
// Lookup failures leave the posts undecorated rather than failing the read.
func (m *MongoDB) attachUserVotes(ctx context.Context, posts []*models.Post, requestingUserID uuid.UUID) {
	if requestingUserID == uuid.Nil || len(posts) == 0 {
		return
	}

	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID.String()
	}

	cursor, err := m.Votes.Find(ctx, bson.M{
		"voterId":    requestingUserID.String(),
		"targetKind": string(models.PostTarget),
		"targetId":   bson.M{"$in": ids},
	})
	if err != nil {
		slog.Warn("failed to fetch user votes for post batch", "error", err)
		return
	}
	defer cursor.Close(ctx)

	stances := make(map[string]models.Stance)
	for cursor.Next(ctx) {
		var doc voteDocument
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		stances[doc.TargetID] = models.Stance(doc.Stance)
	}
	for _, p := range posts {
		if stance, ok := stances[p.ID.String()]; ok {
			s := stance
			p.CurrentUserVote = &s
		}
	}
}

// --- Vote Ledger ---

func (m *MongoDB) targetCollection(kind models.TargetKind) (*mongo.Collection, error) {
	switch kind {
	case models.PostTarget:
		return m.Posts, nil
	case models.CommentTarget:
		return m.Comments, nil
	default:
		return nil, utils.NewValidationError("unknown target kind " + string(kind))
	}
}

// CastVote applies toggle semantics against the document store. Every ledger
// mutation is conditional on the stance it observed — insert guarded by the
// unique index, delete and flip filtered on the prior stance — so a
// same-voter double-submit cannot double-apply counter deltas: the losing
// cast's mutation matches nothing, and the retry re-reads the committed
// record and lands in the correct branch.
func (m *MongoDB) CastVote(ctx context.Context, voterID, targetID uuid.UUID, kind models.TargetKind, stance models.Stance) (models.VoteCounts, error) {
	return castWithConflictRetry(func() (models.VoteCounts, error) {
		return m.castVoteOnce(ctx, voterID, targetID, kind, stance)
	})
}

func (m *MongoDB) castVoteOnce(ctx context.Context, voterID, targetID uuid.UUID, kind models.TargetKind, stance models.Stance) (models.VoteCounts, error) {
	var counts models.VoteCounts

	coll, err := m.targetCollection(kind)
	if err != nil {
		return counts, err
	}

	// Confirm the target exists before touching the ledger, so a vote row is
	// never written against a missing target. Targets are never deleted in
	// this core, so the check cannot go stale.
	if err := coll.FindOne(ctx, bson.M{"_id": targetID.String()}).Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return counts, utils.NewAppError(utils.ErrNotFound, string(kind)+" not found", err)
		}
		return counts, utils.NewStoreError("check vote target", err)
	}

	voteFilter := bson.M{
		"voterId":    voterID.String(),
		"targetId":   targetID.String(),
		"targetKind": string(kind),
	}
	var existing voteDocument
	err = m.Votes.FindOne(ctx, voteFilter).Decode(&existing)
	hasVote := err == nil
	if err != nil && err != mongo.ErrNoDocuments {
		return counts, utils.NewStoreError("check existing vote", err)
	}

	var upDelta, downDelta int
	switch {
	case !hasVote:
		doc := voteDocument{
			ID:         uuid.New().String(),
			VoterID:    voterID.String(),
			TargetID:   targetID.String(),
			TargetKind: string(kind),
			Stance:     string(stance),
			CreatedAt:  time.Now(),
		}
		if _, err := m.Votes.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return counts, utils.NewAppError(utils.ErrDuplicate, "vote already recorded", err)
			}
			return counts, utils.NewStoreError("insert vote", err)
		}
		if stance == models.Upvote {
			upDelta = 1
		} else {
			downDelta = 1
		}

	case existing.Stance == string(stance):
		// Filter on the observed stance: if a concurrent cast already moved
		// the record, this delete matches nothing and no delta is applied.
		res, err := m.Votes.DeleteOne(ctx, bson.M{"_id": existing.ID, "stance": existing.Stance})
		if err != nil {
			return counts, utils.NewStoreError("delete vote", err)
		}
		if res.DeletedCount == 0 {
			return counts, utils.NewAppError(utils.ErrDuplicate, "vote changed concurrently", nil)
		}
		if stance == models.Upvote {
			upDelta = -1
		} else {
			downDelta = -1
		}

	default:
		res, err := m.Votes.UpdateOne(ctx,
			bson.M{"_id": existing.ID, "stance": existing.Stance},
			bson.M{"$set": bson.M{"stance": string(stance), "createdAt": time.Now()}},
		)
		if err != nil {
			return counts, utils.NewStoreError("update vote stance", err)
		}
		if res.MatchedCount == 0 {
			return counts, utils.NewAppError(utils.ErrDuplicate, "vote changed concurrently", nil)
		}
		if stance == models.Upvote {
			upDelta, downDelta = 1, -1
		} else {
			upDelta, downDelta = -1, 1
		}
	}

	counts, err = m.applyCounterDeltas(ctx, coll, targetID, upDelta, downDelta)
	if err != nil {
		return counts, err
	}

	if karmaDelta := upDelta - downDelta; karmaDelta != 0 {
		m.adjustAuthorKarma(ctx, coll, targetID, karmaDelta)
	}

	return counts, nil
}

// applyCounterDeltas moves both counters in one atomic pipeline update,
// flooring at zero, and returns the post-update pair.
func (m *MongoDB) applyCounterDeltas(ctx context.Context, coll *mongo.Collection, targetID uuid.UUID, upDelta, downDelta int) (models.VoteCounts, error) {
	var counts models.VoteCounts

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"upvotes":   bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{"$upvotes", upDelta}}}},
			"downvotes": bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{"$downvotes", downDelta}}}},
			"updatedAt": time.Now(),
		}}},
		{{Key: "$set", Value: bson.M{
			"karma": bson.M{"$subtract": bson.A{"$upvotes", "$downvotes"}},
		}}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated struct {
		Upvotes   int `bson:"upvotes"`
		Downvotes int `bson:"downvotes"`
	}
	err := coll.FindOneAndUpdate(ctx, bson.M{"_id": targetID.String()}, pipeline, opts).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return counts, utils.NewAppError(utils.ErrNotFound, "vote target not found", err)
		}
		return counts, utils.NewStoreError("update target counters", err)
	}

	counts.Upvotes = updated.Upvotes
	counts.Downvotes = updated.Downvotes
	return counts, nil
}

func (m *MongoDB) adjustAuthorKarma(ctx context.Context, coll *mongo.Collection, targetID uuid.UUID, delta int) {
	var doc struct {
		AuthorID string `bson:"authorId"`
	}
	if err := coll.FindOne(ctx, bson.M{"_id": targetID.String()}).Decode(&doc); err != nil {
		slog.Warn("failed to resolve author for karma update", "target", targetID, "error", err)
		return
	}
	_, err := m.Users.UpdateByID(ctx, doc.AuthorID, bson.M{"$inc": bson.M{"karma": delta}})
	if err != nil {
		slog.Warn("failed to update author karma", "author", doc.AuthorID, "error", err)
	}
}

func (m *MongoDB) GetUserVote(ctx context.Context, voterID, targetID uuid.UUID, kind models.TargetKind) (*models.Vote, error) {
	var doc voteDocument
	err := m.Votes.FindOne(ctx, bson.M{
		"voterId":    voterID.String(),
		"targetId":   targetID.String(),
		"targetKind": string(kind),
	}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, utils.NewStoreError("query user vote", err)
	}
	return doc.toModel(), nil
}

// --- Comment Tree ---

func (m *MongoDB) CreateComment(ctx context.Context, comment *models.Comment) error {
	now := time.Now()
	comment.UpdatedAt = now
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now
	}

	if comment.ParentID != nil {
		var parent commentDocument
		err := m.Comments.FindOne(ctx, bson.M{"_id": comment.ParentID.String()}).Decode(&parent)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				return utils.NewAppError(utils.ErrNotFound, "parent comment not found", err)
			}
			return utils.NewStoreError("query parent comment", err)
		}
		if parent.PostID != comment.PostID.String() {
			return utils.NewValidationError("parent comment belongs to a different post")
		}
	} else {
		if err := m.Posts.FindOne(ctx, bson.M{"_id": comment.PostID.String()}).Err(); err != nil {
			if err == mongo.ErrNoDocuments {
				return utils.NewAppError(utils.ErrNotFound, "post not found", err)
			}
			return utils.NewStoreError("check comment post", err)
		}
	}

	doc := commentDocument{
		ID:         comment.ID.String(),
		Content:    comment.Content,
		AuthorID:   comment.AuthorID.String(),
		PostID:     comment.PostID.String(),
		Upvotes:    comment.Upvotes,
		Downvotes:  comment.Downvotes,
		Karma:      comment.Karma,
		ReplyCount: comment.ReplyCount,
		CreatedAt:  comment.CreatedAt,
		UpdatedAt:  comment.UpdatedAt,
	}
	if comment.ParentID != nil {
		parentStr := comment.ParentID.String()
		doc.ParentID = &parentStr
	}

	if _, err := m.Comments.InsertOne(ctx, doc); err != nil {
		return utils.NewStoreError("insert comment", err)
	}

	// $inc is atomic on the server; the reply-count counters have the same
	// race profile as the vote counters and get the same treatment.
	if comment.ParentID == nil {
		_, err := m.Posts.UpdateByID(ctx, comment.PostID.String(), bson.M{
			"$inc": bson.M{"commentCount": 1},
			"$set": bson.M{"updatedAt": now},
		})
		if err != nil {
			return utils.NewStoreError("increment post commentCount", err)
		}
	} else {
		_, err := m.Comments.UpdateByID(ctx, comment.ParentID.String(), bson.M{
			"$inc": bson.M{"replyCount": 1},
			"$set": bson.M{"updatedAt": now},
		})
		if err != nil {
			return utils.NewStoreError("increment parent replyCount", err)
		}
	}

	return nil
}

func (m *MongoDB) GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var doc commentDocument
	err := m.Comments.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewAppError(utils.ErrNotFound, "comment not found", err)
		}
		return nil, utils.NewStoreError("query comment by id", err)
	}
	return doc.toModel(), nil
}

func (m *MongoDB) listComments(ctx context.Context, filter bson.M, limit, offset int) (*models.CommentPage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit)).SetSkip(int64(offset))
	}

	cursor, err := m.Comments.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.NewStoreError("query comments", err)
	}
	defer cursor.Close(ctx)

	comments := []*models.Comment{}
	for cursor.Next(ctx) {
		var doc commentDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, utils.NewStoreError("decode comment", err)
		}
		comments = append(comments, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewStoreError("iterate comments", err)
	}

	total, err := m.Comments.CountDocuments(ctx, filter)
	if err != nil {
		return nil, utils.NewStoreError("count comments", err)
	}

	return &models.CommentPage{Comments: comments, Total: int(total)}, nil
}

func (m *MongoDB) ListTopLevelComments(ctx context.Context, postID uuid.UUID, limit, offset int) (*models.CommentPage, error) {
	filter := bson.M{"postId": postID.String(), "parentCommentId": nil}
	return m.listComments(ctx, filter, limit, offset)
}

func (m *MongoDB) ListReplies(ctx context.Context, parentID uuid.UUID, limit, offset int) (*models.CommentPage, error) {
	filter := bson.M{"parentCommentId": parentID.String()}
	return m.listComments(ctx, filter, limit, offset)
}
