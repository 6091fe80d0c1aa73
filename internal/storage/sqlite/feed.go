package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/cookie/internal/models"
)

// CreatePost persists a new post to the database.
func (s *SQLiteStore) CreatePost(ctx context.Context, post *models.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now()
	}
	if post.User == nil {
		return fmt.Errorf("post author required")
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO posts (group_id, user_id, content, created_at) VALUES (?, ?, ?, ?)",
		post.GroupID, post.User.ID, post.Content, post.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read post id: %w", err)
	}
	post.ID = id
	return nil
}

// ListPosts returns the group's posts, newest first.
func (s *SQLiteStore) ListPosts(ctx context.Context, groupID int64) ([]*models.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.group_id, p.content, p.created_at, u.id, u.name
		 FROM posts p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.group_id = ?
		 ORDER BY p.created_at DESC, p.id DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*models.Post, 0)
	for rows.Next() {
		var (
			p         models.Post
			author    models.UserRef
			createdAt int64
		)
		if err := rows.Scan(&p.ID, &p.GroupID, &p.Content, &createdAt, &author.ID, &author.Name); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		p.CreatedAt = fromUnix(createdAt)
		p.User = &author
		posts = append(posts, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, nil
}

// CreateStory persists a story and its recipient list in one transaction.
func (s *SQLiteStore) CreateStory(ctx context.Context, story *models.Story) error {
	if story.CreatedAt.IsZero() {
		story.CreatedAt = now()
	}
	if story.User == nil {
		return fmt.Errorf("story author required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO stories (group_id, user_id, content, created_at, expires_at) VALUES (?, ?, ?, ?, ?)",
		story.GroupID, story.User.ID, story.Content, story.CreatedAt.Unix(), story.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert story: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read story id: %w", err)
	}

	for _, userID := range story.SharedWith {
		_, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO story_recipients (story_id, user_id) VALUES (?, ?)",
			id, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert story recipient: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	story.ID = id
	if story.SharedWith == nil {
		story.SharedWith = []int64{}
	}
	return nil
}

// ListStories returns unexpired stories in the group that viewerID may see.
func (s *SQLiteStore) ListStories(ctx context.Context, groupID, viewerID int64, at time.Time) ([]*models.Story, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.group_id, s.content, s.created_at, s.expires_at, u.id, u.name
		 FROM stories s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.group_id = ? AND s.expires_at > ?
		 ORDER BY s.created_at DESC, s.id DESC`,
		groupID, at.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}

	var all []*models.Story
	for rows.Next() {
		var (
			st                   models.Story
			author               models.UserRef
			createdAt, expiresAt int64
		)
		if err := rows.Scan(&st.ID, &st.GroupID, &st.Content, &createdAt, &expiresAt, &author.ID, &author.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		st.CreatedAt = fromUnix(createdAt)
		st.ExpiresAt = fromUnix(expiresAt)
		st.User = &author
		st.SharedWith = []int64{}
		all = append(all, &st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stories: %w", err)
	}

	// Recipients are loaded after the story cursor is closed so the pool is
	// not asked for a second connection mid-iteration.
	stories := make([]*models.Story, 0, len(all))
	for _, st := range all {
		recipients, err := s.storyRecipients(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		st.SharedWith = recipients
		if st.VisibleTo(viewerID) {
			stories = append(stories, st)
		}
	}
	return stories, nil
}

func (s *SQLiteStore) storyRecipients(ctx context.Context, storyID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM story_recipients WHERE story_id = ? ORDER BY user_id",
		storyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get story recipients: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan story recipient: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate story recipients: %w", err)
	}
	return ids, nil
}
