package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatscribe/chatscribe/internal/store"
	"github.com/chatscribe/chatscribe/internal/testutil"
)

// fixture holds a migrated database with one user ready for use.
type fixture struct {
	store *store.Store
	user  *store.User
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	testDB, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	s := store.New(testDB.Pool, testutil.QuietLogger())

	user, err := s.CreateUser(context.Background(), "alice", "alice@example.com", "hashed-password")
	require.NoError(t, err)

	return &fixture{store: s, user: user}
}

func (f *fixture) createDocument(t *testing.T, original string) *store.Document {
	t.Helper()

	doc, err := f.store.CreateDocument(context.Background(), &store.Document{
		Filename:         uuid.NewString() + ".txt",
		OriginalFilename: original,
		FilePath:         "/tmp/uploads/" + original,
		FileType:         "txt",
		FileSize:         42,
		Content:          "extracted text of " + original,
		UserID:           f.user.ID,
	})
	require.NoError(t, err)
	return doc
}

func TestUsers(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	t.Run("create returns populated row", func(t *testing.T) {
		assert.NotEqual(t, uuid.Nil, f.user.ID)
		assert.Equal(t, "alice", f.user.Username)
		assert.Equal(t, "alice@example.com", f.user.Email)
		assert.True(t, f.user.IsActive)
		assert.False(t, f.user.CreatedAt.IsZero())
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := f.store.CreateUser(ctx, "alice", "other@example.com", "hash")
		assert.ErrorIs(t, err, store.ErrUsernameTaken)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.store.CreateUser(ctx, "bob", "alice@example.com", "hash")
		assert.ErrorIs(t, err, store.ErrEmailTaken)
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := f.store.GetUser(ctx, f.user.ID)
		require.NoError(t, err)
		assert.Equal(t, f.user.Username, got.Username)

		_, err = f.store.GetUser(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("get by username", func(t *testing.T) {
		got, err := f.store.GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, f.user.ID, got.ID)

		_, err = f.store.GetUserByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestDocuments(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	doc := f.createDocument(t, "report.pdf")

	t.Run("get", func(t *testing.T) {
		got, err := f.store.GetDocument(ctx, doc.ID, f.user.ID)
		require.NoError(t, err)
		assert.Equal(t, "report.pdf", got.OriginalFilename)
		assert.Equal(t, "extracted text of report.pdf", got.Content)
	})

	t.Run("get enforces ownership", func(t *testing.T) {
		other, err := f.store.CreateUser(ctx, "mallory", "mallory@example.com", "hash")
		require.NoError(t, err)

		_, err = f.store.GetDocument(ctx, doc.ID, other.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		second := f.createDocument(t, "notes.txt")

		docs, err := f.store.ListDocuments(ctx, f.user.ID)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, second.ID, docs[0].ID)
		assert.Equal(t, doc.ID, docs[1].ID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, f.store.DeleteDocument(ctx, doc.ID, f.user.ID))

		_, err := f.store.GetDocument(ctx, doc.ID, f.user.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		err = f.store.DeleteDocument(ctx, doc.ID, f.user.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestSessions(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	doc := f.createDocument(t, "manual.pdf")

	sess, err := f.store.CreateSession(ctx, "How do I install", f.user.ID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "How do I install", sess.Title)
	assert.Equal(t, doc.ID, sess.DocumentID)

	t.Run("get enforces ownership", func(t *testing.T) {
		_, err := f.store.GetSession(ctx, sess.ID, uuid.New())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("add turn assigns sequence numbers", func(t *testing.T) {
		require.NoError(t, f.store.AddTurn(ctx, sess.ID, "How do I install?", "Run the installer."))
		require.NoError(t, f.store.AddTurn(ctx, sess.ID, "And then?", "Restart the machine."))

		messages, err := f.store.GetMessages(ctx, sess.ID, f.user.ID)
		require.NoError(t, err)
		require.Len(t, messages, 4)

		for i, m := range messages {
			assert.Equal(t, int32(i+1), m.SequenceNumber)
			assert.Equal(t, i%2 == 0, m.IsUser, "message %d", i)
		}
		assert.Equal(t, "How do I install?", messages[0].Content)
		assert.Equal(t, "Restart the machine.", messages[3].Content)
	})

	t.Run("add turn bumps updated_at", func(t *testing.T) {
		before, err := f.store.GetSession(ctx, sess.ID, f.user.ID)
		require.NoError(t, err)

		require.NoError(t, f.store.AddTurn(ctx, sess.ID, "q", "a"))

		after, err := f.store.GetSession(ctx, sess.ID, f.user.ID)
		require.NoError(t, err)
		assert.True(t, after.UpdatedAt.After(before.UpdatedAt) || after.UpdatedAt.Equal(before.UpdatedAt))
	})

	t.Run("add turn to missing session", func(t *testing.T) {
		err := f.store.AddTurn(ctx, uuid.New(), "q", "a")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("list most recently updated first", func(t *testing.T) {
		second, err := f.store.CreateSession(ctx, "Second chat", f.user.ID, doc.ID)
		require.NoError(t, err)
		require.NoError(t, f.store.AddTurn(ctx, second.ID, "q", "a"))

		sessions, err := f.store.ListSessions(ctx, f.user.ID)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, second.ID, sessions[0].ID)
	})

	t.Run("messages require session ownership", func(t *testing.T) {
		_, err := f.store.GetMessages(ctx, sess.ID, uuid.New())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("deleting document cascades", func(t *testing.T) {
		require.NoError(t, f.store.DeleteDocument(ctx, doc.ID, f.user.ID))

		_, err := f.store.GetSession(ctx, sess.ID, f.user.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
