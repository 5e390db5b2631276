package vorm_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/vorm"
	"github.com/syssam/vorm/dialect"
	"github.com/syssam/vorm/dialect/sql/sqlgraph"
	"github.com/syssam/vorm/schema"

	_ "modernc.org/sqlite"
)

var ddl = []string{
	"CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, settings BLOB)",
	"CREATE TABLE posts (id INTEGER PRIMARY KEY AUTOINCREMENT, users_id INTEGER REFERENCES users (id), title TEXT)",
	"CREATE TABLE tags (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE)",
	"CREATE TABLE post_tags (posts_id INTEGER NOT NULL, tags_id INTEGER NOT NULL, PRIMARY KEY (posts_id, tags_id))",
}

type blog struct {
	client             *vorm.Client
	users, posts, tags *schema.Entity
}

func openBlog(t *testing.T) *blog {
	t.Helper()
	reg := schema.NewRegistry()
	b := &blog{
		users: reg.MustRegister("User", schema.Table("users"), schema.AutoIncrement(),
			schema.Columns("id", "name", "settings"),
			schema.Serialized("settings"),
			schema.Validate("name", schema.NotEmpty()),
		),
		posts: reg.MustRegister("Post", schema.Table("posts"), schema.AutoIncrement()),
		tags:  reg.MustRegister("Tag", schema.Table("tags"), schema.AutoIncrement()),
	}
	require.NoError(t, b.users.HasMany("posts", b.posts, schema.Cascade()))
	require.NoError(t, b.posts.BelongsTo("author", b.users))
	require.NoError(t, b.posts.HasManyThrough("tags", b.tags, "post_tags"))

	client, err := vorm.OpenConfig(&vorm.Config{
		Dialect:      dialect.SQLite,
		DSN:          filepath.Join(t.TempDir(), "blog.db"),
		MaxOpenConns: 1,
	}, reg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	for _, stmt := range ddl {
		require.NoError(t, client.ExecQuerier().Exec(context.Background(), stmt, []any{}, nil))
	}
	b.client = client
	return b
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	b := openBlog(t)
	c := b.client

	a8m := vorm.New(b.users).Set("name", "a8m").Set("settings", map[string]any{"theme": "dark"})
	require.NoError(t, c.Create(ctx, a8m))
	require.Equal(t, int64(1), a8m.Get("id"))

	var posts []*vorm.Entity
	for _, title := range []string{"hello", "world"} {
		p := vorm.New(b.posts).Set("title", title)
		require.NoError(t, c.AddRelation(ctx, p, "author", a8m))
		require.NoError(t, c.Create(ctx, p))
		posts = append(posts, p)
	}
	var tags []*vorm.Entity
	for _, name := range []string{"go", "sql"} {
		tag := vorm.New(b.tags).Set("name", name)
		require.NoError(t, c.Create(ctx, tag))
		tags = append(tags, tag)
	}
	require.NoError(t, c.AddRelation(ctx, posts[0], "tags", tags...))

	users, err := c.Query(b.users).With("posts.tags").All(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	settings, ok := users[0].Get("settings").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "dark", settings["theme"])
	loaded, err := users[0].RelatedMany("posts")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	for _, p := range loaded {
		pt, err := p.RelatedMany("tags")
		require.NoError(t, err)
		if p.Get("title") == "hello" {
			assert.Len(t, pt, 2)
		} else {
			assert.Empty(t, pt)
		}
	}

	p, err := c.Query(b.posts).With("author").Where("title", "=", "world").Only(ctx)
	require.NoError(t, err)
	author, err := p.Related("author")
	require.NoError(t, err)
	assert.Equal(t, "a8m", author.Get("name"))

	require.NoError(t, c.Update(ctx, a8m.Set("name", "ariel")))
	fresh, err := c.Query(b.users).Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "ariel", fresh.Get("name"))

	require.NoError(t, c.RemoveRelation(ctx, posts[0], "tags", tags[0]))
	n, err := c.Builder().Select("posts_id").From("post_tags").Count(ctx, c.ExecQuerier())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	err = c.WithTx(ctx, func(tx *vorm.Client) error {
		return tx.Delete(ctx, a8m)
	})
	require.NoError(t, err)
	n, err = c.Query(b.posts).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "posts are deleted with their author")
	_, err = c.Query(b.users).Get(ctx, 1)
	assert.True(t, vorm.IsNotFound(err))

	err = c.Create(ctx, vorm.New(b.tags).Set("name", "go"))
	require.Error(t, err)
	assert.True(t, sqlgraph.IsUniqueConstraintError(err), "unique violations fail the create")
	assert.False(t, vorm.IsMutationError(err))
}
