package sqlgraph

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/syssam/vorm/dialect"
	"github.com/syssam/vorm/dialect/sql"
	"github.com/syssam/vorm/schema"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	meta    *schema.Entity
	columns map[string]any
	one     map[string]Node
	many    map[string][]Node
}

func newTestNode(meta *schema.Entity, columns map[string]any) (Node, error) {
	return &node{meta: meta, columns: columns, one: map[string]Node{}, many: map[string][]Node{}}, nil
}

func (n *node) ColumnValue(c string) any       { return n.columns[c] }
func (n *node) One(name string) Node           { return n.one[name] }
func (n *node) SetOne(name string, c Node)     { n.one[name] = c }
func (n *node) SetMany(name string, cs []Node) { n.many[name] = cs }
func (n *node) get(c string) any               { return n.columns[c] }
func (n *node) manyOf(name string) []*node     { return nodes(n.many[name]) }

func (n *node) oneOf(name string) *node {
	c, _ := n.one[name].(*node)
	return c
}

func nodes(ns []Node) []*node {
	out := make([]*node, len(ns))
	for i, n := range ns {
		out[i] = n.(*node)
	}
	return out
}

type testSchema struct {
	reg                                *schema.Registry
	users, posts, tags, comments, pets *schema.Entity
}

func newTestSchema(t *testing.T) *testSchema {
	t.Helper()
	s := &testSchema{reg: schema.NewRegistry()}
	s.users = s.reg.MustRegister("User", schema.Table("users"), schema.Columns("id", "name"))
	s.posts = s.reg.MustRegister("Post", schema.Table("posts"), schema.Columns("id", "users_id", "title"))
	s.tags = s.reg.MustRegister("Tag", schema.Table("tags"), schema.Columns("id", "name"))
	s.comments = s.reg.MustRegister("Comment", schema.Table("comments"), schema.Columns("id", "posts_id", "body"))
	s.pets = s.reg.MustRegister("Pet", schema.Table("pets"), schema.Columns("id", "users_id"))
	require.NoError(t, s.users.HasMany("posts", s.posts, schema.Cascade()))
	require.NoError(t, s.users.HasMany("pets", s.pets))
	require.NoError(t, s.posts.BelongsTo("author", s.users, schema.ForeignKey("users_id")))
	require.NoError(t, s.posts.HasManyThrough("tags", s.tags, "post_tags"))
	require.NoError(t, s.posts.HasMany("comments", s.comments, schema.Cascade()))
	require.NoError(t, s.reg.Freeze())
	return s
}

func newResolver(t *testing.T) (*Resolver, *sql.Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	r := &Resolver{Dialect: sql.MustDialect(dialect.SQLite), NewNode: newTestNode}
	return r, sql.OpenDB(dialect.SQLite, db), mock
}

func TestParseWith(t *testing.T) {
	s := newTestSchema(t)
	withs, err := ParseWith(s.posts, "author", "author.posts", "tags")
	require.NoError(t, err)
	require.Len(t, withs, 2)
	assert.Equal(t, "author", withs[0].Path)
	require.Len(t, withs[0].Children, 1)
	assert.Equal(t, "author:posts", withs[0].Children[0].Path)
	assert.Same(t, s.users.Relations()[0], withs[0].Children[0].Relation)
	assert.Equal(t, "tags", withs[1].Path)

	_, err = ParseWith(s.posts, "author.nope")
	assert.EqualError(t, err, `sqlgraph: unknown relation "nope" on User`)
	_, err = ParseWith(s.posts, "")
	assert.Error(t, err)
}

func TestResolver_HasMany(t *testing.T) {
	s := newTestSchema(t)
	r, drv, mock := newResolver(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "users".* FROM "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "a8m").AddRow(2, "nati").AddRow(3, "ariel"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "posts".* FROM "posts" WHERE "posts"."users_id" IN (?, ?, ?)`)).
		WithArgs(1, 2, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "users_id", "title"}).
			AddRow(10, 1, "a").
			AddRow(11, 1, "b").
			AddRow(12, 2, "c"))

	withs, err := ParseWith(s.users, "posts")
	require.NoError(t, err)
	ns, err := r.Query(context.Background(), drv, s.users, sql.NewBuilder(r.Dialect).From("users"), withs)
	require.NoError(t, err)
	require.Len(t, ns, 3)
	users := nodes(ns)
	assert.Len(t, users[0].manyOf("posts"), 2)
	assert.Len(t, users[1].manyOf("posts"), 1)
	assert.Equal(t, "c", users[1].manyOf("posts")[0].get("title"))
	posts := users[2].manyOf("posts")
	assert.NotNil(t, posts, "parents without children get an empty list")
	assert.Empty(t, posts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolver_HasManyThrough(t *testing.T) {
	s := newTestSchema(t)
	r, drv, mock := newResolver(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "posts".* FROM "posts" WHERE "posts"."title" != ?`)).
		WithArgs("").
		WillReturnRows(sqlmock.NewRows([]string{"id", "users_id", "title"}).AddRow(10, 1, "a").AddRow(11, 1, "b").AddRow(12, 2, "c"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "tags".*, "post_tags"."posts_id" AS "__through_0" FROM "tags" JOIN "post_tags" ON "post_tags"."tags_id" = "tags"."id" WHERE "post_tags"."posts_id" IN (?, ?, ?)`)).
		WithArgs(10, 11, 12).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "__through_0"}).
			AddRow(100, "go", 10).
			AddRow(101, "sql", 10).
			AddRow(100, "go", 11))

	withs, err := ParseWith(s.posts, "tags")
	require.NoError(t, err)
	b := sql.NewBuilder(r.Dialect).From("posts").Where("posts.title", "!=", "")
	ns, err := r.Query(context.Background(), drv, s.posts, b, withs)
	require.NoError(t, err)
	posts := nodes(ns)
	require.Len(t, posts, 3)
	require.Len(t, posts[0].manyOf("tags"), 2)
	assert.Len(t, posts[1].manyOf("tags"), 1)
	assert.Empty(t, posts[2].manyOf("tags"))
	tag := posts[0].manyOf("tags")[0]
	assert.Equal(t, "go", tag.get("name"))
	assert.NotContains(t, tag.columns, "__through_0")
	// Shared targets are separate nodes per parent.
	assert.NotSame(t, tag, posts[1].manyOf("tags")[0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolver_BelongsTo(t *testing.T) {
	s := newTestSchema(t)
	r, drv, mock := newResolver(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "posts".*, "author"."id" AS "author:id", "author"."name" AS "author:name" FROM "posts" LEFT JOIN "users" "author" ON "author"."id" = "posts"."users_id"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "users_id", "title", "author:id", "author:name"}).
			AddRow(10, 1, "a", 1, "a8m").
			AddRow(11, nil, "b", nil, nil))

	withs, err := ParseWith(s.posts, "author")
	require.NoError(t, err)
	ns, err := r.Query(context.Background(), drv, s.posts, sql.NewBuilder(r.Dialect).From("posts"), withs)
	require.NoError(t, err)
	posts := nodes(ns)
	require.Len(t, posts, 2)
	author := posts[0].oneOf("author")
	require.NotNil(t, author)
	assert.Equal(t, "a8m", author.get("name"))
	assert.NotContains(t, posts[0].columns, "author:name")
	assert.Contains(t, posts[1].one, "author")
	assert.Nil(t, posts[1].one["author"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolver_HasOne(t *testing.T) {
	reg := schema.NewRegistry()
	users := reg.MustRegister("User", schema.Table("users"), schema.Columns("id", "name"))
	profiles := reg.MustRegister("Profile", schema.Table("profiles"), schema.Columns("id", "users_id", "bio"))
	require.NoError(t, users.HasOne("profile", profiles))
	require.NoError(t, reg.Freeze())
	r, drv, mock := newResolver(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "users".*, "profile"."id" AS "profile:id", "profile"."users_id" AS "profile:users_id", "profile"."bio" AS "profile:bio" FROM "users" LEFT JOIN "profiles" "profile" ON "profile"."users_id" = "users"."id"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "profile:id", "profile:users_id", "profile:bio"}).
			AddRow(1, "a8m", 5, 1, "gopher").
			AddRow(2, "nati", nil, nil, nil))

	withs, err := ParseWith(users, "profile")
	require.NoError(t, err)
	ns, err := r.Query(context.Background(), drv, users, sql.NewBuilder(r.Dialect).From("users"), withs)
	require.NoError(t, err)
	got := nodes(ns)
	require.Len(t, got, 2)
	profile := got[0].oneOf("profile")
	require.NotNil(t, profile)
	assert.Equal(t, "gopher", profile.get("bio"))
	assert.NotContains(t, got[0].columns, "profile:bio")
	assert.Contains(t, got[1].one, "profile")
	assert.Nil(t, got[1].one["profile"], "a user without a profile gets a nil relation")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolver_HasOneThrough(t *testing.T) {
	reg := schema.NewRegistry()
	users := reg.MustRegister("User", schema.Table("users"), schema.Columns("id", "name"))
	groups := reg.MustRegister("Group", schema.Table("groups"), schema.Columns("id", "name"))
	require.NoError(t, users.HasOneThrough("group", groups, "users_groups"))
	require.NoError(t, reg.Freeze())
	r, drv, mock := newResolver(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "users".*, "group"."id" AS "group:id", "group"."name" AS "group:name" FROM "users" LEFT JOIN "users_groups" "group__j" ON "group__j"."users_id" = "users"."id" LEFT JOIN "groups" "group" ON "group"."id" = "group__j"."groups_id"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "group:id", "group:name"}).
			AddRow(1, "a8m", 7, "g7").
			AddRow(3, "noam", nil, nil))

	withs, err := ParseWith(users, "group")
	require.NoError(t, err)
	ns, err := r.Query(context.Background(), drv, users, sql.NewBuilder(r.Dialect).From("users"), withs)
	require.NoError(t, err)
	got := nodes(ns)
	require.Len(t, got, 2)
	group := got[0].oneOf("group")
	require.NotNil(t, group)
	assert.Equal(t, "g7", group.get("name"))
	assert.Contains(t, got[1].one, "group")
	assert.Nil(t, got[1].one["group"], "a user without a junction row gets a nil relation")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolver_Nested(t *testing.T) {
	s := newTestSchema(t)
	r, drv, mock := newResolver(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "posts".*, "author"."id" AS "author:id", "author"."name" AS "author:name" FROM "posts" LEFT JOIN "users" "author" ON "author"."id" = "posts"."users_id" WHERE "posts"."id" = ?`)).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "users_id", "title", "author:id", "author:name"}).
			AddRow(10, 1, "a", 1, "a8m"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "pets".* FROM "pets" WHERE "pets"."users_id" IN (?)`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "users_id"}).AddRow(7, 1))

	withs, err := ParseWith(s.posts, "author.pets")
	require.NoError(t, err)
	b := sql.NewBuilder(r.Dialect).From("posts").Where("posts.id", "=", 10)
	ns, err := r.Query(context.Background(), drv, s.posts, b, withs)
	require.NoError(t, err)
	require.Len(t, ns, 1)
	pets := nodes(ns)[0].oneOf("author").manyOf("pets")
	require.Len(t, pets, 1)
	assert.Equal(t, 7, pets[0].get("id"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolver_LoadError(t *testing.T) {
	s := newTestSchema(t)
	r, drv, mock := newResolver(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "users".* FROM "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "a8m"))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "posts"`)).WillReturnError(errors.New("boom"))

	withs, err := ParseWith(s.users, "posts")
	require.NoError(t, err)
	_, err = r.Query(context.Background(), drv, s.users, sql.NewBuilder(r.Dialect).From("users"), withs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlgraph: load User.posts")
}

func TestWhereKeys(t *testing.T) {
	d := sql.MustDialect(dialect.MySQL)
	stmt, err := WhereKeys(d.Select("id").From("t"), []string{"a", "b"}, [][]any{{1, 2}, {3, 4}}).Compile()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `id` FROM `t` WHERE ((`a` = ? AND `b` = ?) OR (`a` = ? AND `b` = ?))", stmt.SQL)
	assert.Equal(t, []any{1, 2, 3, 4}, stmt.Params)

	stmt, err = WhereKeys(d.Select("id").From("t"), []string{"a"}, [][]any{{1}, {2}}).Compile()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `id` FROM `t` WHERE `a` IN (?, ?)", stmt.SQL)
}

func TestLinkJunction(t *testing.T) {
	s := newTestSchema(t)
	r, drv, mock := newResolver(t)
	ctx := context.Background()
	rel, _ := s.posts.Relation("tags")

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "post_tags" ("posts_id", "tags_id") VALUES (?, ?)`)).
		WithArgs(10, 100).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, LinkJunction(ctx, drv, r.Dialect, rel, []any{10}, [][]any{{100}}))
	require.NoError(t, mock.ExpectationsWereMet())

	require.NoError(t, LinkJunction(ctx, drv, r.Dialect, rel, []any{10}, nil))

	var ae *schema.KeyArityError
	require.ErrorAs(t, LinkJunction(ctx, drv, r.Dialect, rel, []any{10}, [][]any{{1, 2}}), &ae)

	author, _ := s.posts.Relation("author")
	assert.Error(t, LinkJunction(ctx, drv, r.Dialect, author, []any{10}, [][]any{{1}}))

	t.Run("constraint", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "post_tags"`)).
			WithArgs(10, 100).
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
		err := LinkJunction(ctx, drv, r.Dialect, rel, []any{10}, [][]any{{100}})
		var ce ConstraintError
		require.ErrorAs(t, err, &ce)
		assert.Contains(t, err.Error(), "sqlgraph: constraint failed: link Post.tags")
		assert.True(t, IsUniqueConstraintError(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUnlinkJunction(t *testing.T) {
	s := newTestSchema(t)
	r, drv, mock := newResolver(t)
	rel, _ := s.posts.Relation("tags")

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "post_tags" WHERE "posts_id" = ? AND "tags_id" IN (?, ?)`)).
		WithArgs(10, 100, 101).
		WillReturnResult(sqlmock.NewResult(0, 2))
	n, err := UnlinkJunction(context.Background(), drv, r.Dialect, rel, []any{10}, [][]any{{100}, {101}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "post_tags" WHERE "posts_id" = ?`)).
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 3))
	n, err = UnlinkJunction(context.Background(), drv, r.Dialect, rel, []any{10}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetForeignKey(t *testing.T) {
	s := newTestSchema(t)
	r, drv, mock := newResolver(t)
	ctx := context.Background()
	rel, _ := s.users.Relation("posts")

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "users_id" = ? WHERE "id" IN (?, ?)`)).
		WithArgs(1, 10, 11).
		WillReturnResult(sqlmock.NewResult(0, 2))
	n, err := SetForeignKey(ctx, drv, r.Dialect, rel, []any{1}, nil, [][]any{{10}, {11}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "users_id" = ? WHERE "users_id" = ? AND "id" IN (?)`)).
		WithArgs(nil, 1, 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	n, err = SetForeignKey(ctx, drv, r.Dialect, rel, nil, []any{1}, [][]any{{10}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())

	tags, _ := s.posts.Relation("tags")
	_, err = SetForeignKey(ctx, drv, r.Dialect, tags, []any{1}, nil, nil)
	assert.Error(t, err)
}

func TestDeleteCascade(t *testing.T) {
	s := newTestSchema(t)
	r, drv, mock := newResolver(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "posts" WHERE "users_id" IN (?)`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10).AddRow(11))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "comments" WHERE "posts_id" IN (?, ?)`)).
		WithArgs(10, 11).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "posts" WHERE "users_id" IN (?)`)).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 2))

	steps, err := DeleteCascade(context.Background(), drv, r.Dialect, s.users, [][]any{{1}})
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "comments", steps[0].Relation.Name)
	assert.Equal(t, int64(3), steps[0].Deleted)
	assert.Equal(t, "posts", steps[1].Relation.Name)
	assert.Equal(t, int64(2), steps[1].Deleted)
	require.NoError(t, mock.ExpectationsWereMet())

	t.Run("no cascade relations", func(t *testing.T) {
		steps, err := DeleteCascade(context.Background(), drv, r.Dialect, s.tags, [][]any{{1}})
		require.NoError(t, err)
		assert.Empty(t, steps)
	})

	t.Run("conditions", func(t *testing.T) {
		reg := schema.NewRegistry()
		users := reg.MustRegister("User", schema.Table("users"))
		posts := reg.MustRegister("Post", schema.Table("posts"), schema.Columns("id", "users_id", "status"))
		comments := reg.MustRegister("Comment", schema.Table("comments"), schema.Columns("id", "posts_id"))
		require.NoError(t, users.HasMany("drafts", posts, schema.Conditions(map[string]any{"status": "draft"}), schema.Cascade()))
		require.NoError(t, posts.HasMany("comments", comments, schema.Cascade()))
		require.NoError(t, reg.Freeze())
		r, drv, mock := newResolver(t)

		// Comments of published posts survive: only drafts are descended into.
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "posts" WHERE "users_id" IN (?) AND "status" = ?`)).
			WithArgs(1, "draft").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "comments" WHERE "posts_id" IN (?)`)).
			WithArgs(10).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "posts" WHERE "users_id" IN (?) AND "status" = ?`)).
			WithArgs(1, "draft").
			WillReturnResult(sqlmock.NewResult(0, 1))

		steps, err := DeleteCascade(context.Background(), drv, r.Dialect, users, [][]any{{1}})
		require.NoError(t, err)
		require.Len(t, steps, 2)
		assert.Equal(t, "comments", steps[0].Relation.Name)
		assert.Equal(t, "drafts", steps[1].Relation.Name)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteCascade_Cycle(t *testing.T) {
	reg := schema.NewRegistry()
	nodesMeta := reg.MustRegister("Node", schema.Table("nodes"), schema.Columns("id", "parent_id"))
	require.NoError(t, nodesMeta.HasMany("children", nodesMeta, schema.ForeignKey("parent_id"), schema.Cascade()))
	require.NoError(t, reg.Freeze())
	r, drv, mock := newResolver(t)

	// 1 -> 2 -> 1: the second visit of node 1 is skipped.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "nodes" WHERE "parent_id" IN (?)`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "nodes" WHERE "parent_id" IN (?)`)).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "nodes" WHERE "parent_id" IN (?)`)).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "nodes" WHERE "parent_id" IN (?)`)).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	steps, err := DeleteCascade(context.Background(), drv, r.Dialect, nodesMeta, [][]any{{1}})
	require.NoError(t, err)
	assert.Len(t, steps, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConstraintErrors(t *testing.T) {
	tests := []struct {
		name                   string
		err                    error
		unique, foreign, check bool
	}{
		{name: "mysql duplicate", err: &mysql.MySQLError{Number: 1062}, unique: true},
		{name: "mysql parent row", err: &mysql.MySQLError{Number: 1451}, foreign: true},
		{name: "mysql child row", err: &mysql.MySQLError{Number: 1452}, foreign: true},
		{name: "mysql check", err: &mysql.MySQLError{Number: 3819}, check: true},
		{name: "mysql other", err: &mysql.MySQLError{Number: 1045}},
		{name: "postgres unique", err: &pq.Error{Code: "23505"}, unique: true},
		{name: "postgres foreign key", err: fmt.Errorf("exec: %w", &pq.Error{Code: "23503"}), foreign: true},
		{name: "postgres check", err: &pq.Error{Code: "23514"}, check: true},
		{name: "sqlite message", err: errors.New("UNIQUE constraint failed: users.email"), unique: true},
		{name: "sqlite foreign key message", err: errors.New("FOREIGN KEY constraint failed"), foreign: true},
		{name: "other", err: errors.New("connection refused")},
		{name: "nil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, IsUniqueConstraintError(tt.err))
			assert.Equal(t, tt.foreign, IsForeignKeyConstraintError(tt.err))
			assert.Equal(t, tt.check, IsCheckConstraintError(tt.err))
			assert.Equal(t, tt.unique || tt.foreign || tt.check, IsConstraintError(tt.err))
		})
	}

	plain := errors.New("boom")
	assert.Same(t, plain, wrapConstraint("x", plain))
	assert.Nil(t, wrapConstraint("x", nil))
}
