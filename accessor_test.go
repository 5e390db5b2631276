package vorm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/vorm/schema"
)

type user struct {
	ID       int
	Name     string
	Nickname *string
	Score    float64
	Avatar   []byte
	Created  time.Time
}

var userFields = Accessors[user]{
	"id":       Field(func(u *user) *int { return &u.ID }),
	"name":     Field(func(u *user) *string { return &u.Name }),
	"nickname": Field(func(u *user) **string { return &u.Nickname }),
	"score":    Field(func(u *user) *float64 { return &u.Score }),
	"avatar":   Field(func(u *user) *[]byte { return &u.Avatar }),
	"created":  Field(func(u *user) *time.Time { return &u.Created }),
}

func TestAccessors(t *testing.T) {
	reg := schema.NewRegistry()
	users := reg.MustRegister("User", schema.Table("users"))
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	e := row(t, users, map[string]any{
		"id":       int64(7),
		"name":     "a8m",
		"nickname": "ariel",
		"score":    int64(3),
		"avatar":   "png",
		"created":  now,
	})
	var u user
	require.NoError(t, Load(e, userFields, &u))
	assert.Equal(t, 7, u.ID)
	assert.Equal(t, "a8m", u.Name)
	require.NotNil(t, u.Nickname)
	assert.Equal(t, "ariel", *u.Nickname)
	assert.Equal(t, 3.0, u.Score)
	assert.Equal(t, []byte("png"), u.Avatar)
	assert.Equal(t, now, u.Created)

	// Null columns reset the field to its zero value.
	e = row(t, users, map[string]any{"id": int64(8), "nickname": nil})
	require.NoError(t, Load(e, userFields, &u))
	assert.Equal(t, 8, u.ID)
	assert.Nil(t, u.Nickname)
	assert.Equal(t, "a8m", u.Name, "missing properties are left untouched")

	// Only the properties holding other values become dirty.
	e = row(t, users, map[string]any{"id": 8, "name": "a8m"})
	Bind(e, userFields, &u)
	assert.Equal(t, []string{"avatar", "created", "nickname", "score"}, e.Dirty())
	assert.Equal(t, 3.0, e.Get("score"))
}

func TestAccessors_Convert(t *testing.T) {
	reg := schema.NewRegistry()
	users := reg.MustRegister("User")

	var u user
	err := Load(row(t, users, map[string]any{"id": "7"}), userFields, &u)
	assert.EqualError(t, err, "vorm: load User.id: cannot convert string to int")
	err = Load(row(t, users, map[string]any{"name": 65}), userFields, &u)
	assert.Error(t, err, "numbers never convert to strings")
	err = Load(row(t, users, map[string]any{"nickname": 1}), userFields, &u)
	assert.Error(t, err)

	v, err := convert[int32](int64(5))
	require.NoError(t, err)
	assert.Equal(t, int32(5), v)
	s, err := convert[string]([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
	_, err = convert[time.Time]("2024-05-01")
	assert.Error(t, err)
}
