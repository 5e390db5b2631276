// Package vorm persists entities described by a schema.Registry over the
// statement builder of dialect/sql.
//
// Entities are change-tracked property maps. Create inserts and Update
// writes only the dirty properties; Delete removes the rows owned through
// cascade relations first. Queries eager-load relations with With:
// to-one relations are joined into the query and to-many relations are
// loaded with one follow-up query each.
//
//	reg := schema.NewRegistry()
//	user := reg.MustRegister("User", schema.Columns("id", "name"), schema.AutoIncrement())
//	post := reg.MustRegister("Post", schema.Columns("id", "user_id", "title"), schema.AutoIncrement())
//	_ = user.HasMany("posts", post, schema.Cascade())
//	_ = post.BelongsTo("author", user, schema.ForeignKey("user_id"))
//
//	client, err := vorm.NewClient(drv, reg)
//	if err != nil {
//		return err
//	}
//	u := vorm.New(user).Set("name", "a8m")
//	if err := client.Create(ctx, u); err != nil {
//		return err
//	}
//	posts, err := client.Query(post).Where("user_id", "=", u.Get("id")).With("author").All(ctx)
package vorm
