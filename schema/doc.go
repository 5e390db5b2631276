// Package schema holds the entity and relation metadata the persistence
// layer works from.
//
// Metadata is declared once at startup in an explicit Registry and is
// read-only after Registry.Freeze, so it can be shared by every request
// without locking:
//
//	reg := schema.NewRegistry()
//	users := reg.MustRegister("User", schema.Table("users"))
//	posts := reg.MustRegister("Post", schema.Table("posts"))
//	tags := reg.MustRegister("Tag", schema.Table("tags"))
//
//	// posts.users_id references users.id
//	_ = users.HasMany("posts", posts, schema.Cascade())
//	_ = posts.BelongsTo("author", users, schema.ForeignKey("author_id"))
//	// post_tags(posts_id, tags_id)
//	_ = posts.HasManyThrough("tags", tags, "post_tags")
//
//	if err := reg.Freeze(); err != nil {
//		log.Fatal(err)
//	}
//
// # Key inference
//
// Unless overridden, a foreign key is named after the referenced table and
// key: table + "_" + key. The referenced key is the entity's own primary key
// for HasOne and HasMany, and the target's primary key for BelongsTo.
package schema
