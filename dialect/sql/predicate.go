package sql

// Predicate adds a condition to the WHERE clause of a builder. or selects
// the boolean delimiter that joins it to the preceding condition.
type Predicate func(b *Builder, or bool)

// Filter appends the predicates joined with AND.
//
//	b.Filter(
//		sql.StringField("status").EQ("active"),
//		sql.Or(
//			sql.Field[int]("age").GTE(18),
//			sql.StringField("role").EQ("admin"),
//		),
//	)
func (b *Builder) Filter(ps ...Predicate) *Builder {
	for _, p := range ps {
		p(b, false)
	}
	return b
}

// P returns a predicate comparing column with value. See Builder.Where.
func P(column any, op string, value any) Predicate {
	return func(b *Builder, or bool) {
		if or {
			b.OrWhere(column, op, value)
		} else {
			b.Where(column, op, value)
		}
	}
}

// And groups the predicates in brackets, joined with AND.
func And(ps ...Predicate) Predicate {
	return group(ps, false)
}

// Or groups the predicates in brackets, joined with OR.
func Or(ps ...Predicate) Predicate {
	return group(ps, true)
}

func group(ps []Predicate, or bool) Predicate {
	return func(b *Builder, outer bool) {
		if outer {
			b.OrWhereOpen()
		} else {
			b.WhereOpen()
		}
		for i, p := range ps {
			p(b, or && i > 0)
		}
		b.WhereClose()
	}
}

// Field is a column holding values of type V. It builds type-safe
// predicates:
//
//	var Age = sql.Field[int]("age")
//	b.Filter(Age.GT(18))
type Field[V any] string

// Name returns the column name.
func (f Field[V]) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f Field[V]) EQ(v V) Predicate { return P(string(f), "=", v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f Field[V]) NEQ(v V) Predicate { return P(string(f), "<>", v) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f Field[V]) GT(v V) Predicate { return P(string(f), ">", v) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f Field[V]) GTE(v V) Predicate { return P(string(f), ">=", v) }

// LT returns a predicate that checks if the field is less than the given value.
func (f Field[V]) LT(v V) Predicate { return P(string(f), "<", v) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f Field[V]) LTE(v V) Predicate { return P(string(f), "<=", v) }

// In returns a predicate that checks if the field value is in the given list.
func (f Field[V]) In(vs ...V) Predicate { return P(string(f), "IN", vs) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f Field[V]) NotIn(vs ...V) Predicate { return P(string(f), "NOT IN", vs) }

// Between returns a predicate that checks if the field value lies in [lo, hi].
func (f Field[V]) Between(lo, hi V) Predicate { return P(string(f), "BETWEEN", []V{lo, hi}) }

// IsNull returns a predicate that checks if the field is NULL.
func (f Field[V]) IsNull() Predicate { return P(string(f), "=", nil) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f Field[V]) NotNull() Predicate { return P(string(f), "!=", nil) }

// StringField is a string column. It adds pattern predicates to Field.
type StringField string

func (f StringField) field() Field[string] { return Field[string](f) }

// Name returns the column name.
func (f StringField) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f StringField) EQ(v string) Predicate { return f.field().EQ(v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f StringField) NEQ(v string) Predicate { return f.field().NEQ(v) }

// In returns a predicate that checks if the field value is in the given list.
func (f StringField) In(vs ...string) Predicate { return f.field().In(vs...) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f StringField) NotIn(vs ...string) Predicate { return f.field().NotIn(vs...) }

// IsNull returns a predicate that checks if the field is NULL.
func (f StringField) IsNull() Predicate { return f.field().IsNull() }

// NotNull returns a predicate that checks if the field is not NULL.
func (f StringField) NotNull() Predicate { return f.field().NotNull() }

// Like returns a predicate matching the field against a LIKE pattern.
func (f StringField) Like(pattern string) Predicate { return P(string(f), "LIKE", pattern) }

// Contains returns a predicate that checks if the field contains v.
// Wildcard characters in v keep their LIKE meaning.
func (f StringField) Contains(v string) Predicate { return f.Like("%" + v + "%") }

// HasPrefix returns a predicate that checks if the field starts with v.
func (f StringField) HasPrefix(v string) Predicate { return f.Like(v + "%") }

// HasSuffix returns a predicate that checks if the field ends with v.
func (f StringField) HasSuffix(v string) Predicate { return f.Like("%" + v) }

// EqualFold returns a predicate that compares the field with v, ignoring case.
func (f StringField) EqualFold(v string) Predicate {
	return func(b *Builder, or bool) {
		col := Raw("LOWER(" + b.dialect.Quote(string(f)) + ")")
		P(col, "=", Raw("LOWER(?)", v))(b, or)
	}
}
