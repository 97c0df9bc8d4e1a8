package inspect

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/conduit-lang/schemabridge/internal/orm/declare"
	"github.com/conduit-lang/schemabridge/internal/orm/mapper"
	"github.com/conduit-lang/schemabridge/internal/orm/source"
)

type Author struct {
	ID    uint    `gorm:"primaryKey"`
	Name  string  `gorm:"size:80;not null"`
	Email *string `gorm:"size:120;unique"`
	Books []Book
}

type Book struct {
	ID        uint
	Title     string  `gorm:"size:200"`
	Summary   string
	Price     float64 `gorm:"precision:10;scale:2"`
	Pages     int32
	InStock   bool `gorm:"default:true"`
	AuthorID  *uint
	Author    *Author `gorm:"constraint:OnDelete:SET NULL"`
	Tags      []Tag   `gorm:"many2many:book_tags"`
	Published time.Time
	Ref       uuid.UUID
	Keywords  pq.StringArray `gorm:"type:text[]"`
	Shape     string         `gorm:"kind:PointField;srid:3857"`
	DeletedAt gorm.DeletedAt
}

type Tag struct {
	ID    uint
	Label string `gorm:"size:30;unique"`
	Books []Book `gorm:"many2many:book_tags;reverse"`
}

type Category struct {
	ID      uint
	Name    string      `gorm:"size:50"`
	Related []*Category `gorm:"many2many:category_related;backref:related_by"`
}

func TestInspector_Fields(t *testing.T) {
	book, err := New().Inspect(&Book{})
	require.NoError(t, err)

	assert.Equal(t, "Book", book.Name)
	assert.Equal(t, "books", book.Table)
	assert.Equal(t, "inspect", book.Module)

	tests := []struct {
		column string
		kind   source.Kind
		null   bool
	}{
		{"id", source.KindBigAutoField, false},
		{"title", source.KindCharField, false},
		{"summary", source.KindTextField, false},
		{"price", source.KindDecimalField, false},
		{"pages", source.KindIntegerField, false},
		{"in_stock", source.KindBooleanField, false},
		{"author_id", source.KindForeignKey, true},
		{"published", source.KindDateTimeField, false},
		{"ref", source.KindUUIDField, false},
		{"keywords", source.KindArrayField, false},
		{"shape", source.KindPointField, false},
		{"deleted_at", source.KindDateTimeField, true},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			f := book.Field(tt.column)
			require.NotNil(t, f)
			assert.Equal(t, tt.kind, f.Kind)
			assert.Equal(t, tt.null, f.Null)
		})
	}

	assert.True(t, book.Field("id").PrimaryKey)
	assert.Equal(t, 200, book.Field("title").MaxLength)
	assert.Equal(t, 10, book.Field("price").MaxDigits)
	assert.Equal(t, 2, book.Field("price").DecimalPlaces)
	assert.Equal(t, source.KindCharField, book.Field("keywords").Base.Kind)

	inStock := book.Field("in_stock")
	require.NotNil(t, inStock.Default)
	assert.Equal(t, true, inStock.Default.Value)

	srid, ok := book.Field("shape").Setting("srid")
	assert.True(t, ok)
	assert.Equal(t, "3857", srid)
}

func TestInspector_BelongsTo(t *testing.T) {
	i := New()
	book, err := i.Inspect(&Book{})
	require.NoError(t, err)

	fk := book.Field("author_id")
	require.NotNil(t, fk)
	assert.Equal(t, "author", fk.Name)
	assert.Equal(t, "author_id", fk.ColumnName())
	require.NotNil(t, fk.Relation)
	assert.Equal(t, "SET NULL", fk.Relation.OnDelete)
	assert.Equal(t, "books", fk.Relation.RelatedName)

	author, err := i.Inspect(Author{})
	require.NoError(t, err)
	assert.Same(t, author, fk.Relation.Target)
	assert.Same(t, author.Field("id"), fk.Relation.TargetField)

	email := author.Field("email")
	assert.True(t, email.Unique)
	assert.True(t, email.Null)
	assert.Equal(t, 120, email.MaxLength)
}

func TestInspector_ManyToMany(t *testing.T) {
	i := New()
	book, err := i.Inspect(&Book{})
	require.NoError(t, err)

	require.Len(t, book.ManyToMany, 1)
	tags := book.ManyToMany[0]
	assert.Equal(t, "tags", tags.Name)
	assert.False(t, tags.Reverse)
	assert.Equal(t, "id", tags.LocalKey)
	assert.Equal(t, "book_id", tags.ThroughLocal)
	assert.Equal(t, "id", tags.RemoteKey)
	assert.Equal(t, "tag_id", tags.ThroughRemote)

	through := tags.Through
	require.NotNil(t, through)
	assert.Equal(t, "book_tags", through.Table)
	assert.Equal(t, "BookTags", through.Name)

	bookFK := through.Field("book_id")
	require.NotNil(t, bookFK)
	assert.Equal(t, source.KindForeignKey, bookFK.Kind)
	assert.Same(t, book, bookFK.Relation.Target)
	assert.Equal(t, "+", bookFK.Relation.RelatedName)

	tag, err := i.Inspect(&Tag{})
	require.NoError(t, err)
	assert.Same(t, tags.Target, tag)
	require.Len(t, tag.ManyToMany, 1)
	assert.True(t, tag.ManyToMany[0].Reverse)
}

func TestInspector_SelfReferentialManyToMany(t *testing.T) {
	category, err := New().Inspect(&Category{})
	require.NoError(t, err)

	require.Len(t, category.ManyToMany, 1)
	related := category.ManyToMany[0]
	assert.Same(t, category, related.Target)
	assert.Equal(t, "related_by", related.RelatedName)
	assert.Equal(t, "category_id", related.ThroughLocal)
	assert.Equal(t, "related_id", related.ThroughRemote)

	for _, f := range related.Through.Fields {
		if f.Relation != nil {
			assert.Same(t, category, f.Relation.Target)
		}
	}
}

func TestInspector_ModuleDeclaresEndToEnd(t *testing.T) {
	module, err := New().Module("library", &Author{}, &Book{}, &Tag{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Author", "Book", "Tag"}, module.Names())

	book, _ := module.Get("Book")
	assert.Equal(t, "library", book.Module)
	assert.Equal(t, "library", book.ManyToMany[0].Through.Module)

	engine, err := declare.NewEngine(declare.Config{Policy: declare.Raise})
	require.NoError(t, err)

	for _, model := range module.Models() {
		_, err := engine.Declare(context.Background(), model, mapper.DialectPostgreSQL, declare.BackRefBackPopulates)
		require.NoError(t, err, model.Name)
	}

	books, ok := engine.Metadata().Table("books")
	require.True(t, ok)

	authorID := books.Column("author_id")
	require.NotNil(t, authorID)
	assert.True(t, authorID.Nullable)
	require.NotNil(t, authorID.ForeignKey)
	assert.Equal(t, "authors.id", authorID.ForeignKey.Column)

	author := books.Relationship("author")
	require.NotNil(t, author)
	assert.Equal(t, "books", author.BackPopulates)

	tags := books.Relationship("tags")
	require.NotNil(t, tags)
	require.NotNil(t, tags.Secondary)
	assert.Equal(t, "book_tags", tags.Secondary.Name)

	statements, err := engine.Metadata().CreateAllSQL(mapper.DialectPostgreSQL)
	require.NoError(t, err)
	assert.Len(t, statements, 4)
}
