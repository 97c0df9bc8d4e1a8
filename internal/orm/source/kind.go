package source

// Kind identifies the kind of a source field. The predefined kinds cover the
// field kinds the default type table knows about; any other string is a
// custom kind that must be registered or aliased before it can be mapped.
type Kind string

const (
	KindAutoField                 Kind = "AutoField"
	KindBigAutoField              Kind = "BigAutoField"
	KindIntegerField              Kind = "IntegerField"
	KindPositiveIntegerField      Kind = "PositiveIntegerField"
	KindSmallIntegerField         Kind = "SmallIntegerField"
	KindPositiveSmallIntegerField Kind = "PositiveSmallIntegerField"
	KindBigIntegerField           Kind = "BigIntegerField"
	KindPositiveBigIntegerField   Kind = "PositiveBigIntegerField"
	KindDecimalField              Kind = "DecimalField"
	KindFloatField                Kind = "FloatField"

	KindCharField                  Kind = "CharField"
	KindSlugField                  Kind = "SlugField"
	KindURLField                   Kind = "URLField"
	KindEmailField                 Kind = "EmailField"
	KindFileField                  Kind = "FileField"
	KindFilePathField              Kind = "FilePathField"
	KindImageField                 Kind = "ImageField"
	KindCommaSeparatedIntegerField Kind = "CommaSeparatedIntegerField"
	KindTextField                  Kind = "TextField"

	KindGenericIPAddressField Kind = "GenericIPAddressField"
	KindBinaryField           Kind = "BinaryField"
	KindDurationField         Kind = "DurationField"
	KindUUIDField             Kind = "UUIDField"

	KindDateTimeField    Kind = "DateTimeField"
	KindDateField        Kind = "DateField"
	KindTimeField        Kind = "TimeField"
	KindBooleanField     Kind = "BooleanField"
	KindNullBooleanField Kind = "NullBooleanField"

	KindArrayField Kind = "ArrayField"
	KindJSONField  Kind = "JSONField"

	// Relation kinds
	KindForeignKey      Kind = "ForeignKey"
	KindOneToOneField   Kind = "OneToOneField"
	KindManyToManyField Kind = "ManyToManyField"

	// Spatial kinds
	KindGeometryField           Kind = "GeometryField"
	KindPointField              Kind = "PointField"
	KindLineStringField         Kind = "LineStringField"
	KindPolygonField            Kind = "PolygonField"
	KindMultiPointField         Kind = "MultiPointField"
	KindMultiLineStringField    Kind = "MultiLineStringField"
	KindMultiPolygonField       Kind = "MultiPolygonField"
	KindGeometryCollectionField Kind = "GeometryCollectionField"
)

// String returns the kind name
func (k Kind) String() string {
	return string(k)
}

// IsToOne reports whether the kind is a foreign key or one-to-one relation
func (k Kind) IsToOne() bool {
	return k == KindForeignKey || k == KindOneToOneField
}

// IsManyToMany reports whether the kind is a many-to-many accessor
func (k Kind) IsManyToMany() bool {
	return k == KindManyToManyField
}

// IsRelation reports whether the kind encodes a relationship
func (k Kind) IsRelation() bool {
	return k.IsToOne() || k.IsManyToMany()
}
