package extension

// Attribute names shared by the fluent builder and the mapping schema
const (
	TableName    = "TableName"
	DatabaseName = "DatabaseName"
	OwnerName    = "OwnerName"

	MapField                   = "MapField"
	OrigName                   = "OrigName"
	MapName                    = "MapName"
	FieldStorage               = "FieldStorage"
	IsInheritanceDiscriminator = "IsInheritanceDiscriminator"

	PrimaryKey   = "PrimaryKey"
	NonUpdatable = "NonUpdatable"
	Identity     = "Identity"
	SqlIgnore    = "SqlIgnore"
	MapIgnore    = "MapIgnore"
	Trimmable    = "Trimmable"

	MapValue  = "MapValue"
	OrigValue = "OrigValue"

	DefaultValue = "DefaultValue"
	Nullable     = "Nullable"
	NullValue    = "NullValue"

	Association = "Association"
	ThisKey     = "ThisKey"
	OtherKey    = "OtherKey"
	CanBeNull   = "CanBeNull"

	Relation        = "Relation"
	DestinationType = "DestinationType"
	SlaveIndex      = "SlaveIndex"
	MasterIndex     = "MasterIndex"
	Name            = "Name"

	InheritanceMapping = "InheritanceMapping"
	Type               = "Type"
	Code               = "Code"
	IsDefault          = "IsDefault"

	MemberMapper     = "MemberMapper"
	MemberType       = "MemberType"
	MemberMapperType = "MemberMapperType"
)
