package dvtypes

// AttrType is the nullable domain type an entity attribute maps to, per the
// §4.1 binder domain table.
type AttrType int

const (
	AttrTypeInt AttrType = iota
	AttrTypeDecimal
	AttrTypeString
	AttrTypeEntityReference
	AttrTypeGuid
	AttrTypeOptionSet
	AttrTypeBool
	AttrTypeDateTime
	AttrTypeFloat
)

func (t AttrType) String() string {
	switch t {
	case AttrTypeInt:
		return "int"
	case AttrTypeDecimal:
		return "decimal"
	case AttrTypeString:
		return "string"
	case AttrTypeEntityReference:
		return "entityreference"
	case AttrTypeGuid:
		return "guid"
	case AttrTypeOptionSet:
		return "optionset"
	case AttrTypeBool:
		return "bool"
	case AttrTypeDateTime:
		return "datetime"
	case AttrTypeFloat:
		return "float"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether the type participates in arithmetic.
func (t AttrType) IsNumeric() bool {
	switch t {
	case AttrTypeInt, AttrTypeDecimal, AttrTypeFloat, AttrTypeOptionSet:
		return true
	default:
		return false
	}
}

// MetadataAttributeType is the raw attribute type the metadata provider
// reports (§6.2); AttrTypeForMetadata maps it to the nullable domain type.
type MetadataAttributeType string

const (
	MetaInteger       MetadataAttributeType = "integer"
	MetaMoney         MetadataAttributeType = "money"
	MetaDecimal       MetadataAttributeType = "decimal"
	MetaString        MetadataAttributeType = "string"
	MetaMemo          MetadataAttributeType = "memo"
	MetaEntityName    MetadataAttributeType = "entityname"
	MetaLookup        MetadataAttributeType = "lookup"
	MetaCustomer      MetadataAttributeType = "customer"
	MetaOwner         MetadataAttributeType = "owner"
	MetaUniqueID      MetadataAttributeType = "uniqueidentifier"
	MetaPicklist      MetadataAttributeType = "picklist"
	MetaState         MetadataAttributeType = "state"
	MetaStatus        MetadataAttributeType = "status"
	MetaBoolean       MetadataAttributeType = "boolean"
	MetaDateTime      MetadataAttributeType = "datetime"
	MetaDouble        MetadataAttributeType = "double"
)

// AttrTypeForMetadata implements the §4.1 domain-type mapping table.
func AttrTypeForMetadata(t MetadataAttributeType) (AttrType, error) {
	switch t {
	case MetaInteger:
		return AttrTypeInt, nil
	case MetaMoney, MetaDecimal:
		return AttrTypeDecimal, nil
	case MetaString, MetaMemo, MetaEntityName:
		return AttrTypeString, nil
	case MetaLookup, MetaCustomer, MetaOwner:
		return AttrTypeEntityReference, nil
	case MetaUniqueID:
		return AttrTypeGuid, nil
	case MetaPicklist, MetaState, MetaStatus:
		return AttrTypeOptionSet, nil
	case MetaBoolean:
		return AttrTypeBool, nil
	case MetaDateTime:
		return AttrTypeDateTime, nil
	case MetaDouble:
		return AttrTypeFloat, nil
	default:
		return 0, &UnknownAttributeTypeError{Type: t}
	}
}
