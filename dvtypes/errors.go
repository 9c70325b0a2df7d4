package dvtypes

import (
	"errors"
	"fmt"
	"strings"
)

// QueryParseError mirrors spec.md's QueryParseException: a fatal error
// surfaced from the SQL front end, carrying source position.
type QueryParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *QueryParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// NotSupportedQueryFragmentError is raised when a construct cannot be
// lowered by either the FetchXML or expression path.
type NotSupportedQueryFragmentError struct {
	Reason   string
	Fragment string
}

func (e *NotSupportedQueryFragmentError) Error() string {
	return fmt.Sprintf("not supported: %s (%s)", e.Reason, e.Fragment)
}

// AmbiguousTableError is a binding failure: a two-part identifier's first
// part matches more than one table alias/entity name.
type AmbiguousTableError struct {
	Identifier string
}

func (e *AmbiguousTableError) Error() string {
	return fmt.Sprintf("ambiguous table reference %q", e.Identifier)
}

// UnknownTableError is a binding failure: a two-part identifier's first
// part matches no table alias/entity name.
type UnknownTableError struct {
	Identifier string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("unknown table %q", e.Identifier)
}

// AmbiguousAttributeError is a binding failure: a single-part identifier
// matches more than one table's attributes/aliases.
type AmbiguousAttributeError struct {
	Identifier string
}

func (e *AmbiguousAttributeError) Error() string {
	return fmt.Sprintf("ambiguous column reference %q", e.Identifier)
}

// UnknownAttributeError is a binding failure: a single-part identifier
// matches no table's attributes/aliases, a two-part identifier's attribute
// is not on its table, or a DML target column is not an attribute of the
// target entity.
type UnknownAttributeError struct {
	Identifier string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("unknown column %q", e.Identifier)
}

// UnknownAttributeTypeError is raised when the metadata provider reports an
// attribute type the domain mapping table (§4.1) does not recognise.
type UnknownAttributeTypeError struct {
	Type MetadataAttributeType
}

func (e *UnknownAttributeTypeError) Error() string {
	return fmt.Sprintf("unknown metadata attribute type %q", e.Type)
}

// RewriteAsWhereError signals that a join's residual ON-clause filter could
// not be lowered and would have broken outer-join semantics if silently
// dropped; the caller must rewrite the query to use WHERE instead.
type RewriteAsWhereError struct {
	Fragment string
}

func (e *RewriteAsWhereError) Error() string {
	return fmt.Sprintf("join condition %q cannot be safely lowered; move it to WHERE", e.Fragment)
}

// UnsupportedSubqueryError is raised when IN (subquery) is encountered;
// callers must rewrite such predicates as joins before compiling.
type UnsupportedSubqueryError struct {
	Fragment string
}

func (e *UnsupportedSubqueryError) Error() string {
	return fmt.Sprintf("subquery not supported: %s", e.Fragment)
}

// UnknownFunctionError is raised when a scalar function call resolves to
// nothing in the fixed function library, and by customfunc.Registry.Lower
// for a name that is not registered.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %q", e.Name)
}

// AggregateQueryRecordLimitError is the execution-time error the data
// platform raises when a native aggregate query exceeds its row limit; the
// runtime catches it (via AggregateLimitClassifier) and falls back to the
// aggregate_alternative plan.
type AggregateQueryRecordLimitError struct {
	Message string
}

func (e *AggregateQueryRecordLimitError) Error() string {
	if e.Message == "" {
		return "aggregate query exceeded the platform row limit"
	}
	return e.Message
}

// AggregateLimitClassifier decides whether an execution error is the data
// platform's aggregate row-limit error; the runtime supplies one.
type AggregateLimitClassifier interface {
	IsAggregateLimitError(err error) bool
}

// DefaultAggregateLimitClassifier matches an *AggregateQueryRecordLimitError
// in err's chain, or a message containing "AggregateQueryRecordLimitExceeded".
type DefaultAggregateLimitClassifier struct{}

func (DefaultAggregateLimitClassifier) IsAggregateLimitError(err error) bool {
	var limitErr *AggregateQueryRecordLimitError
	return err != nil && (errors.As(err, &limitErr) || strings.Contains(err.Error(), "AggregateQueryRecordLimitExceeded"))
}
