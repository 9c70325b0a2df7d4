package dml

import (
	"strconv"
	"strings"

	"github.com/hollowloop/dvsql/dvtypes"
	"github.com/hollowloop/dvsql/tsql"
)

// convertLiteral pre-converts a literal AST node to the attribute's domain
// type (§4.8: "literal targets pre-convert via the attribute's type"),
// rather than the generic literal-kind type expr.LowerScalar would assign.
func convertLiteral(lit *tsql.Literal, target dvtypes.AttrType) (any, error) {
	if lit.Kind == tsql.LiteralNull {
		return nil, nil
	}

	switch target {
	case dvtypes.AttrTypeInt, dvtypes.AttrTypeOptionSet:
		return convertInt(lit)
	case dvtypes.AttrTypeDecimal:
		return convertDecimal(lit)
	case dvtypes.AttrTypeFloat:
		return convertFloat(lit)
	case dvtypes.AttrTypeBool:
		return convertBool(lit)
	case dvtypes.AttrTypeGuid:
		return dvtypes.ParseGuid(literalText(lit))
	case dvtypes.AttrTypeEntityReference:
		g, err := dvtypes.ParseGuid(literalText(lit))
		if err != nil {
			return nil, err
		}
		return &dvtypes.EntityReference{ID: g}, nil
	case dvtypes.AttrTypeString, dvtypes.AttrTypeDateTime:
		return literalText(lit), nil
	}
	return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "unsupported attribute type for literal conversion", Fragment: target.String()}
}

func literalText(lit *tsql.Literal) string {
	switch lit.Kind {
	case tsql.LiteralBool:
		if lit.Bool {
			return "true"
		}
		return "false"
	default:
		return lit.Text
	}
}

func convertInt(lit *tsql.Literal) (any, error) {
	switch lit.Kind {
	case tsql.LiteralInt:
		return strconv.ParseInt(lit.Text, 10, 64)
	case tsql.LiteralFloat:
		f, err := strconv.ParseFloat(lit.Text, 64)
		if err != nil {
			return nil, err
		}
		return int64(f), nil
	case tsql.LiteralString:
		return strconv.ParseInt(strings.TrimSpace(lit.Text), 10, 64)
	}
	return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "literal cannot convert to int", Fragment: lit.Text}
}

func convertFloat(lit *tsql.Literal) (any, error) {
	switch lit.Kind {
	case tsql.LiteralInt, tsql.LiteralFloat:
		return strconv.ParseFloat(lit.Text, 64)
	case tsql.LiteralString:
		return strconv.ParseFloat(strings.TrimSpace(lit.Text), 64)
	}
	return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "literal cannot convert to float", Fragment: lit.Text}
}

func convertDecimal(lit *tsql.Literal) (any, error) {
	switch lit.Kind {
	case tsql.LiteralInt, tsql.LiteralFloat:
		return dvtypes.NewDecimalFromString(lit.Text)
	case tsql.LiteralString:
		return dvtypes.NewDecimalFromString(strings.TrimSpace(lit.Text))
	}
	return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "literal cannot convert to decimal", Fragment: lit.Text}
}

func convertBool(lit *tsql.Literal) (any, error) {
	switch lit.Kind {
	case tsql.LiteralBool:
		return lit.Bool, nil
	case tsql.LiteralInt:
		return lit.Text != "0", nil
	case tsql.LiteralString:
		switch strings.ToLower(strings.TrimSpace(lit.Text)) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
	}
	return nil, &dvtypes.NotSupportedQueryFragmentError{Reason: "literal cannot convert to bool", Fragment: lit.Text}
}
