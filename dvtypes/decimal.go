package dvtypes

import (
	"fmt"
	"math/big"
)

// Decimal is an exact-rational stand-in for SQL money/numeric values.
//
// No decimal-arithmetic library appears anywhere in the retrieval pack for
// this kind of exact fixed-point value; math/big.Rat gives us exact
// addition/subtraction/multiplication without the binary-float rounding
// that would silently corrupt money comparisons in WHERE/HAVING.
type Decimal struct {
	r *big.Rat
}

// NewDecimalFromInt builds a Decimal from an integer.
func NewDecimalFromInt(v int64) Decimal {
	return Decimal{r: new(big.Rat).SetInt64(v)}
}

// NewDecimalFromString parses a decimal literal such as "19.99".
func NewDecimalFromString(s string) (Decimal, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Decimal{}, fmt.Errorf("dvtypes: invalid decimal literal %q", s)
	}
	return Decimal{r: r}, nil
}

// NewDecimalFromFloat builds a Decimal from a float64 (used for REAL literals
// that get coerced into decimal context).
func NewDecimalFromFloat(v float64) Decimal {
	return Decimal{r: new(big.Rat).SetFloat64(v)}
}

func (d Decimal) rat() *big.Rat {
	if d.r == nil {
		return new(big.Rat)
	}
	return d.r
}

func (d Decimal) Add(other Decimal) Decimal {
	return Decimal{r: new(big.Rat).Add(d.rat(), other.rat())}
}

func (d Decimal) Sub(other Decimal) Decimal {
	return Decimal{r: new(big.Rat).Sub(d.rat(), other.rat())}
}

func (d Decimal) Mul(other Decimal) Decimal {
	return Decimal{r: new(big.Rat).Mul(d.rat(), other.rat())}
}

func (d Decimal) Div(other Decimal) (Decimal, error) {
	if other.rat().Sign() == 0 {
		return Decimal{}, fmt.Errorf("dvtypes: division by zero")
	}
	return Decimal{r: new(big.Rat).Quo(d.rat(), other.rat())}, nil
}

func (d Decimal) Neg() Decimal {
	return Decimal{r: new(big.Rat).Neg(d.rat())}
}

func (d Decimal) Cmp(other Decimal) int {
	return d.rat().Cmp(other.rat())
}

func (d Decimal) Float64() float64 {
	f, _ := d.rat().Float64()
	return f
}

func (d Decimal) String() string {
	return d.rat().FloatString(4)
}
