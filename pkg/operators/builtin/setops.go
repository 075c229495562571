// Package builtin registers the standard set operators
package builtin

import (
	"github.com/chicogong/pattern-planner/pkg/operators"
)

func init() {
	operators.Register(&IntersectionOperator{})
	operators.Register(&UnionOperator{})
	operators.Register(&DifferenceOperator{})
	operators.Register(&SymmetricDifferenceOperator{})
}

// IntersectionOperator keeps the values present in both sets
type IntersectionOperator struct{}

func (o *IntersectionOperator) Name() string {
	return "intersection"
}

func (o *IntersectionOperator) Category() operators.Category {
	return operators.CategoryFilter
}

func (o *IntersectionOperator) Describe() *operators.OperatorDescriptor {
	return &operators.OperatorDescriptor{
		Name:         "intersection",
		Category:     operators.CategoryFilter,
		Description:  "Values present in both neighbor sets",
		Commutative:  true,
		ShrinksInput: true,
	}
}

func (o *IntersectionOperator) Apply(a, b operators.Set) operators.Set {
	return operators.Intersect(a, b)
}

// UnionOperator keeps the values present in either set
type UnionOperator struct{}

func (o *UnionOperator) Name() string {
	return "union"
}

func (o *UnionOperator) Category() operators.Category {
	return operators.CategoryCombine
}

func (o *UnionOperator) Describe() *operators.OperatorDescriptor {
	return &operators.OperatorDescriptor{
		Name:        "union",
		Category:    operators.CategoryCombine,
		Description: "Values present in either neighbor set",
		Commutative: true,
	}
}

func (o *UnionOperator) Apply(a, b operators.Set) operators.Set {
	return operators.Union(a, b)
}

// DifferenceOperator keeps the values of the first set missing from the second
type DifferenceOperator struct{}

func (o *DifferenceOperator) Name() string {
	return "difference"
}

func (o *DifferenceOperator) Category() operators.Category {
	return operators.CategoryFilter
}

func (o *DifferenceOperator) Describe() *operators.OperatorDescriptor {
	return &operators.OperatorDescriptor{
		Name:         "difference",
		Category:     operators.CategoryFilter,
		Description:  "Values of the first neighbor set absent from the second",
		ShrinksInput: true,
	}
}

func (o *DifferenceOperator) Apply(a, b operators.Set) operators.Set {
	return operators.Difference(a, b)
}

// SymmetricDifferenceOperator keeps the values present in exactly one set
type SymmetricDifferenceOperator struct{}

func (o *SymmetricDifferenceOperator) Name() string {
	return "symmetric_difference"
}

func (o *SymmetricDifferenceOperator) Category() operators.Category {
	return operators.CategoryCombine
}

func (o *SymmetricDifferenceOperator) Describe() *operators.OperatorDescriptor {
	return &operators.OperatorDescriptor{
		Name:        "symmetric_difference",
		Category:    operators.CategoryCombine,
		Description: "Values present in exactly one neighbor set",
		Commutative: true,
	}
}

func (o *SymmetricDifferenceOperator) Apply(a, b operators.Set) operators.Set {
	return operators.SymmetricDifference(a, b)
}
