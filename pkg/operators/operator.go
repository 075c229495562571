// Package operators holds the set operations the code generator folds over
// neighbor sets.
package operators

// Operator is the interface all set operators must implement
type Operator interface {
	// Name returns the unique operator identifier
	Name() string

	// Category returns the operator category
	Category() Category

	// Describe returns the operator description
	Describe() *OperatorDescriptor

	// Apply combines two sets into a new one. Inputs are not modified.
	Apply(a, b Set) Set
}

// Category represents operator category
type Category string

const (
	CategoryFilter  Category = "filter"  // intersection, difference
	CategoryCombine Category = "combine" // union, symmetric_difference
)

// OperatorDescriptor describes an operator
type OperatorDescriptor struct {
	Name        string
	Category    Category
	Description string

	// Commutative operators may be cached under an unordered key
	Commutative bool

	// ShrinksInput is true when the result never exceeds the first operand
	ShrinksInput bool
}
