package codegen_test

import (
	"fmt"

	"github.com/chicogong/pattern-planner/pkg/codegen"
	"github.com/chicogong/pattern-planner/pkg/dag"
	"github.com/chicogong/pattern-planner/pkg/schedule"
)

// Example generates code for the canonical triangle
func Example() {
	s, err := schedule.Parse(3, "021201110")
	if err != nil {
		fmt.Printf("Error parsing pattern: %v\n", err)
		return
	}
	d, err := dag.Build(s)
	if err != nil {
		fmt.Printf("Error building DAG: %v\n", err)
		return
	}

	cfg := codegen.DefaultConfig()
	cfg.EnableParallel = false
	gen, err := codegen.New(cfg)
	if err != nil {
		fmt.Printf("Error creating generator: %v\n", err)
		return
	}

	for _, fragment := range gen.Generate(d).Code {
		fmt.Println(fragment)
	}

	// Output:
	// neighbors_2 = {}
	// if is_update(0, 1) {
	//     neighbors_1 = {2}
	// }
	// if is_update(0, 1) {
	//     neighbors_0 = {1, 2}
	// }
}
