// Command jitrun compiles a handful of sample bytecode programs to native
// code and prints their results.
package main

import (
	"flag"
	"fmt"
	"log"

	"stackjit/pkg/bytecode"
	"stackjit/pkg/jit"
)

type sample struct {
	name    string
	program *bytecode.Program
}

var samples = []sample{
	{
		name: "add",
		// 100 + 200
		program: bytecode.NewProgram(
			bytecode.Load(100),
			bytecode.Load(200),
			bytecode.Add(),
			bytecode.Ret(),
		),
	},
	{
		name: "arith",
		// (10 + 5) * 3 - 2
		program: bytecode.NewProgram(
			bytecode.Load(10),
			bytecode.Load(5),
			bytecode.Add(),
			bytecode.Load(3),
			bytecode.Mul(),
			bytecode.Load(2),
			bytecode.Sub(),
			bytecode.Ret(),
		),
	},
	{
		name: "stack",
		// 42 * (10 + 42) via dup and swap
		program: bytecode.NewProgram(
			bytecode.Load(42),
			bytecode.Dup(),
			bytecode.Load(10),
			bytecode.Swap(),
			bytecode.Add(),
			bytecode.Mul(),
			bytecode.Ret(),
		),
	},
	{
		name: "vars",
		// 25 + 17 through variable slots
		program: bytecode.NewProgram(
			bytecode.Load(25),
			bytecode.Store(0),
			bytecode.Load(17),
			bytecode.Store(1),
			bytecode.LoadVar(0),
			bytecode.LoadVar(1),
			bytecode.Add(),
			bytecode.Ret(),
		),
	},
	{
		name: "loop",
		// count slot 0 up to 10
		program: bytecode.NewProgram(
			bytecode.Load(0),
			bytecode.Store(0),
			bytecode.Label(1),
			bytecode.LoadVar(0),
			bytecode.Load(10),
			bytecode.Gte(),
			bytecode.JmpIf(2),
			bytecode.LoadVar(0),
			bytecode.Load(1),
			bytecode.Add(),
			bytecode.Store(0),
			bytecode.Jmp(1),
			bytecode.Label(2),
			bytecode.LoadVar(0),
			bytecode.Ret(),
		),
	},
}

func main() {
	name := flag.String("program", "", "run only the named sample program")
	dump := flag.Bool("dump", false, "print the generated machine code as hex")
	flag.Parse()

	ran := 0
	for _, s := range samples {
		if *name != "" && s.name != *name {
			continue
		}
		ran++

		compiled, err := jit.Compile(s.program)
		if err != nil {
			log.Fatalf("Failed to compile %s: %v", s.name, err)
		}

		result := compiled.Run()
		fmt.Printf("%-8s => %d  (%d bytes of code, %d slots)\n",
			s.name, result, compiled.CodeSize(), compiled.SlotCount())

		if *dump {
			fmt.Printf("%x\n", compiled.Code())
		}

		if err := compiled.Close(); err != nil {
			log.Fatalf("Failed to release %s: %v", s.name, err)
		}
	}

	if ran == 0 {
		log.Fatalf("No sample program named %q", *name)
	}
}
