package main

import (
	"fmt"
	"os"
)

const (
	Version = "0.1.0"
)

func main() {
	args := os.Args[1:]
	if len(args) < 1 {
		printUsage()
		os.Exit(0)
	}

	command := args[0]

	switch command {
	case "build":
		os.Exit(cmdBuild(args[1:]))
	case "check":
		os.Exit(cmdCheck(args[1:]))
	case "init":
		os.Exit(cmdInit(args[1:]))
	case "version", "-v", "--version":
		fmt.Printf("bytekit %s\n", Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("bytekit %s - rule-driven JVM class file generator\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  bytekit <command> [options] [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  build <plan.toml...>   generate class files from type plans")
	fmt.Println("  check <plan.toml...>   validate plans and show field bindings")
	fmt.Println("  init                   write a default bytekit.toml")
	fmt.Println("  version                show version")
	fmt.Println("  help                   show this help")
	fmt.Println()
	fmt.Println("Build options:")
	fmt.Println("  -config <file>   config file (default: nearest bytekit.toml)")
	fmt.Println("  -out <dir>       output directory for class files")
	fmt.Println("  -dump            print field bindings as JSON")
	fmt.Println("  -dis             print method instructions")
	fmt.Println("  -j <n>           number of types generated in parallel")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  bytekit init")
	fmt.Println("  bytekit build -out classes plans/*.toml")
	fmt.Println("  bytekit check -dump plans/greeter.toml")
}
