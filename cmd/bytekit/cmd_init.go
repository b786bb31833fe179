package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tangzhangming/bytekit/internal/config"
)

// cmdInit 在当前目录生成配置文件和示例计划
func cmdInit(args []string) int {
	fs := flag.NewFlagSet("init", flag.ExitOnError)

	classVersion := fs.Int("class-version", 0, "class file major version (default 52)")
	noExample := fs.Bool("no-example", false, "do not create plans/example.toml")

	fs.Usage = func() {
		fmt.Println("Usage: bytekit init [options]")
		fmt.Println()
		fmt.Println("Create " + config.ConfigFileName + " and an example plan in the current directory.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}

	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot get working directory: %v\n", err)
		return 1
	}
	return initProject(dir, *classVersion, !*noExample)
}

func initProject(dir string, classVersion int, example bool) int {
	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(os.Stderr, "error: %s already exists\n", config.ConfigFileName)
		return 1
	}

	cfg := config.GenerateDefault()
	if classVersion != 0 {
		cfg.Target.ClassVersion = classVersion
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Printf("creating %s\n", config.ConfigFileName)
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if !example {
		return 0
	}
	planDir := filepath.Join(dir, "plans")
	if err := os.MkdirAll(planDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create directory: %v\n", err)
		return 1
	}
	planPath := filepath.Join(planDir, "example.toml")
	if _, err := os.Stat(planPath); os.IsNotExist(err) {
		fmt.Println("creating plans/example.toml")
		if err := os.WriteFile(planPath, []byte(examplePlan), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to write plan: %v\n", err)
			return 1
		}
	}
	return 0
}

const examplePlan = `# 示例计划：bytekit build -out classes plans/example.toml
[type]
name = "com.example.Counter"
modifiers = ["public"]

[[fields]]
name = "legacyCount"
type = "int"
modifiers = ["private", "static"]

[[methods]]
name = "<init>"
descriptor = "()V"
modifiers = ["public"]
body = [
  { op = "load_this" },
  { op = "invoke", owner = "java.lang.Object", name = "<init>", descriptor = "()V", special = true },
  { op = "return" },
]

[[methods]]
name = "field"
returns = "java.lang.reflect.Field"
modifiers = ["public", "static"]
body = [
  { op = "field_constant", name = "legacyCount", cached = true },
  { op = "return" },
]
`
