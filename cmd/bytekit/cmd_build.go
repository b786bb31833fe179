package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/segmentio/encoding/json"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tangzhangming/bytekit/internal/config"
	"github.com/tangzhangming/bytekit/internal/logging"
	"github.com/tangzhangming/bytekit/internal/plan"
	"github.com/tangzhangming/bytekit/internal/scaffold"
)

// options build 与 check 共用的参数
type options struct {
	configPath string
	out        string
	dump       bool
	dis        bool
	jobs       int
}

func (o *options) register(fs *flag.FlagSet, build bool) {
	fs.StringVar(&o.configPath, "config", "", "config file (default: nearest "+config.ConfigFileName+")")
	fs.BoolVar(&o.dump, "dump", false, "print field bindings as JSON")
	fs.BoolVar(&o.dis, "dis", false, "print method instructions")
	fs.IntVar(&o.jobs, "j", runtime.GOMAXPROCS(0), "number of types generated in parallel")
	if build {
		fs.StringVar(&o.out, "out", ".", "output directory for class files")
	}
}

// typeResult 单个计划的处理结果
type typeResult struct {
	Plan    string                  `json:"plan"`
	Type    string                  `json:"type"`
	Fields  []scaffold.FieldBinding `json:"fields"`
	Output  string                  `json:"output,omitempty"`
	Bytes   int                     `json:"bytes,omitempty"`
	listing string
}

// cmdBuild 生成 class 文件
func cmdBuild(args []string) int {
	var opts options
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	opts.register(fs, true)
	fs.Usage = func() {
		fmt.Println("Usage: bytekit build [options] <plan.toml...>")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fs.Usage()
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "error: no plan files given")
		return 1
	}
	return run(opts, fs.Args(), true)
}

// cmdCheck 校验计划并输出字段解析结果，不写文件
func cmdCheck(args []string) int {
	var opts options
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	opts.register(fs, false)
	fs.Usage = func() {
		fmt.Println("Usage: bytekit check [options] <plan.toml...>")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fs.Usage()
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "error: no plan files given")
		return 1
	}
	return run(opts, fs.Args(), false)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		path = config.FindConfigFile(wd)
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadConfig(path)
}

func run(opts options, plans []string, write bool) int {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	registry, err := cfg.FieldRegistry()
	if err != nil {
		logger.Error("invalid field rules", zap.Error(err))
		return 1
	}

	stats := &scaffold.Stats{}
	writer := scaffold.NewTypeWriter(
		scaffold.WithVersion(uint16(cfg.Target.ClassVersion)),
		scaffold.WithValidation(cfg.TypeValidation()),
		scaffold.WithCacheSuffix(cfg.Target.CacheSuffix),
		scaffold.WithLogger(logger),
		scaffold.WithStats(stats),
	)
	logger.Debug("generating",
		zap.Int("plans", len(plans)),
		zap.Int("rules", registry.Len()),
		zap.Uint16("class_version", uint16(cfg.Target.ClassVersion)))

	results := make([]typeResult, len(plans))
	errs := make([]error, len(plans))
	var g errgroup.Group
	g.SetLimit(max(1, opts.jobs))
	for i, path := range plans {
		g.Go(func() error {
			results[i], errs[i] = generate(writer, registry, path, opts, write)
			return nil
		})
	}
	_ = g.Wait()

	for i := range results {
		if opts.dis && results[i].listing != "" {
			fmt.Printf("=== %s ===\n%s", results[i].Type, results[i].listing)
		}
	}
	if opts.dump {
		sort.SliceStable(results, func(a, b int) bool { return results[a].Plan < results[b].Plan })
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			logger.Error("dump failed", zap.Error(err))
			return 1
		}
		fmt.Println(string(data))
	}

	if err := multierr.Combine(errs...); err != nil {
		for _, e := range multierr.Errors(err) {
			fmt.Fprintf(os.Stderr, "error: %v\n", e)
		}
		logger.Info("finished with errors", zap.Stringer("stats", stats))
		return 1
	}
	logger.Info("finished", zap.Stringer("stats", stats))
	return 0
}

// generate 处理单个计划
func generate(writer *scaffold.TypeWriter, registry scaffold.FieldRegistry, path string, opts options, write bool) (typeResult, error) {
	result := typeResult{Plan: path}
	p, err := plan.Load(path)
	if err != nil {
		return result, err
	}
	t, err := p.Build()
	if err != nil {
		return result, fmt.Errorf("%s: %w", path, err)
	}
	result.Type = t.Type.Name()

	var pool scaffold.FieldPool = scaffold.NoOpFieldPool
	if registry.Len() > 0 {
		pool = registry.Compile(t.Type)
	}
	result.Fields = scaffold.Describe(t, pool)

	if opts.dis {
		if result.listing, err = writer.Disassemble(t); err != nil {
			return result, err
		}
	}

	data, err := writer.Write(t, pool)
	if err != nil {
		return result, err
	}
	if !write {
		return result, nil
	}
	out := filepath.Join(opts.out, filepath.FromSlash(t.Type.InternalName())+".class")
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return result, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return result, fmt.Errorf("failed to write class file: %w", err)
	}
	result.Output = out
	result.Bytes = len(data)
	return result, nil
}
