package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Veraticus/claude-pty-notify/pkg/config"
	"github.com/Veraticus/claude-pty-notify/pkg/logging"
	"github.com/Veraticus/claude-pty-notify/pkg/process"
)

// options holds the wrapper's own flags.
type options struct {
	configPath string
	notify     bool
	noNotify   bool
	demo       bool
	help       bool
	cooldown   string
	sink       string

	flags *flag.FlagSet
}

// valueFlags take an argument; everything else we own is boolean.
var valueFlags = map[string]bool{"config": true, "cooldown": true, "sink": true}

var boolFlags = map[string]bool{"notify": true, "no-notify": true, "demo": true, "help": true}

func newFlagSet(opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet("claude-pty-notify", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.configPath, "config", "", "Path to config file")
	fs.BoolVar(&opts.notify, "notify", false, "Enable response notifications")
	fs.BoolVar(&opts.noNotify, "no-notify", false, "Disable response notifications")
	fs.BoolVar(&opts.demo, "demo", false, "Run the scripted demo instead of an interactive session")
	fs.BoolVarP(&opts.help, "help", "h", false, "Show help message")
	fs.StringVar(&opts.cooldown, "cooldown", "", "Minimum time between notifications (e.g. 2s)")
	fs.StringVar(&opts.sink, "sink", "", "Notification sink: auto, desktop, ntfy or log")
	return fs
}

// splitArgs separates the wrapper's flags from the child's arguments.
// Anything after "--" belongs to the child.
func splitArgs(args []string) (ours, child []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return ours, append(child, args[i+1:]...)
		}

		name, hasValue := flagName(arg)
		switch {
		case valueFlags[name]:
			ours = append(ours, arg)
			if !hasValue && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				ours = append(ours, args[i+1])
				i++
			}
		case boolFlags[name], arg == "-h":
			ours = append(ours, arg)
		default:
			child = append(child, arg)
		}
	}
	return ours, child
}

// flagName returns the long flag name of arg and whether it carries an
// inline =value.
func flagName(arg string) (string, bool) {
	if !strings.HasPrefix(arg, "--") {
		return "", false
	}
	name := strings.TrimPrefix(arg, "--")
	if i := strings.IndexByte(name, '='); i >= 0 {
		return name[:i], true
	}
	return name, false
}

// parseArgs parses the wrapper flags and returns the child's arguments.
func parseArgs(args []string) (*options, []string, error) {
	opts := &options{}
	opts.flags = newFlagSet(opts)

	ours, child := splitArgs(args)
	if err := opts.flags.Parse(ours); err != nil {
		return nil, nil, err
	}
	if opts.notify && opts.noNotify {
		return nil, nil, fmt.Errorf("--notify and --no-notify are mutually exclusive")
	}
	return opts, child, nil
}

// apply overrides cfg with the flags that were given.
func (o *options) apply(cfg *config.Config) error {
	if o.notify {
		cfg.Notify = true
	}
	if o.noNotify {
		cfg.Notify = false
	}
	if o.demo {
		cfg.Demo = true
	}
	if o.flags.Changed("sink") {
		cfg.Sink = o.sink
	}
	if o.flags.Changed("cooldown") {
		d, err := parseDuration(o.cooldown)
		if err != nil {
			return fmt.Errorf("invalid --cooldown: %w", err)
		}
		cfg.Cooldown = d
	}
	return cfg.Validate()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	opts, childArgs, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	// Only show our help if --help was provided without other Claude args
	if opts.help && len(childArgs) == 0 {
		printUsage(stderr, opts.flags)
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	if err := opts.apply(cfg); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(stderr, "Error creating logger: %v\n", err)
		return 1
	}

	command, err := process.NewResolver(cfg).Resolve(childArgs)
	if err != nil {
		reportStartError(stderr, err)
		return 1
	}
	logger.Debug("resolved command", zap.Strings("command", command))

	deps, err := NewDependencies(cfg, logger, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating dependencies: %v\n", err)
		return 1
	}
	defer deps.Close()

	app := NewApplication(deps)
	if err := app.Run(command); err != nil {
		reportStartError(stderr, err)
		return 1
	}

	// Exit with the same code as the wrapped process
	return app.ExitCode()
}

func reportStartError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var resErr *process.ResolutionError
	if errors.As(err, &resErr) {
		fmt.Fprintf(w, "\n%s", resErr.Guidance())
	}
	if errors.Is(err, process.ErrAlreadyWrapped) {
		fmt.Fprintf(w, "Unset %s or run claude directly.\n", process.WrappedEnv)
	}
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "claude-pty-notify - run claude on a pseudo-terminal and get notified when it answers")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: claude-pty-notify [OPTIONS] [COMMAND | CLAUDE_ARGS...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "All unknown flags are passed through to the child")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment Variables:")
	fmt.Fprintln(w, "  CLAUDE_PATH, CLAUDE_CODE_PATH  Path to the real claude binary")
	fmt.Fprintln(w, "  CLAUDE_PTY_NOTIFY          Enable notifications (true/false)")
	fmt.Fprintln(w, "  CLAUDE_PTY_COOLDOWN        Minimum time between notifications (default: 2s)")
	fmt.Fprintln(w, "  CLAUDE_PTY_SINK            auto, desktop, ntfy or log")
	fmt.Fprintln(w, "  CLAUDE_PTY_NTFY_TOPIC      Ntfy topic for the ntfy sink")
	fmt.Fprintln(w, "  CLAUDE_PTY_DEFAULT_ARGS    Default claude args (shell quoted)")
	fmt.Fprintln(w, "  CLAUDE_PTY_CONFIG          Path to config file")
	fmt.Fprintln(w, "  CLAUDE_PTY_DEBUG           Debug logging (1/true)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configuration file: ~/.config/claude-pty-notify/config.yaml")
}
