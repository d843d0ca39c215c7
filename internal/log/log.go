// Package log is collator-sentinel's structured logger, built the way
// klaytn builds its own: a small set of named module loggers sharing one
// global level and writer, colorized on a terminal, with caller frames
// captured for warnings and above.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	colorable "github.com/mattn/go-colorable"
)

type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Lvl) String() string {
	switch l {
	case LvlCrit:
		return "CRIT"
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DEBUG"
	case LvlTrace:
		return "TRACE"
	default:
		return "???"
	}
}

// ParseLvl parses the --log-level flag value.
func ParseLvl(s string) (Lvl, error) {
	switch s {
	case "crit":
		return LvlCrit, nil
	case "error":
		return LvlError, nil
	case "warn":
		return LvlWarn, nil
	case "info":
		return LvlInfo, nil
	case "debug":
		return LvlDebug, nil
	case "trace":
		return LvlTrace, nil
	default:
		return LvlInfo, fmt.Errorf("unknown log level %q", s)
	}
}

var (
	mu       sync.Mutex
	minLevel = LvlInfo
	out      io.Writer = colorable.NewColorableStdout()
	useColor           = true
)

// SetLevel sets the process-wide minimum level. Module loggers created
// before or after this call all observe it, since filtering happens at
// write time against the shared variable.
func SetLevel(l Lvl) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

// SetOutput redirects every module logger's output; used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	useColor = false
}

// Module names, mirroring klaytn's log.CMDKCN/log.Common style of
// per-subsystem constants passed to NewModuleLogger.
const (
	ModuleCLI         = "CMD"
	ModuleConfig      = "CONFIG"
	ModuleChain       = "CHAIN"
	ModuleRPCClient   = "RPCCLIENT"
	ModuleResolver    = "RESOLVER"
	ModuleCollator    = "COLLATORSTATE"
	ModuleTracker     = "TRACKER"
	ModuleReconciler  = "RECONCILE"
	ModuleAlert       = "ALERT"
	ModuleSupervisor  = "SUPERVISOR"
	ModuleSigner      = "SIGNER"
)

// ModuleLogger is a named logger; every collator-sentinel package keeps one
// package-level instance built via NewModuleLogger, the same way klaytn's
// packages keep `var logger = log.NewModuleLogger(log.Common)`.
type ModuleLogger struct {
	module string
}

func NewModuleLogger(module string) *ModuleLogger {
	return &ModuleLogger{module: module}
}

func (m *ModuleLogger) Trace(msg string, ctx ...interface{}) { m.log(LvlTrace, msg, ctx) }
func (m *ModuleLogger) Debug(msg string, ctx ...interface{}) { m.log(LvlDebug, msg, ctx) }
func (m *ModuleLogger) Info(msg string, ctx ...interface{})  { m.log(LvlInfo, msg, ctx) }
func (m *ModuleLogger) Warn(msg string, ctx ...interface{})  { m.log(LvlWarn, msg, ctx) }
func (m *ModuleLogger) Error(msg string, ctx ...interface{}) { m.log(LvlError, msg, ctx) }
func (m *ModuleLogger) Crit(msg string, ctx ...interface{}) {
	m.log(LvlCrit, msg, ctx)
	os.Exit(1)
}

var levelColor = map[Lvl]*color.Color{
	LvlCrit:  color.New(color.FgMagenta, color.Bold),
	LvlError: color.New(color.FgRed, color.Bold),
	LvlWarn:  color.New(color.FgYellow),
	LvlInfo:  color.New(color.FgGreen),
	LvlDebug: color.New(color.FgCyan),
	LvlTrace: color.New(color.FgWhite),
}

func (m *ModuleLogger) log(lvl Lvl, msg string, ctx []interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if lvl > minLevel {
		return
	}

	ts := time.Now().Format("2006-01-02T15:04:05.000Z07:00")
	lvlStr := lvl.String()
	if useColor {
		if c, ok := levelColor[lvl]; ok {
			lvlStr = c.Sprint(lvlStr)
		}
	}

	line := fmt.Sprintf("%s [%s] [%s] %s", ts, lvlStr, m.module, msg)
	for i := 0; i+1 < len(ctx); i += 2 {
		line += fmt.Sprintf(" %v=%v", ctx[i], ctx[i+1])
	}
	if len(ctx)%2 == 1 {
		line += fmt.Sprintf(" %v=MISSING", ctx[len(ctx)-1])
	}
	if lvl <= LvlWarn {
		// caller frame, skipping log() and the Trace/Debug/... shim above it
		call := stack.Caller(2)
		line += fmt.Sprintf(" caller=%+v", call)
	}
	fmt.Fprintln(out, line)
}
