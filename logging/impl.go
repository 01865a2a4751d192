package logging

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// impl fans every enabled entry out to its appenders. Subloggers share the appender slice but
// carry their own level.
type impl struct {
	name  string
	level AtomicLevel
	inUTC bool

	appenders []Appender
}

// callerDepth is the number of frames from newEntry up to the code that called an exported
// logging method.
const callerDepth = 3

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

// Level lets an impl stand in for a zapcore.LevelEnabler.
func (imp *impl) Level() zapcore.Level {
	return imp.GetLevel().AsZap()
}

func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return &impl{
		name:      name,
		level:     NewAtomicLevelAt(imp.level.Get()),
		inUTC:     imp.inUTC,
		appenders: imp.appenders,
	}
}

func (imp *impl) Sync() error {
	var err error
	for _, appender := range imp.appenders {
		err = multierr.Combine(err, appender.Sync())
	}
	return err
}

// AsZap returns a plain zap logger for libraries that want one. It follows GlobalLogLevel and
// tees into any appender that is itself a zapcore.Core.
func (imp *impl) AsZap() *zap.SugaredLogger {
	config := NewZapLoggerConfig()
	config.Level = GlobalLogLevel
	ret := zap.Must(config.Build()).Sugar().Named(imp.name)
	for _, appender := range imp.appenders {
		core, ok := appender.(zapcore.Core)
		if !ok {
			continue
		}
		ret = ret.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, core)
		}))
	}
	return ret
}

// enabled reports whether an entry at level is written. A global debug level opens every
// logger, and a traced context opens the C* methods.
func (imp *impl) enabled(ctx context.Context, level Level) bool {
	if GlobalLogLevel.Level() == zapcore.DebugLevel || level >= imp.level.Get() {
		return true
	}
	return TraceTag(ctx) != ""
}

func (imp *impl) newEntry(ctx context.Context, level Level, msg string, fields []zapcore.Field) {
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now(),
		LoggerName: imp.name,
		Message:    msg,
		Caller:     callerAt(callerDepth),
	}
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}
	if tag := TraceTag(ctx); tag != "" {
		fields = append(fields, zap.String("trace", tag))
	}
	for _, appender := range imp.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func (imp *impl) print(ctx context.Context, level Level, args []interface{}) {
	if imp.enabled(ctx, level) {
		imp.newEntry(ctx, level, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) printf(ctx context.Context, level Level, template string, args []interface{}) {
	if imp.enabled(ctx, level) {
		imp.newEntry(ctx, level, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) printw(ctx context.Context, level Level, msg string, keysAndValues []interface{}) {
	if imp.enabled(ctx, level) {
		imp.newEntry(ctx, level, msg, fieldsOf(keysAndValues))
	}
}

// fieldsOf pairs up keys and values. Values are encoded as JSON, so only exported struct fields
// show up. A trailing key without a value is kept with a marker in its place.
func fieldsOf(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.String(key, "unpaired log key"))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

func (imp *impl) Debug(args ...interface{}) { imp.print(context.Background(), DEBUG, args) }

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.printf(context.Background(), DEBUG, template, args)
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.printw(context.Background(), DEBUG, msg, keysAndValues)
}

func (imp *impl) CDebug(ctx context.Context, args ...interface{}) { imp.print(ctx, DEBUG, args) }

func (imp *impl) CDebugf(ctx context.Context, template string, args ...interface{}) {
	imp.printf(ctx, DEBUG, template, args)
}

func (imp *impl) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.printw(ctx, DEBUG, msg, keysAndValues)
}

func (imp *impl) Info(args ...interface{}) { imp.print(context.Background(), INFO, args) }

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.printf(context.Background(), INFO, template, args)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.printw(context.Background(), INFO, msg, keysAndValues)
}

func (imp *impl) Warn(args ...interface{}) { imp.print(context.Background(), WARN, args) }

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.printf(context.Background(), WARN, template, args)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.printw(context.Background(), WARN, msg, keysAndValues)
}

func (imp *impl) Error(args ...interface{}) { imp.print(context.Background(), ERROR, args) }

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.printf(context.Background(), ERROR, template, args)
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.printw(context.Background(), ERROR, msg, keysAndValues)
}

func callerAt(skip int) zapcore.EntryCaller {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return zapcore.EntryCaller{}
	}
	caller := zapcore.EntryCaller{Defined: true, PC: pc, File: file, Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		caller.Function = fn.Name()
	}
	return caller
}
