package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type impl struct {
	*zap.SugaredLogger
	level zap.AtomicLevel
}

func newImpl(name string, level zap.AtomicLevel, core zapcore.Core) *impl {
	sugar := zap.New(core, zap.AddCaller()).Sugar()
	if name != "" {
		sugar = sugar.Named(name)
	}
	return &impl{SugaredLogger: sugar, level: level}
}

func (imp *impl) Sublogger(subname string) Logger {
	return &impl{SugaredLogger: imp.SugaredLogger.Named(subname), level: imp.level}
}

func (imp *impl) WithFields(keysAndValues ...interface{}) Logger {
	return &impl{SugaredLogger: imp.SugaredLogger.With(keysAndValues...), level: imp.level}
}

func (imp *impl) SetLevel(level Level) {
	imp.level.SetLevel(level.AsZap())
}

func (imp *impl) GetLevel() Level {
	return levelFromZap(imp.level.Level())
}

func (imp *impl) AsZap() *zap.SugaredLogger {
	return imp.SugaredLogger
}

// stdout resolves os.Stdout on every write so tests that swap it still capture output.
type stdout struct{}

func (stdout) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdout) Sync() error {
	// syncing a terminal returns EINVAL on some platforms; nothing is buffered here anyway.
	return nil
}
