package imbal

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// SetLog enables or disables logging.
func SetLog(enable bool) {
	if !enable {
		SetLogger(nil)
		return
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return
	}
	SetLogger(l)
}

// SetLogger sets the logger used by the imbal packages.  A nil logger
// disables logging.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// Log returns the package logger.  It never returns nil.
func Log() *zap.Logger {
	return logger.Load()
}
