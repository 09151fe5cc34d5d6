package assocarray

import "go.uber.org/zap"

var logger = zap.NewNop()

// SetLogger installs the logger used to trace walks at debug level.
// Passing nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l.Named("assocarray")
}
