package corefile

import "go.uber.org/zap"

// sanityChecks enables possibly-expensive assertion checks.
const sanityChecks = true

var logger = zap.NewNop()

// SetLogger installs the logger used for loading diagnostics.
// Segment loading is logged at debug level. Passing nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l.Named("corefile")
}
