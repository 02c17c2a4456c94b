// Package logger is the public API of nlogsink. Most programs only need
// this package plus a handler.
//
// A Logger is immutable after construction. The name, level, fields and
// handler are set once via the Builder and never modified, so a Logger
// is safe for concurrent use without locking on the read path.
//
// The package-level functions Info, Error, Infof, etc. delegate to a
// default Logger (async, InfoLevel, text format to stdout) created on
// first use or installed with SetDefault:
//
//	logger.Info("ready", logger.Int("port", 8080))
//
// For custom configuration, use the Builder:
//
//	log := logger.NewBuilder().
//	    WithHandler(fileHandler).
//	    WithName("api").
//	    WithLevel(logger.DebugLevel).
//	    Build()
//
// Child loggers share the handler. With adds default fields, Named
// extends the logger name with a dot, and WithError attaches an error
// as the throwable of every entry:
//
//	log.Named("db").WithError(err).Error("query failed")
//
// Handlers buffer output; Flush pushes it to the sink and Fatal and
// Panic flush before they exit.
package logger
