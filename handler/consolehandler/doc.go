// Package consolehandler provides console output handlers that write
// serialized log entries to any io.Writer (default: os.Stdout).
//
// A console stream is created once and never reopened: the serializer's
// AfterCreate runs before the first entry and BeforeClose runs on Close,
// which leaves the writer itself open.
//
//   - SyncConsoleHandler writes each entry before Handle returns.
//   - AsyncConsoleHandler queues entries with a per-level OverflowPolicy
//     and a dedicated background goroutine.
//
// The factory function NewConsoleHandler chooses the variant based on the
// Async field in ConsoleConfig.
package consolehandler
