// Package logger wraps a global zap logger with a shared atomic level and
// context-aware helpers. Fields attached with WithKV, such as the run id of
// a download, follow the context into every helper call.
package logger
