//go:build !debug
// +build !debug

package phaseopt

func DebugLog(format string, args ...interface{}) {}

func DebugLogOnce(format string, args ...interface{}) {}
