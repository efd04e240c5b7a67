package main

import "os"

// osExit is a package-level indirection so tests can intercept process exit
// instead of actually terminating the test binary.
var osExit = os.Exit

// exitSentinel is panicked by a test double for osExit and recovered by the
// test harness to observe the intended exit code.
type exitSentinel int
