// Package integration_tests holds end-to-end suites that run workspace files
// through the app, grouped by concern in subdirectories.
package integration_tests
