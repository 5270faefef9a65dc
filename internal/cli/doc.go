// Package cli implements the zscore command line tool: local calculation,
// calculation through a running server, and a probe that checks a server
// against known scenarios.
package cli
