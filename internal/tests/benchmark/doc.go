// Package benchmark holds performance benchmarks for the hot paths:
// token verification, artifact save and fetch, and alias resolution.
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// The stores are file-backed and rewrite their whole table per
// mutation, so write benchmarks measure fsync-bound behavior; run them
// on the filesystem the deployment will use. Compare runs with
// benchstat.
package benchmark
