// Package buildinfo reports the build description of the running binary.
//
// Resolution order per field:
//
//   - Version: the ldflags override, else the module version recorded by
//     the toolchain, else "dev".
//   - Commit: the ldflags override, else the vcs.revision stamp, else
//     "unknown". Builds from a modified tree are flagged via Modified.
//   - GoVersion: always the running runtime's version.
//
// Get resolves once per process and is safe for concurrent use. The
// metric collector labels the plotvault_build_info gauge with these
// values.
package buildinfo
