// Package baseline persists crawl baselines on disk: a manifest plus a
// directory of screenshots per run, grouped under the host they were
// captured from.
//
// A baseline becomes visible atomically. Snapshots and the manifest are
// written into a staging directory and the whole directory is renamed
// into place on commit, so an interrupted run never leaves a partial
// baseline behind.
package baseline
