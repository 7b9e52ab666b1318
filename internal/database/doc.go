// Package database stores run history in SQLite: one row per saved
// baseline and one per comparison pass, so past runs can be listed and
// drift per host tracked over time without re-reading every manifest on
// disk.
package database
