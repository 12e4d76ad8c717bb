// Package models defines the domain entities shared by the synchronizer.
//
// The package contains two categories of types:
//
// 1. Catalog and index entries:
//   - [PlaylistItem] : One remote video as listed in a playlist, also the unit of the on-disk index
//   - [PlaylistIndex] : The persisted snapshot of a playlist, the only source of truth for what is downloaded
//
// 2. Audit records written to the run history database:
//   - [Run] : One invocation of the synchronizer
//   - [PlaylistRun] : Per-playlist outcome within a run
package models
