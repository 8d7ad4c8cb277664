// Package pkg provides the core libraries for pipbake recipe generation.
//
// # Overview
//
// pipbake converts pinned pip requirement lines into BitBake recipes. The
// pkg directory is organized around the stages a package moves through:
//
//  1. [spec] - Requirement line parsing and name normalization
//  2. [pypi] - Index metadata resolution and artifact download
//  3. [fetch] - Append-only source distribution cache
//  4. [checksum], [archive], [license] - Artifact verification, extraction, license facts
//  5. [recipe] - BitBake recipe rendering and emission
//  6. [pipeline] - Orchestration of the per-package stage sequence
//
// Supporting packages: [cache] (metadata cache backends), [config] (TOML
// settings), [errors] (coded errors), [observability] (stage hooks), and
// [buildinfo] (ldflags version data).
//
// # Architecture
//
// The typical data flow for one package:
//
//	requirements.txt line
//	         ↓ spec.ParseLine
//	Request{Name, Version}
//	         ↓ pypi.Resolve → fetch.Download (or cache hit)
//	source distribution on disk
//	         ↓ checksum.File, archive.Extract, license.Locate
//	recipe facts
//	         ↓ recipe.Emit
//	python3-<name>_<version>.bb
//
// Packages run concurrently through pipeline.Runner; failures are
// isolated per package.
package pkg
