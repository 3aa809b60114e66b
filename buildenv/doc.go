// Package buildenv holds the mutable state of a single build
// invocation: the project options read by the stamper, the output
// program name and the ordered list of compile definitions.
//
// Env implements stamper.Environment. Options are assembled from
// PlatformIO project files, YAML or JSON option files, dotenv files,
// Bazel workspace status files and KEY=VALUE assignments, then
// layered with Merge. The results render as compiler flags, Go
// linker flags, JSON, YAML or a table.
package buildenv
