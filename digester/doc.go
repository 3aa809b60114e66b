// Package digester compares generated build files against freshly
// rendered content by SHA256 digest. Files are only rewritten when
// their content changes.
package digester
