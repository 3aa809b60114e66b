// Package stamper combines the firmware name and version project
// options into a single "name@version" identifier. Stamp reads both
// options from an Environment, rejects values containing the "@"
// separator, then sets the build output name and appends the
// FIRMWARE_VERSION compile definition.
package stamper
