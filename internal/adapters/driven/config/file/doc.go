// Package file provides a TOML-backed configuration store.
// Nested TOML tables are flattened into dot-notation keys, so
// [sharepoint] site_url = "..." is read as "sharepoint.site_url".
package file
