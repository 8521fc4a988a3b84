// Package api contains the per-request Context, the ordered handler
// dispatcher, and the resource handlers for the media-review REST surface.
package api
