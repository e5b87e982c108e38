// Package catalog talks to a data-portal catalog API: querying its
// files endpoint by project and data type, and downloading the hits
// either one file at a time or as batched archives.
package catalog
