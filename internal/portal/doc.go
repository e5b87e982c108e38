// Package portal turns tissue-portal CSV exports into download URL
// lists: filter the rows, extract the specimen IDs, derive one image
// URL per specimen.
package portal
