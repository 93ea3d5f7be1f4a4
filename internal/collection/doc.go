// Package collection stores die-cast car records in a local bbolt file and
// answers the two lookups the scanner needs: by collector number and by
// product-code substring.
package collection
