// Package collect gathers the raw strings and import references seen while
// decoding packages, for building hash dictionaries across many files.
//
// A Collection is safe to share between concurrent decodes. Passing no
// sink to the decoder disables collection; decode results are identical
// either way.
package collect
