// Package workflow wires the pipeline stages into one run: lock the
// output tree, preflight the environment, discover samples, prepare the
// reference index, then trim, dispatch and await every sample before
// collating the count matrix. Stage ordering is fixed; the index is
// always ready before the first job starts.
package workflow
