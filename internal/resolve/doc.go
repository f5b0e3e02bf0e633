// Package resolve locates the worker entry point on disk.
//
// Development builds walk an ordered list of candidate paths anchored at a
// known directory; packaged builds look under the platform resource directory.
// Resolution never touches supervisor state.
package resolve
