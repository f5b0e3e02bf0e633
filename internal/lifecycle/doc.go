// Package lifecycle forwards host close and destroy notifications to the
// supervisor. It holds no process logic of its own.
package lifecycle
