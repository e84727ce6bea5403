package viewport

// Queue buffers commands until the client polls.  A newer command replaces a
// queued one of the same kind, so a fly-to issued mid-animation simply
// redirects the camera.
type Queue struct {
	cmds []Command
}

// Push enqueues cmd, dropping any queued command of the same kind.
func (q *Queue) Push(cmd Command) {
	kept := q.cmds[:0]
	for _, c := range q.cmds {
		if c.Kind != cmd.Kind {
			kept = append(kept, c)
		}
	}
	q.cmds = append(kept, cmd)
}

// Drain returns the queued commands in order and empties the queue.  The
// result is never nil.
func (q *Queue) Drain() []Command {
	out := make([]Command, len(q.cmds))
	copy(out, q.cmds)
	q.cmds = q.cmds[:0]
	return out
}

// Len returns the number of queued commands.
func (q *Queue) Len() int { return len(q.cmds) }
