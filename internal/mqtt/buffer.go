package mqtt

// pendingMsg is a camwatch event or system payload held back while the broker
// is unreachable.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds the most recent pendingMsgs while offline, dropping the oldest
// once full. The RealPublisher mutex guards it.
type outbox struct {
	slots   []pendingMsg
	oldest  int
	size    int
	dropped bool
}

func newOutbox(capacity int) *outbox {
	return &outbox{slots: make([]pendingMsg, capacity)}
}

// add queues msg. It returns true only for the first drop since the last
// flush, so a long outage logs one warning.
func (o *outbox) add(msg pendingMsg) bool {
	n := len(o.slots)
	if o.size < n {
		o.slots[(o.oldest+o.size)%n] = msg
		o.size++
		return false
	}

	o.slots[o.oldest] = msg
	o.oldest = (o.oldest + 1) % n
	warn := !o.dropped
	o.dropped = true
	return warn
}

// flush empties the outbox and returns its messages oldest first, or nil.
func (o *outbox) flush() []pendingMsg {
	if o.size == 0 {
		return nil
	}
	n := len(o.slots)
	out := make([]pendingMsg, 0, o.size)
	for i := 0; i < o.size; i++ {
		out = append(out, o.slots[(o.oldest+i)%n])
	}
	*o = outbox{slots: o.slots}
	return out
}

func (o *outbox) len() int {
	return o.size
}
